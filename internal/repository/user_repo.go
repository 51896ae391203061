package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/syncpad/backend/internal/model"
)

// UserRepository provides data access for users.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID retrieves a user by its ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	user := &model.User{}
	var apiToken sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, api_token FROM users WHERE id = ?`, id,
	).Scan(&user.ID, &user.Email, &apiToken)
	if err == sql.ErrNoRows {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if apiToken.Valid {
		user.APIToken = apiToken.String
	}
	return user, nil
}

// GetByAPIToken retrieves a user by its API token. Used by the auth
// middleware to resolve an already-issued credential to an identity.
func (r *UserRepository) GetByAPIToken(ctx context.Context, token string) (*model.User, error) {
	user := &model.User{}

	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, api_token FROM users WHERE api_token = ?`, token,
	).Scan(&user.ID, &user.Email, &user.APIToken)
	if err == sql.ErrNoRows {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by token: %w", err)
	}

	return user, nil
}

// Create inserts a new user. Primarily used by tests and seeding.
func (r *UserRepository) Create(ctx context.Context, email, apiToken string) (*model.User, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, api_token) VALUES (?, ?)`, email, apiToken,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get user id: %w", err)
	}

	return &model.User{ID: id, Email: email, APIToken: apiToken}, nil
}
