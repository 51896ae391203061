// Package repository provides data access for the durable store.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/syncpad/backend/internal/model"
)

// ProjectRepository provides data access for projects and group membership.
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository creates a new ProjectRepository.
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create inserts a new project with empty content.
func (r *ProjectRepository) Create(ctx context.Context, groupID int64, name string) (*model.Project, error) {
	now := time.Now()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO projects (group_id, name, content, created_at, updated_at) VALUES (?, ?, '', ?, ?)`,
		groupID, name, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get project id: %w", err)
	}

	return &model.Project{
		ID:        id,
		GroupID:   groupID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetByID retrieves a project by its ID.
func (r *ProjectRepository) GetByID(ctx context.Context, id int64) (*model.Project, error) {
	project := &model.Project{}
	var document []byte

	err := r.db.QueryRowContext(ctx,
		`SELECT id, group_id, name, content, document, created_at, updated_at FROM projects WHERE id = ?`,
		id,
	).Scan(
		&project.ID,
		&project.GroupID,
		&project.Name,
		&project.Content,
		&document,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, model.ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	project.Document = document
	return project, nil
}

// List retrieves all projects in a group.
func (r *ProjectRepository) List(ctx context.Context, groupID int64) ([]*model.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, group_id, name, created_at, updated_at FROM projects WHERE group_id = ? ORDER BY created_at DESC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*model.Project
	for rows.Next() {
		project := &model.Project{}
		if err := rows.Scan(&project.ID, &project.GroupID, &project.Name, &project.CreatedAt, &project.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}

	return projects, nil
}

// Rename updates the name of a project.
func (r *ProjectRepository) Rename(ctx context.Context, id int64, name string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE projects SET name = ?, updated_at = ? WHERE id = ?`,
		name, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to rename project: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.ErrProjectNotFound
	}

	return nil
}

// Delete removes a project.
func (r *ProjectRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.ErrProjectNotFound
	}

	return nil
}

// GetContent retrieves the durable plain-text content of a project.
func (r *ProjectRepository) GetContent(ctx context.Context, id int64) (string, error) {
	var content string
	err := r.db.QueryRowContext(ctx, `SELECT content FROM projects WHERE id = ?`, id).Scan(&content)
	if err == sql.ErrNoRows {
		return "", model.ErrProjectNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get project content: %w", err)
	}
	return content, nil
}

// SaveDocument persists the full document blob for a project.
// Invoked when the last collaborator of a project disconnects.
func (r *ProjectRepository) SaveDocument(ctx context.Context, id int64, blob []byte) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE projects SET document = ?, updated_at = ? WHERE id = ?`,
		blob, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.ErrProjectNotFound
	}

	return nil
}

// IsMember reports whether the user belongs to the group owning the project.
// The project must belong to the given group for membership to hold.
func (r *ProjectRepository) IsMember(ctx context.Context, userID, groupID, projectID int64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM projects p
		JOIN group_members gm ON gm.group_id = p.group_id
		WHERE p.id = ? AND p.group_id = ? AND gm.user_id = ?
	`, projectID, groupID, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return n > 0, nil
}

// IsGroupMember reports whether the user belongs to the group.
func (r *ProjectRepository) IsGroupMember(ctx context.Context, userID, groupID int64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM group_members WHERE group_id = ? AND user_id = ?`,
		groupID, userID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check group membership: %w", err)
	}
	return n > 0, nil
}
