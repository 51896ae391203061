package presence

import (
	"context"
	"log"
	"strconv"

	"github.com/syncpad/backend/internal/identity"
	"github.com/syncpad/backend/internal/model"
)

// UserInfo is one entry of the presence roster sent to clients.
type UserInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Color      string `json:"color,omitempty"`
	ColorLight string `json:"colorLight,omitempty"`
}

// UserLookup resolves an authenticated user id to its profile.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// Roster resolves raw user keys from the shared store into display entries.
type Roster struct {
	store *Store
	users UserLookup
}

// NewRoster creates a Roster over the presence store and a profile lookup.
func NewRoster(store *Store, users UserLookup) *Roster {
	return &Roster{store: store, users: users}
}

// Active builds the full presence roster for a project. Anonymous keys get
// derived hero names; authenticated keys are resolved through the profile
// lookup. Each entry carries its stable cached color. Keys that cannot be
// resolved are skipped so one stale entry never fails the whole roster.
func (r *Roster) Active(ctx context.Context, projectID int64) ([]UserInfo, error) {
	keys, err := r.store.Members(ctx, projectID)
	if err != nil {
		return nil, err
	}

	users := make([]UserInfo, 0, len(keys))
	for _, key := range keys {
		name, ok := r.resolveName(ctx, key)
		if !ok {
			continue
		}

		color, err := r.store.ColorFor(ctx, key)
		if err != nil {
			log.Printf("color lookup failed for %s: %v", key, err)
			color = DefaultColor
		}

		users = append(users, UserInfo{
			ID:         key,
			Name:       name,
			Color:      color.Color,
			ColorLight: color.Light,
		})
	}
	return users, nil
}

// Voice builds the voice-room roster for a project: the same resolution as
// Active restricted to the voice subset, without colors.
func (r *Roster) Voice(ctx context.Context, projectID int64) ([]UserInfo, error) {
	keys, err := r.store.VoiceMembers(ctx, projectID)
	if err != nil {
		return nil, err
	}

	participants := make([]UserInfo, 0, len(keys))
	for _, key := range keys {
		name, ok := r.resolveName(ctx, key)
		if !ok {
			continue
		}
		participants = append(participants, UserInfo{ID: key, Name: name})
	}
	return participants, nil
}

// DisplayName resolves a user key to its display name, falling back to the
// raw key when the profile is missing.
func (r *Roster) DisplayName(ctx context.Context, userKey string) string {
	if name, ok := r.resolveName(ctx, userKey); ok {
		return name
	}
	return userKey
}

func (r *Roster) resolveName(ctx context.Context, userKey string) (string, bool) {
	if name, ok := identity.DisplayNameForKey(userKey); ok {
		return name, true
	}

	id, err := strconv.ParseInt(userKey, 10, 64)
	if err != nil {
		return "", false
	}
	user, err := r.users.GetByID(ctx, id)
	if err != nil {
		return "", false
	}
	return user.Email, true
}
