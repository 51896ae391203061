// Package presence tracks who is live in a project: a TTL-governed active
// set refreshed by heartbeats, a voice-room subset, and a cached display
// color per user. All state lives in the shared store so every server
// instance sees the same rosters.
package presence

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/syncpad/backend/internal/store"
)

// TTL is the liveness window of a project's active set. Staleness past the
// TTL is a soft liveness signal; explicit disconnect cleanup stays primary.
const TTL = 60 * time.Second

// Store mutates presence state in the shared store.
type Store struct {
	rdb *redis.Client
}

// NewStore creates a presence Store on the shared client.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Touch registers a user key as active in the project and refreshes the
// set's TTL. It also marks the project itself active.
func (s *Store) Touch(ctx context.Context, projectID int64, userKey string) error {
	key := store.ActiveSetKey(projectID)
	if err := s.rdb.SAdd(ctx, key, userKey).Err(); err != nil {
		return err
	}
	if err := s.rdb.Expire(ctx, key, TTL).Err(); err != nil {
		return err
	}
	return s.rdb.SAdd(ctx, store.ActiveProjectsKey, projectID).Err()
}

// Refresh extends the active set's TTL. Called by the per-session heartbeat.
func (s *Store) Refresh(ctx context.Context, projectID int64) error {
	return s.rdb.Expire(ctx, store.ActiveSetKey(projectID), TTL).Err()
}

// Remove deletes a user key from the project's active set and returns the
// remaining active count. Removing an absent key is a no-op.
func (s *Store) Remove(ctx context.Context, projectID int64, userKey string) (int64, error) {
	if err := s.rdb.SRem(ctx, store.ActiveSetKey(projectID), userKey).Err(); err != nil {
		return 0, err
	}
	remaining, err := s.rdb.SCard(ctx, store.ActiveSetKey(projectID)).Result()
	if err != nil {
		return 0, err
	}
	if remaining == 0 {
		if err := s.rdb.SRem(ctx, store.ActiveProjectsKey, projectID).Err(); err != nil {
			return 0, err
		}
	}
	return remaining, nil
}

// Members returns the user keys currently in the project's active set.
func (s *Store) Members(ctx context.Context, projectID int64) ([]string, error) {
	return s.rdb.SMembers(ctx, store.ActiveSetKey(projectID)).Result()
}

// JoinVoice adds a user key to the project's voice room.
func (s *Store) JoinVoice(ctx context.Context, projectID int64, userKey string) error {
	return s.rdb.SAdd(ctx, store.VoiceRoomKey(projectID), userKey).Err()
}

// LeaveVoice removes a user key from the project's voice room.
func (s *Store) LeaveVoice(ctx context.Context, projectID int64, userKey string) error {
	return s.rdb.SRem(ctx, store.VoiceRoomKey(projectID), userKey).Err()
}

// VoiceMembers returns the user keys currently in the project's voice room.
func (s *Store) VoiceMembers(ctx context.Context, projectID int64) ([]string, error) {
	return s.rdb.SMembers(ctx, store.VoiceRoomKey(projectID)).Result()
}

// EvictColor drops the cached display color for a user key.
func (s *Store) EvictColor(ctx context.Context, userKey string) error {
	return s.rdb.Del(ctx, store.ColorKey(userKey)).Err()
}
