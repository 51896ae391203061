package document

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/syncpad/backend/internal/store"
)

// Store caches the full document snapshot per project in the shared store.
// A present snapshot is authoritative over the durable record; absence
// means no live session has started merging yet.
type Store struct {
	rdb    *redis.Client
	merger Merger
}

// NewStore creates a document Store using the given merge primitive.
func NewStore(rdb *redis.Client, merger Merger) *Store {
	return &Store{rdb: rdb, merger: merger}
}

// Snapshot returns the cached full state for a project, or (nil, false, nil)
// when no snapshot exists.
func (s *Store) Snapshot(ctx context.Context, projectID int64) ([]byte, bool, error) {
	data, err := s.rdb.Get(ctx, store.DocKey(projectID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// ApplyUpdate folds an incremental update into the cached snapshot: read
// the current state (empty if absent), merge, write the full state back.
// The read-modify-write is intentionally unlocked; correctness across
// racing writers rests on the merge primitive being commutative and
// idempotent.
func (s *Store) ApplyUpdate(ctx context.Context, projectID int64, update []byte) error {
	key := store.DocKey(projectID)

	current, err := s.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		current = nil
	} else if err != nil {
		return err
	}

	merged, err := s.merger.Merge(current, update)
	if err != nil {
		return err
	}

	return s.rdb.Set(ctx, key, merged, 0).Err()
}
