// Package store constructs the process-wide shared store client and owns
// the key naming scheme. All cross-connection state (presence sets, voice
// sets, color cache, document snapshots) and the broadcast channels live in
// this store so that multiple server instances can cooperate.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ActiveProjectsKey is the set of project ids with at least one live session.
const ActiveProjectsKey = "active_projects"

// Config holds connection settings for the shared store.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewClient connects to the shared store and verifies the connection.
// The returned client is constructed once at startup and injected into
// every component; it is never recreated per connection.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to shared store: %w", err)
	}

	return rdb, nil
}

// DocKey returns the key caching the full document snapshot for a project.
func DocKey(projectID int64) string {
	return fmt.Sprintf("doc:%d", projectID)
}

// ActiveSetKey returns the key of the TTL-governed active-user set for a project.
func ActiveSetKey(projectID int64) string {
	return fmt.Sprintf("active_users:%d", projectID)
}

// VoiceRoomKey returns the key of the voice-participant set for a project.
func VoiceRoomKey(projectID int64) string {
	return fmt.Sprintf("voice_room:%d", projectID)
}

// ColorKey returns the key caching the display color for a user key.
func ColorKey(userKey string) string {
	return fmt.Sprintf("user_color:%s", userKey)
}

// RoomChannel returns the pub/sub channel for one room.
func RoomChannel(groupID, projectID int64) string {
	return fmt.Sprintf("room:g%d:p%d", groupID, projectID)
}

// GlobalChannel is the pub/sub channel reaching every session on every
// instance. Used only for administrative kicks.
const GlobalChannel = "global"
