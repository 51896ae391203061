package ws

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/syncpad/backend/internal/document"
	"github.com/syncpad/backend/internal/identity"
	"github.com/syncpad/backend/internal/presence"
	"github.com/syncpad/backend/internal/store"
)

// ProjectStore is the durable-store collaborator contract the hub needs:
// a fallback read source and the final persistence sink.
type ProjectStore interface {
	GetContent(ctx context.Context, projectID int64) (string, error)
	SaveDocument(ctx context.Context, projectID int64, blob []byte) error
}

// Service wires the hub's components and tracks the sessions of this
// instance. Cross-instance coordination happens entirely through the
// shared store.
type Service struct {
	router   *Router
	presence *presence.Store
	roster   *presence.Roster
	docs     *document.Store
	projects ProjectStore

	heartbeatInterval time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

// Config holds the collaborators of a Service.
type Config struct {
	Redis    *redis.Client
	Presence *presence.Store
	Roster   *presence.Roster
	Docs     *document.Store
	Projects ProjectStore

	// HeartbeatInterval overrides DefaultHeartbeatInterval when positive.
	HeartbeatInterval time.Duration
}

// NewService creates the hub service.
func NewService(cfg Config) *Service {
	interval := cfg.HeartbeatInterval
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}

	return &Service{
		router:            NewRouter(cfg.Redis),
		presence:          cfg.Presence,
		roster:            cfg.Roster,
		docs:              cfg.Docs,
		projects:          cfg.Projects,
		heartbeatInterval: interval,
		sessions:          make(map[string]*Session),
	}
}

// Router returns the broadcast router.
func (s *Service) Router() *Router {
	return s.router
}

// StartSession runs the post-gate connect sequence for an accepted
// connection: join the room and global broadcast scopes, register
// presence, announce the roster change, send the initial document sync and
// voice roster, and start the heartbeat. Joining the scopes happens before
// the first state read so no concurrent update can be missed between join
// and first sync.
func (s *Service) StartSession(ctx context.Context, room RoomKey, ident identity.Identity, client *Client) (*Session, error) {
	sess := &Session{
		ID:       uuid.New().String(),
		Room:     room,
		Identity: ident,
		client:   client,
		svc:      s,
	}

	// Register before the global subscription goes live: a kick arriving
	// mid-connect runs the full cleanup, and cleanup must find the session
	// in the registry to remove it.
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	if err := s.router.Subscribe(ctx, room.Channel(), sess.ID, sess.handleRoomEnvelope); err != nil {
		s.forget(sess.ID)
		return nil, err
	}
	if err := s.router.Subscribe(ctx, store.GlobalChannel, sess.ID, sess.handleGlobalEnvelope); err != nil {
		s.router.Unsubscribe(room.Channel(), sess.ID)
		s.forget(sess.ID)
		return nil, err
	}

	// Presence and broadcast failures past this point are best-effort: a
	// degraded shared store must not terminate the session.
	if err := s.presence.Touch(ctx, room.ProjectID, ident.Key()); err != nil {
		log.Printf("session %s: presence registration failed: %v", sess.ID, err)
	}
	sess.publishRoom(ctx, &Envelope{Event: EventUsersChanged})

	sess.sendDocumentSync(ctx)
	sess.sendVoiceRoster(ctx)
	sess.startHeartbeat(s.heartbeatInterval)

	return sess, nil
}

// Kick force-disconnects every session of the given user key, on every
// instance, via the global channel. An empty key is rejected; it would
// match every session.
func (s *Service) Kick(ctx context.Context, userKey string) error {
	if userKey == "" {
		return errors.New("user key required")
	}
	return s.router.Publish(ctx, store.GlobalChannel, &Envelope{
		Event:      EventForceDisconnect,
		TargetUser: userKey,
	})
}

// SessionCount returns the number of live sessions on this instance.
func (s *Service) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// forget drops a session from the local registry.
func (s *Service) forget(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Close disconnects every local session and tears down the router.
func (s *Service) Close() {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Disconnect()
	}
	s.router.Close()
}
