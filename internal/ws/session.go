package ws

import (
	"context"
	"encoding/base64"
	"errors"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/syncpad/backend/internal/access"
	"github.com/syncpad/backend/internal/identity"
	"github.com/syncpad/backend/internal/model"
	"github.com/syncpad/backend/internal/store"
)

// MaxChatLength is the accepted chat message length in characters.
const MaxChatLength = 1000

// RoomKey identifies one collaboration room.
type RoomKey struct {
	GroupID   int64
	ProjectID int64
}

// Channel returns the room's pub/sub channel.
func (k RoomKey) Channel() string {
	return store.RoomChannel(k.GroupID, k.ProjectID)
}

// Session is the per-connection actor. It owns exactly one client
// connection and coordinates presence, document sync, chat and voice
// signaling through the shared store; it holds no state shared with other
// sessions in-process.
type Session struct {
	ID       string
	Room     RoomKey
	Identity identity.Identity

	client *Client
	svc    *Service

	forced      atomic.Bool
	cleanupOnce sync.Once

	// hbMu guards the heartbeat fields against a disconnect racing the
	// connect sequence. Once hbStopped is set the heartbeat can never start.
	hbMu      sync.Mutex
	hbStopped bool
	hbCancel  context.CancelFunc
	hbDone    chan struct{}
}

// HandleMessage dispatches one inbound client message. Message handling is
// isolated: a malformed or failing message never terminates the connection.
func (s *Session) HandleMessage(ctx context.Context, msg *Message) {
	switch msg.Type {
	case MessageTypeUpdate:
		s.handleUpdate(ctx, msg)
	case MessageTypeRequestSync:
		s.sendDocumentSync(ctx)
	case MessageTypeAwareness:
		s.handleAwareness(ctx, msg)
	case MessageTypeChat:
		s.handleChat(ctx, msg)
	case MessageTypeJoinVoice:
		s.handleJoinVoice(ctx)
	case MessageTypeLeaveVoice:
		s.handleLeaveVoice(ctx)
	case MessageTypeVoiceSignal:
		s.handleVoiceSignal(ctx, msg)
	case MessageTypePing:
		s.client.SendMessage(&Message{Type: MessageTypePong, Timestamp: msg.Timestamp})
	}
}

// handleUpdate merges an incremental document update into the cached
// snapshot and relays the raw update verbatim to the rest of the room, so
// bandwidth scales with edit size rather than document size.
func (s *Session) handleUpdate(ctx context.Context, msg *Message) {
	if msg.UpdateB64 == "" {
		return
	}
	update, err := base64.StdEncoding.DecodeString(msg.UpdateB64)
	if err != nil {
		return
	}

	if err := s.svc.docs.ApplyUpdate(ctx, s.Room.ProjectID, update); err != nil {
		log.Printf("session %s: apply update failed: %v", s.ID, err)
		return
	}

	s.publishRoom(ctx, &Envelope{
		Event:     EventUpdate,
		Sender:    s.ID,
		UpdateB64: msg.UpdateB64,
	})
}

// sendDocumentSync sends the cached full snapshot when one exists, or the
// durable plain-text record as a one-shot initial payload when no live
// session has started merging yet.
func (s *Session) sendDocumentSync(ctx context.Context) {
	snapshot, ok, err := s.svc.docs.Snapshot(ctx, s.Room.ProjectID)
	if err != nil {
		log.Printf("session %s: snapshot read failed: %v", s.ID, err)
		return
	}

	if ok {
		s.client.SendMessage(&Message{
			Type:   MessageTypeSync,
			DocB64: base64.StdEncoding.EncodeToString(snapshot),
		})
		return
	}

	content, err := s.svc.projects.GetContent(ctx, s.Room.ProjectID)
	if err != nil && !errors.Is(err, model.ErrProjectNotFound) {
		log.Printf("session %s: durable content read failed: %v", s.ID, err)
		return
	}
	s.client.SendMessage(&Message{Type: MessageTypeInitial, Content: content})
}

func (s *Session) handleAwareness(ctx context.Context, msg *Message) {
	if msg.UpdateB64 == "" {
		return
	}
	s.publishRoom(ctx, &Envelope{
		Event:     EventAwareness,
		Sender:    s.ID,
		UpdateB64: msg.UpdateB64,
	})
}

// handleChat stamps an accepted chat message with the sender's identity,
// display name, cached color and a timestamp, then broadcasts it to the
// whole room. Chat is intentionally not echo-suppressed so every tab of
// the sender sees it. Empty or over-length messages are dropped.
func (s *Session) handleChat(ctx context.Context, msg *Message) {
	text := strings.TrimSpace(msg.Message)
	if text == "" || utf8.RuneCountInString(text) > MaxChatLength {
		return
	}

	key := s.Identity.Key()
	color, err := s.svc.presence.ColorFor(ctx, key)
	if err != nil {
		log.Printf("session %s: chat color lookup failed: %v", s.ID, err)
	}

	s.publishRoom(ctx, &Envelope{
		Event:     EventChatMessage,
		Message:   text,
		UserID:    key,
		UserName:  s.displayName(ctx),
		Color:     color.Color,
		Timestamp: float64(time.Now().UnixMilli()),
	})
}

func (s *Session) handleJoinVoice(ctx context.Context) {
	if err := s.svc.presence.JoinVoice(ctx, s.Room.ProjectID, s.Identity.Key()); err != nil {
		log.Printf("session %s: join voice failed: %v", s.ID, err)
		return
	}
	s.publishRoom(ctx, &Envelope{Event: EventVoiceRoomUpdate})
}

func (s *Session) handleLeaveVoice(ctx context.Context) {
	if err := s.svc.presence.LeaveVoice(ctx, s.Room.ProjectID, s.Identity.Key()); err != nil {
		log.Printf("session %s: leave voice failed: %v", s.ID, err)
		return
	}
	s.publishRoom(ctx, &Envelope{Event: EventVoiceRoomUpdate})
}

// handleVoiceSignal relays an opaque signaling payload to the one session
// in the room whose identity matches the target.
func (s *Session) handleVoiceSignal(ctx context.Context, msg *Message) {
	if msg.TargetUser == "" || len(msg.SignalData) == 0 {
		return
	}
	s.publishRoom(ctx, &Envelope{
		Event:      EventVoiceSignal,
		Sender:     s.ID,
		FromUser:   s.Identity.Key(),
		TargetUser: msg.TargetUser,
		SignalData: msg.SignalData,
	})
}

// handleRoomEnvelope delivers one room broadcast to this session's client.
// Envelopes tagged with this session's own id are dropped (echo
// suppression); roster refreshes and chat deliver unconditionally.
func (s *Session) handleRoomEnvelope(env *Envelope) {
	ctx := context.Background()

	switch env.Event {
	case EventUpdate:
		if env.Sender == s.ID {
			return
		}
		s.client.SendMessage(&Message{Type: MessageTypeUpdate, UpdateB64: env.UpdateB64})

	case EventAwareness:
		if env.Sender == s.ID {
			return
		}
		s.client.SendMessage(&Message{Type: MessageTypeAwareness, UpdateB64: env.UpdateB64})

	case EventRemoveAwareness:
		if env.Sender == s.ID {
			return
		}
		s.client.SendMessage(&Message{Type: MessageTypeRemoveAwareness, UserID: env.UserID})

	case EventUsersChanged:
		s.sendRoster(ctx)

	case EventVoiceRoomUpdate:
		s.sendVoiceRoster(ctx)

	case EventChatMessage:
		s.client.SendMessage(&Message{
			Type:      MessageTypeChat,
			Message:   env.Message,
			UserID:    env.UserID,
			UserName:  env.UserName,
			Color:     env.Color,
			Timestamp: env.Timestamp,
		})

	case EventVoiceSignal:
		if env.Sender == s.ID {
			return
		}
		if env.TargetUser != s.Identity.Key() {
			return
		}
		s.client.SendMessage(&Message{
			Type:       MessageTypeVoiceSignal,
			FromUser:   env.FromUser,
			SignalData: env.SignalData,
		})
	}
}

// handleGlobalEnvelope processes instance-wide broadcasts. Only
// administrative kicks travel on the global channel.
func (s *Session) handleGlobalEnvelope(env *Envelope) {
	if env.Event != EventForceDisconnect {
		return
	}
	// Exact match only. A blank target must never fan out to everyone.
	if env.TargetUser == "" || env.TargetUser != s.Identity.Key() {
		return
	}
	s.ForceDisconnect()
}

// sendRoster rebuilds the presence roster from the shared store and pushes
// it to this client. Roster refreshes are idempotent and order-independent,
// so they are never echo-suppressed.
func (s *Session) sendRoster(ctx context.Context) {
	users, err := s.svc.roster.Active(ctx, s.Room.ProjectID)
	if err != nil {
		log.Printf("session %s: roster rebuild failed: %v", s.ID, err)
		return
	}
	s.client.SendMessage(&Message{Type: MessageTypeConnection, Users: users})
}

func (s *Session) sendVoiceRoster(ctx context.Context) {
	participants, err := s.svc.roster.Voice(ctx, s.Room.ProjectID)
	if err != nil {
		log.Printf("session %s: voice roster rebuild failed: %v", s.ID, err)
		return
	}
	s.client.SendMessage(&Message{Type: MessageTypeVoiceRoomUpdate, Participants: participants})
}

// ForceDisconnect terminates the session on administrative kick. The
// forced flag suppresses the persist-on-empty rule during cleanup.
func (s *Session) ForceDisconnect() {
	s.forced.Store(true)
	s.client.CloseWithCode(access.CloseForced, "administrative disconnect")
	s.Disconnect()
}

// Disconnect tears the session down. It is idempotent: repeated calls (a
// read-pump error racing an explicit close, say) run the cleanup once and
// never error. Store failures are logged and do not stop the remaining
// steps.
func (s *Session) Disconnect() {
	s.cleanupOnce.Do(s.cleanup)
}

func (s *Session) cleanup() {
	// Detached from any request context: cleanup must run to completion
	// even when the connection's context is already gone.
	ctx := context.Background()
	key := s.Identity.Key()

	s.stopHeartbeat()

	remaining, remErr := s.svc.presence.Remove(ctx, s.Room.ProjectID, key)
	if remErr != nil {
		log.Printf("session %s: presence removal failed: %v", s.ID, remErr)
	}
	if err := s.svc.presence.LeaveVoice(ctx, s.Room.ProjectID, key); err != nil {
		log.Printf("session %s: voice removal failed: %v", s.ID, err)
	}
	if err := s.svc.presence.EvictColor(ctx, key); err != nil {
		log.Printf("session %s: color eviction failed: %v", s.ID, err)
	}

	s.publishRoom(ctx, &Envelope{Event: EventUsersChanged})
	s.publishRoom(ctx, &Envelope{Event: EventVoiceRoomUpdate})
	s.publishRoom(ctx, &Envelope{
		Event:  EventRemoveAwareness,
		Sender: s.ID,
		UserID: key,
	})

	// Last one out saves state, unless the disconnect was administrative.
	if remErr == nil && remaining == 0 && !s.forced.Load() {
		s.persistSnapshot(ctx)
	}

	s.svc.router.Unsubscribe(s.Room.Channel(), s.ID)
	s.svc.router.Unsubscribe(store.GlobalChannel, s.ID)
	s.svc.forget(s.ID)
	s.client.Close()
}

// persistSnapshot writes the cached snapshot to the durable store. The
// cache entry is deliberately left in place afterwards; it stays
// authoritative until the store evicts it.
func (s *Session) persistSnapshot(ctx context.Context) {
	snapshot, ok, err := s.svc.docs.Snapshot(ctx, s.Room.ProjectID)
	if err != nil {
		log.Printf("session %s: snapshot read for persistence failed: %v", s.ID, err)
		return
	}
	if !ok {
		return
	}
	if err := s.svc.projects.SaveDocument(ctx, s.Room.ProjectID, snapshot); err != nil {
		log.Printf("session %s: document persistence failed: %v", s.ID, err)
	}
}

func (s *Session) publishRoom(ctx context.Context, env *Envelope) {
	if err := s.svc.router.Publish(ctx, s.Room.Channel(), env); err != nil {
		log.Printf("session %s: publish %s failed: %v", s.ID, env.Event, err)
	}
}

func (s *Session) displayName(ctx context.Context) string {
	if s.Identity.Anonymous {
		return s.Identity.DisplayName()
	}
	return s.svc.roster.DisplayName(ctx, s.Identity.Key())
}
