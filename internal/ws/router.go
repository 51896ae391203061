package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Envelope event names carried on the pub/sub channels.
const (
	EventUpdate          = "update"
	EventAwareness       = "awareness"
	EventRemoveAwareness = "remove_awareness"
	EventUsersChanged    = "users_changed"
	EventVoiceRoomUpdate = "voice_room_update"
	EventChatMessage     = "chat_message"
	EventVoiceSignal     = "voice_signal"
	EventForceDisconnect = "force_disconnect"
)

// Envelope is one broadcast on a pub/sub channel. Sender carries the
// originating session id for events that must not echo back; roster
// refreshes and chat leave it empty.
type Envelope struct {
	Event  string `json:"event"`
	Sender string `json:"sender,omitempty"`

	UpdateB64 string `json:"update_b64,omitempty"`
	UserID    string `json:"user_id,omitempty"`

	Message  string  `json:"message,omitempty"`
	UserName string  `json:"user_name,omitempty"`
	Color    string  `json:"color,omitempty"`

	TargetUser string          `json:"target_user,omitempty"`
	FromUser   string          `json:"from_user,omitempty"`
	SignalData json.RawMessage `json:"signal_data,omitempty"`

	Timestamp float64 `json:"timestamp,omitempty"`
}

// Router fans broadcasts out across server instances via the shared
// store's pub/sub. Each process holds at most one subscription per channel
// and dispatches received envelopes to its local subscribers.
type Router struct {
	rdb *redis.Client

	mu       sync.Mutex
	channels map[string]*channelSub
}

type channelSub struct {
	pubsub   *redis.PubSub
	handlers map[string]func(*Envelope)
}

// NewRouter creates a Router on the shared store client.
func NewRouter(rdb *redis.Client) *Router {
	return &Router{
		rdb:      rdb,
		channels: make(map[string]*channelSub),
	}
}

// Subscribe registers a handler under the given subscriber id. The first
// subscriber of a channel opens the underlying subscription and waits for
// its confirmation, so a broadcast published after Subscribe returns is
// guaranteed to reach the handler.
func (r *Router) Subscribe(ctx context.Context, channel, id string, handler func(*Envelope)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.channels[channel]
	if !ok {
		pubsub := r.rdb.Subscribe(ctx, channel)
		if _, err := pubsub.Receive(ctx); err != nil {
			pubsub.Close()
			return err
		}
		sub = &channelSub{
			pubsub:   pubsub,
			handlers: make(map[string]func(*Envelope)),
		}
		r.channels[channel] = sub
		go r.dispatch(channel, pubsub)
	}

	sub.handlers[id] = handler
	return nil
}

// Unsubscribe removes a subscriber from a channel. The last subscriber
// closes the underlying subscription.
func (r *Router) Unsubscribe(channel, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.channels[channel]
	if !ok {
		return
	}
	delete(sub.handlers, id)
	if len(sub.handlers) == 0 {
		sub.pubsub.Close()
		delete(r.channels, channel)
	}
}

// Publish sends an envelope to every subscriber of the channel on every
// instance, including the publishing one.
func (r *Router) Publish(ctx context.Context, channel string, env *Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, channel, data).Err()
}

// dispatch drains one channel subscription and fans envelopes out to the
// local handlers. Ends when the subscription is closed.
func (r *Router) dispatch(channel string, pubsub *redis.PubSub) {
	for msg := range pubsub.Channel() {
		var env Envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			log.Printf("dropping malformed envelope on %s: %v", channel, err)
			continue
		}

		r.mu.Lock()
		var handlers []func(*Envelope)
		if sub, ok := r.channels[channel]; ok {
			handlers = make([]func(*Envelope), 0, len(sub.handlers))
			for _, h := range sub.handlers {
				handlers = append(handlers, h)
			}
		}
		r.mu.Unlock()

		for _, h := range handlers {
			h(&env)
		}
	}
}

// Close tears down every subscription.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for channel, sub := range r.channels {
		sub.pubsub.Close()
		delete(r.channels, channel)
	}
}
