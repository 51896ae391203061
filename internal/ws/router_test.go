package ws

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	router := NewRouter(rdb)
	t.Cleanup(router.Close)
	return router
}

func waitEnvelope(t *testing.T, ch <-chan *Envelope) *Envelope {
	t.Helper()
	select {
	case env := <-ch:
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for envelope")
		return nil
	}
}

func TestPublishReachesSubscriber(t *testing.T) {
	router := newTestRouter(t)
	ctx := context.Background()

	received := make(chan *Envelope, 1)
	if err := router.Subscribe(ctx, "room:g1:p1", "s1", func(env *Envelope) {
		received <- env
	}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	if err := router.Publish(ctx, "room:g1:p1", &Envelope{Event: EventChatMessage, Message: "hi"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	env := waitEnvelope(t, received)
	if env.Event != EventChatMessage || env.Message != "hi" {
		t.Errorf("unexpected envelope: %+v", env)
	}
}

func TestChannelsAreIsolated(t *testing.T) {
	router := newTestRouter(t)
	ctx := context.Background()

	roomA := make(chan *Envelope, 1)
	roomB := make(chan *Envelope, 1)
	if err := router.Subscribe(ctx, "room:g1:p1", "a", func(env *Envelope) { roomA <- env }); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if err := router.Subscribe(ctx, "room:g1:p2", "b", func(env *Envelope) { roomB <- env }); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	if err := router.Publish(ctx, "room:g1:p2", &Envelope{Event: EventUsersChanged}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if env := waitEnvelope(t, roomB); env.Event != EventUsersChanged {
		t.Errorf("unexpected envelope: %+v", env)
	}
	select {
	case env := <-roomA:
		t.Errorf("envelope leaked across rooms: %+v", env)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMultipleSubscribersShareOneChannel(t *testing.T) {
	router := newTestRouter(t)
	ctx := context.Background()

	first := make(chan *Envelope, 1)
	second := make(chan *Envelope, 1)
	if err := router.Subscribe(ctx, "room:g1:p1", "s1", func(env *Envelope) { first <- env }); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if err := router.Subscribe(ctx, "room:g1:p1", "s2", func(env *Envelope) { second <- env }); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	if err := router.Publish(ctx, "room:g1:p1", &Envelope{Event: EventAwareness, Sender: "s1"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	// Both local subscribers receive the broadcast; echo filtering happens
	// above the router.
	if env := waitEnvelope(t, first); env.Sender != "s1" {
		t.Errorf("unexpected envelope: %+v", env)
	}
	if env := waitEnvelope(t, second); env.Sender != "s1" {
		t.Errorf("unexpected envelope: %+v", env)
	}
}

func TestUnsubscribedHandlerStopsReceiving(t *testing.T) {
	router := newTestRouter(t)
	ctx := context.Background()

	gone := make(chan *Envelope, 1)
	stays := make(chan *Envelope, 1)
	if err := router.Subscribe(ctx, "room:g1:p1", "gone", func(env *Envelope) { gone <- env }); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if err := router.Subscribe(ctx, "room:g1:p1", "stays", func(env *Envelope) { stays <- env }); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	router.Unsubscribe("room:g1:p1", "gone")

	if err := router.Publish(ctx, "room:g1:p1", &Envelope{Event: EventUsersChanged}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if env := waitEnvelope(t, stays); env.Event != EventUsersChanged {
		t.Errorf("unexpected envelope: %+v", env)
	}
	select {
	case env := <-gone:
		t.Errorf("removed handler still received: %+v", env)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUnsubscribeUnknownChannelIsNoOp(t *testing.T) {
	router := newTestRouter(t)
	router.Unsubscribe("room:g9:p9", "nobody")
}
