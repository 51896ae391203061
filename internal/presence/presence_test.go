package presence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/syncpad/backend/internal/model"
	"github.com/syncpad/backend/internal/store"
)

func newTestPresence(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewStore(rdb), mr
}

func TestTouchRegistersActiveUser(t *testing.T) {
	presence, mr := newTestPresence(t)
	ctx := context.Background()

	if err := presence.Touch(ctx, 7, "3"); err != nil {
		t.Fatalf("touch failed: %v", err)
	}

	members, err := presence.Members(ctx, 7)
	if err != nil {
		t.Fatalf("members failed: %v", err)
	}
	if len(members) != 1 || members[0] != "3" {
		t.Errorf("expected [3], got %v", members)
	}

	// The active set carries the liveness TTL.
	ttl := mr.TTL(store.ActiveSetKey(7))
	if ttl <= 0 || ttl > TTL {
		t.Errorf("unexpected ttl %v", ttl)
	}

	// The project itself is marked active.
	active, err := mr.SMembers(store.ActiveProjectsKey)
	if err != nil {
		t.Fatalf("smembers failed: %v", err)
	}
	if len(active) != 1 || active[0] != "7" {
		t.Errorf("expected active project 7, got %v", active)
	}
}

func TestRefreshExtendsTTL(t *testing.T) {
	presence, mr := newTestPresence(t)
	ctx := context.Background()

	if err := presence.Touch(ctx, 7, "3"); err != nil {
		t.Fatalf("touch failed: %v", err)
	}

	// Let half the window pass, then refresh.
	mr.FastForward(30 * time.Second)
	if err := presence.Refresh(ctx, 7); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	if ttl := mr.TTL(store.ActiveSetKey(7)); ttl != TTL {
		t.Errorf("expected ttl reset to %v, got %v", TTL, ttl)
	}
}

func TestActiveSetExpiresWithoutHeartbeat(t *testing.T) {
	presence, mr := newTestPresence(t)
	ctx := context.Background()

	if err := presence.Touch(ctx, 7, "3"); err != nil {
		t.Fatalf("touch failed: %v", err)
	}

	mr.FastForward(TTL + time.Second)

	members, err := presence.Members(ctx, 7)
	if err != nil {
		t.Fatalf("members failed: %v", err)
	}
	if len(members) != 0 {
		t.Errorf("expected empty set after expiry, got %v", members)
	}
}

func TestRemoveClearsProjectWhenEmpty(t *testing.T) {
	presence, mr := newTestPresence(t)
	ctx := context.Background()

	for _, key := range []string{"3", "anon_Falcon"} {
		if err := presence.Touch(ctx, 7, key); err != nil {
			t.Fatalf("touch failed: %v", err)
		}
	}

	remaining, err := presence.Remove(ctx, 7, "3")
	if err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if remaining != 1 {
		t.Errorf("expected 1 remaining, got %d", remaining)
	}
	if !mr.Exists(store.ActiveProjectsKey) {
		t.Fatal("project dropped from active set while a user remains")
	}

	remaining, err = presence.Remove(ctx, 7, "anon_Falcon")
	if err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if remaining != 0 {
		t.Errorf("expected 0 remaining, got %d", remaining)
	}
	if mr.Exists(store.ActiveProjectsKey) {
		t.Error("empty project still listed as active")
	}
}

func TestRemoveAbsentKeyIsNoOp(t *testing.T) {
	presence, _ := newTestPresence(t)

	remaining, err := presence.Remove(context.Background(), 7, "ghost")
	if err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if remaining != 0 {
		t.Errorf("expected 0 remaining, got %d", remaining)
	}
}

func TestVoiceRoomIsSeparateFromActiveSet(t *testing.T) {
	presence, _ := newTestPresence(t)
	ctx := context.Background()

	if err := presence.Touch(ctx, 7, "3"); err != nil {
		t.Fatalf("touch failed: %v", err)
	}
	if err := presence.Touch(ctx, 7, "4"); err != nil {
		t.Fatalf("touch failed: %v", err)
	}
	if err := presence.JoinVoice(ctx, 7, "3"); err != nil {
		t.Fatalf("join voice failed: %v", err)
	}

	voice, err := presence.VoiceMembers(ctx, 7)
	if err != nil {
		t.Fatalf("voice members failed: %v", err)
	}
	if len(voice) != 1 || voice[0] != "3" {
		t.Errorf("expected voice room [3], got %v", voice)
	}

	if err := presence.LeaveVoice(ctx, 7, "3"); err != nil {
		t.Fatalf("leave voice failed: %v", err)
	}
	voice, err = presence.VoiceMembers(ctx, 7)
	if err != nil {
		t.Fatalf("voice members failed: %v", err)
	}
	if len(voice) != 0 {
		t.Errorf("expected empty voice room, got %v", voice)
	}
}

func TestColorStableUntilEviction(t *testing.T) {
	presence, _ := newTestPresence(t)
	ctx := context.Background()

	first, err := presence.ColorFor(ctx, "3")
	if err != nil {
		t.Fatalf("color lookup failed: %v", err)
	}

	// Repeat lookups return the cached assignment.
	for i := 0; i < 10; i++ {
		c, err := presence.ColorFor(ctx, "3")
		if err != nil {
			t.Fatalf("color lookup failed: %v", err)
		}
		if c != first {
			t.Fatalf("color changed from %v to %v", first, c)
		}
	}

	if err := presence.EvictColor(ctx, "3"); err != nil {
		t.Fatalf("evict failed: %v", err)
	}

	// A fresh assignment after eviction must still come from the palette.
	c, err := presence.ColorFor(ctx, "3")
	if err != nil {
		t.Fatalf("color lookup failed: %v", err)
	}
	found := false
	for _, p := range palette {
		if c == p {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("assigned color %v is not in the palette", c)
	}
}

// fakeUsers resolves only the ids it was seeded with.
type fakeUsers struct {
	users map[int64]*model.User
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, model.ErrUserNotFound
}

func TestRosterResolvesNamesAndSkipsStaleKeys(t *testing.T) {
	presence, _ := newTestPresence(t)
	ctx := context.Background()

	lookup := &fakeUsers{users: map[int64]*model.User{
		3: {ID: 3, Email: "alice@example.com"},
	}}
	roster := NewRoster(presence, lookup)

	// One authenticated user, one anonymous, one stale id with no profile.
	for _, key := range []string{"3", "anon_Falcon", "99"} {
		if err := presence.Touch(ctx, 7, key); err != nil {
			t.Fatalf("touch failed: %v", err)
		}
	}

	users, err := roster.Active(ctx, 7)
	if err != nil {
		t.Fatalf("roster failed: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 resolved users, got %d: %v", len(users), users)
	}

	byID := make(map[string]UserInfo, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	if u, ok := byID["3"]; !ok || u.Name != "alice@example.com" {
		t.Errorf("authenticated entry wrong: %+v", byID["3"])
	}
	if u, ok := byID["anon_Falcon"]; !ok || u.Name != "🦸 Falcon" {
		t.Errorf("anonymous entry wrong: %+v", byID["anon_Falcon"])
	}
	for _, u := range users {
		if u.Color == "" || u.ColorLight == "" {
			t.Errorf("entry %s missing color", u.ID)
		}
	}
}

func TestVoiceRosterCarriesNoColors(t *testing.T) {
	presence, _ := newTestPresence(t)
	ctx := context.Background()

	roster := NewRoster(presence, &fakeUsers{users: map[int64]*model.User{}})

	if err := presence.JoinVoice(ctx, 7, "anon_Falcon"); err != nil {
		t.Fatalf("join voice failed: %v", err)
	}

	participants, err := roster.Voice(ctx, 7)
	if err != nil {
		t.Fatalf("voice roster failed: %v", err)
	}
	if len(participants) != 1 {
		t.Fatalf("expected 1 participant, got %d", len(participants))
	}
	if participants[0].Color != "" || participants[0].ColorLight != "" {
		t.Errorf("voice entry unexpectedly carries colors: %+v", participants[0])
	}
}

func TestDisplayNameFallsBackToRawKey(t *testing.T) {
	presence, _ := newTestPresence(t)
	roster := NewRoster(presence, &fakeUsers{users: map[int64]*model.User{}})

	if got := roster.DisplayName(context.Background(), "99"); got != "99" {
		t.Errorf("expected raw key fallback, got %q", got)
	}
}
