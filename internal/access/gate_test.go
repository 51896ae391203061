package access

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/syncpad/backend/internal/model"
	"github.com/syncpad/backend/internal/token"
)

func testUser(id int64) *model.User {
	return &model.User{ID: id, Email: fmt.Sprintf("user%d@example.com", id)}
}

// fakeMembers is a deterministic membership double.
type fakeMembers struct {
	members map[[3]int64]bool
	err     error
}

func (f *fakeMembers) IsMember(_ context.Context, userID, groupID, projectID int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.members[[3]int64{userID, groupID, projectID}], nil
}

func newGate(t *testing.T, members *fakeMembers) (*Gate, *token.Signer) {
	t.Helper()
	signer := token.NewSigner([]byte("gate-test-secret"))
	return NewGate(members, signer, time.Hour), signer
}

func shareToken(t *testing.T, signer *token.Signer, gid, pid int64) string {
	t.Helper()
	tok, err := signer.Sign(token.Claims{ProjectID: pid, GroupID: gid, Type: token.TypeShareLink})
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return tok
}

func TestAnonymousWithValidTokenAccepted(t *testing.T) {
	gate, signer := newGate(t, &fakeMembers{})
	tok := shareToken(t, signer, 2, 5)

	d := gate.Authorize(context.Background(), nil, 2, 5, tok)
	if !d.Allowed {
		t.Fatalf("expected access granted, got close code %d", d.CloseCode)
	}
	if !d.Identity.Anonymous {
		t.Error("expected an anonymous identity")
	}
	if !strings.HasPrefix(d.Identity.Key(), "anon_") {
		t.Errorf("expected generated anonymous key, got %q", d.Identity.Key())
	}
	if d.Identity.AnonName == "" {
		t.Error("expected a generated display identity")
	}
}

func TestAnonymousWithoutTokenRejected(t *testing.T) {
	gate, _ := newGate(t, &fakeMembers{})

	d := gate.Authorize(context.Background(), nil, 2, 5, "")
	if d.Allowed {
		t.Fatal("expected rejection")
	}
	if d.CloseCode != CloseNoCredential {
		t.Errorf("expected close code %d, got %d", CloseNoCredential, d.CloseCode)
	}
}

func TestTokenReplayedAgainstOtherRoomRejected(t *testing.T) {
	gate, signer := newGate(t, &fakeMembers{})
	tok := shareToken(t, signer, 2, 5)

	// Same token against room (5,3): group mismatch, fails closed.
	d := gate.Authorize(context.Background(), nil, 3, 5, tok)
	if d.Allowed {
		t.Fatal("expected rejection for mismatched room")
	}
	if d.CloseCode != CloseNoCredential {
		t.Errorf("expected close code %d, got %d", CloseNoCredential, d.CloseCode)
	}

	// Authenticated non-member replaying the token gets the member code.
	d = gate.Authorize(context.Background(), testUser(7), 3, 5, tok)
	if d.Allowed {
		t.Fatal("expected rejection for mismatched room")
	}
	if d.CloseCode != CloseNotMember {
		t.Errorf("expected close code %d, got %d", CloseNotMember, d.CloseCode)
	}
}

func TestMemberAccepted(t *testing.T) {
	gate, _ := newGate(t, &fakeMembers{
		members: map[[3]int64]bool{{7, 2, 5}: true},
	})

	d := gate.Authorize(context.Background(), testUser(7), 2, 5, "")
	if !d.Allowed {
		t.Fatalf("expected member granted, got close code %d", d.CloseCode)
	}
	if d.Identity.Anonymous {
		t.Error("expected an authenticated identity")
	}
	if d.Identity.Key() != "7" {
		t.Errorf("expected user key 7, got %q", d.Identity.Key())
	}
}

func TestNonMemberWithTokenFallbackAccepted(t *testing.T) {
	gate, signer := newGate(t, &fakeMembers{})
	tok := shareToken(t, signer, 2, 5)

	d := gate.Authorize(context.Background(), testUser(9), 2, 5, tok)
	if !d.Allowed {
		t.Fatalf("expected token fallback granted, got close code %d", d.CloseCode)
	}
	if d.Identity.Anonymous {
		t.Error("authenticated user must keep its identity through the token fallback")
	}
}

func TestNonMemberWithoutTokenRejected(t *testing.T) {
	gate, _ := newGate(t, &fakeMembers{})

	d := gate.Authorize(context.Background(), testUser(9), 2, 5, "")
	if d.Allowed {
		t.Fatal("expected rejection")
	}
	if d.CloseCode != CloseNotMember {
		t.Errorf("expected close code %d, got %d", CloseNotMember, d.CloseCode)
	}
}

func TestSnippetTokenNeverGrantsRoomAccess(t *testing.T) {
	gate, signer := newGate(t, &fakeMembers{})

	tok, err := signer.Sign(token.Claims{ProjectID: 5, GroupID: 2, Type: token.TypeSnippet})
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	d := gate.Authorize(context.Background(), nil, 2, 5, tok)
	if d.Allowed {
		t.Fatal("snippet token must not grant edit-room access")
	}
}

func TestMembershipErrorFailsClosed(t *testing.T) {
	gate, _ := newGate(t, &fakeMembers{err: context.DeadlineExceeded})

	d := gate.Authorize(context.Background(), testUser(7), 2, 5, "")
	if d.Allowed {
		t.Fatal("membership check failure must fail closed")
	}
	if d.CloseCode != CloseNotMember {
		t.Errorf("expected close code %d, got %d", CloseNotMember, d.CloseCode)
	}
}
