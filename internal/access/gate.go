// Package access gates room connections: group members are admitted
// directly, everyone else needs a valid share_link token for the exact
// target room.
package access

import (
	"context"
	"log"
	"time"

	"github.com/syncpad/backend/internal/identity"
	"github.com/syncpad/backend/internal/model"
	"github.com/syncpad/backend/internal/token"
)

// WebSocket close codes distinguishing the denial reasons.
const (
	// CloseNoCredential rejects an unauthenticated connection without a
	// valid share token.
	CloseNoCredential = 4001
	// CloseNotMember rejects an authenticated non-member without a valid
	// share token.
	CloseNotMember = 4003
	// CloseForced terminates a session on administrative kick.
	CloseForced = 4000
)

// MembershipChecker confirms that a user belongs to the group owning a
// project.
type MembershipChecker interface {
	IsMember(ctx context.Context, userID, groupID, projectID int64) (bool, error)
}

// Decision is the discriminated outcome of an authorization check.
type Decision struct {
	Allowed bool
	// Identity is the resolved session identity when Allowed.
	Identity identity.Identity
	// CloseCode is the close code to reject with when not Allowed.
	CloseCode int
	Reason    string
}

// Gate validates room access by membership or share token.
type Gate struct {
	members MembershipChecker
	signer  *token.Signer
	maxAge  time.Duration
}

// NewGate creates a Gate. maxAge bounds the accepted share-token age.
func NewGate(members MembershipChecker, signer *token.Signer, maxAge time.Duration) *Gate {
	return &Gate{members: members, signer: signer, maxAge: maxAge}
}

// Authorize decides whether a connection may join the room (groupID,
// projectID). user is nil for unauthenticated connections. The check fails
// closed: any token error is a denial, never a propagated failure.
func (g *Gate) Authorize(ctx context.Context, user *model.User, groupID, projectID int64, shareToken string) Decision {
	if user == nil {
		if !g.tokenValid(shareToken, groupID, projectID) {
			return Decision{CloseCode: CloseNoCredential, Reason: "missing or invalid share token"}
		}
		return Decision{Allowed: true, Identity: identity.NewAnonymous()}
	}

	isMember, err := g.members.IsMember(ctx, user.ID, groupID, projectID)
	if err != nil {
		log.Printf("membership check failed for user %d: %v", user.ID, err)
		isMember = false
	}
	if !isMember && !g.tokenValid(shareToken, groupID, projectID) {
		return Decision{CloseCode: CloseNotMember, Reason: "not a group member and invalid share token"}
	}

	return Decision{Allowed: true, Identity: identity.Authenticated(user.ID, user.Email)}
}

// tokenValid reports whether tok is a share_link token for exactly the
// target room, signed and unexpired.
func (g *Gate) tokenValid(tok string, groupID, projectID int64) bool {
	if tok == "" {
		return false
	}

	claims, err := g.signer.Verify(tok, g.maxAge)
	if err != nil {
		return false
	}

	return claims.Type == token.TypeShareLink &&
		claims.ProjectID == projectID &&
		claims.GroupID == groupID
}
