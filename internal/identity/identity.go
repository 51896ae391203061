// Package identity represents the resolved identity of a session: either an
// authenticated account or an anonymous guest admitted via share link.
package identity

import "strconv"

// AnonPrefix marks anonymous user keys in the shared store.
const AnonPrefix = "anon_"

// Identity is the resolved identity of one session.
type Identity struct {
	// UserID is set for authenticated users.
	UserID int64
	// Email is set for authenticated users.
	Email string
	// AnonName is the generated display name for anonymous guests.
	AnonName string
	// Anonymous reports whether this is a guest admitted via share link.
	Anonymous bool
}

// Authenticated creates the identity of a logged-in user.
func Authenticated(userID int64, email string) Identity {
	return Identity{UserID: userID, Email: email}
}

// NewAnonymous creates a guest identity with a generated hero name.
func NewAnonymous() Identity {
	return Identity{Anonymous: true, AnonName: GenerateHeroName()}
}

// Key returns the user key under which this identity appears in the shared
// store: the numeric user id, or the prefixed hero name for guests.
func (i Identity) Key() string {
	if i.Anonymous {
		return AnonPrefix + i.AnonName
	}
	return strconv.FormatInt(i.UserID, 10)
}

// DisplayName returns the name shown to other collaborators.
func (i Identity) DisplayName() string {
	if i.Anonymous {
		return "🦸 " + i.AnonName
	}
	return i.Email
}

// DisplayNameForKey derives a display name from a raw user key when the
// key is anonymous. Returns false for authenticated keys, which need a
// profile lookup instead.
func DisplayNameForKey(userKey string) (string, bool) {
	if len(userKey) > len(AnonPrefix) && userKey[:len(AnonPrefix)] == AnonPrefix {
		return "🦸 " + userKey[len(AnonPrefix):], true
	}
	return "", false
}
