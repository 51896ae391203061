// Package token implements the signed, time-boxed share token contract.
//
// A token is an HMAC-SHA256 signed JSON payload carrying the project id,
// optional group id, a purpose type and an issue timestamp. The hub only
// verifies tokens against a max age; issuance happens in the HTTP layer.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	// TypeShareLink grants real-time edit access to a room.
	TypeShareLink = "share_link"
	// TypeSnippet grants read-only content access outside the hub.
	TypeSnippet = "snippet"
)

var (
	// ErrBadSignature is returned when a token is malformed or its
	// signature does not verify.
	ErrBadSignature = errors.New("bad token signature")

	// ErrExpired is returned when a token's signature verifies but its
	// issue timestamp is older than the allowed max age.
	ErrExpired = errors.New("token expired")
)

// Claims is the signed payload of a share token.
type Claims struct {
	ProjectID int64  `json:"pid"`
	GroupID   int64  `json:"gid,omitempty"`
	Type      string `json:"type"`
	IssuedAt  int64  `json:"iat"`
}

// Signer signs and verifies share tokens with a shared secret.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner creates a Signer using the given secret.
func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret, now: time.Now}
}

// Sign serializes the claims, stamps the issue time and returns the signed
// token string.
func (s *Signer) Sign(claims Claims) (string, error) {
	if claims.IssuedAt == 0 {
		claims.IssuedAt = s.now().Unix()
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	body := base64.RawURLEncoding.EncodeToString(payload)
	return body + "." + s.signature(body), nil
}

// Verify checks the signature and age of a token and returns its claims.
// Verification fails closed: any malformed input is ErrBadSignature, an
// outdated issue time is ErrExpired. Id and type matching against a target
// room is the caller's responsibility.
func (s *Signer) Verify(tok string, maxAge time.Duration) (*Claims, error) {
	body, sig, ok := strings.Cut(tok, ".")
	if !ok {
		return nil, ErrBadSignature
	}
	if !hmac.Equal([]byte(sig), []byte(s.signature(body))) {
		return nil, ErrBadSignature
	}

	payload, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return nil, ErrBadSignature
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, ErrBadSignature
	}

	// Future-dated claims are rejected too; a token must never outlive
	// maxAge counted from the current clock.
	issued := time.Unix(claims.IssuedAt, 0)
	age := s.now().Sub(issued)
	if age < 0 || age > maxAge {
		return nil, ErrExpired
	}

	return &claims, nil
}

func (s *Signer) signature(body string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
