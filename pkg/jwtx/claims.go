// Package jwtx signs and verifies the session bearer tokens handed out when
// a login attempt completes.
package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is the default lifetime for session tokens.
const DefaultSessionTTL = 12 * time.Hour

// SessionClaims are the claims carried by a session token.
type SessionClaims struct {
	jwt.RegisteredClaims

	// SID is the session id; revoking the session invalidates the token
	// even before its expiry.
	SID string `json:"sid,omitempty"`

	// Username for the authenticated user.
	Username string `json:"username,omitempty"`

	// Admin marks administrator sessions.
	Admin bool `json:"admin,omitempty"`

	// AMR records how the session was established:
	//	"pwd":  password only
	//	"totp", "security_key", "email", "recovery": the completing factor
	AMR []string `json:"amr,omitempty"`
}

// NewSessionClaims builds minimally-correct claims for a session token.
func NewSessionClaims(
	subject, sid, username string,
	admin bool,
	amr []string,
	issuer string,
	ttl time.Duration,
	now time.Time,
) SessionClaims {
	return SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        newJTI(),
		},
		SID:      sid,
		Username: username,
		Admin:    admin,
		AMR:      amr,
	}
}

// newJTI returns a URL-safe random identifier for the "jti" claim.
func newJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
