package domain

import "time"

// Identity is the authenticated principal carried by a session.
type Identity struct {
	UserID   string
	Username string
	IsAdmin  bool
}

// Session is the authoritative, singular proof of authentication for the
// application. Exactly one session may be current at a time; publishing a new
// one supersedes the previous one for every observer.
type Session struct {
	ID       string // ULID
	Identity Identity
	// Method records how the session was established: "password" for the
	// primary-only path, otherwise the secondary factor that completed MFA.
	Method    string
	Token     string // signed bearer token handed to the client
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// SessionRecord is the persisted form of a Session. The bearer token itself
// is never stored; only its fingerprint is.
type SessionRecord struct {
	ID        string
	UserID    string
	Username  string
	IsAdmin   bool
	Method    string
	TokenHash string
	IssuedAt  time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}
