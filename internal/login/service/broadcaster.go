package service

import (
	"context"
	"sync"

	"github.com/ironveil/warden/internal/login/domain"
)

// Subscriber observes session establishment. Delivery is synchronous and in
// subscription order, so a subscriber's side effects (resetting login state,
// audit records) complete before the redirect resolver runs.
type Subscriber func(ctx context.Context, s domain.Session)

// SessionBroadcaster is the single authoritative publication point for
// established sessions. Publications are serialized; at most one session is
// current at a time, and publishing a new one atomically supersedes the
// previous one, so no reader observes a stale current session once a new one
// exists.
//
// The at-most-once-per-attempt guarantee is enforced upstream: the
// orchestrator consumes the LoginAttempt before publishing, so a second
// publish has no attempt to act on.
type SessionBroadcaster struct {
	pubMu sync.Mutex // serializes publications

	mu      sync.RWMutex
	subs    []Subscriber
	current *domain.Session
}

func NewSessionBroadcaster() *SessionBroadcaster {
	return &SessionBroadcaster{}
}

// Subscribe registers a subscriber. Subscribers are expected to be registered
// during startup, before any publication.
func (b *SessionBroadcaster) Subscribe(fn Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs = append(b.subs, fn)
}

// Publish makes s the current session and delivers it to every subscriber,
// synchronously, in subscription order. It returns the superseded session,
// if any, so the caller can tear it down.
func (b *SessionBroadcaster) Publish(ctx context.Context, s domain.Session) *domain.Session {
	b.pubMu.Lock()
	defer b.pubMu.Unlock()

	b.mu.Lock()
	superseded := b.current
	session := s
	b.current = &session
	subs := make([]Subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, fn := range subs {
		fn(ctx, s)
	}

	return superseded
}

// Current returns the current session, if one exists.
func (b *SessionBroadcaster) Current() (domain.Session, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.current == nil {
		return domain.Session{}, false
	}
	return *b.current, true
}

// Drop clears the current session if it matches id (logout, revocation).
func (b *SessionBroadcaster) Drop(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current != nil && b.current.ID == id {
		b.current = nil
	}
}
