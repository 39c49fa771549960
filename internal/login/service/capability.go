package service

import (
	"sync"

	"github.com/ironveil/warden/internal/login/domain"
)

// CapabilityRegistry holds the factor snapshot for each in-flight login
// attempt. It is written once per attempt from the credential verifier's
// response; the orchestrator reads it back to validate factor selection.
// A pure data holder; the write is its only side effect.
type CapabilityRegistry struct {
	mu   sync.RWMutex
	caps map[string]domain.Capabilities
}

func NewCapabilityRegistry() *CapabilityRegistry {
	return &CapabilityRegistry{caps: make(map[string]domain.Capabilities)}
}

// Observe records the capability snapshot for an attempt. Later writes for
// the same attempt are ignored; the snapshot is immutable once set.
func (r *CapabilityRegistry) Observe(attemptID string, caps domain.Capabilities) domain.Capabilities {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.caps[attemptID]; ok {
		return existing
	}
	r.caps[attemptID] = caps
	return caps
}

// Snapshot returns the recorded capabilities for an attempt.
func (r *CapabilityRegistry) Snapshot(attemptID string) (domain.Capabilities, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	caps, ok := r.caps[attemptID]
	return caps, ok
}

// Forget drops the snapshot when the attempt is discarded.
func (r *CapabilityRegistry) Forget(attemptID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.caps, attemptID)
}
