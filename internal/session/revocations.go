package session

import (
	"context"
	"sync"
	"time"
)

// MemoryRevocations keeps revocations in process memory.
type MemoryRevocations struct {
	mu    sync.Mutex
	until map[string]time.Time
}

// NewMemoryRevocations returns an empty revocation list.
func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{until: make(map[string]time.Time)}
}

// Revoke implements Revocations.
func (r *MemoryRevocations) Revoke(_ context.Context, sessionID string, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.until[sessionID] = until
	return nil
}

// IsRevoked implements Revocations.
func (r *MemoryRevocations) IsRevoked(_ context.Context, sessionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.until[sessionID]
	return ok, nil
}

// PurgeRevocations implements Revocations.
func (r *MemoryRevocations) PurgeRevocations(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, until := range r.until {
		if now.After(until) {
			delete(r.until, id)
			n++
		}
	}
	return n, nil
}
