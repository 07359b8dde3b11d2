// Package session owns the signed-in identity of each browser session and the
// registry that maps session tokens to it.
package session

import (
	"sync"

	"github.com/dukerupert/arena/internal/domain"
)

// Holder is the identity container of one session: the current profile, or
// nothing when signed out. Readers always get a copy.
type Holder struct {
	mu      sync.RWMutex
	profile *domain.Profile
}

// NewHolder returns a holder for p. A nil profile means signed out.
func NewHolder(p *domain.Profile) *Holder {
	h := &Holder{}
	if p != nil {
		h.Set(*p)
	}
	return h
}

// Profile returns the held profile and whether one is held.
func (h *Holder) Profile() (domain.Profile, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.profile == nil {
		return domain.Profile{}, false
	}
	return *h.profile, true
}

// Authenticated reports whether a profile is held.
func (h *Holder) Authenticated() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.profile != nil
}

// Set replaces the held profile wholesale.
func (h *Holder) Set(p domain.Profile) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.profile = &p
}

// Patch applies a wallet patch and returns the result. It is a no-op on a
// signed-out holder.
func (h *Holder) Patch(patch domain.ProfilePatch) (domain.Profile, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.profile == nil {
		return domain.Profile{}, false
	}
	next := patch.Apply(*h.profile)
	h.profile = &next
	return next, true
}

// Clear signs the holder out.
func (h *Holder) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.profile = nil
}
