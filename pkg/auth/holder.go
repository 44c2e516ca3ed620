package auth

import "sync"

// Holder owns the current credential for a filesystem instance. Handles
// read the token through the Holder at request time, so a refresh is
// visible to every handle without broadcasting. Refresh swaps the whole
// credential under a write lock; requests already in flight keep the
// token they read.
type Holder struct {
	mu   sync.RWMutex
	cred Credential
}

// NewHolder returns an empty Holder.
func NewHolder() *Holder {
	return &Holder{}
}

// Set replaces the current credential.
func (h *Holder) Set(cred Credential) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cred = cred
}

// Credential returns a copy of the current credential.
func (h *Holder) Credential() Credential {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cred
}

// Token returns the current bearer token.
func (h *Holder) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cred.Token
}
