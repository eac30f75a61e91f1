package provider

import (
	"context"
	"sync"
)

// Identity is the profile a provider vouches for after verifying a raw
// credential.
type Identity struct {
	Email   string
	Name    string
	Picture string
}

// Verifier validates a third-party identity credential. A nil Identity with
// a nil error means the credential is simply invalid.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*Identity, error)
}

// Registry maps provider names to their verifiers. Lookups for unknown
// names fall back to a default verifier so one endpoint shape serves both
// third-party credentials and local access-token exchange.
type Registry struct {
	mu        sync.RWMutex
	verifiers map[string]Verifier
	fallback  Verifier
}

// NewRegistry builds a registry with the given fallback entry.
func NewRegistry(fallback Verifier) *Registry {
	return &Registry{
		verifiers: make(map[string]Verifier),
		fallback:  fallback,
	}
}

// Register adds or replaces the verifier for a provider name.
func (r *Registry) Register(name string, v Verifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verifiers[name] = v
}

// Lookup returns the verifier for the provider, or the fallback when none
// is registered.
func (r *Registry) Lookup(name string) Verifier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if v, ok := r.verifiers[name]; ok {
		return v
	}
	return r.fallback
}
