// Package memsettings implements ports.SettingsStore entirely in memory,
// grounded in the teacher's MemQueue as the default, zero-dependency
// capability a builder reaches for when no Postgres connection string is
// configured.
package memsettings

import (
	"context"
	"sync"

	"txflow/internal/domain"
	"txflow/internal/ports"
)

// Store is a mutex-guarded settings table callers mutate directly, suitable
// for quick-start programs and tests that don't want to stand up Postgres.
type Store struct {
	mu        sync.RWMutex
	enabled   bool
	issuer    domain.Credential
	hasIssuer bool
	refill    domain.Credential
	hasRefill bool
}

// New returns a Store with sending enabled and no issuer/refill credential
// configured.
func New() *Store {
	return &Store{enabled: true}
}

// SetSendingEnabled toggles the kill switch.
func (s *Store) SetSendingEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

// SetIssuerCredential configures the issuer wallet used by the recovery
// actuator for asset refills.
func (s *Store) SetIssuerCredential(cred domain.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issuer = cred
	s.hasIssuer = true
}

// SetRefillCredential configures the wallet used to top up distributors with
// native gas.
func (s *Store) SetRefillCredential(cred domain.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refill = cred
	s.hasRefill = true
}

func (s *Store) SendingEnabled(ctx context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled, nil
}

func (s *Store) IssuerCredential(ctx context.Context) (domain.Credential, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.issuer, s.hasIssuer, nil
}

func (s *Store) RefillCredential(ctx context.Context) (domain.Credential, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refill, s.hasRefill, nil
}

var _ ports.SettingsStore = (*Store)(nil)
