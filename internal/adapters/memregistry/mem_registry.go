// Package memregistry implements ports.DistributorRegistry entirely in
// memory, the fleet-management counterpart to memsettings for quick-start
// programs and tests.
package memregistry

import (
	"context"
	"sync"

	"txflow/internal/ports"
)

// Registry is a mutex-guarded map of distributor id to DistributorInfo,
// mutated directly by callers instead of being polled from a database.
type Registry struct {
	mu    sync.RWMutex
	infos map[int]ports.DistributorInfo
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{infos: make(map[int]ports.DistributorInfo)}
}

// SetDistributor upserts a distributor's credential material and active
// flag.
func (r *Registry) SetDistributor(id int, credentialMaterial string, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.infos[id] = ports.DistributorInfo{ID: id, CredentialMaterial: credentialMaterial, Active: active}
}

// RemoveDistributor deletes a distributor outright rather than marking it
// inactive.
func (r *Registry) RemoveDistributor(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.infos, id)
}

func (r *Registry) ActiveDistributors(ctx context.Context) ([]ports.DistributorInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ports.DistributorInfo, 0, len(r.infos))
	for _, info := range r.infos {
		out = append(out, info)
	}
	return out, nil
}

var _ ports.DistributorRegistry = (*Registry)(nil)
