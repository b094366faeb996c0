// Package registry implements DispatcherRegistry: fleet management,
// load-balanced admission, and periodic refresh of the active distributor
// set. Grounded in the teacher's EdgeRuntime, generalized from a single
// resource-gauge ticker into a full add/evict refresh loop over a capability
// port.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"txflow/internal/adapters/queue"
	"txflow/internal/classify"
	"txflow/internal/dispatch"
	"txflow/internal/domain"
	"txflow/internal/ports"
	"txflow/internal/recovery"
)

// DefaultRefreshInterval matches spec.md's fixed 60s distributor/issuer poll.
const DefaultRefreshInterval = 60 * time.Second

// CredentialDecoder turns the opaque CredentialMaterial a DistributorRegistry
// reports into signing material. The default decoder expects
// "publicKey|secret"; deployments with a vault-backed secret store should
// override it with WithCredentialDecoder.
type CredentialDecoder func(material string) (domain.Credential, error)

func defaultCredentialDecoder(material string) (domain.Credential, error) {
	parts := strings.SplitN(material, "|", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return domain.Credential{}, fmt.Errorf("credential material must be \"publicKey|secret\"")
	}
	return domain.Credential{PublicKey: parts[0], Secret: parts[1]}, nil
}

// Registry owns every DistributorQueue and the pending-admission path.
// Locking follows the spec's table exactly: mu is the single admission mutex
// guarding the queues map and queue selection; issuersMu is a separate
// copy-on-read lock so refresh never blocks admission and admission never
// blocks refresh's issuer update.
type Registry struct {
	gateway             ports.BlockchainGateway
	settings            ports.SettingsStore
	distributorRegistry ports.DistributorRegistry
	obs                 ports.Observability
	classifier          *classify.Classifier
	actuator            *recovery.Actuator
	queuePolicy         ports.QueuePolicy
	decodeCredential    CredentialDecoder
	refreshInterval     time.Duration

	mu     sync.Mutex
	queues map[int]ports.Queue

	issuersMu sync.RWMutex
	issuers   []domain.Issuer

	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option customizes a Registry at construction.
type Option func(*Registry)

// WithRefreshInterval overrides the 60s default distributor/issuer poll.
func WithRefreshInterval(d time.Duration) Option {
	return func(r *Registry) { r.refreshInterval = d }
}

// WithCredentialDecoder overrides how CredentialMaterial is turned into a
// signing credential.
func WithCredentialDecoder(dec CredentialDecoder) Option {
	return func(r *Registry) { r.decodeCredential = dec }
}

// WithQueuePolicy overrides the worker-loop timing handed to every
// DistributorQueue the registry constructs.
func WithQueuePolicy(p ports.QueuePolicy) Option {
	return func(r *Registry) { r.queuePolicy = p }
}

// WithActuatorOptions forwards recovery.Options to the internally-built
// RecoveryActuator (e.g. to override refill amounts in tests).
func WithActuatorOptions(opts ...recovery.Option) Option {
	return func(r *Registry) {
		r.actuator = recovery.New(r.gateway, r.settings, r.obs, opts...)
	}
}

// New builds a Registry with zero queues; call Start to seed the initial
// distributor set and begin the refresh loop.
func New(gateway ports.BlockchainGateway, settings ports.SettingsStore, distributorRegistry ports.DistributorRegistry, obs ports.Observability, opts ...Option) *Registry {
	r := &Registry{
		gateway:             gateway,
		settings:            settings,
		distributorRegistry: distributorRegistry,
		obs:                 obs,
		classifier:          classify.New(),
		decodeCredential:    defaultCredentialDecoder,
		refreshInterval:     DefaultRefreshInterval,
		queues:              make(map[int]ports.Queue),
	}
	r.actuator = recovery.New(gateway, settings, obs)
	r.queuePolicy.ApplyDefaults()
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Start seeds the initial distributor/issuer state synchronously, then
// launches the background refresh loop. ctx bounds the refresh loop and every
// queue's gateway calls; it is not the per-Submit context.
func (r *Registry) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	r.runCtx = runCtx
	r.cancel = cancel

	r.refreshOnce(runCtx)

	r.wg.Add(1)
	go r.refreshLoop(runCtx)
	return nil
}

// Shutdown marks every queue inactive and waits for in-flight batches to
// drain, bounded by ctx's deadline. Undrained batches are discarded with a
// logged count, matching spec.md §5's shutdown contract.
func (r *Registry) Shutdown(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()

	r.mu.Lock()
	queues := make([]ports.Queue, 0, len(r.queues))
	for _, q := range r.queues {
		queues = append(queues, q)
	}
	r.mu.Unlock()

	for _, q := range queues {
		q.Quit()
	}

	done := make(chan struct{})
	go func() {
		for _, q := range queues {
			q.Wait()
		}
		close(done)
	}()

	select {
	case <-done:
		var undrained int
		for _, q := range queues {
			undrained += q.Size()
		}
		if undrained > 0 {
			r.obs.LogError("registry_shutdown_discarded_batches", nil,
				ports.Field{Key: "undrained_batches", Value: undrained})
		}
		return nil
	case <-ctx.Done():
		var undrained int
		for _, q := range queues {
			undrained += q.Size()
		}
		r.obs.LogError("registry_shutdown_deadline_exceeded", ctx.Err(),
			ports.Field{Key: "undrained_batches", Value: undrained})
		return ctx.Err()
	}
}

// Submit chunks ops into <=100-operation batches and admits each to the
// smallest queue under the admission mutex, per spec.md §4.F. It returns
// ErrNoDistributorsAvailable if the fleet is empty at admission time, or
// ErrAdmissionFailed if a queue rejects an enqueue (e.g. it was concurrently
// quit by a refresh eviction) — chunks admitted before the rejection stay
// with their queues, and the rejected chunk and every later one are not
// admitted. Submit keeps no pending buffer between calls: the caller's slice
// is never modified, and calling Submit again with it admits every op in it
// again, including those already admitted.
func (r *Registry) Submit(ctx context.Context, ops []*domain.Operation, memo, tag string) error {
	if len(ops) == 0 {
		return nil
	}

	pending := make([]*domain.Operation, len(ops))
	copy(pending, ops)

	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		n := len(pending)
		if n > dispatch.MaxOpsPerBatch {
			n = dispatch.MaxOpsPerBatch
		}
		slice := pending[:n]

		r.mu.Lock()
		q, err := r.smallestQueueLocked()
		if err != nil {
			r.mu.Unlock()
			return err
		}
		batch := &domain.Batch{Ops: slice, Memo: memo, Issuers: r.cloneIssuers(), Tag: tag}
		enqueueErr := q.Enqueue(batch)
		r.mu.Unlock()

		if enqueueErr != nil {
			r.obs.LogError("admission_failed", enqueueErr, ports.Field{Key: "tag", Value: tag})
			return domain.ErrAdmissionFailed
		}
		pending = pending[n:]
	}
	return nil
}

// smallestQueueLocked selects the queue with the smallest Size(), ties broken
// by lowest id. Callers must hold r.mu.
func (r *Registry) smallestQueueLocked() (ports.Queue, error) {
	if len(r.queues) == 0 {
		return nil, domain.ErrNoDistributorsAvailable
	}
	ids := make([]int, 0, len(r.queues))
	for id := range r.queues {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	best := r.queues[ids[0]]
	bestSize := best.Size()
	for _, id := range ids[1:] {
		q := r.queues[id]
		if s := q.Size(); s < bestSize {
			best, bestSize = q, s
		}
	}
	return best, nil
}

func (r *Registry) cloneIssuers() []domain.Issuer {
	r.issuersMu.RLock()
	defer r.issuersMu.RUnlock()
	out := make([]domain.Issuer, len(r.issuers))
	copy(out, r.issuers)
	return out
}

func (r *Registry) refreshLoop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refreshOnce(ctx)
		}
	}
}

// refreshOnce reconciles the queue map against the registry's active
// distributor set and refreshes the issuer set from settings. Called once
// synchronously from Start and then on every tick thereafter.
func (r *Registry) refreshOnce(ctx context.Context) {
	infos, err := r.distributorRegistry.ActiveDistributors(ctx)
	if err != nil {
		r.obs.LogError("registry_refresh_failed", err)
	} else {
		r.applyDistributors(infos)
	}

	cred, ok, err := r.settings.IssuerCredential(ctx)
	if err != nil {
		r.obs.LogError("issuer_refresh_failed", err)
		return
	}
	if !ok {
		return
	}
	r.issuersMu.Lock()
	r.issuers = []domain.Issuer{{PublicKey: cred.PublicKey, Credential: cred}}
	r.issuersMu.Unlock()
}

func (r *Registry) applyDistributors(infos []ports.DistributorInfo) {
	active := make(map[int]ports.DistributorInfo, len(infos))
	for _, info := range infos {
		if info.Active {
			active[info.ID] = info
		}
	}

	r.mu.Lock()
	var toQuit []ports.Queue
	for id, q := range r.queues {
		if _, ok := active[id]; !ok {
			toQuit = append(toQuit, q)
			delete(r.queues, id)
		}
	}
	var toAdd []ports.DistributorInfo
	for id, info := range active {
		if _, ok := r.queues[id]; !ok {
			toAdd = append(toAdd, info)
		}
	}
	r.mu.Unlock()

	for _, q := range toQuit {
		q.Quit()
		r.obs.LogInfo("distributor_evicted", ports.Field{Key: "distributor_id", Value: q.ID()})
	}

	for _, info := range toAdd {
		cred, err := r.decodeCredential(info.CredentialMaterial)
		if err != nil {
			r.obs.LogError("distributor_credential_invalid", domain.ErrGatewayCredentialInvalid,
				ports.Field{Key: "distributor_id", Value: info.ID})
			continue
		}
		q := queue.New(r.runCtx, info.ID, cred, r.queuePolicy, r.sendBatch, r.obs)
		r.mu.Lock()
		r.queues[info.ID] = q
		r.mu.Unlock()
		r.obs.LogInfo("distributor_added", ports.Field{Key: "distributor_id", Value: info.ID})
	}
}

func (r *Registry) sendBatch(ctx context.Context, distributor domain.Credential, batch *domain.Batch) error {
	deps := dispatch.Deps{
		Gateway:    r.gateway,
		Settings:   r.settings,
		Classifier: r.classifier,
		Actuator:   r.actuator,
		Obs:        r.obs,
	}
	return dispatch.Send(ctx, distributor, batch.Ops, batch.Memo, batch.Issuers, batch.Tag, deps)
}

// QueueCount returns the number of active queues, used by Observability
// gauge reporting and tests.
func (r *Registry) QueueCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queues)
}

// TotalQueuedBatches sums Size() across every queue, used for the aggregate
// txflow_queue_length_total gauge.
func (r *Registry) TotalQueuedBatches() int {
	r.mu.Lock()
	queues := make([]ports.Queue, 0, len(r.queues))
	for _, q := range r.queues {
		queues = append(queues, q)
	}
	r.mu.Unlock()

	total := 0
	for _, q := range queues {
		total += q.Size()
	}
	return total
}
