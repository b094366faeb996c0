package ports

import (
	"time"

	"txflow/internal/domain"
)

// QueuePolicy controls DistributorQueue worker-loop timing. Unlike the
// teacher's WAL/queue Policy, these are spec-fixed values: ApplyDefaults
// exists so tests and the YAML loader share one source of truth, but
// production code should not need to override MaxItemRetries.
type QueuePolicy struct {
	IdleGap        time.Duration `yaml:"idle_gap"`
	RetryBackoff   time.Duration `yaml:"retry_backoff"`
	MaxItemRetries int           `yaml:"max_item_retries"`
}

// ApplyDefaults fills in the spec's fixed worker-loop constants.
func (p *QueuePolicy) ApplyDefaults() {
	if p.IdleGap <= 0 {
		p.IdleGap = 100 * time.Millisecond
	}
	if p.RetryBackoff <= 0 {
		p.RetryBackoff = 5 * time.Second
	}
	if p.MaxItemRetries <= 0 {
		p.MaxItemRetries = 10
	}
}

// Queue is the worker-facing contract a DistributorQueue satisfies; registry
// code depends on this port rather than the concrete adapter so tests can
// substitute a fake.
type Queue interface {
	ID() int
	Enqueue(b *domain.Batch) error
	Size() int
	Quit()
	Wait()
}
