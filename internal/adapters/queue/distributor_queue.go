// Package queue implements the per-distributor worker queue: a mutex-guarded
// FIFO of batches drained by a single background worker goroutine, grounded
// in the teacher's MemQueue generalized with a worker loop and active/running
// lifecycle flags.
package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"txflow/internal/domain"
	"txflow/internal/ports"
)

// SendFunc submits one batch through the gateway/classify/recover pipeline
// and reports whether the batch ultimately succeeded.
type SendFunc func(ctx context.Context, distributor domain.Credential, batch *domain.Batch) error

// DistributorQueue is bound to exactly one distributor wallet. At most one
// worker goroutine drains items at any time; enqueue is safe from any
// goroutine.
type DistributorQueue struct {
	id         int
	credential domain.Credential
	policy     ports.QueuePolicy
	send       SendFunc
	obs        ports.Observability

	mu      sync.Mutex
	items   []*domain.Batch
	active  atomic.Bool
	running atomic.Bool

	ctx context.Context
	wg  sync.WaitGroup
}

// New constructs a DistributorQueue. ctx bounds the lifetime of gateway calls
// made from the worker goroutine; cancelling it does not itself stop the
// worker — call Quit for cooperative shutdown.
func New(ctx context.Context, id int, credential domain.Credential, policy ports.QueuePolicy, send SendFunc, obs ports.Observability) *DistributorQueue {
	policy.ApplyDefaults()
	q := &DistributorQueue{
		id:         id,
		credential: credential,
		policy:     policy,
		send:       send,
		obs:        obs,
		ctx:        ctx,
	}
	q.active.Store(true)
	return q
}

// ID returns the stable distributor id this queue is bound to.
func (q *DistributorQueue) ID() int { return q.id }

// Enqueue appends batch to items and, if no worker is currently running,
// starts one. Returns ErrQueueClosed if the queue is no longer active.
func (q *DistributorQueue) Enqueue(b *domain.Batch) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.active.Load() {
		return domain.ErrQueueClosed
	}
	q.items = append(q.items, b)
	if q.running.CompareAndSwap(false, true) {
		q.wg.Add(1)
		go q.run()
	}
	return nil
}

// Size returns the current queued length, excluding any batch the worker is
// actively processing. Used for load balancing by the registry.
func (q *DistributorQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Quit marks the queue inactive. The worker finishes its current batch and
// then exits on its own; Quit does not block.
func (q *DistributorQueue) Quit() {
	q.active.Store(false)
}

// Wait blocks until the worker goroutine has exited. Safe to call even if no
// worker ever started.
func (q *DistributorQueue) Wait() {
	q.wg.Wait()
}

func (q *DistributorQueue) run() {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		if len(q.items) == 0 || !q.active.Load() {
			q.running.Store(false)
			q.mu.Unlock()
			return
		}
		q.mu.Unlock()

		interruptibleSleep(q.ctx, q.policy.IdleGap)

		q.mu.Lock()
		if len(q.items) == 0 || !q.active.Load() {
			q.running.Store(false)
			q.mu.Unlock()
			return
		}
		batch := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()

		err := q.send(q.ctx, q.credential, batch)
		if err == nil {
			continue
		}

		batch.RetryCount++
		if batch.RetryCount >= q.policy.MaxItemRetries {
			q.obs.LogError("batch_permanently_failed", err,
				ports.Field{Key: "distributor_id", Value: q.id},
				ports.Field{Key: "tag", Value: batch.Tag},
				ports.Field{Key: "retry_count", Value: batch.RetryCount})
			q.obs.IncCounter("txflow_batches_dropped_total", 1)
			continue
		}

		q.mu.Lock()
		q.items = append([]*domain.Batch{batch}, q.items...)
		q.mu.Unlock()
		interruptibleSleep(q.ctx, q.policy.RetryBackoff)
	}
}

func interruptibleSleep(ctx context.Context, d time.Duration) {
	if ctx == nil {
		time.Sleep(d)
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

var _ ports.Queue = (*DistributorQueue)(nil)
