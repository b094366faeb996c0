package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"txflow/internal/domain"
	"txflow/internal/ports"
)

type recordingObs struct {
	mu     sync.Mutex
	errors []string
}

func (o *recordingObs) LogInfo(msg string, fields ...ports.Field) {}
func (o *recordingObs) LogError(msg string, err error, fields ...ports.Field) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errors = append(o.errors, msg)
}
func (o *recordingObs) LogCritical(msg string, err error, fields ...ports.Field) {}
func (o *recordingObs) IncCounter(name string, v float64)                       {}
func (o *recordingObs) ObserveLatency(name string, seconds float64)             {}
func (o *recordingObs) SetGauge(name string, v float64)                         {}

func fastPolicy() ports.QueuePolicy {
	return ports.QueuePolicy{IdleGap: time.Millisecond, RetryBackoff: time.Millisecond, MaxItemRetries: 3}
}

func TestDistributorQueueFIFOOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string

	send := func(ctx context.Context, cred domain.Credential, b *domain.Batch) error {
		mu.Lock()
		order = append(order, b.Tag)
		mu.Unlock()
		return nil
	}

	q := New(context.Background(), 1, domain.Credential{}, fastPolicy(), send, &recordingObs{})
	for _, tag := range []string{"a", "b", "c"} {
		if err := q.Enqueue(&domain.Batch{Tag: tag, Ops: []*domain.Operation{{}}}); err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}
	}

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		done := len(order) >= 3
		mu.Unlock()
		if done {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for queued batches to be sent")
		case <-time.After(time.Millisecond):
		}
	}

	q.Quit()
	q.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Fatalf("expected FIFO order a,b,c, got %v", order)
	}
}

func TestDistributorQueueRetryGoesToFront(t *testing.T) {
	var mu sync.Mutex
	var order []string
	calls := 0

	send := func(ctx context.Context, cred domain.Credential, b *domain.Batch) error {
		mu.Lock()
		calls++
		order = append(order, b.Tag)
		mu.Unlock()
		if b.Tag == "first" && b.RetryCount == 0 {
			return errors.New("fail once")
		}
		return nil
	}

	q := New(context.Background(), 1, domain.Credential{}, fastPolicy(), send, &recordingObs{})
	_ = q.Enqueue(&domain.Batch{Tag: "first"})
	_ = q.Enqueue(&domain.Batch{Tag: "second"})

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		done := len(order) >= 3
		mu.Unlock()
		if done {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for retried batch to complete")
		case <-time.After(time.Millisecond):
		}
	}

	q.Quit()
	q.Wait()

	mu.Lock()
	defer mu.Unlock()
	if order[0] != "first" || order[1] != "first" || order[2] != "second" {
		t.Fatalf("expected retried batch to run again before later arrival, got %v", order)
	}
}

func TestDistributorQueuePermanentFailureIsDropped(t *testing.T) {
	send := func(ctx context.Context, cred domain.Credential, b *domain.Batch) error {
		return errors.New("always fails")
	}
	obs := &recordingObs{}
	policy := fastPolicy()
	policy.MaxItemRetries = 2

	q := New(context.Background(), 1, domain.Credential{}, policy, send, obs)
	_ = q.Enqueue(&domain.Batch{Tag: "doomed"})

	deadline := time.After(2 * time.Second)
	for {
		if q.Size() == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for permanent failure to drain")
		case <-time.After(time.Millisecond):
		}
	}

	q.Quit()
	q.Wait()

	obs.mu.Lock()
	defer obs.mu.Unlock()
	found := false
	for _, msg := range obs.errors {
		if msg == "batch_permanently_failed" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a batch_permanently_failed log, got %v", obs.errors)
	}
}

func TestDistributorQueueEnqueueAfterQuitFails(t *testing.T) {
	send := func(ctx context.Context, cred domain.Credential, b *domain.Batch) error { return nil }
	q := New(context.Background(), 1, domain.Credential{}, fastPolicy(), send, &recordingObs{})
	q.Quit()
	q.Wait()

	if err := q.Enqueue(&domain.Batch{Tag: "late"}); !errors.Is(err, domain.ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
}

func TestDistributorQueueSingleWorker(t *testing.T) {
	var concurrent atomic.Int32
	var maxConcurrent atomic.Int32

	send := func(ctx context.Context, cred domain.Credential, b *domain.Batch) error {
		n := concurrent.Add(1)
		if n > maxConcurrent.Load() {
			maxConcurrent.Store(n)
		}
		time.Sleep(2 * time.Millisecond)
		concurrent.Add(-1)
		return nil
	}

	q := New(context.Background(), 1, domain.Credential{}, fastPolicy(), send, &recordingObs{})
	for i := 0; i < 20; i++ {
		_ = q.Enqueue(&domain.Batch{Tag: "x"})
	}
	q.Quit()
	q.Wait()

	if maxConcurrent.Load() > 1 {
		t.Fatalf("expected at most one worker draining at a time, saw %d concurrent", maxConcurrent.Load())
	}
}
