// Package dispatch implements BatchSender: the loop that drives batching,
// error-driven recovery, and requeueing for a single distributor's worker.
// It is grounded in the teacher's RunIngestPipeline dequeue/transform/write/
// commit retry loop, generalized from a single sink-write retry into the
// full outer/inner state machine the spec requires.
package dispatch

import (
	"context"
	"math"
	"sort"
	"time"

	"txflow/internal/classify"
	"txflow/internal/domain"
	"txflow/internal/ports"
	"txflow/internal/recovery"
)

// Fixed constants from the spec. Unlike ports.QueuePolicy these are not
// exposed through YAML configuration — the spec pins their values.
const (
	MaxOpsPerBatch      = 100
	HardAmountLimit     = 9e11
	MaxOpRetries        = 5
	MaxTransientRetries = 3
	StopSendingPoll     = 60 * time.Second
	opRetryBackoff      = 1 * time.Second
)

// Deps bundles BatchSender's collaborators. Sleep is overridable so tests can
// run the 3^n-second transient backoff and the 60s settings poll without
// actually waiting.
type Deps struct {
	Gateway    ports.BlockchainGateway
	Settings   ports.SettingsStore
	Classifier *classify.Classifier
	Actuator   *recovery.Actuator
	Obs        ports.Observability
	Sleep      func(ctx context.Context, d time.Duration)
}

func (d Deps) sleep(ctx context.Context, dur time.Duration) {
	if d.Sleep != nil {
		d.Sleep(ctx, dur)
		return
	}
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// Send drives operations through the gateway to completion, per-operation
// failure, or retry-budget exhaustion. It returns nil once every operation
// has landed on chain, been converted to a deferred claim that landed, been
// individually ruled Invalid, or been dropped with its in-flight slice after
// MaxOpRetries rounds that removed nothing. It returns
// ErrBatchPermanentlyFailed when the transient-retry budget is exceeded, and
// ctx's error when ctx is cancelled.
func Send(ctx context.Context, distributor domain.Credential, operations []*domain.Operation, memo string, issuers []domain.Issuer, tag string, deps Deps) error {
	remaining := make([]*domain.Operation, len(operations))
	copy(remaining, operations)
	sort.SliceStable(remaining, func(i, j int) bool { return remaining[i].Amount > remaining[j].Amount })

	for len(remaining) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		n := len(remaining)
		if n > MaxOpsPerBatch {
			n = MaxOpsPerBatch
		}
		current := remaining[:n]

		transientRetries := 0
		opRetries := 0

		for {
			if err := ctx.Err(); err != nil {
				return err
			}

			if waitErr := waitForSendingEnabled(ctx, deps); waitErr != nil {
				return waitErr
			}

			if idx := firstOversizeIndex(current); idx >= 0 {
				// current/remaining are updated in place regardless of
				// outcome; re-loop to re-check sendingEnabled and re-scan
				// for further oversize ops before attempting a normal
				// submission.
				if err := resolveOversize(ctx, distributor, &current, &remaining, idx, memo, issuers, tag, deps, &transientRetries); err != nil {
					return err
				}
				continue
			}

			if len(current) == 0 {
				break
			}

			start := time.Now()
			_, sendErr := deps.Gateway.SendMany(ctx, distributor, current, memo)
			if sendErr == nil {
				deps.Obs.ObserveLatency("txflow_batch_submit_latency_seconds", time.Since(start).Seconds())
				deps.Obs.IncCounter("txflow_batches_submitted_total", 1)
				remaining = remaining[len(current):]
				break
			}

			plan := classifyAndRecover(ctx, distributor, current, issuers, deps, sendErr)

			switch plan.TransactionAction {
			case classify.ActionTransientRetry:
				if transientRetries >= MaxTransientRetries {
					deps.Obs.IncCounter("txflow_batches_dropped_total", 1)
					return domain.ErrBatchPermanentlyFailed
				}
				transientRetries++
				deps.sleep(ctx, transientBackoff(transientRetries))
				continue
			case classify.ActionFatal:
				deps.Obs.IncCounter("txflow_batches_dropped_total", 1)
				return domain.ErrBatchPermanentlyFailed
			}

			invalid := toSet(plan.Invalid)
			moveToEnd := toSet(plan.MoveToEnd)
			promoteAlreadyMoved(current, moveToEnd, invalid)

			toRemove := mergeDescending(invalid, moveToEnd)
			if len(toRemove) == 0 {
				opRetries++
				if opRetries >= MaxOpRetries {
					deps.Obs.IncCounter("txflow_batches_dropped_total", 1)
					remaining = remaining[len(current):]
					break
				}
				deps.sleep(ctx, opRetryBackoff)
				continue
			}

			var movedOps []*domain.Operation
			for _, idx := range toRemove {
				op := current[idx]
				if _, isMove := moveToEnd[idx]; isMove {
					op.MovedToEnd = true
					movedOps = append(movedOps, op)
					deps.Obs.IncCounter("txflow_operations_moved_total", 1)
				} else {
					deps.Obs.LogError("operation_invalid", nil,
						ports.Field{Key: "tag", Value: tag},
						ports.Field{Key: "destination", Value: op.Destination})
					deps.Obs.IncCounter("txflow_operations_dropped_total", 1)
				}
				current = removeAt(current, idx)
				remaining = removeAt(remaining, idx)
			}
			for i := len(movedOps) - 1; i >= 0; i-- {
				remaining = append(remaining, movedOps[i])
			}

			opRetries = 0
			if len(current) == 0 {
				break
			}
		}
	}
	return nil
}

func waitForSendingEnabled(ctx context.Context, deps Deps) error {
	for {
		enabled, err := deps.Settings.SendingEnabled(ctx)
		if err != nil || enabled {
			return nil
		}
		if waitErr := ctx.Err(); waitErr != nil {
			return waitErr
		}
		deps.sleep(ctx, StopSendingPoll)
	}
}

// resolveOversize handles the single op at current[idx] whose amount is at or
// above HardAmountLimit: it is cloned with a clamped amount and submitted
// alone. On success the original is removed from both current and remaining.
// On failure it goes through the same classify/recover path as the main
// batch, scoped to this single operation — the spec does not define oversize
// failure handling explicitly, so this reuses the general per-op machinery
// rather than inventing a second one.
func resolveOversize(ctx context.Context, distributor domain.Credential, current, remaining *[]*domain.Operation, idx int, memo string, issuers []domain.Issuer, tag string, deps Deps, transientRetries *int) error {
	original := (*current)[idx]
	clone := original.Clone()
	clone.Amount = HardAmountLimit - 1

	_, sendErr := deps.Gateway.SendMany(ctx, distributor, []*domain.Operation{clone}, memo)
	if sendErr == nil {
		deps.Obs.IncCounter("txflow_batches_submitted_total", 1)
		*current = removeAt(*current, idx)
		*remaining = removeAt(*remaining, idx)
		return nil
	}

	plan := classifyAndRecover(ctx, distributor, []*domain.Operation{clone}, issuers, deps, sendErr)
	original.Type = clone.Type

	switch plan.TransactionAction {
	case classify.ActionTransientRetry:
		if *transientRetries >= MaxTransientRetries {
			return domain.ErrBatchPermanentlyFailed
		}
		*transientRetries++
		deps.sleep(ctx, transientBackoff(*transientRetries))
		return nil
	case classify.ActionFatal:
		return domain.ErrBatchPermanentlyFailed
	}

	if len(plan.Invalid) > 0 {
		deps.Obs.LogError("operation_invalid", nil, ports.Field{Key: "tag", Value: tag})
		deps.Obs.IncCounter("txflow_operations_dropped_total", 1)
		*current = removeAt(*current, idx)
		*remaining = removeAt(*remaining, idx)
		return nil
	}

	if len(plan.MoveToEnd) > 0 {
		*current = removeAt(*current, idx)
		*remaining = removeAt(*remaining, idx)
		if original.MovedToEnd {
			deps.Obs.LogError("operation_invalid", nil, ports.Field{Key: "tag", Value: tag})
			deps.Obs.IncCounter("txflow_operations_dropped_total", 1)
		} else {
			original.MovedToEnd = true
			*remaining = append(*remaining, original)
			deps.Obs.IncCounter("txflow_operations_moved_total", 1)
		}
		return nil
	}

	// Trust established or asset refilled in place; the clamped clone is
	// still oversize relative to the original, so retry the same op next
	// iteration.
	return nil
}

// classifyAndRecover classifies a gateway error for opsInFlight and executes
// any recovery side effects the plan calls for, folding EstablishTrust/
// RefillAsset failures into the invalid/moveToEnd index sets per the spec.
func classifyAndRecover(ctx context.Context, distributor domain.Credential, opsInFlight []*domain.Operation, issuers []domain.Issuer, deps Deps, gatewayErr error) classify.Plan {
	plan := deps.Classifier.Classify(gatewayErr)

	invalid := toSet(plan.Invalid)
	moveToEnd := toSet(plan.MoveToEnd)

	for _, idx := range plan.ConvertToClaim {
		deps.Actuator.ConvertToDeferredClaim(opsInFlight[idx])
	}

	for _, act := range plan.RecoveryActions {
		switch act.Kind {
		case classify.RecoverRefillGas:
			deps.Actuator.RefillGas(ctx, distributor)
		case classify.RecoverEstablishTrust:
			if !deps.Actuator.EstablishTrust(ctx, distributor, opsInFlight[act.Index].Asset) {
				invalid[act.Index] = struct{}{}
			}
		case classify.RecoverRefillAsset:
			if !deps.Actuator.RefillAsset(ctx, distributor, opsInFlight[act.Index].Asset, issuers) {
				moveToEnd[act.Index] = struct{}{}
			}
		}
	}

	plan.Invalid = setToSortedSlice(invalid)
	plan.MoveToEnd = setToSortedSlice(moveToEnd)
	return plan
}

func promoteAlreadyMoved(current []*domain.Operation, moveToEnd, invalid map[int]struct{}) {
	for idx := range moveToEnd {
		if current[idx].MovedToEnd {
			delete(moveToEnd, idx)
			invalid[idx] = struct{}{}
		}
	}
}

func firstOversizeIndex(ops []*domain.Operation) int {
	for i, op := range ops {
		if op.Amount >= HardAmountLimit {
			return i
		}
	}
	return -1
}

func transientBackoff(attempt int) time.Duration {
	return time.Duration(math.Pow(3, float64(attempt))) * time.Second
}

func toSet(indices []int) map[int]struct{} {
	set := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		set[i] = struct{}{}
	}
	return set
}

func setToSortedSlice(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for i := range set {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// mergeDescending returns the union of a and b's keys in descending order, so
// callers can remove them from a slice without invalidating subsequent
// indices.
func mergeDescending(a, b map[int]struct{}) []int {
	union := make(map[int]struct{}, len(a)+len(b))
	for i := range a {
		union[i] = struct{}{}
	}
	for i := range b {
		union[i] = struct{}{}
	}
	out := make([]int, 0, len(union))
	for i := range union {
		out = append(out, i)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

func removeAt(ops []*domain.Operation, idx int) []*domain.Operation {
	out := make([]*domain.Operation, 0, len(ops)-1)
	out = append(out, ops[:idx]...)
	out = append(out, ops[idx+1:]...)
	return out
}
