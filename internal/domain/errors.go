package domain

import "errors"

// Error taxonomy of the dispatcher. Dispatcher.Submit returns
// ErrNoDistributorsAvailable or ErrAdmissionFailed; transient and recoverable
// conditions never reach it. ErrBatchPermanentlyFailed is returned by
// BatchSender to the owning queue's worker, which retries the batch up to
// MAX_ITEM_RETRIES and then logs and drops it; it does not reach Submit's
// caller.
var (
	// ErrNoDistributorsAvailable means the registry held zero active queues at
	// admission time.
	ErrNoDistributorsAvailable = errors.New("txflow: no distributors available")

	// ErrAdmissionFailed means a queue rejected an enqueue (e.g. it was
	// already closed). The rejected chunk and every later chunk of that
	// Submit call are not admitted; chunks admitted earlier in the call stay
	// with their queues. No pending buffer is kept between Submit calls.
	ErrAdmissionFailed = errors.New("txflow: admission failed")

	// ErrBatchPermanentlyFailed means a batch exceeded MAX_ITEM_RETRIES at the
	// queue level or MAX_TRANSIENT_RETRIES inside BatchSender.
	ErrBatchPermanentlyFailed = errors.New("txflow: batch permanently failed")

	// ErrGatewayCredentialInvalid means a distributor's credential material
	// could not be decoded. The distributor is skipped, not fatal to the
	// registry.
	ErrGatewayCredentialInvalid = errors.New("txflow: gateway credential invalid")

	// ErrQueueClosed means enqueue was attempted against a queue whose
	// active flag is false.
	ErrQueueClosed = errors.New("txflow: queue closed")
)
