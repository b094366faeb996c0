// Package classify maps a gateway failure into a structured recovery plan.
package classify

import (
	"errors"

	"txflow/internal/ports"
)

// Action is the transaction-scoped disposition of a classified failure.
type Action int

const (
	ActionNone Action = iota
	ActionTransientRetry
	ActionFatal
)

// RecoveryKind identifies which RecoveryActuator method a RecoveryStep asks
// BatchSender to invoke.
type RecoveryKind int

const (
	RecoverRefillGas RecoveryKind = iota
	RecoverEstablishTrust
	RecoverRefillAsset
)

// RecoveryStep is one side effect the plan calls for. Index is meaningless
// for RecoverRefillGas, which is transaction-scoped.
type RecoveryStep struct {
	Kind  RecoveryKind
	Index int
}

// Plan is the classifier's total output: index sets over the batch that was
// submitted, plus a transaction-level action.
type Plan struct {
	Invalid           []int
	MoveToEnd         []int
	ConvertToClaim    []int
	RecoveryActions   []RecoveryStep
	TransactionAction Action
}

// Classifier turns a gateway error into a Plan. It holds no state: Classify
// is a pure function of its input, satisfying the classifier purity
// invariant (repeated classification of the same error yields the same
// plan).
type Classifier struct{}

// New returns a Classifier. It exists purely for construction symmetry with
// the other components; the zero value works identically.
func New() *Classifier {
	return &Classifier{}
}

// Classify maps err to a Plan per the fixed gateway-signal table: transport
// 5xx and unparseable payloads are transient; tx_insufficient_balance pairs a
// gas refill with a transient retry; per-operation codes drive the index
// sets. Any unrecognized per-operation code is treated as Invalid rather than
// TransientRetry, keeping the classifier total and preventing an unknown code
// from ever stalling a batch against the transient budget.
func (c *Classifier) Classify(err error) Plan {
	var gwErr *ports.GatewayError
	if !errors.As(err, &gwErr) {
		return Plan{TransactionAction: ActionTransientRetry}
	}

	switch {
	case gwErr.Transport >= 500:
		return Plan{TransactionAction: ActionTransientRetry}
	case gwErr.TxCode == "tx_insufficient_balance":
		return Plan{
			TransactionAction: ActionTransientRetry,
			RecoveryActions:   []RecoveryStep{{Kind: RecoverRefillGas}},
		}
	case len(gwErr.OpCodes) == 0:
		return Plan{TransactionAction: ActionTransientRetry}
	}

	plan := Plan{}
	for i, code := range gwErr.OpCodes {
		switch code {
		case "op_success":
			// no action
		case "op_no_trust":
			plan.ConvertToClaim = append(plan.ConvertToClaim, i)
		case "op_malformed", "op_line_full":
			plan.Invalid = append(plan.Invalid, i)
		case "op_src_no_trust":
			plan.RecoveryActions = append(plan.RecoveryActions, RecoveryStep{Kind: RecoverEstablishTrust, Index: i})
		case "op_underfunded":
			plan.RecoveryActions = append(plan.RecoveryActions, RecoveryStep{Kind: RecoverRefillAsset, Index: i})
		default:
			plan.Invalid = append(plan.Invalid, i)
		}
	}
	return plan
}
