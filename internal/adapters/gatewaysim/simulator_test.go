package gatewaysim

import (
	"context"
	"errors"
	"testing"

	"txflow/internal/domain"
	"txflow/internal/ports"
)

func TestSimulatorDefaultsToSuccess(t *testing.T) {
	sim := New()
	hash, err := sim.SendMany(context.Background(), domain.Credential{}, nil, "")
	if err != nil || hash == "" {
		t.Fatalf("expected a default success, got hash=%q err=%v", hash, err)
	}
}

func TestSimulatorConsumesQueuedResponsesInOrder(t *testing.T) {
	sim := New()
	sim.QueueSendMany(Response{Err: OpCodesError("op_underfunded")}, Response{TxHash: "second"})

	_, err := sim.SendMany(context.Background(), domain.Credential{}, nil, "")
	if err == nil {
		t.Fatalf("expected the first queued call to fail")
	}
	var gwErr *ports.GatewayError
	if !errors.As(err, &gwErr) || len(gwErr.OpCodes) != 1 || gwErr.OpCodes[0] != "op_underfunded" {
		t.Fatalf("expected an op_underfunded GatewayError, got %v", err)
	}

	hash, err := sim.SendMany(context.Background(), domain.Credential{}, nil, "")
	if err != nil || hash != "second" {
		t.Fatalf("expected the second queued call to succeed with hash=second, got hash=%q err=%v", hash, err)
	}

	hash, err = sim.SendMany(context.Background(), domain.Credential{}, nil, "")
	if err != nil || hash == "" {
		t.Fatalf("expected calls past the queue to default to success, got hash=%q err=%v", hash, err)
	}
}

func TestSimulatorMintAndTransferUpdatesBalance(t *testing.T) {
	sim := New()
	asset := domain.Asset{Code: "X", Issuer: "iss"}
	if bal, _ := sim.BalanceOf(context.Background(), "dist", asset); bal != 0 {
		t.Fatalf("expected zero starting balance, got %v", bal)
	}

	if err := sim.MintAndTransfer(context.Background(), "X", 500, domain.Credential{PublicKey: "iss"}, domain.Credential{PublicKey: "dist"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bal, err := sim.BalanceOf(context.Background(), "dist", asset)
	if err != nil || bal != 500 {
		t.Fatalf("expected balance 500 after mint, got %v err=%v", bal, err)
	}
}

func TestSimulatorRecordsCalls(t *testing.T) {
	sim := New()
	ops := []*domain.Operation{{Destination: "d1"}}
	_, _ = sim.SendMany(context.Background(), domain.Credential{PublicKey: "dist"}, ops, "memo")
	_ = sim.EstablishTrust(context.Background(), domain.Credential{PublicKey: "dist"}, domain.Asset{Code: "X"})

	calls := sim.Calls()
	if len(calls) != 2 || calls[0].Method != "SendMany" || calls[1].Method != "EstablishTrust" {
		t.Fatalf("expected SendMany then EstablishTrust recorded, got %+v", calls)
	}
}

func TestTransportAndTxErrorHelpers(t *testing.T) {
	var gwErr *ports.GatewayError

	if !errors.As(TransportError(503), &gwErr) || gwErr.Transport != 503 {
		t.Fatalf("expected TransportError to carry Transport=503")
	}
	if !errors.As(TxError("tx_insufficient_balance"), &gwErr) || gwErr.TxCode != "tx_insufficient_balance" {
		t.Fatalf("expected TxError to carry the given TxCode")
	}
}
