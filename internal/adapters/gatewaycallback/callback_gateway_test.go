package gatewaycallback

import (
	"context"
	"testing"

	"txflow/internal/domain"
)

func TestSendManyInvokesCallback(t *testing.T) {
	var gotOps []*domain.Operation
	gw := New("test", Funcs{
		SendMany: func(ctx context.Context, distributor domain.Credential, ops []*domain.Operation, memo string) (string, error) {
			gotOps = ops
			return "tx-1", nil
		},
	})

	ops := []*domain.Operation{{Destination: "GDEST", Amount: 1}}
	hash, err := gw.SendMany(context.Background(), domain.Credential{}, ops, "memo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash != "tx-1" {
		t.Fatalf("expected tx-1, got %q", hash)
	}
	if len(gotOps) != 1 || gotOps[0] != ops[0] {
		t.Fatalf("expected the callback to receive the same ops slice")
	}
}

func TestUnsetCallbackReturnsError(t *testing.T) {
	gw := New("", Funcs{})
	if _, err := gw.SendMany(context.Background(), domain.Credential{}, nil, ""); err == nil {
		t.Fatalf("expected an error for an unset SendMany callback")
	}
	if _, err := gw.SendOne(context.Background(), domain.Credential{}, 0, domain.Asset{}, ""); err == nil {
		t.Fatalf("expected an error for an unset SendOne callback")
	}
	if err := gw.EstablishTrust(context.Background(), domain.Credential{}, domain.Asset{}); err == nil {
		t.Fatalf("expected an error for an unset EstablishTrust callback")
	}
	if err := gw.MintAndTransfer(context.Background(), "USD", 0, domain.Credential{}, domain.Credential{}); err == nil {
		t.Fatalf("expected an error for an unset MintAndTransfer callback")
	}
	if _, err := gw.BalanceOf(context.Background(), "", domain.Asset{}); err == nil {
		t.Fatalf("expected an error for an unset BalanceOf callback")
	}
}
