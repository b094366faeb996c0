package recovery

import (
	"context"
	"errors"
	"testing"

	"txflow/internal/domain"
	"txflow/internal/ports"
)

type fakeGateway struct {
	sendOneErr        error
	establishTrustErr error
	mintErr           error
	balance           float64
	balanceErr        error
	mintCalls         int
}

func (g *fakeGateway) SendMany(ctx context.Context, distributor domain.Credential, ops []*domain.Operation, memo string) (string, error) {
	return "", nil
}
func (g *fakeGateway) SendOne(ctx context.Context, from domain.Credential, amount float64, asset domain.Asset, to string) (string, error) {
	if g.sendOneErr != nil {
		return "", g.sendOneErr
	}
	return "tx-refill", nil
}
func (g *fakeGateway) EstablishTrust(ctx context.Context, distributor domain.Credential, asset domain.Asset) error {
	return g.establishTrustErr
}
func (g *fakeGateway) MintAndTransfer(ctx context.Context, assetCode string, amount float64, issuer domain.Credential, distributor domain.Credential) error {
	g.mintCalls++
	return g.mintErr
}
func (g *fakeGateway) BalanceOf(ctx context.Context, address string, asset domain.Asset) (float64, error) {
	return g.balance, g.balanceErr
}

type fakeSettings struct {
	refillCred domain.Credential
	refillOK   bool
	refillErr  error
}

func (s *fakeSettings) SendingEnabled(ctx context.Context) (bool, error) { return true, nil }
func (s *fakeSettings) IssuerCredential(ctx context.Context) (domain.Credential, bool, error) {
	return domain.Credential{}, false, nil
}
func (s *fakeSettings) RefillCredential(ctx context.Context) (domain.Credential, bool, error) {
	return s.refillCred, s.refillOK, s.refillErr
}

type noopObs struct{}

func (noopObs) LogInfo(msg string, fields ...ports.Field)                {}
func (noopObs) LogError(msg string, err error, fields ...ports.Field)    {}
func (noopObs) LogCritical(msg string, err error, fields ...ports.Field) {}
func (noopObs) IncCounter(name string, v float64)                        {}
func (noopObs) ObserveLatency(name string, seconds float64)              {}
func (noopObs) SetGauge(name string, v float64)                          {}

func TestRefillGasBestEffort(t *testing.T) {
	gw := &fakeGateway{}
	settings := &fakeSettings{refillCred: domain.Credential{PublicKey: "refill"}, refillOK: true}
	a := New(gw, settings, noopObs{})

	a.RefillGas(context.Background(), domain.Credential{PublicKey: "dist"})

	gw.sendOneErr = errors.New("boom")
	a.RefillGas(context.Background(), domain.Credential{PublicKey: "dist"})
}

func TestEstablishTrust(t *testing.T) {
	gw := &fakeGateway{}
	a := New(gw, &fakeSettings{}, noopObs{})

	if !a.EstablishTrust(context.Background(), domain.Credential{}, domain.Asset{Code: "X"}) {
		t.Fatalf("expected success")
	}

	gw.establishTrustErr = errors.New("no thanks")
	if a.EstablishTrust(context.Background(), domain.Credential{}, domain.Asset{Code: "X"}) {
		t.Fatalf("expected failure")
	}
}

func TestRefillAsset(t *testing.T) {
	gw := &fakeGateway{balance: 100}
	a := New(gw, &fakeSettings{}, noopObs{}, WithSupplyRefillCap(1000))
	issuers := []domain.Issuer{{PublicKey: "issuer-x", Credential: domain.Credential{PublicKey: "issuer-x"}}}

	ok := a.RefillAsset(context.Background(), domain.Credential{}, domain.Asset{Code: "X", Issuer: "issuer-x"}, issuers)
	if !ok {
		t.Fatalf("expected refill to succeed")
	}
	if gw.mintCalls != 1 {
		t.Fatalf("expected exactly one mint call, got %d", gw.mintCalls)
	}

	if a.RefillAsset(context.Background(), domain.Credential{}, domain.Asset{Code: "Y", Issuer: "missing"}, issuers) {
		t.Fatalf("expected failure when issuer is unknown")
	}

	gwFull := &fakeGateway{balance: 1000}
	aFull := New(gwFull, &fakeSettings{}, noopObs{}, WithSupplyRefillCap(1000))
	if aFull.RefillAsset(context.Background(), domain.Credential{}, domain.Asset{Code: "X", Issuer: "issuer-x"}, issuers) {
		t.Fatalf("expected failure when balance already at cap")
	}
}

func TestConvertToDeferredClaimIsIdempotent(t *testing.T) {
	a := New(&fakeGateway{}, &fakeSettings{}, noopObs{})
	op := &domain.Operation{Type: domain.OpDirectPayment}

	a.ConvertToDeferredClaim(op)
	first := op.Type
	a.ConvertToDeferredClaim(op)

	if op.Type != first || op.Type != domain.OpDeferredClaim {
		t.Fatalf("expected idempotent conversion, got %v", op.Type)
	}
}
