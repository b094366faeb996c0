// Package recovery executes the side effects an ErrorClassifier plan calls
// for: refilling gas, establishing trust lines, minting a refill transfer, or
// converting an operation to a deferred claim.
package recovery

import (
	"context"

	"txflow/internal/domain"
	"txflow/internal/ports"
)

// Default amounts used when the actuator is constructed without overrides.
// RefillAsset computes refill = supplyRefillCap - currentBalance without
// accounting for in-flight debits from other queues; this is accepted
// eventual-consistency behavior, so
// a double refill can briefly occur when two queues recover the same asset
// concurrently.
const (
	DefaultRefillGasAmount = 10
	DefaultSupplyRefillCap = 1_000_000
)

// Actuator executes RecoveryActuator side effects against a BlockchainGateway.
// Every method is best-effort: failures are logged and surfaced as a boolean,
// never as a propagated error, matching the contract that no exception
// escapes the actuator.
type Actuator struct {
	gateway  ports.BlockchainGateway
	settings ports.SettingsStore
	obs      ports.Observability

	refillGasAmount float64
	supplyRefillCap float64
}

// Option customizes an Actuator at construction.
type Option func(*Actuator)

// WithRefillGasAmount overrides the fixed gas top-up amount.
func WithRefillGasAmount(amount float64) Option {
	return func(a *Actuator) { a.refillGasAmount = amount }
}

// WithSupplyRefillCap overrides SUPPLY_REFILL_LIMIT, the target balance an
// asset refill tops a distributor up to.
func WithSupplyRefillCap(limit float64) Option {
	return func(a *Actuator) { a.supplyRefillCap = limit }
}

// New builds an Actuator against the given gateway/settings capabilities.
func New(gateway ports.BlockchainGateway, settings ports.SettingsStore, obs ports.Observability, opts ...Option) *Actuator {
	a := &Actuator{
		gateway:         gateway,
		settings:        settings,
		obs:             obs,
		refillGasAmount: DefaultRefillGasAmount,
		supplyRefillCap: DefaultSupplyRefillCap,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// RefillGas transfers a fixed small amount of native gas from the configured
// refill wallet to distributor. Best-effort: a failure is logged, never
// returned, since the caller (BatchSender) proceeds to a transient retry
// regardless.
func (a *Actuator) RefillGas(ctx context.Context, distributor domain.Credential) {
	refillCred, ok, err := a.settings.RefillCredential(ctx)
	if err != nil {
		a.obs.LogError("refill_gas_credential_lookup_failed", err)
		return
	}
	if !ok {
		a.obs.LogError("refill_gas_credential_missing", nil)
		return
	}
	if _, err := a.gateway.SendOne(ctx, refillCred, a.refillGasAmount, domain.Asset{}, distributor.PublicKey); err != nil {
		a.obs.LogError("refill_gas_failed", err, ports.Field{Key: "distributor", Value: distributor.PublicKey})
		return
	}
	a.obs.IncCounter("txflow_recovery_refill_gas_total", 1)
}

// EstablishTrust submits a trust-line creation for asset on distributor.
// Returns false on failure, which the caller reclassifies as Invalid.
func (a *Actuator) EstablishTrust(ctx context.Context, distributor domain.Credential, asset domain.Asset) bool {
	if err := a.gateway.EstablishTrust(ctx, distributor, asset); err != nil {
		a.obs.LogError("establish_trust_failed", err,
			ports.Field{Key: "distributor", Value: distributor.PublicKey},
			ports.Field{Key: "asset", Value: asset.Code})
		return false
	}
	a.obs.IncCounter("txflow_recovery_establish_trust_total", 1)
	return true
}

// RefillAsset locates the issuer for asset among issuers, computes
// refill = SupplyRefillCap - currentBalance, and mints/transfers that amount
// from the issuer to distributor. Returns false (caller moves the operation
// to the end of the remaining list) when no issuer is known, the balance
// lookup fails, the distributor is already at or above the cap, or the mint
// itself fails.
func (a *Actuator) RefillAsset(ctx context.Context, distributor domain.Credential, asset domain.Asset, issuers []domain.Issuer) bool {
	issuer, ok := findIssuer(issuers, asset.Issuer)
	if !ok {
		a.obs.LogError("refill_asset_issuer_not_found", nil, ports.Field{Key: "asset", Value: asset.Code})
		return false
	}

	balance, err := a.gateway.BalanceOf(ctx, distributor.PublicKey, asset)
	if err != nil {
		a.obs.LogError("refill_asset_balance_lookup_failed", err)
		return false
	}

	refill := a.supplyRefillCap - balance
	if refill <= 0 {
		return false
	}

	if err := a.gateway.MintAndTransfer(ctx, asset.Code, refill, issuer.Credential, distributor); err != nil {
		a.obs.LogError("refill_asset_mint_failed", err, ports.Field{Key: "asset", Value: asset.Code})
		return false
	}
	a.obs.IncCounter("txflow_recovery_refill_asset_total", 1)
	return true
}

// ConvertToDeferredClaim mutates op in place so the next submission attempt
// routes it as a deferred claim. Idempotent: applying it twice leaves op in
// the same state as applying it once.
func (a *Actuator) ConvertToDeferredClaim(op *domain.Operation) {
	op.Type = domain.OpDeferredClaim
}

func findIssuer(issuers []domain.Issuer, publicKey string) (domain.Issuer, bool) {
	for _, iss := range issuers {
		if iss.PublicKey == publicKey {
			return iss, true
		}
	}
	return domain.Issuer{}, false
}
