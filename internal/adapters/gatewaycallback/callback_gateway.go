// Package gatewaycallback adapts plain functions into a full
// ports.BlockchainGateway, grounded in the teacher's NewCallbackSink (adapt a
// SampleBatchSink function into a ports.Sink) so callers can plug a gateway
// without defining a struct of their own.
package gatewaycallback

import (
	"context"
	"fmt"

	"txflow/internal/domain"
	"txflow/internal/ports"
)

// Funcs holds the callback implementations backing a Gateway. Any left nil
// returns an error when called, mirroring the teacher callback sink's
// nil-handler guard.
type Funcs struct {
	SendMany        func(ctx context.Context, distributor domain.Credential, ops []*domain.Operation, memo string) (string, error)
	SendOne         func(ctx context.Context, from domain.Credential, amount float64, asset domain.Asset, to string) (string, error)
	EstablishTrust  func(ctx context.Context, distributor domain.Credential, asset domain.Asset) error
	MintAndTransfer func(ctx context.Context, assetCode string, amount float64, issuer domain.Credential, distributor domain.Credential) error
	BalanceOf       func(ctx context.Context, address string, asset domain.Asset) (float64, error)
}

// Gateway wraps Funcs as a ports.BlockchainGateway.
type Gateway struct {
	name string
	fns  Funcs
}

// New adapts fns into a Gateway. name is used only in error messages for
// unset callbacks.
func New(name string, fns Funcs) *Gateway {
	if name == "" {
		name = "callback"
	}
	return &Gateway{name: name, fns: fns}
}

func (g *Gateway) SendMany(ctx context.Context, distributor domain.Credential, ops []*domain.Operation, memo string) (string, error) {
	if g.fns.SendMany == nil {
		return "", fmt.Errorf("callback gateway %q: SendMany not implemented", g.name)
	}
	return g.fns.SendMany(ctx, distributor, ops, memo)
}

func (g *Gateway) SendOne(ctx context.Context, from domain.Credential, amount float64, asset domain.Asset, to string) (string, error) {
	if g.fns.SendOne == nil {
		return "", fmt.Errorf("callback gateway %q: SendOne not implemented", g.name)
	}
	return g.fns.SendOne(ctx, from, amount, asset, to)
}

func (g *Gateway) EstablishTrust(ctx context.Context, distributor domain.Credential, asset domain.Asset) error {
	if g.fns.EstablishTrust == nil {
		return fmt.Errorf("callback gateway %q: EstablishTrust not implemented", g.name)
	}
	return g.fns.EstablishTrust(ctx, distributor, asset)
}

func (g *Gateway) MintAndTransfer(ctx context.Context, assetCode string, amount float64, issuer domain.Credential, distributor domain.Credential) error {
	if g.fns.MintAndTransfer == nil {
		return fmt.Errorf("callback gateway %q: MintAndTransfer not implemented", g.name)
	}
	return g.fns.MintAndTransfer(ctx, assetCode, amount, issuer, distributor)
}

func (g *Gateway) BalanceOf(ctx context.Context, address string, asset domain.Asset) (float64, error) {
	if g.fns.BalanceOf == nil {
		return 0, fmt.Errorf("callback gateway %q: BalanceOf not implemented", g.name)
	}
	return g.fns.BalanceOf(ctx, address, asset)
}

var _ ports.BlockchainGateway = (*Gateway)(nil)
