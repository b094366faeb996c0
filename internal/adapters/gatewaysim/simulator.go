// Package gatewaysim provides an in-memory, scriptable BlockchainGateway
// double: a generalized, reusable form of the teacher's mockWAL/mockQueue
// test doubles, usable from both package tests and example/ programs that
// want to run the dispatcher without a live network.
package gatewaysim

import (
	"context"
	"fmt"
	"sync"

	"txflow/internal/domain"
	"txflow/internal/ports"
)

// Response is one scripted outcome for a gateway call that returns a
// transaction hash.
type Response struct {
	TxHash string
	Err    error
}

// Call records one invocation against the simulator, for assertions in
// tests that need to inspect what was actually sent.
type Call struct {
	Method      string
	Distributor domain.Credential
	Ops         []*domain.Operation
	Memo        string
}

// Simulator is a BlockchainGateway backed entirely by scripted, queued
// responses plus an in-memory balance table. Each Queue* method appends to a
// FIFO consumed in call order; once a queue is empty, calls succeed with a
// default hash.
type Simulator struct {
	mu sync.Mutex

	sendManyQueue        []Response
	sendOneQueue         []Response
	establishTrustQueue  []error
	mintAndTransferQueue []error

	balances map[string]float64
	calls    []Call
}

// New returns an empty Simulator; every call succeeds until responses are
// queued.
func New() *Simulator {
	return &Simulator{balances: make(map[string]float64)}
}

// QueueSendMany appends scripted SendMany outcomes, consumed in order.
func (s *Simulator) QueueSendMany(responses ...Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendManyQueue = append(s.sendManyQueue, responses...)
}

// QueueSendOne appends scripted SendOne outcomes, consumed in order.
func (s *Simulator) QueueSendOne(responses ...Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendOneQueue = append(s.sendOneQueue, responses...)
}

// QueueEstablishTrust appends scripted EstablishTrust outcomes.
func (s *Simulator) QueueEstablishTrust(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.establishTrustQueue = append(s.establishTrustQueue, errs...)
}

// QueueMintAndTransfer appends scripted MintAndTransfer outcomes.
func (s *Simulator) QueueMintAndTransfer(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mintAndTransferQueue = append(s.mintAndTransferQueue, errs...)
}

// SetBalance seeds the balance BalanceOf reports for address/asset until a
// MintAndTransfer call updates it.
func (s *Simulator) SetBalance(address string, asset domain.Asset, amount float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[balanceKey(address, asset)] = amount
}

// Calls returns a snapshot of every recorded invocation, in call order.
func (s *Simulator) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *Simulator) SendMany(ctx context.Context, distributor domain.Credential, ops []*domain.Operation, memo string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Method: "SendMany", Distributor: distributor, Ops: ops, Memo: memo})

	if len(s.sendManyQueue) == 0 {
		return "sim-tx", nil
	}
	r := s.sendManyQueue[0]
	s.sendManyQueue = s.sendManyQueue[1:]
	if r.Err != nil {
		return "", r.Err
	}
	if r.TxHash == "" {
		r.TxHash = "sim-tx"
	}
	return r.TxHash, nil
}

func (s *Simulator) SendOne(ctx context.Context, from domain.Credential, amount float64, asset domain.Asset, to string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Method: "SendOne", Distributor: from})

	if len(s.sendOneQueue) == 0 {
		return "sim-tx", nil
	}
	r := s.sendOneQueue[0]
	s.sendOneQueue = s.sendOneQueue[1:]
	if r.Err != nil {
		return "", r.Err
	}
	return r.TxHash, nil
}

func (s *Simulator) EstablishTrust(ctx context.Context, distributor domain.Credential, asset domain.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Method: "EstablishTrust", Distributor: distributor})

	if len(s.establishTrustQueue) == 0 {
		return nil
	}
	err := s.establishTrustQueue[0]
	s.establishTrustQueue = s.establishTrustQueue[1:]
	return err
}

func (s *Simulator) MintAndTransfer(ctx context.Context, assetCode string, amount float64, issuer domain.Credential, distributor domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Method: "MintAndTransfer", Distributor: distributor})

	if len(s.mintAndTransferQueue) > 0 {
		err := s.mintAndTransferQueue[0]
		s.mintAndTransferQueue = s.mintAndTransferQueue[1:]
		if err != nil {
			return err
		}
	}
	key := balanceKey(distributor.PublicKey, domain.Asset{Code: assetCode, Issuer: issuer.PublicKey})
	s.balances[key] += amount
	return nil
}

func (s *Simulator) BalanceOf(ctx context.Context, address string, asset domain.Asset) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[balanceKey(address, asset)], nil
}

func balanceKey(address string, asset domain.Asset) string {
	return address + "|" + asset.Code + "|" + asset.Issuer
}

// TransportError builds a GatewayError carrying only a transport status code.
func TransportError(status int) error {
	return &ports.GatewayError{Transport: status, Err: fmt.Errorf("simulated transport status %d", status)}
}

// TxError builds a GatewayError carrying only a transaction-level result
// code.
func TxError(code string) error {
	return &ports.GatewayError{TxCode: code, Err: fmt.Errorf("simulated tx code %s", code)}
}

// OpCodesError builds a GatewayError carrying per-operation result codes
// aligned by index to the submitted batch.
func OpCodesError(codes ...string) error {
	return &ports.GatewayError{OpCodes: codes, Err: fmt.Errorf("simulated op codes %v", codes)}
}

var _ ports.BlockchainGateway = (*Simulator)(nil)
