// Package txflow re-exports pkg/txflow's builder so callers can
// import "txflow" directly instead of the pkg subpackage, grounded in the
// teacher's root api.go re-export pattern.
package txflow

import (
	base "txflow/pkg/txflow"

	"txflow/internal/app/config"
	"txflow/internal/domain"
	"txflow/internal/ports"
	"txflow/internal/registry"
)

// Type aliases so consumers can use the dispatcher's domain and capability
// types without an extra import.
type (
	Config              = config.Config
	Flow                = base.Flow
	FlowOption          = base.FlowOption
	Dispatcher          = base.Dispatcher
	DispatcherOption    = base.DispatcherOption
	Operation           = domain.Operation
	OperationType       = domain.OperationType
	Asset               = domain.Asset
	Credential          = domain.Credential
	Issuer              = domain.Issuer
	BlockchainGateway   = ports.BlockchainGateway
	SettingsStore       = ports.SettingsStore
	DistributorRegistry = ports.DistributorRegistry
	DistributorInfo     = ports.DistributorInfo
	Observability       = ports.Observability
	CredentialDecoder   = registry.CredentialDecoder
)

// Re-exported operation type constants.
const (
	OpDirectPayment = domain.OpDirectPayment
	OpDeferredClaim = domain.OpDeferredClaim
)

// Re-exported sentinel errors.
var (
	ErrNoDistributorsAvailable  = domain.ErrNoDistributorsAvailable
	ErrAdmissionFailed          = domain.ErrAdmissionFailed
	ErrBatchPermanentlyFailed   = domain.ErrBatchPermanentlyFailed
	ErrGatewayCredentialInvalid = domain.ErrGatewayCredentialInvalid
	ErrQueueClosed              = domain.ErrQueueClosed
)

// Conf loads YAML from disk and returns a Flow builder.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

// ConfFromConfig bootstraps a Flow from an already-loaded Config.
func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

// NewDispatcher builds a Dispatcher directly, without the Flow builder.
func NewDispatcher(cfg *Config, opts ...DispatcherOption) (*Dispatcher, error) {
	return base.NewDispatcher(cfg, opts...)
}

// WithFlowOptions appends DispatcherOption values during Conf.
func WithFlowOptions(opts ...DispatcherOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

// WithGateway injects the BlockchainGateway used to move assets on-chain.
// There is no default; every Dispatcher needs one supplied explicitly.
func WithGateway(gw BlockchainGateway) DispatcherOption {
	return base.WithGateway(gw)
}

// WithSettingsStore overrides the default SettingsStore (Postgres-backed when
// postgres.conn_string is set, in-memory otherwise).
func WithSettingsStore(s SettingsStore) DispatcherOption {
	return base.WithSettingsStore(s)
}

// WithDistributorRegistry overrides the default DistributorRegistry
// (Postgres-backed when postgres.conn_string is set, in-memory otherwise).
func WithDistributorRegistry(d DistributorRegistry) DispatcherOption {
	return base.WithDistributorRegistry(d)
}

// WithObservability overrides the default Prometheus-backed Observability.
func WithObservability(obs Observability) DispatcherOption {
	return base.WithObservability(obs)
}

// WithRegistryOptions forwards advanced registry.Option values (credential
// decoder, refresh interval, queue policy, actuator tuning) to the
// internally built DispatcherRegistry.
func WithRegistryOptions(opts ...registry.Option) DispatcherOption {
	return base.WithRegistryOptions(opts...)
}
