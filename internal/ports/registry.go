package ports

import "context"

// DistributorInfo describes one distributor wallet as reported by the
// DistributorRegistry capability. CredentialMaterial is opaque to this
// package; the registry decodes it with a caller-supplied decoder.
type DistributorInfo struct {
	ID                 int
	CredentialMaterial string
	Active             bool
}

// DistributorRegistry is the capability consumed to discover the current
// fleet of sending wallets. Polled on a fixed interval.
type DistributorRegistry interface {
	ActiveDistributors(ctx context.Context) ([]DistributorInfo, error)
}
