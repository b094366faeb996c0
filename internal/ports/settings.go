package ports

import (
	"context"

	"txflow/internal/domain"
)

// SettingsStore is the capability consumed for admin-controlled knobs: the
// sending kill switch and the wallets used for refills.
type SettingsStore interface {
	SendingEnabled(ctx context.Context) (bool, error)
	IssuerCredential(ctx context.Context) (domain.Credential, bool, error)
	RefillCredential(ctx context.Context) (domain.Credential, bool, error)
}
