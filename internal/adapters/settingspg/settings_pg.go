// Package settingspg implements ports.SettingsStore over a Postgres
// single-row settings table, grounded in the teacher's TimescaleSink
// database/sql + parameterized-SQL shape, repurposed from a telemetry insert
// sink into a settings read adapter.
package settingspg

import (
	"context"
	"database/sql"

	"txflow/internal/domain"
	"txflow/internal/ports"
)

// Store reads the admin-controlled dispatcher_settings table: the sending
// kill switch plus the issuer and refill wallets. The table is expected to
// hold exactly one row; credentials are nullable columns, absent meaning "not
// configured" rather than an error.
type Store struct {
	db *sql.DB
}

// New wraps an already-opened *sql.DB. Callers open the connection the same
// way the teacher does (sql.Open("postgres", ...) with the blank lib/pq
// import) before constructing a Store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) SendingEnabled(ctx context.Context) (bool, error) {
	var enabled bool
	err := s.db.QueryRowContext(ctx, "SELECT sending_enabled FROM dispatcher_settings LIMIT 1").Scan(&enabled)
	if err != nil {
		return false, err
	}
	return enabled, nil
}

func (s *Store) IssuerCredential(ctx context.Context) (domain.Credential, bool, error) {
	return s.credential(ctx, "issuer_public_key", "issuer_secret")
}

func (s *Store) RefillCredential(ctx context.Context) (domain.Credential, bool, error) {
	return s.credential(ctx, "refill_public_key", "refill_secret")
}

func (s *Store) credential(ctx context.Context, pubCol, secCol string) (domain.Credential, bool, error) {
	query := "SELECT " + pubCol + ", " + secCol + " FROM dispatcher_settings LIMIT 1"
	var pub, sec sql.NullString
	if err := s.db.QueryRowContext(ctx, query).Scan(&pub, &sec); err != nil {
		return domain.Credential{}, false, err
	}
	if !pub.Valid || !sec.Valid {
		return domain.Credential{}, false, nil
	}
	return domain.Credential{PublicKey: pub.String, Secret: sec.String}, true, nil
}

var _ ports.SettingsStore = (*Store)(nil)
