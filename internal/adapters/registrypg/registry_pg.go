// Package registrypg implements ports.DistributorRegistry over a Postgres
// distributors table, grounded in the same database/sql adapter shape as
// settingspg.
package registrypg

import (
	"context"
	"database/sql"

	"txflow/internal/ports"
)

// Registry reads the fleet of distributor wallets from a distributors table
// (id, credential_material, active).
type Registry struct {
	db *sql.DB
}

// New wraps an already-opened *sql.DB.
func New(db *sql.DB) *Registry {
	return &Registry{db: db}
}

func (r *Registry) ActiveDistributors(ctx context.Context) ([]ports.DistributorInfo, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, credential_material, active FROM distributors")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ports.DistributorInfo
	for rows.Next() {
		var info ports.DistributorInfo
		if err := rows.Scan(&info.ID, &info.CredentialMaterial, &info.Active); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

var _ ports.DistributorRegistry = (*Registry)(nil)
