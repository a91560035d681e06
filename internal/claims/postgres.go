package claims

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fra-atlas/fra-dss/internal/db"
	"github.com/fra-atlas/fra-dss/internal/model"
)

// Every column is read as text so that parsing, and the decision to drop a
// claim, stays with the cleaner.
const claimsQuery = `SELECT
	id,
	COALESCE(claimant_name::text, ''),
	COALESCE(age::text, ''),
	COALESCE(gender::text, ''),
	COALESCE(state::text, ''),
	COALESCE(district::text, ''),
	COALESCE(block_tehsil::text, ''),
	COALESCE(gram_panchayat::text, ''),
	COALESCE(village::text, ''),
	COALESCE(category::text, ''),
	COALESCE(tax_payer::text, ''),
	COALESCE(claim_type::text, ''),
	COALESCE(status_of_claim::text, ''),
	COALESCE(annual_income::text, ''),
	COALESCE(land_use::text, ''),
	COALESCE(geo_coordinates::text, '')
FROM claims
ORDER BY id`

// PostgresSource reads the claims table.
type PostgresSource struct {
	pool db.Pool
}

// NewPostgresSource creates a PostgresSource over pool.
func NewPostgresSource(pool db.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

// Claims implements Source.
func (s *PostgresSource) Claims(ctx context.Context) ([]model.RawClaim, error) {
	rows, err := s.pool.Query(ctx, claimsQuery)
	if err != nil {
		return nil, eris.Wrap(err, "claims: query claims")
	}
	defer rows.Close()

	var out []model.RawClaim
	for rows.Next() {
		var c model.RawClaim
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Age, &c.Gender, &c.State, &c.District,
			&c.BlockTehsil, &c.GramPanchayat, &c.Village, &c.Category,
			&c.TaxPayer, &c.ClaimType, &c.Status, &c.AnnualIncome,
			&c.LandUse, &c.GeoCoordinates,
		); err != nil {
			return nil, eris.Wrap(err, "claims: scan claim")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "claims: iterate claims")
	}

	zap.L().Info("claims: loaded from postgres", zap.Int("claims", len(out)))
	return out, nil
}
