// Package model defines the records that flow through the scoring pipeline.
package model

// RawClaim is one land-rights claim as read from the claim source, before
// any parsing. Numeric fields are kept as text so that parse failures can be
// handled by the cleaner rather than the source.
type RawClaim struct {
	ID             int64  `json:"claim_id"`
	Name           string `json:"claimant_name"`
	Age            string `json:"age"`
	Gender         string `json:"gender"`
	State          string `json:"state"`
	District       string `json:"district"`
	BlockTehsil    string `json:"block_tehsil"`
	GramPanchayat  string `json:"gram_panchayat"`
	Village        string `json:"village"`
	Category       string `json:"category"`
	TaxPayer       string `json:"tax_payer"`
	ClaimType      string `json:"claim_type"`
	Status         string `json:"status_of_claim"`
	AnnualIncome   string `json:"annual_income"`
	LandUse        string `json:"land_use"`
	GeoCoordinates string `json:"geo_coordinates"`
}

// Claimant is a cleaned claim with parsed coordinates and an imputed income.
type Claimant struct {
	ID            int64
	Name          string
	Age           *int
	Gender        string
	State         string
	District      string
	BlockTehsil   string
	GramPanchayat string
	Village       string
	Category      string
	TaxPayer      string
	ClaimType     string
	Status        string
	LandUse       string

	AnnualIncome  float64
	IncomeImputed bool

	Latitude  float64
	Longitude float64
}

// Key returns the settlement the claimant is aggregated under.
func (c *Claimant) Key() SettlementKey {
	return SettlementKey{State: c.State, District: c.District, Village: c.Village}
}

// LocatedClaimant is a claimant joined to the nearest geographic feature of
// its region.
type LocatedClaimant struct {
	Claimant

	DistanceMeters float64
	// NearestFeature is the ID of the nearest feature, empty when no feature
	// of the region could be measured.
	NearestFeature string
	// DistanceFilled is set when the distance was unknown and capped at the
	// worst distance observed in the run.
	DistanceFilled bool
}
