package model

// Scheme names one of the five priority scores.
type Scheme string

const (
	SchemeJalJeevanMission Scheme = "jal_jeevan_mission"
	SchemeDAJGUA           Scheme = "dajgua"
	SchemeMGNREGA          Scheme = "mgnrega"
	SchemePMKISAN          Scheme = "pm_kisan"
	SchemePMAY             Scheme = "pmay"
)

// Schemes lists the schemes in output column order.
var Schemes = []Scheme{
	SchemeJalJeevanMission,
	SchemeDAJGUA,
	SchemeMGNREGA,
	SchemePMKISAN,
	SchemePMAY,
}

// Column returns the output column holding the scheme's score.
func (s Scheme) Column() string {
	return string(s) + "_priority"
}

// DisplayName returns the human-readable scheme name.
func (s Scheme) DisplayName() string {
	switch s {
	case SchemeJalJeevanMission:
		return "Jal Jeevan Mission"
	case SchemeDAJGUA:
		return "DAJGUA"
	case SchemeMGNREGA:
		return "MGNREGA"
	case SchemePMKISAN:
		return "PM-KISAN"
	case SchemePMAY:
		return "PM Awas Yojana"
	default:
		return string(s)
	}
}

// PriorityScores holds the five final scores, each in [0,1].
type PriorityScores struct {
	JalJeevanMission float64 `json:"jal_jeevan_mission_priority"`
	DAJGUA           float64 `json:"dajgua_priority"`
	MGNREGA          float64 `json:"mgnrega_priority"`
	PMKISAN          float64 `json:"pm_kisan_priority"`
	PMAY             float64 `json:"pmay_priority"`
}

// Get returns the score for a scheme.
func (p PriorityScores) Get(s Scheme) float64 {
	switch s {
	case SchemeJalJeevanMission:
		return p.JalJeevanMission
	case SchemeDAJGUA:
		return p.DAJGUA
	case SchemeMGNREGA:
		return p.MGNREGA
	case SchemePMKISAN:
		return p.PMKISAN
	case SchemePMAY:
		return p.PMAY
	}
	return 0
}

// Set stores the score for a scheme.
func (p *PriorityScores) Set(s Scheme, v float64) {
	switch s {
	case SchemeJalJeevanMission:
		p.JalJeevanMission = v
	case SchemeDAJGUA:
		p.DAJGUA = v
	case SchemeMGNREGA:
		p.MGNREGA = v
	case SchemePMKISAN:
		p.PMKISAN = v
	case SchemePMAY:
		p.PMAY = v
	}
}

// ResultRow is one row of the output artifact.
type ResultRow struct {
	ClaimID       int64   `json:"claim_id"`
	Name          string  `json:"claimant_name"`
	Age           *int    `json:"age"`
	Gender        string  `json:"gender"`
	State         string  `json:"state"`
	District      string  `json:"district"`
	BlockTehsil   string  `json:"block_tehsil"`
	GramPanchayat string  `json:"gram_panchayat"`
	Village       string  `json:"village"`
	Category      string  `json:"category"`
	TaxPayer      string  `json:"tax_payer"`
	ClaimType     string  `json:"claim_type"`
	Status        string  `json:"status_of_claim"`
	AnnualIncome  float64 `json:"annual_income"`

	PriorityScores
}

// Key returns the settlement the row belongs to.
func (r *ResultRow) Key() SettlementKey {
	return SettlementKey{State: r.State, District: r.District, Village: r.Village}
}

// OutputColumns is the canonical output schema, in order.
var OutputColumns = []string{
	"claim_id", "claimant_name", "age", "gender", "state", "district",
	"block_tehsil", "gram_panchayat", "village", "category", "tax_payer",
	"claim_type", "status_of_claim", "annual_income",
	"jal_jeevan_mission_priority", "dajgua_priority", "mgnrega_priority",
	"pm_kisan_priority", "pmay_priority",
}
