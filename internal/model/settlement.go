package model

import "fmt"

// SettlementKey identifies one aggregation group.
type SettlementKey struct {
	State    string `json:"state"`
	District string `json:"district"`
	Village  string `json:"village"`
}

func (k SettlementKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.State, k.District, k.Village)
}

// Less orders keys by state, then district, then village.
func (k SettlementKey) Less(o SettlementKey) bool {
	if k.State != o.State {
		return k.State < o.State
	}
	if k.District != o.District {
		return k.District < o.District
	}
	return k.Village < o.Village
}

// SettlementStats holds the raw per-settlement features. Percentages are in
// [0,100] and ClaimantCount is at least 1.
type SettlementStats struct {
	Key                   SettlementKey `json:"key"`
	AvgDistanceMeters     float64       `json:"avg_distance_meters"`
	ClaimantCount         int           `json:"claimant_count"`
	PercentAgri           float64       `json:"percent_agri"`
	AvgAnnualIncome       float64       `json:"avg_annual_income"`
	PercentInsecureTenure float64       `json:"percent_insecure_tenure"`
}

// SettlementNorms holds the settlement features min-max scaled over the
// settlement table.
type SettlementNorms struct {
	Distance    float64 `json:"dist_norm"`
	Count       float64 `json:"count_norm"`
	Agriculture float64 `json:"agri_norm"`
	Income      float64 `json:"income_norm"`
	Tenure      float64 `json:"tenure_norm"`
}

// SettlementPriority is a settlement with its normalized features and the
// composite indices computed from them.
type SettlementPriority struct {
	SettlementStats
	Norms SettlementNorms `json:"norms"`

	JalJeevanMission float64 `json:"jal_jeevan_mission_priority"`
	DAJGUA           float64 `json:"dajgua_priority"`
	MGNREGA          float64 `json:"mgnrega_priority"`
}
