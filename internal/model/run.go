package model

import "time"

// Run is the header of one persisted scoring run.
type Run struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Claimants   int       `json:"claimants"`
	Settlements int       `json:"settlements"`
	Dropped     int       `json:"dropped"`
	Excluded    int       `json:"excluded"`
	ConfigHash  string    `json:"config_hash"`
}

// HighPriorityThreshold is the score above which a settlement-level scheme
// counts as high priority.
const HighPriorityThreshold = 0.6

// Summary aggregates the stored recommendations.
type Summary struct {
	LatestRun *Run `json:"latest_run,omitempty"`

	TotalClaims int `json:"total_claims"`

	AvgJalJeevanMission float64 `json:"avg_jjm_priority"`
	AvgDAJGUA           float64 `json:"avg_dajgua_priority"`
	AvgMGNREGA          float64 `json:"avg_mgnrega_priority"`

	// Eligible counts claims whose gated score is exactly 1.
	PMKISANEligible int `json:"pm_kisan_eligible"`
	PMAYEligible    int `json:"pmay_eligible"`

	// HighPriority counts claims scoring above HighPriorityThreshold.
	JalJeevanMissionHighPriority int `json:"jjm_high_priority"`
	DAJGUAHighPriority           int `json:"dajgua_high_priority"`
	MGNREGAHighPriority          int `json:"mgnrega_high_priority"`
}
