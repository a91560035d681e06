// Package store persists scoring runs: the run header, one recommendation
// row per claim, and the settlement statistics of every run.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/fra-atlas/fra-dss/internal/dss"
	"github.com/fra-atlas/fra-dss/internal/model"
)

// ErrNotFound is returned when a claim, settlement, or run is not stored.
var ErrNotFound = errors.New("store: not found")

// Store defines the persistence interface for scoring results.
type Store interface {
	// SaveRun writes the run header, upserts its rows and appends its
	// settlement statistics, all in one transaction.
	SaveRun(ctx context.Context, res *dss.Result) error
	LatestRun(ctx context.Context) (*model.Run, error)

	GetResult(ctx context.Context, claimID int64) (*model.ResultRow, error)
	// GetSettlementStats returns the settlement's statistics from the
	// latest run that contains it.
	GetSettlementStats(ctx context.Context, key model.SettlementKey) (*model.SettlementPriority, error)
	Summary(ctx context.Context) (*model.Summary, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

var recommendationColumns = []string{
	"claim_id", "run_id", "claimant_name", "age", "gender", "state", "district",
	"block_tehsil", "gram_panchayat", "village", "category", "tax_payer",
	"claim_type", "status_of_claim", "annual_income",
	"jal_jeevan_mission_priority", "dajgua_priority", "mgnrega_priority",
	"pm_kisan_priority", "pmay_priority", "updated_at",
}

var settlementColumns = []string{
	"run_id", "state", "district", "village",
	"avg_distance_meters", "claimant_count", "percent_agri",
	"avg_annual_income", "percent_insecure_tenure",
	"dist_norm", "count_norm", "agri_norm", "income_norm", "tenure_norm",
	"jal_jeevan_mission_priority", "dajgua_priority", "mgnrega_priority",
}

// newRun builds the run header for res.
func newRun(res *dss.Result) model.Run {
	run := model.Run{
		ID:          res.RunID.String(),
		CreatedAt:   res.CreatedAt,
		Claimants:   len(res.Rows),
		Settlements: len(res.Settlements),
		ConfigHash:  res.ConfigHash,
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if r := res.Report; r != nil {
		if r.Clean != nil {
			run.Dropped = len(r.Clean.Dropped)
		}
		if r.Association != nil {
			run.Excluded = r.Association.Excluded()
		}
	}
	return run
}

func recommendationValues(runID string, r *model.ResultRow, now time.Time) []any {
	var age any
	if r.Age != nil {
		age = *r.Age
	}
	return []any{
		r.ClaimID, runID, r.Name, age, r.Gender, r.State, r.District,
		r.BlockTehsil, r.GramPanchayat, r.Village, r.Category, r.TaxPayer,
		r.ClaimType, r.Status, r.AnnualIncome,
		r.JalJeevanMission, r.DAJGUA, r.MGNREGA, r.PMKISAN, r.PMAY, now,
	}
}

func settlementValues(runID string, s *model.SettlementPriority) []any {
	return []any{
		runID, s.Key.State, s.Key.District, s.Key.Village,
		s.AvgDistanceMeters, s.ClaimantCount, s.PercentAgri,
		s.AvgAnnualIncome, s.PercentInsecureTenure,
		s.Norms.Distance, s.Norms.Count, s.Norms.Agriculture, s.Norms.Income, s.Norms.Tenure,
		s.JalJeevanMission, s.DAJGUA, s.MGNREGA,
	}
}

type scannable interface {
	Scan(dest ...any) error
}

func scanResult(row scannable) (*model.ResultRow, error) {
	var r model.ResultRow
	err := row.Scan(
		&r.ClaimID, &r.Name, &r.Age, &r.Gender, &r.State, &r.District,
		&r.BlockTehsil, &r.GramPanchayat, &r.Village, &r.Category, &r.TaxPayer,
		&r.ClaimType, &r.Status, &r.AnnualIncome,
		&r.JalJeevanMission, &r.DAJGUA, &r.MGNREGA, &r.PMKISAN, &r.PMAY,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func scanSettlement(row scannable) (*model.SettlementPriority, error) {
	var s model.SettlementPriority
	err := row.Scan(
		&s.Key.State, &s.Key.District, &s.Key.Village,
		&s.AvgDistanceMeters, &s.ClaimantCount, &s.PercentAgri,
		&s.AvgAnnualIncome, &s.PercentInsecureTenure,
		&s.Norms.Distance, &s.Norms.Count, &s.Norms.Agriculture, &s.Norms.Income, &s.Norms.Tenure,
		&s.JalJeevanMission, &s.DAJGUA, &s.MGNREGA,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	if err := row.Scan(&r.ID, &r.CreatedAt, &r.Claimants, &r.Settlements, &r.Dropped, &r.Excluded, &r.ConfigHash); err != nil {
		return nil, err
	}
	return &r, nil
}

func scanSummary(row scannable) (*model.Summary, error) {
	var s model.Summary
	err := row.Scan(
		&s.TotalClaims,
		&s.AvgJalJeevanMission, &s.AvgDAJGUA, &s.AvgMGNREGA,
		&s.PMKISANEligible, &s.PMAYEligible,
		&s.JalJeevanMissionHighPriority, &s.DAJGUAHighPriority, &s.MGNREGAHighPriority,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

const resultSelect = `SELECT claim_id, claimant_name, age, gender, state, district,
	block_tehsil, gram_panchayat, village, category, tax_payer,
	claim_type, status_of_claim, annual_income,
	jal_jeevan_mission_priority, dajgua_priority, mgnrega_priority,
	pm_kisan_priority, pmay_priority
FROM dss_recommendations`

const settlementSelect = `SELECT state, district, village,
	avg_distance_meters, claimant_count, percent_agri,
	avg_annual_income, percent_insecure_tenure,
	dist_norm, count_norm, agri_norm, income_norm, tenure_norm,
	jal_jeevan_mission_priority, dajgua_priority, mgnrega_priority
FROM dss_settlement_stats`

const runSelect = `SELECT id, created_at, claimants, settlements, dropped, excluded, config_hash FROM dss_runs`

const summarySelect = `SELECT
	COUNT(*),
	COALESCE(AVG(jal_jeevan_mission_priority), 0),
	COALESCE(AVG(dajgua_priority), 0),
	COALESCE(AVG(mgnrega_priority), 0),
	COALESCE(SUM(CASE WHEN pm_kisan_priority = 1 THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN pmay_priority = 1 THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN jal_jeevan_mission_priority > 0.6 THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN dajgua_priority > 0.6 THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN mgnrega_priority > 0.6 THEN 1 ELSE 0 END), 0)
FROM dss_recommendations`
