package dss

import (
	"go.uber.org/zap"

	"github.com/fra-atlas/fra-dss/internal/config"
	"github.com/fra-atlas/fra-dss/internal/model"
)

// ScopeSettlements is the scope name of the settlement-table fit.
const ScopeSettlements = "settlements"

var settlementColumns = []Column[model.SettlementStats]{
	{Name: "dist_norm", Value: func(s model.SettlementStats) float64 { return s.AvgDistanceMeters }},
	{Name: "count_norm", Value: func(s model.SettlementStats) float64 { return float64(s.ClaimantCount) }},
	{Name: "agri_norm", Value: func(s model.SettlementStats) float64 { return s.PercentAgri }},
	{Name: "income_norm", Value: func(s model.SettlementStats) float64 { return s.AvgAnnualIncome }},
	{Name: "tenure_norm", Value: func(s model.SettlementStats) float64 { return s.PercentInsecureTenure }},
}

// ComposeSettlements normalizes the settlement table and computes the three
// settlement-level composite indices, each clamped to [0,1].
func ComposeSettlements(stats []model.SettlementStats, cfg config.DSSConfig) ([]model.SettlementPriority, *Fit) {
	norms, fit := Normalize(ScopeSettlements, stats, settlementColumns...)

	out := make([]model.SettlementPriority, len(stats))
	for i, s := range stats {
		n := model.SettlementNorms{
			Distance:    norms[i][0],
			Count:       norms[i][1],
			Agriculture: norms[i][2],
			Income:      norms[i][3],
			Tenure:      norms[i][4],
		}
		out[i] = model.SettlementPriority{
			SettlementStats:  s,
			Norms:            n,
			JalJeevanMission: Clamp(weighted(cfg.JalJeevanMission, n)),
			DAJGUA:           Clamp(weighted(cfg.DAJGUA, n)),
			MGNREGA:          Clamp(weighted(cfg.MGNREGA, n)),
		}
	}
	return out, fit
}

// weighted is the linear combination of one composite index. Income enters
// as need, 1 - income_norm.
func weighted(w config.WeightsConfig, n model.SettlementNorms) float64 {
	return w.Distance*n.Distance +
		w.Count*n.Count +
		w.Agriculture*n.Agriculture +
		w.IncomeNeed*(1-n.Income) +
		w.Tenure*n.Tenure
}

// GatedScheme is an individual-level score computed only over the claimants
// satisfying Eligible. Columns are fitted over the eligible subset alone and
// Score combines one row's normalized values. Ineligible claimants score 0.
type GatedScheme struct {
	Scheme   model.Scheme
	Eligible func(*model.LocatedClaimant) bool
	Columns  []Column[*model.LocatedClaimant]
	Score    func(norms []float64) float64
}

var incomeColumn = Column[*model.LocatedClaimant]{
	Name:  "income_norm",
	Value: func(c *model.LocatedClaimant) float64 { return c.AnnualIncome },
}

func incomeNeed(norms []float64) float64 { return 1 - norms[0] }

// DefaultGatedSchemes returns the housing (PMAY) and farmer (PM-KISAN)
// schemes for cfg.
func DefaultGatedSchemes(cfg config.DSSConfig) []GatedScheme {
	return []GatedScheme{
		{
			Scheme: model.SchemePMKISAN,
			Eligible: func(c *model.LocatedClaimant) bool {
				return c.LandUse == cfg.AgricultureLandUse && IsNonTaxPayer(c.TaxPayer)
			},
			Columns: []Column[*model.LocatedClaimant]{incomeColumn},
			Score:   incomeNeed,
		},
		{
			Scheme: model.SchemePMAY,
			Eligible: func(c *model.LocatedClaimant) bool {
				return c.Category == cfg.ProtectedCategory && c.AnnualIncome < cfg.IncomeThreshold
			},
			Columns: []Column[*model.LocatedClaimant]{incomeColumn},
			Score:   incomeNeed,
		},
	}
}

// GatedResult holds one gated scheme's scores, indexed like the claimants
// they were computed for, and the fit of its eligible subset.
type GatedResult struct {
	Scheme   model.Scheme
	Scores   []float64
	Eligible int
	Fit      *Fit
}

// ScoreGated evaluates each scheme over located. Each scheme gets its own
// subset and its own fit.
func ScoreGated(located []model.LocatedClaimant, schemes []GatedScheme) []GatedResult {
	ptrs := make([]*model.LocatedClaimant, len(located))
	for i := range located {
		ptrs[i] = &located[i]
	}

	out := make([]GatedResult, 0, len(schemes))
	for _, gs := range schemes {
		subset := Select(string(gs.Scheme), ptrs, gs.Eligible)
		norms, fit := subset.Normalize(gs.Columns...)

		scores := make([]float64, len(located))
		for k, idx := range subset.Indices {
			scores[idx] = Clamp(gs.Score(norms[k]))
		}
		out = append(out, GatedResult{Scheme: gs.Scheme, Scores: scores, Eligible: subset.Len(), Fit: fit})

		zap.L().Info("dss: scored gated scheme",
			zap.String("scheme", string(gs.Scheme)),
			zap.Int("eligible", subset.Len()),
			zap.Int("claimants", len(located)),
		)
	}
	return out
}
