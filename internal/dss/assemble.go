package dss

import (
	"cmp"
	"slices"

	"go.uber.org/zap"

	"github.com/fra-atlas/fra-dss/internal/model"
)

// Assemble joins each located claimant to its settlement's indices and its
// gated scores, and returns the rows sorted by claim ID. A claimant whose
// settlement is missing keeps its row with zero settlement scores.
func Assemble(located []model.LocatedClaimant, settlements []model.SettlementPriority, gated []GatedResult) []model.ResultRow {
	bySettlement := make(map[model.SettlementKey]*model.SettlementPriority, len(settlements))
	for i := range settlements {
		bySettlement[settlements[i].Key] = &settlements[i]
	}

	rows := make([]model.ResultRow, len(located))
	unmatched := 0
	for i := range located {
		c := &located[i]
		row := model.ResultRow{
			ClaimID:       c.ID,
			Name:          c.Name,
			Age:           c.Age,
			Gender:        c.Gender,
			State:         c.State,
			District:      c.District,
			BlockTehsil:   c.BlockTehsil,
			GramPanchayat: c.GramPanchayat,
			Village:       c.Village,
			Category:      c.Category,
			TaxPayer:      c.TaxPayer,
			ClaimType:     c.ClaimType,
			Status:        c.Status,
			AnnualIncome:  c.AnnualIncome,
		}

		if sp, ok := bySettlement[c.Key()]; ok {
			row.JalJeevanMission = sp.JalJeevanMission
			row.DAJGUA = sp.DAJGUA
			row.MGNREGA = sp.MGNREGA
		} else {
			unmatched++
		}
		for _, g := range gated {
			row.Set(g.Scheme, g.Scores[i])
		}
		rows[i] = row
	}

	if unmatched > 0 {
		zap.L().Warn("dss: claimants without settlement statistics", zap.Int("claimants", unmatched))
	}

	slices.SortStableFunc(rows, func(a, b model.ResultRow) int {
		return cmp.Compare(a.ClaimID, b.ClaimID)
	})
	return rows
}
