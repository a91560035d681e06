package dss

import (
	"slices"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fra-atlas/fra-dss/internal/config"
	"github.com/fra-atlas/fra-dss/internal/model"
)

// Aggregate groups located claimants by settlement and computes the raw
// settlement features. Settlements are returned in key order.
func Aggregate(located []model.LocatedClaimant, cfg config.DSSConfig) ([]model.SettlementStats, error) {
	groups := make(map[model.SettlementKey][]*model.LocatedClaimant)
	for i := range located {
		k := located[i].Key()
		groups[k] = append(groups[k], &located[i])
	}

	keys := make([]model.SettlementKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)

	out := make([]model.SettlementStats, 0, len(keys))
	for _, k := range keys {
		s, err := aggregateGroup(k, groups[k], cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}

	zap.L().Info("dss: aggregated settlements",
		zap.Int("claimants", len(located)),
		zap.Int("settlements", len(out)),
	)
	return out, nil
}

func aggregateGroup(key model.SettlementKey, members []*model.LocatedClaimant, cfg config.DSSConfig) (model.SettlementStats, error) {
	if len(members) == 0 {
		return model.SettlementStats{}, eris.Wrapf(model.ErrEmptyGroup, "dss: aggregate %s", key)
	}

	var distSum, incomeSum float64
	var agri, insecure int
	for _, m := range members {
		distSum += m.DistanceMeters
		incomeSum += m.AnnualIncome
		if m.LandUse == cfg.AgricultureLandUse {
			agri++
		}
		if m.Status != cfg.ApprovedStatus {
			insecure++
		}
	}

	n := float64(len(members))
	return model.SettlementStats{
		Key:                   key,
		AvgDistanceMeters:     distSum / n,
		ClaimantCount:         len(members),
		PercentAgri:           float64(agri) / n * 100,
		AvgAnnualIncome:       incomeSum / n,
		PercentInsecureTenure: float64(insecure) / n * 100,
	}, nil
}

func compareKeys(a, b model.SettlementKey) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	}
	return 0
}
