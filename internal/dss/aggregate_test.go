package dss

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fra-atlas/fra-dss/internal/model"
)

func located(id int64, village string, dist, income float64, landUse, status string) model.LocatedClaimant {
	return model.LocatedClaimant{
		Claimant: model.Claimant{
			ID:           id,
			State:        "Odisha",
			District:     "Koraput",
			Village:      village,
			LandUse:      landUse,
			Status:       status,
			AnnualIncome: income,
		},
		DistanceMeters: dist,
	}
}

func TestAggregate(t *testing.T) {
	in := []model.LocatedClaimant{
		located(1, "Beta", 100, 10000, "Agriculture", "Approved"),
		located(2, "Alpha", 50, 20000, "Residential", "Pending"),
		located(3, "Beta", 300, 30000, "Residential", "Rejected"),
		located(4, "Beta", 200, 20000, "Agriculture", "Pending"),
		located(5, "Beta", 400, 40000, "Agriculture", "Approved"),
	}

	stats, err := Aggregate(in, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, stats, 2)

	alpha := stats[0]
	assert.Equal(t, "Alpha", alpha.Key.Village)
	assert.Equal(t, 1, alpha.ClaimantCount)
	assert.Equal(t, 50.0, alpha.AvgDistanceMeters)
	assert.Equal(t, 0.0, alpha.PercentAgri)
	assert.Equal(t, 100.0, alpha.PercentInsecureTenure)

	beta := stats[1]
	assert.Equal(t, model.SettlementKey{State: "Odisha", District: "Koraput", Village: "Beta"}, beta.Key)
	assert.Equal(t, 4, beta.ClaimantCount)
	assert.Equal(t, 250.0, beta.AvgDistanceMeters)
	assert.Equal(t, 25000.0, beta.AvgAnnualIncome)
	assert.Equal(t, 75.0, beta.PercentAgri)
	assert.Equal(t, 50.0, beta.PercentInsecureTenure)
}

func TestAggregatePercentagesInRange(t *testing.T) {
	var in []model.LocatedClaimant
	uses := []string{"Agriculture", "Forest", "Residential"}
	statuses := []string{"Approved", "Pending", "Rejected", "Approved"}
	for i := 0; i < 60; i++ {
		in = append(in, located(int64(i), []string{"A", "B", "C", "D", "E"}[i%5], float64(i), float64(1000*i), uses[i%3], statuses[i%4]))
	}

	stats, err := Aggregate(in, DefaultConfig())
	require.NoError(t, err)
	for _, s := range stats {
		assert.GreaterOrEqual(t, s.PercentAgri, 0.0)
		assert.LessOrEqual(t, s.PercentAgri, 100.0)
		assert.GreaterOrEqual(t, s.PercentInsecureTenure, 0.0)
		assert.LessOrEqual(t, s.PercentInsecureTenure, 100.0)
		assert.GreaterOrEqual(t, s.ClaimantCount, 1)
	}
}

func TestAggregateSeparatesDistricts(t *testing.T) {
	a := located(1, "Same", 10, 1, "", "")
	b := located(2, "Same", 20, 1, "", "")
	b.District = "Other"

	stats, err := Aggregate([]model.LocatedClaimant{a, b}, DefaultConfig())
	require.NoError(t, err)
	assert.Len(t, stats, 2)
}

func TestAggregateGroupEmpty(t *testing.T) {
	_, err := aggregateGroup(model.SettlementKey{Village: "x"}, nil, DefaultConfig())
	assert.ErrorIs(t, err, model.ErrEmptyGroup)
}

func TestAggregateEmptyInput(t *testing.T) {
	stats, err := Aggregate(nil, DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, stats)
}
