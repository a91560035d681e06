package dss

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/fra-atlas/fra-dss/internal/geo"
	"github.com/fra-atlas/fra-dss/internal/model"
)

func rawClaim(id int64, state, village, coords, income, category, landUse, taxPayer, status string) model.RawClaim {
	return model.RawClaim{
		ID:             id,
		Name:           fmt.Sprintf("Claimant %d", id),
		Age:            "40",
		State:          state,
		District:       "D1",
		Village:        village,
		Category:       category,
		TaxPayer:       taxPayer,
		ClaimType:      "IFR",
		Status:         status,
		AnnualIncome:   income,
		LandUse:        landUse,
		GeoCoordinates: coords,
	}
}

func testFeatures() geo.FeatureSet {
	return geo.FeatureSet{
		"Odisha": {
			{ID: "pond-1", Region: "Odisha", Geometry: geom.NewPointFlat(geom.XY, []float64{82.71, 18.82})},
			{ID: "pond-2", Region: "Odisha", Geometry: geom.NewPointFlat(geom.XY, []float64{82.9, 18.6})},
		},
		"Tripura": {
			{ID: "lake-1", Region: "Tripura", Geometry: geom.NewPointFlat(geom.XY, []float64{91.5, 23.8})},
		},
	}
}

func testClaims() []model.RawClaim {
	return []model.RawClaim{
		rawClaim(7, "Odisha", "Kundra", "18.81, 82.71", "120000", "ST", "Agriculture", "No", "Approved"),
		rawClaim(3, "Odisha", "Kundra", "18.815, 82.712", "", "ST", "Agriculture", "No", "Pending"),
		rawClaim(5, "Odisha", "Boipariguda", "18.7, 82.8", "60000", "OBC", "Residential", "Yes", "Rejected"),
		rawClaim(1, "Tripura", "Jampui", "23.85, 91.55", "300000", "ST", "Agriculture", "No", "Approved"),
		rawClaim(9, "Tripura", "Jampui", "23.9, 91.6", "45000", "ST", "Forest", "No", "Pending"),
		rawClaim(4, "Kerala", "Wayanad", "11.6, 76.1", "10000", "ST", "Agriculture", "No", "Approved"),
		rawClaim(2, "Odisha", "Kundra", "18.81,82.71", "5000", "ST", "Agriculture", "No", "Approved"),
		rawClaim(8, "Odisha", "Kundra", "", "5000", "ST", "Agriculture", "No", "Approved"),
	}
}

func TestEngineRun(t *testing.T) {
	e, err := NewEngine(DefaultConfig())
	require.NoError(t, err)

	res, err := e.Run(context.Background(), testClaims(), testFeatures())
	require.NoError(t, err)

	// Two malformed coordinates dropped, one Kerala claimant excluded.
	assert.Equal(t, 8, res.Report.Clean.Loaded)
	assert.Len(t, res.Report.Clean.Dropped, 2)
	assert.Equal(t, 1, res.Report.Association.Excluded())
	require.Len(t, res.Rows, res.Report.Clean.Kept-res.Report.Association.Excluded())

	ids := make([]int64, len(res.Rows))
	for i, r := range res.Rows {
		ids[i] = r.ClaimID
	}
	assert.Equal(t, []int64{1, 3, 5, 7, 9}, ids)
	assert.Equal(t, 3, res.Report.Settlements)
	assert.Len(t, res.Settlements, 3)

	for _, r := range res.Rows {
		for _, s := range model.Schemes {
			v := r.Get(s)
			assert.GreaterOrEqual(t, v, 0.0, "claim %d %s", r.ClaimID, s)
			assert.LessOrEqual(t, v, 1.0, "claim %d %s", r.ClaimID, s)
		}
	}

	// Claim 3 has no income; the only other Kundra income is 120000.
	row3, ok := res.Row(3)
	require.True(t, ok)
	assert.Equal(t, 120000.0, row3.AnnualIncome)

	// Claim 5 is OBC: never PMAY-eligible.
	row5, ok := res.Row(5)
	require.True(t, ok)
	assert.Equal(t, 0.0, row5.PMAY)
	assert.Equal(t, 0.0, row5.PMKISAN)

	// Kundra settlement indices are broadcast to both members.
	row7, _ := res.Row(7)
	assert.Equal(t, row3.JalJeevanMission, row7.JalJeevanMission)
	assert.Equal(t, row3.DAJGUA, row7.DAJGUA)
	assert.Equal(t, row3.MGNREGA, row7.MGNREGA)

	_, ok = res.Row(4)
	assert.False(t, ok)

	assert.NotEqual(t, uuid.Nil, res.RunID)
	assert.Equal(t, ConfigHash(DefaultConfig()), res.ConfigHash)
}

func TestEngineRunIsIdempotent(t *testing.T) {
	e, err := NewEngine(DefaultConfig())
	require.NoError(t, err)

	first, err := e.Run(context.Background(), testClaims(), testFeatures())
	require.NoError(t, err)

	claims := testClaims()
	for i, j := 0, len(claims)-1; i < j; i, j = i+1, j-1 {
		claims[i], claims[j] = claims[j], claims[i]
	}
	second, err := e.Run(context.Background(), claims, testFeatures())
	require.NoError(t, err)

	assert.Equal(t, first.Rows, second.Rows)
	assert.Equal(t, first.Settlements, second.Settlements)
}

func TestEngineRunParallelMatchesSequential(t *testing.T) {
	seq, err := NewEngine(DefaultConfig())
	require.NoError(t, err)
	par, err := NewEngine(DefaultConfig(), geo.WithParallel(2))
	require.NoError(t, err)

	a, err := seq.Run(context.Background(), testClaims(), testFeatures())
	require.NoError(t, err)
	b, err := par.Run(context.Background(), testClaims(), testFeatures())
	require.NoError(t, err)
	assert.Equal(t, a.Rows, b.Rows)
}

func TestEngineRunStrict(t *testing.T) {
	e, err := NewEngine(DefaultConfig(), geo.WithStrict(true))
	require.NoError(t, err)

	res, err := e.Run(context.Background(), testClaims(), testFeatures())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, model.IsMissingInput(err))
}

func TestEngineRunCancelled(t *testing.T) {
	e, err := NewEngine(DefaultConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Run(ctx, testClaims(), testFeatures())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewEngineInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.JalJeevanMission.Distance = 0.9
	_, err := NewEngine(cfg)
	assert.ErrorContains(t, err, "jal_jeevan_mission weights should sum to 1")
}

func TestEngineRunEmpty(t *testing.T) {
	e, err := NewEngine(DefaultConfig())
	require.NoError(t, err)

	res, err := e.Run(context.Background(), nil, testFeatures())
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
	assert.Empty(t, res.Settlements)
}

type stubSource struct {
	raws     []model.RawClaim
	rejected []*model.MalformedRecordError
	err      error
}

func (s *stubSource) Claims(context.Context) ([]model.RawClaim, error) {
	return s.raws, s.err
}

func (s *stubSource) RejectedRecords() []*model.MalformedRecordError {
	return s.rejected
}

func TestEngineRunSource_CountsRejectedRows(t *testing.T) {
	e, err := NewEngine(DefaultConfig())
	require.NoError(t, err)

	src := &stubSource{
		raws: testClaims(),
		rejected: []*model.MalformedRecordError{
			{Field: "claim_id", Reason: `line 4: "x"`},
		},
	}
	res, err := e.RunSource(context.Background(), src, testFeatures())
	require.NoError(t, err)

	assert.Equal(t, 9, res.Report.Clean.Loaded)
	require.Len(t, res.Report.Clean.Dropped, 3)
	assert.Equal(t, "claim_id", res.Report.Clean.Dropped[0].Field)
	assert.Len(t, res.Rows, 5)
}

func TestEngineRunSource_LoadError(t *testing.T) {
	e, err := NewEngine(DefaultConfig())
	require.NoError(t, err)

	_, err = e.RunSource(context.Background(), &stubSource{err: errors.New("connection refused")}, testFeatures())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dss: load claims")
}
