package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fra-atlas/fra-dss/internal/config"
	"github.com/fra-atlas/fra-dss/internal/dss"
	"github.com/fra-atlas/fra-dss/internal/geo"
	"github.com/fra-atlas/fra-dss/internal/model"
	"github.com/fra-atlas/fra-dss/internal/report"
	"github.com/fra-atlas/fra-dss/internal/store"
)

const testClaimsCSV = `claim_id,claimant_name,age,state,district,village,category,tax_payer,status_of_claim,annual_income,land_use,geo_coordinates
3,Sita,41,Odisha,Koraput,Kundra,ST,No,Approved,42000,Agriculture,"18.81, 82.71"
1,Ravi,,Odisha,Koraput,Kundra,OBC,Yes,Pending,90000,Residential,"18.815, 82.712"
2,Mina,35,Odisha,Koraput,Boipariguda,ST,No,Approved,,Agriculture,"18.7, 82.8"
4,Anu,30,Kerala,Wayanad,Meppadi,ST,No,Approved,10000,Agriculture,"11.6, 76.1"
`

const testLakesGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": "pond-1", "properties": {}, "geometry": {"type": "Point", "coordinates": [82.71, 18.82]}},
    {"type": "Feature", "id": "pond-2", "properties": {}, "geometry": {"type": "Point", "coordinates": [82.9, 18.6]}}
  ]
}`

const testManifest = `regions:
  - name: Odisha
    files: [lakes.geojson]
    required: true
`

// scoreFixture writes claims, features and a manifest to a temp dir and
// returns a config pointing at them.
func scoreFixture(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	for name, content := range map[string]string{
		"claims.csv":    testClaimsCSV,
		"lakes.geojson": testLakesGeoJSON,
		"features.yaml": testManifest,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	return &config.Config{
		Store:    config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(dir, "results.db")},
		Source:   config.SourceConfig{Kind: "csv", Path: filepath.Join(dir, "claims.csv")},
		Features: config.FeaturesConfig{Manifest: filepath.Join(dir, "features.yaml")},
		DSS:      dss.DefaultConfig(),
		Output:   config.OutputConfig{Format: "csv"},
	}
}

func TestExecuteScore_CSVToStdout(t *testing.T) {
	c := scoreFixture(t)

	var out bytes.Buffer
	require.NoError(t, executeScore(context.Background(), c, scoreOptions{}, &out))

	records, err := csv.NewReader(&out).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4, "header plus the three Odisha claimants")
	assert.Equal(t, model.OutputColumns, records[0])
	assert.Equal(t, "1", records[1][0])
	assert.Equal(t, "2", records[2][0])
	assert.Equal(t, "3", records[3][0])
}

func TestExecuteScore_FileOutputStatsAndSave(t *testing.T) {
	c := scoreFixture(t)
	dir := filepath.Dir(c.Source.Path)
	c.Output.Path = filepath.Join(dir, "dss_results.csv")
	statsPath := filepath.Join(dir, "stats.csv")

	var out bytes.Buffer
	require.NoError(t, executeScore(context.Background(), c,
		scoreOptions{StatsOutput: statsPath, Save: true}, &out))

	assert.Contains(t, out.String(), "Claimants scored:  3")

	data, err := os.ReadFile(c.Output.Path)
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(data), "\n"))

	stats, err := os.ReadFile(statsPath)
	require.NoError(t, err)
	statsRecords, err := csv.NewReader(bytes.NewReader(stats)).ReadAll()
	require.NoError(t, err)
	require.Len(t, statsRecords, 3, "header plus Boipariguda and Kundra")
	assert.Equal(t, report.SettlementStatsColumns, statsRecords[0])
	assert.Equal(t, "Boipariguda", statsRecords[1][2])

	st, err := store.NewSQLite(c.Store.DatabaseURL)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	row, err := st.GetResult(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Sita", row.Name)
	_, err = st.GetResult(context.Background(), 4)
	assert.ErrorIs(t, err, store.ErrNotFound)

	run, err := st.LatestRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, run.Claimants)
	assert.Equal(t, 1, run.Excluded)
}

func TestExecuteScore_BadClaimIDsCountAsDropped(t *testing.T) {
	c := scoreFixture(t)
	dir := filepath.Dir(c.Source.Path)
	withBadID := testClaimsCSV + `C-9,Gita,50,Odisha,Koraput,Kundra,ST,No,Approved,30000,Agriculture,"18.81, 82.71"
`
	require.NoError(t, os.WriteFile(c.Source.Path, []byte(withBadID), 0o644))
	c.Output.Path = filepath.Join(dir, "dss_results.csv")

	var out bytes.Buffer
	require.NoError(t, executeScore(context.Background(), c, scoreOptions{Save: true}, &out))

	assert.Contains(t, out.String(), "Claimants scored:  3")
	assert.Contains(t, out.String(), "Dropped:           1")

	st, err := store.NewSQLite(c.Store.DatabaseURL)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	run, err := st.LatestRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, run.Dropped)
}

func TestExecuteScore_SingleClaim(t *testing.T) {
	c := scoreFixture(t)

	var out bytes.Buffer
	require.NoError(t, executeScore(context.Background(), c, scoreOptions{ClaimID: 3}, &out))

	s := out.String()
	assert.Contains(t, s, "claimant_name:")
	assert.Contains(t, s, "Sita")
	assert.NotContains(t, s, "Ravi")

	err := executeScore(context.Background(), c, scoreOptions{ClaimID: 4}, &out)
	assert.ErrorContains(t, err, "claim 4 is not in the results")
}

func TestExecuteScore_StrictRejectsUnmappedState(t *testing.T) {
	c := scoreFixture(t)
	c.Features.Strict = true

	var out bytes.Buffer
	err := executeScore(context.Background(), c, scoreOptions{}, &out)
	require.Error(t, err)
	assert.True(t, model.IsMissingInput(err))
	assert.Empty(t, out.String())
}

func TestExecuteScore_Validation(t *testing.T) {
	c := scoreFixture(t)
	c.Output.Format = "parquet"
	assert.ErrorContains(t, executeScore(context.Background(), c, scoreOptions{}, &bytes.Buffer{}), "output.format")

	c = scoreFixture(t)
	c.DSS.MGNREGA.IncomeNeed = 0.9
	assert.ErrorContains(t, executeScore(context.Background(), c, scoreOptions{}, &bytes.Buffer{}), "config validation failed")
}

func TestLoadManifest_Directory(t *testing.T) {
	m, err := loadManifest(t.TempDir())
	require.NoError(t, err)
	assert.Len(t, m.Regions, len(geo.DefaultRegions))
	for _, r := range m.Regions {
		assert.False(t, r.Required)
	}

	_, err = loadManifest(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
