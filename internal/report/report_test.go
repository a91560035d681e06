package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/fra-atlas/fra-dss/internal/model"
)

func testRows() []model.ResultRow {
	age := 52
	return []model.ResultRow{
		{
			ClaimID: 3, Name: "Lakshmi Devi", Age: &age, Gender: "F",
			State: "Odisha", District: "Koraput", BlockTehsil: "Kundra",
			GramPanchayat: "Digapur", Village: "Kundra",
			Category: "ST", TaxPayer: "No", ClaimType: "IFR", Status: "Approved",
			AnnualIncome: 48000,
			PriorityScores: model.PriorityScores{
				JalJeevanMission: 0.75, DAJGUA: 0.5, MGNREGA: 1, PMKISAN: 1, PMAY: 0.25,
			},
		},
		{
			ClaimID: 7, Name: "Ramesh", State: "Tripura", District: "Dhalai", Village: "Salema",
			Category: "OBC", TaxPayer: "Yes", ClaimType: "CR", Status: "Pending",
			AnnualIncome: 120000.5,
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		err  bool
	}{
		{"csv", FormatCSV, false},
		{" XLSX ", FormatXLSX, false},
		{"table", FormatTable, false},
		{"parquet", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testRows()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, model.OutputColumns, records[0])
	assert.Equal(t, []string{
		"3", "Lakshmi Devi", "52", "F", "Odisha", "Koraput", "Kundra", "Digapur", "Kundra",
		"ST", "No", "IFR", "Approved", "48000", "0.75", "0.5", "1", "1", "0.25",
	}, records[1])
	assert.Equal(t, "", records[2][2], "absent age is empty")
	assert.Equal(t, "120000.5", records[2][13])
	assert.Equal(t, "0", records[2][18])
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, strings.Join(model.OutputColumns, ",")+"\n", buf.String())
}

func TestWriteSettlementStatsCSV(t *testing.T) {
	stats := []model.SettlementPriority{{
		SettlementStats: model.SettlementStats{
			Key:                   model.SettlementKey{State: "Odisha", District: "Koraput", Village: "Kundra"},
			AvgDistanceMeters:     312.5,
			ClaimantCount:         4,
			PercentAgri:           75,
			AvgAnnualIncome:       51000,
			PercentInsecureTenure: 25,
		},
		JalJeevanMission: 0.9,
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteSettlementStatsCSV(&buf, stats))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, SettlementStatsColumns, records[0])
	assert.Equal(t, []string{"Odisha", "Koraput", "Kundra", "312.5", "4", "75", "51000", "25"}, records[1])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, testRows()))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	sheet, ok := f.Sheet[SheetName]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 3)

	header := sheet.Rows[0]
	require.Len(t, header.Cells, len(model.OutputColumns))
	for i, col := range model.OutputColumns {
		assert.Equal(t, col, header.Cells[i].Value)
	}

	first := sheet.Rows[1]
	id, err := first.Cells[0].Int()
	require.NoError(t, err)
	assert.Equal(t, 3, id)
	assert.Equal(t, "Lakshmi Devi", first.Cells[1].Value)
	jjm, err := first.Cells[14].Float()
	require.NoError(t, err)
	assert.InDelta(t, 0.75, jjm, 1e-9)
	pmKisan, err := first.Cells[17].Float()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, pmKisan, 1e-9)
}

func TestWriteTable(t *testing.T) {
	rows := testRows()
	rows[0].Name = strings.Repeat("x", 40)

	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, rows))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "PM-KISAN")
	assert.Contains(t, lines[2], strings.Repeat("x", 27)+"...")
	assert.Contains(t, lines[2], "0.750")
	assert.Contains(t, lines[3], "Salema")
}

func TestWriteRow(t *testing.T) {
	var buf bytes.Buffer
	rows := testRows()
	require.NoError(t, WriteRow(&buf, &rows[0]))

	out := buf.String()
	assert.Contains(t, out, "claimant_name:")
	assert.Contains(t, out, "Lakshmi Devi")
	assert.Contains(t, out, "pmay_priority:")
	assert.Equal(t, len(model.OutputColumns), strings.Count(out, "\n"))
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dss_results.csv")
	require.NoError(t, WriteFile(path, testRows(), FormatCSV))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "claim_id,claimant_name,"))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestWriteFile_UnsupportedFormatLeavesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bin")
	err := WriteFile(path, testRows(), Format("parquet"))
	require.Error(t, err)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestWriteSettlementStatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dss_village_stats.csv")
	stats := []model.SettlementPriority{{
		SettlementStats: model.SettlementStats{
			Key:           model.SettlementKey{State: "Tripura", District: "Dhalai", Village: "Salema"},
			ClaimantCount: 2,
		},
	}}
	require.NoError(t, WriteSettlementStatsFile(path, stats))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Tripura,Dhalai,Salema,0,2,0,0,0")
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestWriteAtomic_FailedWriteKeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dss_village_stats.csv")
	require.NoError(t, os.WriteFile(path, []byte("previous run\n"), 0o644))

	err := writeAtomic(path, func(w io.Writer) error {
		_, _ = io.WriteString(w, "state,district\npartial")
		return errors.New("disk full")
	})
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous run\n", string(data))
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}
