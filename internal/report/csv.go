package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/fra-atlas/fra-dss/internal/model"
)

// SettlementStatsColumns is the header of the settlement statistics export.
var SettlementStatsColumns = []string{
	"state", "district", "village",
	"avg_distance_meters", "claimant_count", "percent_agri",
	"avg_annual_income", "percent_insecure_tenure",
}

// WriteCSV writes rows with the canonical output header.
func WriteCSV(w io.Writer, rows []model.ResultRow) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(model.OutputColumns); err != nil {
		return eris.Wrap(err, "report: write CSV header")
	}
	for i := range rows {
		if err := cw.Write(rowValues(&rows[i])); err != nil {
			return eris.Wrapf(err, "report: write CSV row for claim %d", rows[i].ClaimID)
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush CSV")
}

// WriteSettlementStatsFile writes the settlement stats CSV to path. A failed
// write leaves no file at path.
func WriteSettlementStatsFile(path string, stats []model.SettlementPriority) error {
	return writeAtomic(path, func(w io.Writer) error {
		return WriteSettlementStatsCSV(w, stats)
	})
}

// WriteSettlementStatsCSV writes the raw per-settlement features.
func WriteSettlementStatsCSV(w io.Writer, stats []model.SettlementPriority) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(SettlementStatsColumns); err != nil {
		return eris.Wrap(err, "report: write settlement stats header")
	}
	for _, s := range stats {
		row := []string{
			s.Key.State,
			s.Key.District,
			s.Key.Village,
			formatFloat(s.AvgDistanceMeters),
			strconv.Itoa(s.ClaimantCount),
			formatFloat(s.PercentAgri),
			formatFloat(s.AvgAnnualIncome),
			formatFloat(s.PercentInsecureTenure),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrapf(err, "report: write settlement stats row %s", s.Key)
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush settlement stats")
}
