package report

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/fra-atlas/fra-dss/internal/model"
)

// SheetName is the worksheet the XLSX sink writes to.
const SheetName = "dss_results"

// WriteXLSX writes rows as a single-sheet workbook. Numeric columns are
// stored as numbers, the rest as text.
func WriteXLSX(w io.Writer, rows []model.ResultRow) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range model.OutputColumns {
		header.AddCell().SetString(col)
	}

	for i := range rows {
		r := &rows[i]
		row := sheet.AddRow()
		row.AddCell().SetInt64(r.ClaimID)
		row.AddCell().SetString(r.Name)
		if r.Age != nil {
			row.AddCell().SetInt(*r.Age)
		} else {
			row.AddCell()
		}
		for _, s := range []string{
			r.Gender, r.State, r.District, r.BlockTehsil, r.GramPanchayat,
			r.Village, r.Category, r.TaxPayer, r.ClaimType, r.Status,
		} {
			row.AddCell().SetString(s)
		}
		for _, v := range []float64{
			r.AnnualIncome, r.JalJeevanMission, r.DAJGUA, r.MGNREGA, r.PMKISAN, r.PMAY,
		} {
			row.AddCell().SetFloat(v)
		}
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "report: write workbook")
	}
	return nil
}
