// Package report writes scoring results to CSV, XLSX and plain-text sinks.
package report

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/fra-atlas/fra-dss/internal/model"
)

// Format names an output sink.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatXLSX  Format = "xlsx"
	FormatTable Format = "table"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX, FormatTable:
		return f, nil
	default:
		return "", eris.Errorf("report: unsupported format %q", s)
	}
}

// Write renders rows to w in the given format.
func Write(w io.Writer, rows []model.ResultRow, format Format) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, rows)
	case FormatXLSX:
		return WriteXLSX(w, rows)
	case FormatTable:
		return WriteTable(w, rows)
	default:
		return eris.Errorf("report: unsupported format %q", format)
	}
}

// WriteFile renders rows to path, or to stdout when path is empty. A failed
// write leaves no file at path.
func WriteFile(path string, rows []model.ResultRow, format Format) error {
	if path == "" {
		return Write(os.Stdout, rows, format)
	}

	return writeAtomic(path, func(w io.Writer) error {
		return Write(w, rows, format)
	})
}

// writeAtomic runs write against path+".tmp" and renames it over path once
// the write and close succeed. On failure the temp file is removed and any
// existing file at path is left as it was.
func writeAtomic(path string, write func(io.Writer) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return eris.Wrapf(err, "report: create output file %s", path)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return eris.Wrapf(err, "report: close output file %s", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return eris.Wrapf(err, "report: rename output file %s", path)
	}
	return nil
}

// rowValues returns the row's fields in model.OutputColumns order.
func rowValues(r *model.ResultRow) []string {
	age := ""
	if r.Age != nil {
		age = strconv.Itoa(*r.Age)
	}
	return []string{
		strconv.FormatInt(r.ClaimID, 10),
		r.Name,
		age,
		r.Gender,
		r.State,
		r.District,
		r.BlockTehsil,
		r.GramPanchayat,
		r.Village,
		r.Category,
		r.TaxPayer,
		r.ClaimType,
		r.Status,
		formatFloat(r.AnnualIncome),
		formatFloat(r.JalJeevanMission),
		formatFloat(r.DAJGUA),
		formatFloat(r.MGNREGA),
		formatFloat(r.PMKISAN),
		formatFloat(r.PMAY),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
