package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fra-atlas/fra-dss/internal/model"
)

// WriteTable writes a compact human-readable view of rows.
func WriteTable(out io.Writer, rows []model.ResultRow) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CLAIM\tNAME\tSTATE\tVILLAGE\tJJM\tDAJGUA\tMGNREGA\tPM-KISAN\tPMAY")
	_, _ = fmt.Fprintln(w, "-----\t----\t-----\t-------\t---\t------\t-------\t--------\t----")

	for i := range rows {
		r := &rows[i]
		name := r.Name
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\n",
			r.ClaimID, name, r.State, r.Village,
			r.JalJeevanMission, r.DAJGUA, r.MGNREGA, r.PMKISAN, r.PMAY,
		)
	}
	return w.Flush()
}

// WriteRow writes one result as a field/value listing.
func WriteRow(out io.Writer, r *model.ResultRow) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for i, v := range rowValues(r) {
		_, _ = fmt.Fprintf(w, "%s:\t%s\n", model.OutputColumns[i], v)
	}
	return w.Flush()
}
