package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/fra-atlas/fra-dss/internal/recommend"
	"github.com/fra-atlas/fra-dss/internal/store"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Show scheme recommendations for a scored claim",
	Long: `Evaluate the recommendation rules against the stored scores of one claim.

Examples:
  recommend --claim 1042
  recommend --claim 1042 --json`,
	RunE: runRecommend,
}

func init() {
	f := recommendCmd.Flags()
	f.Int64("claim", 0, "claim id (required)")
	f.Bool("json", false, "print the recommendation as JSON")
	_ = recommendCmd.MarkFlagRequired("claim")

	rootCmd.AddCommand(recommendCmd)
}

func runRecommend(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if err := cfg.Validate("recommend"); err != nil {
		return err
	}
	claimID, _ := cmd.Flags().GetInt64("claim")
	asJSON, _ := cmd.Flags().GetBool("json")

	st, err := initStore(ctx, cfg)
	if err != nil {
		return eris.Wrap(err, "recommend: open store")
	}
	defer st.Close() //nolint:errcheck

	row, err := st.GetResult(ctx, claimID)
	if errors.Is(err, store.ErrNotFound) {
		return eris.Errorf("recommend: no DSS data found for claim %d", claimID)
	}
	if err != nil {
		return eris.Wrapf(err, "recommend: claim %d", claimID)
	}

	rec := recommend.Evaluate(row)
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(rec), "recommend: encode")
	}
	formatRecommendation(os.Stdout, rec)
	return nil
}

// formatRecommendation writes a human-readable recommendation to out.
func formatRecommendation(out io.Writer, rec *recommend.Recommendation) {
	_, _ = fmt.Fprintf(out, "Claim %d: %s (%s, %s, %s)\n\n",
		rec.ClaimID, rec.ClaimantName, rec.Location.Village, rec.Location.District, rec.Location.State)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SCHEME\tTYPE\tPRIORITY\tSTATUS\tREASONING")
	_, _ = fmt.Fprintln(w, "------\t----\t--------\t------\t---------")
	for _, r := range rec.Recommendations {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.3f\t%s\t%s\n", r.Name, r.Type, r.Priority, r.Status, r.Reasoning)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\n%s\n", rec.Summary.Message)
	if rec.Summary.TotalRecommended > 0 {
		_, _ = fmt.Fprintf(out, "Highest priority: %s\n", rec.Summary.HighestPriority)
	}
}
