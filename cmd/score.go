package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fra-atlas/fra-dss/internal/config"
	"github.com/fra-atlas/fra-dss/internal/dss"
	"github.com/fra-atlas/fra-dss/internal/geo"
	"github.com/fra-atlas/fra-dss/internal/model"
	"github.com/fra-atlas/fra-dss/internal/report"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score every claimant for the five schemes",
	Long: `Run the full scoring pipeline once over all claims.

Claims are cleaned, joined to the nearest waterbody of their state,
aggregated per settlement and scored for Jal Jeevan Mission, DAJGUA,
MGNREGA, PM-KISAN and PMAY. Results are written only after the whole
run succeeds.

Examples:
  # Score claims from the database, write CSV to stdout
  score

  # Score a spreadsheet export against a directory of GeoJSON files
  score --source xlsx --path claims.xlsx --manifest ./waterbodies --output dss_results.xlsx --format xlsx

  # Score and persist to the configured store, exporting settlement stats
  score --save --stats-output dss_village_stats.csv

  # Show one claimant after the run
  score --claim 1042`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.String("source", "", "claim source: postgres, csv or xlsx (overrides config)")
	f.String("path", "", "claims export path for csv/xlsx sources (overrides config)")
	f.String("manifest", "", "feature manifest file or directory of feature files (overrides config)")
	f.Bool("strict", false, "fail when a claimant's state has no feature collection")
	f.Bool("parallel", false, "associate states concurrently")
	f.String("output", "", "output file path (default: stdout)")
	f.String("format", "", "output format: csv, xlsx or table (overrides config)")
	f.String("stats-output", "", "also write per-settlement statistics CSV to this path")
	f.Bool("save", false, "persist results to the configured store")
	f.Int64("claim", 0, "print the scored row for this claim id")

	rootCmd.AddCommand(scoreCmd)
}

// scoreOptions holds the per-invocation settings that are not part of the
// config file.
type scoreOptions struct {
	StatsOutput string
	Save        bool
	ClaimID     int64
}

func runScore(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	applyScoreOverrides(cmd, cfg)

	opts := scoreOptions{}
	opts.StatsOutput, _ = cmd.Flags().GetString("stats-output")
	opts.Save, _ = cmd.Flags().GetBool("save")
	opts.ClaimID, _ = cmd.Flags().GetInt64("claim")

	return executeScore(ctx, cfg, opts, os.Stdout)
}

// applyScoreOverrides copies explicitly set flags over the loaded config.
func applyScoreOverrides(cmd *cobra.Command, c *config.Config) {
	f := cmd.Flags()
	if f.Changed("source") {
		c.Source.Kind, _ = f.GetString("source")
	}
	if f.Changed("path") {
		c.Source.Path, _ = f.GetString("path")
	}
	if f.Changed("manifest") {
		c.Features.Manifest, _ = f.GetString("manifest")
	}
	if f.Changed("strict") {
		c.Features.Strict, _ = f.GetBool("strict")
	}
	if f.Changed("parallel") {
		c.Features.Parallel, _ = f.GetBool("parallel")
	}
	if f.Changed("output") {
		c.Output.Path, _ = f.GetString("output")
	}
	if f.Changed("format") {
		c.Output.Format, _ = f.GetString("format")
	}
}

func executeScore(ctx context.Context, c *config.Config, opts scoreOptions, stdout io.Writer) error {
	if err := c.Validate("score"); err != nil {
		return err
	}
	format, err := report.ParseFormat(c.Output.Format)
	if err != nil {
		return err
	}

	log := zap.L().With(zap.String("command", "score"))

	assocOpts := []geo.AssociatorOption{geo.WithStrict(c.Features.Strict)}
	if c.Features.Parallel {
		assocOpts = append(assocOpts, geo.WithParallel(0))
	}
	engine, err := dss.NewEngine(c.DSS, assocOpts...)
	if err != nil {
		return err
	}

	src, release, err := initSource(ctx, c)
	if err != nil {
		return err
	}
	defer release()

	manifest, err := loadManifest(c.Features.Manifest)
	if err != nil {
		return eris.Wrap(err, "score: load manifest")
	}
	features, err := geo.LoadFeatures(ctx, manifest)
	if err != nil {
		return eris.Wrap(err, "score: load features")
	}

	res, err := engine.RunSource(ctx, src, features)
	if err != nil {
		return eris.Wrap(err, "score: run")
	}

	// With --claim and no output file, only the requested row is printed.
	if c.Output.Path != "" || opts.ClaimID == 0 {
		if c.Output.Path == "" {
			err = report.Write(stdout, res.Rows, format)
		} else {
			err = report.WriteFile(c.Output.Path, res.Rows, format)
		}
		if err != nil {
			return eris.Wrap(err, "score: write results")
		}
	}

	if opts.StatsOutput != "" {
		if err := writeStats(opts.StatsOutput, res); err != nil {
			return err
		}
	}

	if opts.Save {
		st, err := initStore(ctx, c)
		if err != nil {
			return eris.Wrap(err, "score: open store")
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "score: migrate store")
		}
		if err := st.SaveRun(ctx, res); err != nil {
			return eris.Wrap(err, "score: save run")
		}
	}

	if opts.ClaimID != 0 {
		row, ok := res.Row(opts.ClaimID)
		if !ok {
			return eris.Errorf("score: claim %d is not in the results", opts.ClaimID)
		}
		if err := report.WriteRow(stdout, row); err != nil {
			return eris.Wrap(err, "score: print claim")
		}
	}

	log.Info("score: complete",
		zap.String("run_id", res.RunID.String()),
		zap.Int("rows", len(res.Rows)),
		zap.Int("settlements", len(res.Settlements)),
		zap.String("output", c.Output.Path),
		zap.Bool("saved", opts.Save),
	)
	if c.Output.Path != "" {
		printScoreSummary(stdout, res)
	}
	return nil
}

func writeStats(path string, res *dss.Result) error {
	return eris.Wrapf(report.WriteSettlementStatsFile(path, res.Settlements), "score: write stats %s", path)
}

func printScoreSummary(w io.Writer, res *dss.Result) {
	_, _ = fmt.Fprintf(w, "\n--- Summary ---\n")
	_, _ = fmt.Fprintf(w, "Claimants scored:  %d\n", len(res.Rows))
	_, _ = fmt.Fprintf(w, "Settlements:       %d\n", len(res.Settlements))
	if r := res.Report; r != nil {
		if r.Clean != nil {
			_, _ = fmt.Fprintf(w, "Dropped:           %d\n", len(r.Clean.Dropped))
		}
		if r.Association != nil {
			_, _ = fmt.Fprintf(w, "Excluded:          %d\n", r.Association.Excluded())
		}
		_, _ = fmt.Fprintf(w, "PM-KISAN eligible: %d\n", r.Eligible[model.SchemePMKISAN])
		_, _ = fmt.Fprintf(w, "PMAY eligible:     %d\n", r.Eligible[model.SchemePMAY])
	}
}
