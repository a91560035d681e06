package dss

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fra-atlas/fra-dss/internal/claims"
	"github.com/fra-atlas/fra-dss/internal/config"
	"github.com/fra-atlas/fra-dss/internal/geo"
	"github.com/fra-atlas/fra-dss/internal/model"
)

// Report summarises one run for logging and persistence.
type Report struct {
	Clean       *claims.CleanReport                   `json:"clean"`
	Association *geo.AssociationReport                `json:"association"`
	Settlements int                                   `json:"settlements"`
	Eligible    map[model.Scheme]int                  `json:"eligible"`
	Fits        []*Fit                                `json:"-"`
	Degenerate  []*model.DegenerateNormalizationError `json:"-"`
}

// Result is the complete, in-memory output of a run.
type Result struct {
	RunID       uuid.UUID
	CreatedAt   time.Time
	ConfigHash  string
	Rows        []model.ResultRow
	Settlements []model.SettlementPriority
	Report      *Report
}

// Row returns the row for claimID.
func (r *Result) Row(claimID int64) (*model.ResultRow, bool) {
	for i := range r.Rows {
		if r.Rows[i].ClaimID == claimID {
			return &r.Rows[i], true
		}
	}
	return nil, false
}

// Engine runs the scoring pipeline.
type Engine struct {
	cfg        config.DSSConfig
	associator *geo.Associator
	gated      []GatedScheme
}

// NewEngine validates cfg and returns an engine. opts configure the
// spatial association stage.
func NewEngine(cfg config.DSSConfig, opts ...geo.AssociatorOption) (*Engine, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:        cfg,
		associator: geo.NewAssociator(opts...),
		gated:      DefaultGatedSchemes(cfg),
	}, nil
}

// Run scores raw claims against features. Each stage consumes the whole
// output of the one before it; the run either returns a complete result or
// an error.
func (e *Engine) Run(ctx context.Context, raws []model.RawClaim, features geo.FeatureSet) (*Result, error) {
	return e.run(ctx, raws, nil, features)
}

// RunSource loads claims from src and scores them like Run. Rows the source
// rejected while loading are reported as dropped.
func (e *Engine) RunSource(ctx context.Context, src claims.Source, features geo.FeatureSet) (*Result, error) {
	raws, err := src.Claims(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "dss: load claims")
	}
	return e.run(ctx, raws, claims.Rejected(src), features)
}

func (e *Engine) run(ctx context.Context, raws []model.RawClaim, rejected []*model.MalformedRecordError, features geo.FeatureSet) (*Result, error) {
	log := zap.L().With(zap.String("component", "dss.engine"))
	start := time.Now()

	cleaned, cleanReport := claims.Clean(raws)
	cleanReport.AddRejected(rejected)

	located, assocReport, err := e.associator.Associate(ctx, cleaned, features)
	if err != nil {
		return nil, eris.Wrap(err, "dss: associate claimants")
	}

	stats, err := Aggregate(located, e.cfg)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "dss: run")
	}

	settlements, settlementFit := ComposeSettlements(stats, e.cfg)
	gated := ScoreGated(located, e.gated)
	rows := Assemble(located, settlements, gated)

	report := &Report{
		Clean:       cleanReport,
		Association: assocReport,
		Settlements: len(settlements),
		Eligible:    make(map[model.Scheme]int, len(gated)),
		Fits:        []*Fit{settlementFit},
	}
	for _, g := range gated {
		report.Eligible[g.Scheme] = g.Eligible
		report.Fits = append(report.Fits, g.Fit)
	}
	for _, f := range report.Fits {
		for _, d := range f.Degenerate() {
			report.Degenerate = append(report.Degenerate, d)
			log.Debug("dss: zero-variance column normalized to 0", zap.Error(d))
		}
	}

	log.Info("dss: run complete",
		zap.Int("loaded", cleanReport.Loaded),
		zap.Int("dropped_malformed", len(cleanReport.Dropped)),
		zap.Int("excluded_unmapped", assocReport.Excluded()),
		zap.Int("rows", len(rows)),
		zap.Int("settlements", len(settlements)),
		zap.Int("degenerate_columns", len(report.Degenerate)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Result{
		RunID:       uuid.New(),
		CreatedAt:   time.Now().UTC(),
		ConfigHash:  ConfigHash(e.cfg),
		Rows:        rows,
		Settlements: settlements,
		Report:      report,
	}, nil
}
