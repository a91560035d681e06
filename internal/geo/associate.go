package geo

import (
	"context"
	"math"
	"runtime"
	"slices"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fra-atlas/fra-dss/internal/model"
)

// AssociatorOption configures an Associator.
type AssociatorOption func(*Associator)

// WithStrict makes claimants in a region without a feature collection a
// *model.MissingInputError instead of a silent exclusion.
func WithStrict(strict bool) AssociatorOption {
	return func(a *Associator) {
		a.strict = strict
	}
}

// WithParallel processes regions concurrently, up to limit at a time
// (limit <= 0 uses GOMAXPROCS). Output order does not change.
func WithParallel(limit int) AssociatorOption {
	return func(a *Associator) {
		a.parallel = true
		if limit <= 0 {
			limit = runtime.GOMAXPROCS(0)
		}
		a.limit = limit
	}
}

// Associator joins each claimant to the nearest feature of its region,
// measuring in the IndiaNSF planar frame.
type Associator struct {
	proj     *Projection
	strict   bool
	parallel bool
	limit    int
}

// NewAssociator creates a new Associator.
func NewAssociator(opts ...AssociatorOption) *Associator {
	a := &Associator{proj: MustProjection(IndiaNSF)}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RegionReport describes the association of one region.
type RegionReport struct {
	Region          string `json:"region"`
	Claimants       int    `json:"claimants"`
	Features        int    `json:"features"`
	DroppedFeatures int    `json:"dropped_features"`
	Unmeasured      int    `json:"unmeasured"`
}

// AssociationReport summarises a whole association pass.
type AssociationReport struct {
	Regions []RegionReport `json:"regions"`
	// ExcludedClaimants counts claimants whose region has no feature
	// collection, by region name.
	ExcludedClaimants map[string]int `json:"excluded_claimants"`
	FilledDistances   int            `json:"filled_distances"`
	FillDistance      float64        `json:"fill_distance_meters"`
}

// Excluded returns the total number of excluded claimants.
func (r *AssociationReport) Excluded() int {
	n := 0
	for _, c := range r.ExcludedClaimants {
		n += c
	}
	return n
}

type regionResult struct {
	located []model.LocatedClaimant
	report  RegionReport
}

// Associate computes the nearest-feature distance for every claimant whose
// region is in features. Each region is handled independently: features and
// claimant points are projected into the planar frame, then every claimant
// keeps exactly one row, matched to the first feature at minimum distance.
// Regions are concatenated in sorted name order. Distances that could not
// be measured are filled with the largest distance seen across all regions.
func (a *Associator) Associate(ctx context.Context, claimants []model.Claimant, features FeatureSet) ([]model.LocatedClaimant, *AssociationReport, error) {
	log := zap.L().With(zap.String("component", "geo.associate"))
	report := &AssociationReport{ExcludedClaimants: make(map[string]int)}

	byRegion := make(map[string][]model.Claimant)
	for _, c := range claimants {
		if _, ok := features[c.State]; !ok {
			report.ExcludedClaimants[c.State]++
			continue
		}
		byRegion[c.State] = append(byRegion[c.State], c)
	}

	if len(report.ExcludedClaimants) > 0 {
		unmapped := make([]string, 0, len(report.ExcludedClaimants))
		for name := range report.ExcludedClaimants {
			unmapped = append(unmapped, name)
		}
		slices.Sort(unmapped)
		if a.strict {
			return nil, nil, eris.Wrapf(&model.MissingInputError{Region: unmapped[0]},
				"geo: %d claimants in regions without features", report.Excluded())
		}
		log.Warn("geo: excluding claimants in regions without features",
			zap.Strings("regions", unmapped),
			zap.Int("claimants", report.Excluded()),
		)
	}

	var regions []string
	for _, name := range features.Regions() {
		if len(byRegion[name]) > 0 {
			regions = append(regions, name)
		}
	}

	results := make([]regionResult, len(regions))
	if a.parallel && len(regions) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(a.limit)
		for i, name := range regions {
			g.Go(func() error {
				r, err := a.associateRegion(gctx, name, byRegion[name], features[name])
				if err != nil {
					return err
				}
				results[i] = r
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, nil, err
		}
	} else {
		for i, name := range regions {
			r, err := a.associateRegion(ctx, name, byRegion[name], features[name])
			if err != nil {
				return nil, nil, err
			}
			results[i] = r
		}
	}

	var out []model.LocatedClaimant
	for _, r := range results {
		out = append(out, r.located...)
		report.Regions = append(report.Regions, r.report)
	}

	fillMissingDistances(out, report)
	if report.FilledDistances > 0 {
		log.Warn("geo: filled unmeasured distances with maximum",
			zap.Int("claimants", report.FilledDistances),
			zap.Float64("fill_distance_m", report.FillDistance),
		)
	}

	log.Info("geo: association complete",
		zap.Int("regions", len(regions)),
		zap.Int("claimants", len(out)),
		zap.Int("excluded", report.Excluded()),
	)
	return out, report, nil
}

type projectedFeature struct {
	id     string
	geom   geom.T
	bounds *geom.Bounds
}

func (a *Associator) associateRegion(ctx context.Context, region string, claimants []model.Claimant, features []Feature) (regionResult, error) {
	res := regionResult{report: RegionReport{Region: region, Claimants: len(claimants)}}

	projected := make([]projectedFeature, 0, len(features))
	for _, f := range features {
		g, err := a.proj.Geometry(f.Geometry)
		if err != nil {
			res.report.DroppedFeatures++
			zap.L().Debug("geo: dropping feature that failed projection",
				zap.String("region", region),
				zap.String("feature", f.ID),
				zap.Error(err),
			)
			continue
		}
		projected = append(projected, projectedFeature{id: f.ID, geom: g, bounds: g.Bounds()})
	}
	res.report.Features = len(projected)
	if res.report.DroppedFeatures > 0 {
		zap.L().Warn("geo: features dropped during projection",
			zap.String("region", region),
			zap.Int("dropped", res.report.DroppedFeatures),
		)
	}

	res.located = make([]model.LocatedClaimant, len(claimants))
	for i, c := range claimants {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return res, eris.Wrapf(err, "geo: associate region %s", region)
			}
		}

		lc := model.LocatedClaimant{Claimant: c, DistanceMeters: math.NaN()}
		p, err := a.proj.Point(c.Longitude, c.Latitude)
		if err == nil {
			lc.DistanceMeters, lc.NearestFeature = nearest(p, projected)
		}
		if math.IsNaN(lc.DistanceMeters) {
			res.report.Unmeasured++
		}
		res.located[i] = lc
	}

	return res, nil
}

// nearest returns the distance to, and ID of, the first feature at minimum
// distance from p. It returns NaN when no feature is measurable.
func nearest(p geom.Coord, features []projectedFeature) (float64, string) {
	best := math.Inf(1)
	bestID := ""
	found := false
	for _, f := range features {
		if boundsDistance(p, f.bounds) >= best {
			continue
		}
		if d := Distance(p, f.geom); d < best {
			best, bestID, found = d, f.id, true
		}
	}
	if !found {
		return math.NaN(), ""
	}
	return best, bestID
}

// fillMissingDistances replaces NaN distances with the largest measured
// distance, or 0 when nothing was measured.
func fillMissingDistances(located []model.LocatedClaimant, report *AssociationReport) {
	maxDist := math.NaN()
	for _, lc := range located {
		if !math.IsNaN(lc.DistanceMeters) && (math.IsNaN(maxDist) || lc.DistanceMeters > maxDist) {
			maxDist = lc.DistanceMeters
		}
	}
	if math.IsNaN(maxDist) {
		maxDist = 0
	}
	report.FillDistance = maxDist

	for i := range located {
		if math.IsNaN(located[i].DistanceMeters) {
			located[i].DistanceMeters = maxDist
			located[i].DistanceFilled = true
			report.FilledDistances++
		}
	}
}
