package claims

import (
	"cmp"
	"math"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/fra-atlas/fra-dss/internal/model"
)

// coordinateSeparator splits "lat, lon" strings.
const coordinateSeparator = ", "

// CleanReport summarises what the cleaner did to a batch.
type CleanReport struct {
	Loaded  int
	Kept    int
	Dropped []*model.MalformedRecordError

	ImputedFromSettlement int
	ImputedFromGlobal     int
	GlobalMedianIncome    float64
	// NoIncomeData is set when no claim carried a usable income, in which
	// case missing incomes are filled with zero.
	NoIncomeData bool
}

// AddRejected counts rows a source dropped before cleaning as loaded and
// dropped, ahead of the cleaner's own drops.
func (r *CleanReport) AddRejected(rejected []*model.MalformedRecordError) {
	if len(rejected) == 0 {
		return
	}
	r.Loaded += len(rejected)
	r.Dropped = append(slices.Clone(rejected), r.Dropped...)
}

// Clean parses raw claims into claimants. Claims with missing or unparsable
// coordinates, or a claim id seen earlier in the batch, are dropped and
// recorded in the report. Missing incomes are filled with the median income
// of the claimant's settlement, then with the median over all claimants
// after that first pass. The result is sorted by claim id.
func Clean(raws []model.RawClaim) ([]model.Claimant, *CleanReport) {
	log := zap.L().With(zap.String("component", "claims.clean"))
	report := &CleanReport{Loaded: len(raws)}

	sorted := slices.Clone(raws)
	SortByID(sorted)

	out := make([]model.Claimant, 0, len(sorted))
	hasIncome := make([]bool, 0, len(sorted))
	seen := make(map[int64]bool, len(sorted))

	for _, r := range sorted {
		if seen[r.ID] {
			report.drop(log, r.ID, "claim_id", "duplicate claim id")
			continue
		}
		seen[r.ID] = true

		lat, lon, reason := ParseCoordinates(r.GeoCoordinates)
		if reason != "" {
			report.drop(log, r.ID, "geo_coordinates", reason)
			continue
		}

		c := model.Claimant{
			ID:            r.ID,
			Name:          canonical(r.Name),
			Age:           parseAge(r.Age),
			Gender:        canonical(r.Gender),
			State:         canonical(r.State),
			District:      canonical(r.District),
			BlockTehsil:   canonical(r.BlockTehsil),
			GramPanchayat: canonical(r.GramPanchayat),
			Village:       canonical(r.Village),
			Category:      canonical(r.Category),
			TaxPayer:      canonical(r.TaxPayer),
			ClaimType:     canonical(r.ClaimType),
			Status:        canonical(r.Status),
			LandUse:       canonical(r.LandUse),
			Latitude:      lat,
			Longitude:     lon,
		}
		income, ok := parseNumber(r.AnnualIncome)
		if ok {
			c.AnnualIncome = income
		}
		out = append(out, c)
		hasIncome = append(hasIncome, ok)
	}

	imputeIncome(out, hasIncome, report)
	report.Kept = len(out)

	log.Info("claims: cleaned",
		zap.Int("loaded", report.Loaded),
		zap.Int("kept", report.Kept),
		zap.Int("dropped", len(report.Dropped)),
		zap.Int("imputed_settlement", report.ImputedFromSettlement),
		zap.Int("imputed_global", report.ImputedFromGlobal),
	)
	return out, report
}

func (r *CleanReport) drop(log *zap.Logger, id int64, field, reason string) {
	r.Dropped = append(r.Dropped, &model.MalformedRecordError{ClaimID: id, Field: field, Reason: reason})
	log.Debug("claims: dropping malformed claim",
		zap.Int64("claim_id", id),
		zap.String("field", field),
		zap.String("reason", reason),
	)
}

// imputeIncome fills missing incomes in place.
func imputeIncome(cs []model.Claimant, known []bool, report *CleanReport) {
	bySettlement := make(map[model.SettlementKey][]float64)
	for i := range cs {
		if known[i] {
			k := cs[i].Key()
			bySettlement[k] = append(bySettlement[k], cs[i].AnnualIncome)
		}
	}

	filled := slices.Clone(known)
	for i := range cs {
		if known[i] {
			continue
		}
		vals := bySettlement[cs[i].Key()]
		if len(vals) == 0 {
			continue
		}
		cs[i].AnnualIncome = Median(vals)
		cs[i].IncomeImputed = true
		filled[i] = true
		report.ImputedFromSettlement++
	}

	var all []float64
	for i := range cs {
		if filled[i] {
			all = append(all, cs[i].AnnualIncome)
		}
	}
	if len(all) == 0 {
		report.NoIncomeData = len(cs) > 0
	} else {
		report.GlobalMedianIncome = Median(all)
	}
	if report.NoIncomeData {
		zap.L().Warn("claims: no income values in batch, missing incomes set to 0")
	}

	for i := range cs {
		if filled[i] {
			continue
		}
		cs[i].AnnualIncome = report.GlobalMedianIncome
		cs[i].IncomeImputed = true
		report.ImputedFromGlobal++
	}
}

// Median returns the median of vals without modifying it. Even-length input
// yields the mean of the two middle values. Median of nothing is NaN.
func Median(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	s := slices.Clone(vals)
	slices.Sort(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

// ParseCoordinates splits a "lat, lon" string. The returned reason is empty
// on success.
func ParseCoordinates(s string) (lat, lon float64, reason string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, "missing coordinates"
	}
	parts := strings.Split(s, coordinateSeparator)
	if len(parts) != 2 {
		return 0, 0, "expected \"lat, lon\", got " + strconv.Quote(s)
	}
	lat, okLat := parseNumber(parts[0])
	lon, okLon := parseNumber(parts[1])
	switch {
	case !okLat:
		return 0, 0, "unparsable latitude " + strconv.Quote(parts[0])
	case !okLon:
		return 0, 0, "unparsable longitude " + strconv.Quote(parts[1])
	case lat < -90 || lat > 90:
		return 0, 0, "latitude out of range"
	case lon < -180 || lon > 180:
		return 0, 0, "longitude out of range"
	}
	return lat, lon, ""
}

// parseNumber parses a finite float, reporting false for blanks and junk.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func parseAge(s string) *int {
	v, ok := parseNumber(s)
	if !ok || v < 0 {
		return nil
	}
	age := int(math.Round(v))
	return &age
}

func canonical(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// SortByID sorts claims by id in place, keeping input order among equal ids.
func SortByID(cs []model.RawClaim) {
	slices.SortStableFunc(cs, func(a, b model.RawClaim) int {
		return cmp.Compare(a.ID, b.ID)
	})
}
