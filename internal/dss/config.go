// Package dss turns located claimants into per-scheme priority scores:
// settlement aggregation, scope-local normalization, composite and
// eligibility-gated scoring, and assembly of the output rows.
package dss

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/fra-atlas/fra-dss/internal/config"
)

// weightTolerance bounds how far a scheme's weights may stray from 1.
const weightTolerance = 1e-6

// DefaultConfig returns the scoring constants and weights of the reference
// deployment.
func DefaultConfig() config.DSSConfig {
	return config.DSSConfig{
		ProtectedCategory:  "ST",
		IncomeThreshold:    250000,
		AgricultureLandUse: "Agriculture",
		ApprovedStatus:     "Approved",

		// 0.5 distance + 0.3 count + 0.2 agriculture.
		JalJeevanMission: config.WeightsConfig{Distance: 0.5, Count: 0.3, Agriculture: 0.2},
		// 0.5 (1 - income) + 0.5 insecure tenure.
		DAJGUA: config.WeightsConfig{IncomeNeed: 0.5, Tenure: 0.5},
		// 0.6 (1 - income) + 0.4 agriculture.
		MGNREGA: config.WeightsConfig{IncomeNeed: 0.6, Agriculture: 0.4},
	}
}

// WeightSum returns the sum of one index's weights.
func WeightSum(w config.WeightsConfig) float64 {
	return w.Distance + w.Count + w.Agriculture + w.IncomeNeed + w.Tenure
}

// ValidateConfig checks that a DSSConfig is internally consistent.
func ValidateConfig(c config.DSSConfig) error {
	var errs []string

	indices := []struct {
		name string
		w    config.WeightsConfig
	}{
		{"jal_jeevan_mission", c.JalJeevanMission},
		{"dajgua", c.DAJGUA},
		{"mgnrega", c.MGNREGA},
	}
	for _, idx := range indices {
		parts := []struct {
			name string
			v    float64
		}{
			{"distance", idx.w.Distance},
			{"count", idx.w.Count},
			{"agriculture", idx.w.Agriculture},
			{"income_need", idx.w.IncomeNeed},
			{"tenure", idx.w.Tenure},
		}
		for _, p := range parts {
			if p.v < 0 || math.IsNaN(p.v) {
				errs = append(errs, fmt.Sprintf("%s.%s must be >= 0", idx.name, p.name))
			}
		}
		if sum := WeightSum(idx.w); math.Abs(sum-1) > weightTolerance {
			errs = append(errs, fmt.Sprintf("%s weights should sum to 1, got %g", idx.name, sum))
		}
	}

	if !(c.IncomeThreshold > 0) {
		errs = append(errs, "income_threshold must be > 0")
	}
	if strings.TrimSpace(c.ProtectedCategory) == "" {
		errs = append(errs, "protected_category is required")
	}
	if strings.TrimSpace(c.AgricultureLandUse) == "" {
		errs = append(errs, "agriculture_land_use is required")
	}
	if strings.TrimSpace(c.ApprovedStatus) == "" {
		errs = append(errs, "approved_status is required")
	}

	if len(errs) > 0 {
		return eris.Errorf("dss: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ConfigHash returns a SHA-256 hash of the scoring config for reproducibility.
func ConfigHash(cfg config.DSSConfig) string {
	data, err := json.Marshal(cfg)
	if err != nil {
		return ""
	}
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:16]) // 32 hex chars
}

// IsNonTaxPayer reports whether a raw tax-payer flag means "not a tax payer".
func IsNonTaxPayer(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "no", "n", "false", "0":
		return true
	}
	return false
}
