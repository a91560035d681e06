package model

import (
	"errors"
	"fmt"
)

// ErrEmptyGroup is returned when an aggregation receives no claimants.
var ErrEmptyGroup = errors.New("empty group")

// MissingInputError reports a region whose feature collection is required
// but unavailable.
type MissingInputError struct {
	Region string
	Path   string
}

func (e *MissingInputError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("missing feature collection for region %q (%s)", e.Region, e.Path)
	}
	return fmt.Sprintf("missing feature collection for region %q", e.Region)
}

// MalformedRecordError reports a claim that could not be parsed. The cleaner
// records these and drops the claim; they never abort a run.
type MalformedRecordError struct {
	ClaimID int64
	Field   string
	Reason  string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("claim %d: malformed %s: %s", e.ClaimID, e.Field, e.Reason)
}

// DegenerateNormalizationError reports a column whose values are all equal
// within a normalization scope. It is informational: the normalizer maps
// such columns to zero.
type DegenerateNormalizationError struct {
	Column string
	Scope  string
	Value  float64
}

func (e *DegenerateNormalizationError) Error() string {
	return fmt.Sprintf("column %s has zero variance over %s (all %g)", e.Column, e.Scope, e.Value)
}

// IsMissingInput reports whether err carries a MissingInputError.
func IsMissingInput(err error) bool {
	var me *MissingInputError
	return errors.As(err, &me)
}

// IsMalformedRecord reports whether err carries a MalformedRecordError.
func IsMalformedRecord(err error) bool {
	var me *MalformedRecordError
	return errors.As(err, &me)
}
