package dss

import (
	"math"

	"github.com/fra-atlas/fra-dss/internal/model"
)

// Scaler is a min-max transform fitted over one column of one scope. It is
// a value: every fit produces a fresh Scaler and nothing is shared between
// scopes.
type Scaler struct {
	Column string
	Scope  string
	Min    float64
	Max    float64
	// N is the number of finite values the scaler was fitted on.
	N int
}

// FitScaler fits a scaler over values. NaN and infinite values are ignored.
func FitScaler(scope, column string, values []float64) Scaler {
	s := Scaler{Column: column, Scope: scope, Min: math.Inf(1), Max: math.Inf(-1)}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
		s.N++
	}
	if s.N == 0 {
		s.Min, s.Max = 0, 0
	}
	return s
}

// Degenerate reports whether the fitted column has zero variance.
func (s Scaler) Degenerate() bool {
	return s.Max == s.Min
}

// Transform maps v into [0,1]. Degenerate scalers map every value to 0.
func (s Scaler) Transform(v float64) float64 {
	if s.Degenerate() {
		return 0
	}
	return (v - s.Min) / (s.Max - s.Min)
}

// Err returns a *model.DegenerateNormalizationError for degenerate scalers.
func (s Scaler) Err() *model.DegenerateNormalizationError {
	if !s.Degenerate() || s.N == 0 {
		return nil
	}
	return &model.DegenerateNormalizationError{Column: s.Column, Scope: s.Scope, Value: s.Min}
}

// Column names a numeric attribute of T.
type Column[T any] struct {
	Name  string
	Value func(T) float64
}

// Fit is the set of scalers fitted for one scope.
type Fit struct {
	Scope   string
	Rows    int
	Scalers []Scaler
}

// Degenerate returns the zero-variance columns of the fit.
func (f *Fit) Degenerate() []*model.DegenerateNormalizationError {
	var out []*model.DegenerateNormalizationError
	for _, s := range f.Scalers {
		if err := s.Err(); err != nil {
			out = append(out, err)
		}
	}
	return out
}

// Normalize fits an independent scaler per column over rows and returns
// the transformed values, indexed [row][column].
func Normalize[T any](scope string, rows []T, cols ...Column[T]) ([][]float64, *Fit) {
	fit := &Fit{Scope: scope, Rows: len(rows), Scalers: make([]Scaler, len(cols))}

	raw := make([][]float64, len(cols))
	for j, c := range cols {
		raw[j] = make([]float64, len(rows))
		for i, r := range rows {
			raw[j][i] = c.Value(r)
		}
		fit.Scalers[j] = FitScaler(scope, c.Name, raw[j])
	}

	out := make([][]float64, len(rows))
	for i := range rows {
		out[i] = make([]float64, len(cols))
		for j := range cols {
			out[i][j] = fit.Scalers[j].Transform(raw[j][i])
		}
	}
	return out, fit
}

// Subset is a view over the rows of a slice that satisfy a predicate.
// Indices refer to the original slice, in order.
type Subset[T any] struct {
	Name    string
	Indices []int
	Rows    []T
}

// Select returns the subset of rows satisfying pred.
func Select[T any](name string, rows []T, pred func(T) bool) Subset[T] {
	s := Subset[T]{Name: name}
	for i, r := range rows {
		if pred(r) {
			s.Indices = append(s.Indices, i)
			s.Rows = append(s.Rows, r)
		}
	}
	return s
}

// Len returns the number of rows in the subset.
func (s Subset[T]) Len() int { return len(s.Indices) }

// Normalize fits columns over the subset only and returns the transformed
// values indexed like Rows.
func (s Subset[T]) Normalize(cols ...Column[T]) ([][]float64, *Fit) {
	return Normalize(s.Name, s.Rows, cols...)
}

// Clamp limits v to [0,1]. NaN maps to 0.
func Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
