// Package geo loads per-region geographic feature collections, projects them
// into a planar metric frame, and joins claimants to their nearest feature.
package geo

import (
	"slices"

	"github.com/twpayne/go-geom"
)

// Feature is one geographic feature of interest (a waterbody, for the
// default manifest). Geometry is in longitude/latitude until projected.
type Feature struct {
	ID       string
	Region   string
	Geometry geom.T
}

// FeatureSet maps region name to that region's features.
type FeatureSet map[string][]Feature

// Regions returns the region names in sorted order.
func (fs FeatureSet) Regions() []string {
	names := make([]string, 0, len(fs))
	for name := range fs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the total feature count across regions.
func (fs FeatureSet) Len() int {
	n := 0
	for _, f := range fs {
		n += len(f)
	}
	return n
}
