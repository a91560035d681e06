package geo

import (
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// Distance returns the planar distance from p to the nearest point of g.
// Points inside a polygon (and outside its holes) are at distance 0.
// Both p and g must be in the same planar frame. Empty geometries are
// infinitely far away.
func Distance(p geom.Coord, g geom.T) float64 {
	switch t := g.(type) {
	case *geom.Point:
		return lineDistance(p, t.Layout(), t.FlatCoords())
	case *geom.MultiPoint:
		best := math.Inf(1)
		for i := 0; i < t.NumPoints(); i++ {
			best = math.Min(best, Distance(p, t.Point(i)))
		}
		return best
	case *geom.LineString:
		return lineDistance(p, t.Layout(), t.FlatCoords())
	case *geom.LinearRing:
		return lineDistance(p, t.Layout(), t.FlatCoords())
	case *geom.MultiLineString:
		best := math.Inf(1)
		for i := 0; i < t.NumLineStrings(); i++ {
			best = math.Min(best, Distance(p, t.LineString(i)))
		}
		return best
	case *geom.Polygon:
		return polygonDistance(p, t)
	case *geom.MultiPolygon:
		best := math.Inf(1)
		for i := 0; i < t.NumPolygons() && best > 0; i++ {
			best = math.Min(best, polygonDistance(p, t.Polygon(i)))
		}
		return best
	case *geom.GeometryCollection:
		best := math.Inf(1)
		for _, child := range t.Geoms() {
			best = math.Min(best, Distance(p, child))
		}
		return best
	}
	return math.Inf(1)
}

func lineDistance(p geom.Coord, layout geom.Layout, flat []float64) float64 {
	stride := layout.Stride()
	switch {
	case len(flat) < stride:
		return math.Inf(1)
	case len(flat) == stride:
		return math.Hypot(p[0]-flat[0], p[1]-flat[1])
	}
	return xy.DistanceFromPointToLineString(layout, p, flat)
}

func polygonDistance(p geom.Coord, poly *geom.Polygon) float64 {
	n := poly.NumLinearRings()
	if n == 0 {
		return math.Inf(1)
	}
	layout := poly.Layout()

	shell := poly.LinearRing(0).FlatCoords()
	if len(shell) >= 3*layout.Stride() && xy.IsPointInRing(layout, p, shell) {
		inHole := false
		for i := 1; i < n; i++ {
			hole := poly.LinearRing(i).FlatCoords()
			if len(hole) >= 3*layout.Stride() && xy.IsPointInRing(layout, p, hole) {
				inHole = true
				break
			}
		}
		if !inHole {
			return 0
		}
	}

	best := math.Inf(1)
	for i := 0; i < n; i++ {
		best = math.Min(best, lineDistance(p, layout, poly.LinearRing(i).FlatCoords()))
	}
	return best
}

// boundsDistance is a lower bound on Distance(p, g) for any g within b.
func boundsDistance(p geom.Coord, b *geom.Bounds) float64 {
	if b == nil || b.IsEmpty() {
		return math.Inf(1)
	}
	dx := math.Max(0, math.Max(b.Min(0)-p[0], p[0]-b.Max(0)))
	dy := math.Max(0, math.Max(b.Min(1)-p[1], p[1]-b.Max(1)))
	return math.Hypot(dx, dy)
}
