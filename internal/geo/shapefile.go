package geo

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// idFields are attribute names tried, in order, for a feature identifier.
var idFields = []string{"id", "fid", "objectid", "wb_id", "name"}

func loadShapefile(region, path string) ([]Feature, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	idIdx := -1
	for _, name := range idFields {
		if idIdx = fieldIndex(reader, name); idIdx >= 0 {
			break
		}
	}

	base := filepath.Base(path)
	var out []Feature
	var skipped int
	for reader.Next() {
		n, shape := reader.Shape()
		g := shapeToGeom(shape)
		if g == nil {
			skipped++
			continue
		}

		id := ""
		if idIdx >= 0 {
			id = strings.TrimSpace(strings.TrimRight(reader.Attribute(idIdx), "\x00"))
		}
		if id == "" {
			id = fmt.Sprintf("%s#%d", base, n)
		}
		out = append(out, Feature{ID: id, Region: region, Geometry: g})
	}

	if skipped > 0 {
		zap.L().Debug("geo: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return out, nil
}

// fieldIndex returns the index of a named field in the shapefile, or -1 if not found.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}

// shapeToGeom converts a go-shp shape to a go-geom geometry. Unsupported
// and empty shapes return nil.
func shapeToGeom(shape shp.Shape) geom.T {
	switch s := shape.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y})
	case *shp.PointZ:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y})
	case *shp.MultiPoint:
		if len(s.Points) == 0 {
			return nil
		}
		return geom.NewMultiPointFlat(geom.XY, pointsFlat(s.Points))
	case *shp.PolyLine:
		return partsToMultiLineString(s.Parts, s.Points)
	case *shp.PolyLineZ:
		return partsToMultiLineString(s.Parts, s.Points)
	case *shp.Polygon:
		return partsToMultiPolygon(s.Parts, s.Points)
	case *shp.PolygonZ:
		return partsToMultiPolygon(s.Parts, s.Points)
	}
	return nil
}

// partRanges returns the [start,end) point ranges of each part.
func partRanges(parts []int32, numPoints int) [][2]int {
	out := make([][2]int, 0, len(parts))
	for i, start := range parts {
		end := numPoints
		if i+1 < len(parts) {
			end = int(parts[i+1])
		}
		if int(start) < 0 || int(start) >= end || end > numPoints {
			continue
		}
		out = append(out, [2]int{int(start), end})
	}
	return out
}

func partsToMultiLineString(parts []int32, points []shp.Point) geom.T {
	mls := geom.NewMultiLineString(geom.XY)
	for i, r := range partRanges(parts, len(points)) {
		if r[1]-r[0] < 2 {
			continue
		}
		ls := geom.NewLineStringFlat(geom.XY, pointsFlat(points[r[0]:r[1]]))
		if err := mls.Push(ls); err != nil {
			zap.L().Debug("geo: skipping malformed linestring part", zap.Int("part", i), zap.Error(err))
		}
	}
	if mls.NumLineStrings() == 0 {
		return nil
	}
	return mls
}

// partsToMultiPolygon groups shapefile rings into polygons. Outer rings are
// clockwise and start a new polygon; counter-clockwise rings are holes of
// the polygon before them. A hole with no preceding shell becomes a shell.
func partsToMultiPolygon(parts []int32, points []shp.Point) geom.T {
	mp := geom.NewMultiPolygon(geom.XY)
	var current *geom.Polygon

	flush := func() {
		if current == nil {
			return
		}
		if err := mp.Push(current); err != nil {
			zap.L().Debug("geo: skipping malformed polygon", zap.Error(err))
		}
		current = nil
	}

	for i, r := range partRanges(parts, len(points)) {
		ringPts := points[r[0]:r[1]]
		if len(ringPts) < 4 {
			continue
		}
		ring := geom.NewLinearRingFlat(geom.XY, pointsFlat(ringPts))
		if signedArea(ringPts) <= 0 || current == nil {
			flush()
			current = geom.NewPolygon(geom.XY)
		}
		if err := current.Push(ring); err != nil {
			zap.L().Debug("geo: skipping malformed polygon ring", zap.Int("part", i), zap.Error(err))
		}
	}
	flush()

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// signedArea is the shoelace area; negative for clockwise rings.
func signedArea(pts []shp.Point) float64 {
	var sum float64
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return sum / 2
}

// pointsFlat converts shapefile points to flat XY coordinates for go-geom.
func pointsFlat(pts []shp.Point) []float64 {
	flat := make([]float64, 0, len(pts)*2)
	for _, p := range pts {
		flat = append(flat, p.X, p.Y)
	}
	return flat
}
