package geo

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// LCCParams defines a Lambert Conformal Conic (2SP) projection on an
// ellipsoid. Angles are in degrees, offsets in meters.
type LCCParams struct {
	Name              string
	SemiMajorAxis     float64
	InverseFlattening float64
	StandardParallel1 float64
	StandardParallel2 float64
	LatitudeOfOrigin  float64
	CentralMeridian   float64
	FalseEasting      float64
	FalseNorthing     float64
}

// IndiaNSF is EPSG:7755, WGS 84 / India NSF LCC.
var IndiaNSF = LCCParams{
	Name:              "EPSG:7755",
	SemiMajorAxis:     6378137,
	InverseFlattening: 298.257223563,
	StandardParallel1: 12 + 28.0/60 + 22.598/3600,
	StandardParallel2: 35 + 10.0/60 + 22.102/3600,
	LatitudeOfOrigin:  24,
	CentralMeridian:   80,
	FalseEasting:      4000000,
	FalseNorthing:     4000000,
}

// Projection maps longitude/latitude to planar meters.
type Projection struct {
	name string
	a    float64
	e    float64
	n    float64
	aF   float64 // a * F
	rho0 float64
	lon0 float64
	fe   float64
	fn   float64
}

// NewProjection precomputes the cone constants for p.
func NewProjection(p LCCParams) (*Projection, error) {
	if p.SemiMajorAxis <= 0 || p.InverseFlattening <= 0 {
		return nil, eris.Errorf("geo: %s: invalid ellipsoid", p.Name)
	}
	if p.StandardParallel1 == p.StandardParallel2 {
		return nil, eris.Errorf("geo: %s: standard parallels must differ", p.Name)
	}

	f := 1 / p.InverseFlattening
	e := math.Sqrt(2*f - f*f)
	phi1 := radians(p.StandardParallel1)
	phi2 := radians(p.StandardParallel2)

	m1, m2 := lccM(phi1, e), lccM(phi2, e)
	t1, t2 := lccT(phi1, e), lccT(phi2, e)
	n := (math.Log(m1) - math.Log(m2)) / (math.Log(t1) - math.Log(t2))
	aF := p.SemiMajorAxis * m1 / (n * math.Pow(t1, n))

	return &Projection{
		name: p.Name,
		a:    p.SemiMajorAxis,
		e:    e,
		n:    n,
		aF:   aF,
		rho0: aF * math.Pow(lccT(radians(p.LatitudeOfOrigin), e), n),
		lon0: radians(p.CentralMeridian),
		fe:   p.FalseEasting,
		fn:   p.FalseNorthing,
	}, nil
}

// MustProjection is NewProjection for known-good parameters.
func MustProjection(p LCCParams) *Projection {
	proj, err := NewProjection(p)
	if err != nil {
		panic(err)
	}
	return proj
}

// Name returns the projection's CRS name.
func (p *Projection) Name() string { return p.name }

// Forward projects a longitude/latitude pair in degrees.
func (p *Projection) Forward(lon, lat float64) (x, y float64, err error) {
	if math.IsNaN(lon) || math.IsNaN(lat) || lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return 0, 0, eris.Errorf("geo: %s: coordinate (%g, %g) outside geographic range", p.name, lon, lat)
	}
	// The cone's apex pole maps to a point; the opposite pole is unbounded.
	if p.n > 0 && lat == -90 || p.n < 0 && lat == 90 {
		return 0, 0, eris.Errorf("geo: %s: latitude %g not representable", p.name, lat)
	}

	rho := p.aF * math.Pow(lccT(radians(lat), p.e), p.n)
	dLon := radians(lon) - p.lon0
	switch {
	case dLon > math.Pi:
		dLon -= 2 * math.Pi
	case dLon < -math.Pi:
		dLon += 2 * math.Pi
	}
	theta := p.n * dLon

	x = p.fe + rho*math.Sin(theta)
	y = p.fn + p.rho0 - rho*math.Cos(theta)
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return 0, 0, eris.Errorf("geo: %s: projection of (%g, %g) is not finite", p.name, lon, lat)
	}
	return x, y, nil
}

// Point projects a longitude/latitude pair into a planar coordinate.
func (p *Projection) Point(lon, lat float64) (geom.Coord, error) {
	x, y, err := p.Forward(lon, lat)
	if err != nil {
		return nil, err
	}
	return geom.Coord{x, y}, nil
}

// Geometry returns a projected copy of g. Only X and Y are transformed;
// extra ordinates are carried through.
func (p *Projection) Geometry(g geom.T) (geom.T, error) {
	switch t := g.(type) {
	case *geom.Point:
		flat, err := p.flat(t.Layout(), t.FlatCoords())
		if err != nil {
			return nil, err
		}
		return geom.NewPointFlat(t.Layout(), flat), nil
	case *geom.MultiPoint:
		flat, err := p.flat(t.Layout(), t.FlatCoords())
		if err != nil {
			return nil, err
		}
		return geom.NewMultiPointFlat(t.Layout(), flat), nil
	case *geom.LineString:
		flat, err := p.flat(t.Layout(), t.FlatCoords())
		if err != nil {
			return nil, err
		}
		return geom.NewLineStringFlat(t.Layout(), flat), nil
	case *geom.LinearRing:
		flat, err := p.flat(t.Layout(), t.FlatCoords())
		if err != nil {
			return nil, err
		}
		return geom.NewLinearRingFlat(t.Layout(), flat), nil
	case *geom.MultiLineString:
		flat, err := p.flat(t.Layout(), t.FlatCoords())
		if err != nil {
			return nil, err
		}
		return geom.NewMultiLineStringFlat(t.Layout(), flat, t.Ends()), nil
	case *geom.Polygon:
		flat, err := p.flat(t.Layout(), t.FlatCoords())
		if err != nil {
			return nil, err
		}
		return geom.NewPolygonFlat(t.Layout(), flat, t.Ends()), nil
	case *geom.MultiPolygon:
		flat, err := p.flat(t.Layout(), t.FlatCoords())
		if err != nil {
			return nil, err
		}
		return geom.NewMultiPolygonFlat(t.Layout(), flat, t.Endss()), nil
	case *geom.GeometryCollection:
		out := geom.NewGeometryCollection()
		for _, child := range t.Geoms() {
			pc, err := p.Geometry(child)
			if err != nil {
				return nil, err
			}
			if err := out.Push(pc); err != nil {
				return nil, eris.Wrap(err, "geo: rebuild geometry collection")
			}
		}
		return out, nil
	case nil:
		return nil, eris.New("geo: nil geometry")
	default:
		return nil, eris.Errorf("geo: unsupported geometry type %T", g)
	}
}

func (p *Projection) flat(layout geom.Layout, in []float64) ([]float64, error) {
	stride := layout.Stride()
	if stride < 2 {
		return nil, eris.Errorf("geo: unsupported layout %v", layout)
	}
	out := make([]float64, len(in))
	copy(out, in)
	for i := 0; i+1 < len(out); i += stride {
		x, y, err := p.Forward(out[i], out[i+1])
		if err != nil {
			return nil, err
		}
		out[i], out[i+1] = x, y
	}
	return out, nil
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// lccM is Snyder's m(phi) = cos(phi) / sqrt(1 - e^2 sin^2(phi)).
func lccM(phi, e float64) float64 {
	s := math.Sin(phi)
	return math.Cos(phi) / math.Sqrt(1-e*e*s*s)
}

// lccT is Snyder's t(phi) = tan(pi/4 - phi/2) / ((1 - e sin phi)/(1 + e sin phi))^(e/2).
func lccT(phi, e float64) float64 {
	s := math.Sin(phi)
	return math.Tan(math.Pi/4-phi/2) / math.Pow((1-e*s)/(1+e*s), e/2)
}
