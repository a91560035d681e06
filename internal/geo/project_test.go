package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

// haversine returns the great-circle distance in meters.
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const r = 6371008.8
	p1, p2 := radians(lat1), radians(lat2)
	dp, dl := p2-p1, radians(lon2-lon1)
	h := math.Sin(dp/2)*math.Sin(dp/2) + math.Cos(p1)*math.Cos(p2)*math.Sin(dl/2)*math.Sin(dl/2)
	return 2 * r * math.Asin(math.Sqrt(h))
}

func TestForwardOrigin(t *testing.T) {
	p := MustProjection(IndiaNSF)
	x, y, err := p.Forward(80, 24)
	require.NoError(t, err)
	assert.InDelta(t, 4000000, x, 1e-6)
	assert.InDelta(t, 4000000, y, 1e-6)
	assert.Equal(t, "EPSG:7755", p.Name())
}

func TestForwardKnownPoint(t *testing.T) {
	p := MustProjection(IndiaNSF)
	x, y, err := p.Forward(82.71, 18.81)
	require.NoError(t, err)
	assert.InDelta(t, 4281214.6, x, 1)
	assert.InDelta(t, 3438481.3, y, 1)
}

func TestForwardDistancesCloseToGreatCircle(t *testing.T) {
	p := MustProjection(IndiaNSF)
	cases := []struct {
		name       string
		lon1, lat1 float64
		lon2, lat2 float64
	}{
		{"north-south", 82.71, 18.81, 82.71, 18.82},
		{"east-west", 82.71, 18.81, 82.72, 18.81},
		{"tripura", 91.5, 23.8, 91.51, 23.81},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, err := p.Point(tc.lon1, tc.lat1)
			require.NoError(t, err)
			b, err := p.Point(tc.lon2, tc.lat2)
			require.NoError(t, err)

			planar := math.Hypot(a[0]-b[0], a[1]-b[1])
			want := haversine(tc.lat1, tc.lon1, tc.lat2, tc.lon2)
			assert.InEpsilon(t, want, planar, 0.03)
		})
	}
}

func TestForwardRejectsOutOfRange(t *testing.T) {
	p := MustProjection(IndiaNSF)
	for _, c := range [][2]float64{{181, 20}, {80, 91}, {math.NaN(), 20}, {80, -90}} {
		_, _, err := p.Forward(c[0], c[1])
		assert.Error(t, err, "lon=%v lat=%v", c[0], c[1])
	}
}

func TestNewProjectionInvalid(t *testing.T) {
	bad := IndiaNSF
	bad.StandardParallel2 = bad.StandardParallel1
	_, err := NewProjection(bad)
	assert.ErrorContains(t, err, "standard parallels")

	bad = IndiaNSF
	bad.SemiMajorAxis = 0
	_, err = NewProjection(bad)
	assert.ErrorContains(t, err, "invalid ellipsoid")
}

func TestGeometryProjectsEveryCoordinate(t *testing.T) {
	p := MustProjection(IndiaNSF)
	poly := geom.NewPolygonFlat(geom.XY, []float64{
		80, 24, 80.1, 24, 80.1, 24.1, 80, 24.1, 80, 24,
	}, []int{10})

	g, err := p.Geometry(poly)
	require.NoError(t, err)

	out, ok := g.(*geom.Polygon)
	require.True(t, ok)
	assert.Equal(t, []int{10}, out.Ends())
	flat := out.FlatCoords()
	assert.InDelta(t, 4000000, flat[0], 1e-6)
	assert.InDelta(t, 4000000, flat[1], 1e-6)
	assert.Greater(t, flat[2], 4000000.0)

	// Source geometry is untouched.
	assert.Equal(t, 80.0, poly.FlatCoords()[0])
}

func TestGeometryCollection(t *testing.T) {
	p := MustProjection(IndiaNSF)
	gc := geom.NewGeometryCollection()
	require.NoError(t, gc.Push(geom.NewPointFlat(geom.XY, []float64{80, 24})))
	require.NoError(t, gc.Push(geom.NewLineStringFlat(geom.XY, []float64{80, 24, 80.1, 24.1})))

	g, err := p.Geometry(gc)
	require.NoError(t, err)
	out := g.(*geom.GeometryCollection)
	assert.Equal(t, 2, out.NumGeoms())
	assert.InDelta(t, 4000000, out.Geom(0).FlatCoords()[0], 1e-6)
}

func TestGeometryErrors(t *testing.T) {
	p := MustProjection(IndiaNSF)
	_, err := p.Geometry(nil)
	assert.Error(t, err)

	_, err = p.Geometry(geom.NewPointFlat(geom.XY, []float64{200, 24}))
	assert.Error(t, err)
}
