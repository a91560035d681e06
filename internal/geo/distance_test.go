package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/twpayne/go-geom"
)

func square(x0, y0, size float64) []float64 {
	return []float64{x0, y0, x0 + size, y0, x0 + size, y0 + size, x0, y0 + size, x0, y0}
}

func TestDistance(t *testing.T) {
	donut := geom.NewPolygonFlat(geom.XY,
		append(square(0, 0, 100), square(40, 40, 20)...),
		[]int{10, 20},
	)

	cases := []struct {
		name string
		p    geom.Coord
		g    geom.T
		want float64
	}{
		{"point", geom.Coord{0, 0}, geom.NewPointFlat(geom.XY, []float64{3, 4}), 5},
		{"line interior", geom.Coord{5, 10}, geom.NewLineStringFlat(geom.XY, []float64{0, 0, 10, 0}), 10},
		{"line endpoint", geom.Coord{13, 4}, geom.NewLineStringFlat(geom.XY, []float64{0, 0, 10, 0}), 5},
		{"inside polygon", geom.Coord{10, 10}, donut, 0},
		{"inside hole", geom.Coord{50, 50}, donut, 10},
		{"outside polygon", geom.Coord{-30, 50}, donut, 30},
		{"multipoint", geom.Coord{0, 0}, geom.NewMultiPointFlat(geom.XY, []float64{10, 0, 0, 2}), 2},
		{
			"multipolygon",
			geom.Coord{250, 0},
			geom.NewMultiPolygonFlat(geom.XY, append(square(0, 0, 100), square(200, 0, 10)...), [][]int{{10}, {20}}),
			40,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Distance(tc.p, tc.g), 1e-9)
		})
	}
}

func TestDistanceEmpty(t *testing.T) {
	assert.True(t, math.IsInf(Distance(geom.Coord{0, 0}, geom.NewMultiPolygon(geom.XY)), 1))
	assert.True(t, math.IsInf(Distance(geom.Coord{0, 0}, geom.NewGeometryCollection()), 1))
}

func TestBoundsDistance(t *testing.T) {
	b := geom.NewBounds(geom.XY).Set(0, 0, 10, 10)
	assert.Equal(t, 0.0, boundsDistance(geom.Coord{5, 5}, b))
	assert.InDelta(t, 5, boundsDistance(geom.Coord{13, 14}, b), 1e-9)
	assert.True(t, math.IsInf(boundsDistance(geom.Coord{0, 0}, geom.NewBounds(geom.XY)), 1))
	assert.True(t, math.IsInf(boundsDistance(geom.Coord{0, 0}, nil), 1))
}
