package geo

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/fra-atlas/fra-dss/internal/model"
)

const lakesGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": "w1", "properties": {}, "geometry": {"type": "Point", "coordinates": [82.71, 18.82]}},
    {"type": "Feature", "properties": {}, "geometry": {"type": "Polygon", "coordinates": [[[82.7, 18.7], [82.8, 18.7], [82.8, 18.8], [82.7, 18.8], [82.7, 18.7]]]}}
  ]
}`

func TestLoadFileGeoJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lakes.geojson")
	writeFile(t, path, lakesGeoJSON)

	features, err := LoadFile("Odisha", path)
	require.NoError(t, err)
	require.Len(t, features, 2)
	assert.Equal(t, "w1", features[0].ID)
	assert.Equal(t, "lakes.geojson#1", features[1].ID)
	assert.Equal(t, "Odisha", features[1].Region)
	_, ok := features[1].Geometry.(*geom.Polygon)
	assert.True(t, ok)
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile("X", filepath.Join(dir, "lakes.kml"))
	assert.ErrorContains(t, err, "unsupported feature file")

	bad := filepath.Join(dir, "bad.geojson")
	writeFile(t, bad, "{not json")
	_, err = LoadFile("X", bad)
	assert.ErrorContains(t, err, "decode GeoJSON")
}

func TestLoadFileZIP(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bundle.zip")

	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("nested/lakes.geojson")
	require.NoError(t, err)
	_, err = w.Write([]byte(lakesGeoJSON))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	features, err := LoadFile("Odisha", path)
	require.NoError(t, err)
	require.Len(t, features, 2)
	assert.Equal(t, "bundle.zip:w1", features[0].ID)
	assert.Equal(t, "bundle.zip:lakes.geojson#1", features[1].ID)
}

func TestLoadFileShapefile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tanks.shp")

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField("WB_ID", 16)}))

	ring := []shp.Point{{X: 80, Y: 24}, {X: 80, Y: 24.1}, {X: 80.1, Y: 24.1}, {X: 80.1, Y: 24}, {X: 80, Y: 24}}
	n := w.Write((*shp.Polygon)(shp.NewPolyLine([][]shp.Point{ring})))
	require.NoError(t, w.WriteAttribute(int(n), 0, "TANK-7"))
	w.Close()

	// go-shp writes the attribute table as "<name>dbf" without the dot.
	base := strings.TrimSuffix(path, ".shp")
	require.NoError(t, os.Rename(base+"dbf", base+".dbf"))

	features, err := LoadFile("Madhya Pradesh", path)
	require.NoError(t, err)
	require.Len(t, features, 1)
	assert.Equal(t, "TANK-7", features[0].ID)

	mp, ok := features[0].Geometry.(*geom.MultiPolygon)
	require.True(t, ok)
	assert.Equal(t, 1, mp.NumPolygons())
}

func TestShapeToGeom(t *testing.T) {
	t.Run("point", func(t *testing.T) {
		g := shapeToGeom(&shp.Point{X: 80.5, Y: 22.1})
		assert.Equal(t, []float64{80.5, 22.1}, g.FlatCoords())
	})

	t.Run("polyline parts", func(t *testing.T) {
		line := &shp.PolyLine{
			NumParts:  2,
			NumPoints: 5,
			Parts:     []int32{0, 2},
			Points:    []shp.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 5, Y: 5}, {X: 6, Y: 5}, {X: 7, Y: 6}},
		}
		mls, ok := shapeToGeom(line).(*geom.MultiLineString)
		require.True(t, ok)
		assert.Equal(t, 2, mls.NumLineStrings())
		assert.Equal(t, 3, mls.LineString(1).NumCoords())
	})

	t.Run("polygon with hole and second shell", func(t *testing.T) {
		poly := &shp.Polygon{
			NumParts:  3,
			NumPoints: 15,
			Parts:     []int32{0, 5, 10},
			Points: []shp.Point{
				// clockwise shell
				{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 0},
				// counter-clockwise hole
				{X: 4, Y: 4}, {X: 6, Y: 4}, {X: 6, Y: 6}, {X: 4, Y: 6}, {X: 4, Y: 4},
				// clockwise shell
				{X: 20, Y: 0}, {X: 20, Y: 5}, {X: 25, Y: 5}, {X: 25, Y: 0}, {X: 20, Y: 0},
			},
		}
		mp, ok := shapeToGeom(poly).(*geom.MultiPolygon)
		require.True(t, ok)
		require.Equal(t, 2, mp.NumPolygons())
		assert.Equal(t, 2, mp.Polygon(0).NumLinearRings())
		assert.Equal(t, 1, mp.Polygon(1).NumLinearRings())

		assert.InDelta(t, 1, Distance(geom.Coord{5, 5}, mp), 1e-9)
		assert.Equal(t, 0.0, Distance(geom.Coord{2, 2}, mp))
	})

	t.Run("degenerate", func(t *testing.T) {
		assert.Nil(t, shapeToGeom(&shp.MultiPoint{}))
		assert.Nil(t, shapeToGeom(&shp.Polygon{NumParts: 1, Parts: []int32{0}, Points: []shp.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}}))
	})
}

func TestLoadFeatures(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "odisha.geojson"), lakesGeoJSON)

	m := &Manifest{
		BaseDir: dir,
		Regions: []RegionSpec{
			{Name: "Odisha", Files: []string{"odisha.geojson", "odisha-extra.geojson"}},
			{Name: "Tripura", Files: []string{"tripura.geojson"}},
		},
	}

	set, err := LoadFeatures(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, []string{"Odisha"}, set.Regions())
	assert.Equal(t, 2, set.Len())
}

func TestLoadFeaturesRequiredMissing(t *testing.T) {
	m := &Manifest{
		BaseDir: t.TempDir(),
		Regions: []RegionSpec{{Name: "Tripura", Files: []string{"tripura.geojson"}, Required: true}},
	}

	_, err := LoadFeatures(context.Background(), m)
	require.Error(t, err)
	assert.True(t, model.IsMissingInput(err))
}

func TestLoadFeaturesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := LoadFeatures(ctx, DefaultManifest(t.TempDir()))
	assert.ErrorIs(t, err, context.Canceled)
}
