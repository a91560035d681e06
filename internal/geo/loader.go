package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/fra-atlas/fra-dss/internal/fetcher"
	"github.com/fra-atlas/fra-dss/internal/model"
)

// LoadFeatures loads every region of m. A missing file in a required region
// returns a *model.MissingInputError; in an optional region the file is
// skipped, and a region with no loadable file is left out of the set.
// Unreadable or malformed files abort the load.
func LoadFeatures(ctx context.Context, m *Manifest) (FeatureSet, error) {
	log := zap.L().With(zap.String("component", "geo.loader"))
	set := make(FeatureSet, len(m.Regions))

	for _, region := range m.Regions {
		var features []Feature
		loadedFiles := 0
		for _, file := range region.Files {
			if err := ctx.Err(); err != nil {
				return nil, eris.Wrap(err, "geo: load features")
			}

			path := m.Resolve(file)
			if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
				if region.Required {
					return nil, eris.Wrapf(&model.MissingInputError{Region: region.Name, Path: path}, "geo: load features")
				}
				log.Warn("geo: feature file missing, skipping",
					zap.String("region", region.Name),
					zap.String("path", path),
				)
				continue
			}

			loaded, err := LoadFile(region.Name, path)
			if err != nil {
				return nil, err
			}
			features = append(features, loaded...)
			loadedFiles++
		}

		if loadedFiles == 0 {
			log.Warn("geo: region has no feature files, claimants will be excluded",
				zap.String("region", region.Name),
			)
			continue
		}
		set[region.Name] = features
		log.Info("geo: region loaded",
			zap.String("region", region.Name),
			zap.Int("files", loadedFiles),
			zap.Int("features", len(features)),
		)
	}

	return set, nil
}

// LoadFile reads the features of one file, dispatching on its extension:
// .geojson and .json are GeoJSON, .shp is an ESRI shapefile, and .zip is
// a bundle holding either.
func LoadFile(region, path string) ([]Feature, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		return loadGeoJSON(region, path)
	case ".shp":
		return loadShapefile(region, path)
	case ".zip":
		return loadZIP(region, path)
	default:
		return nil, eris.Errorf("geo: unsupported feature file %s", path)
	}
}

func loadGeoJSON(region, path string) ([]Feature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: read %s", path)
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "geo: decode GeoJSON %s", path)
	}

	base := filepath.Base(path)
	out := make([]Feature, 0, len(fc.Features))
	skipped := 0
	for i, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			skipped++
			continue
		}
		id := f.ID
		if id == "" {
			id = fmt.Sprintf("%s#%d", base, i)
		}
		out = append(out, Feature{ID: id, Region: region, Geometry: f.Geometry})
	}

	if skipped > 0 {
		zap.L().Debug("geo: skipped features without geometry",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return out, nil
}

func loadZIP(region, path string) ([]Feature, error) {
	dir, err := os.MkdirTemp("", "fra-dss-features-*")
	if err != nil {
		return nil, eris.Wrap(err, "geo: create extract dir")
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	extracted, err := fetcher.ExtractZIP(path, dir)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: extract %s", path)
	}

	for _, ext := range []string{".shp", ".geojson", ".json"} {
		if inner, ok := fetcher.FindByExt(extracted, ext); ok {
			features, err := LoadFile(region, inner)
			if err != nil {
				return nil, err
			}
			// Keep IDs stable regardless of the temp dir name.
			for i := range features {
				features[i].ID = filepath.Base(path) + ":" + features[i].ID
			}
			return features, nil
		}
	}
	return nil, eris.Errorf("geo: no .shp or GeoJSON file in %s", path)
}
