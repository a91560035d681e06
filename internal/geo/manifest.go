package geo

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// RegionSpec lists the feature files for one region.
type RegionSpec struct {
	Name  string   `yaml:"name"`
	Files []string `yaml:"files"`
	// Required regions abort the load when a file is missing. Optional
	// regions are skipped with a warning.
	Required bool `yaml:"required"`
}

// Manifest is the region-to-feature-file mapping.
type Manifest struct {
	// BaseDir resolves relative file paths. LoadManifest sets it to the
	// manifest's own directory.
	BaseDir string       `yaml:"base_dir"`
	Regions []RegionSpec `yaml:"regions"`
}

// DefaultRegions maps the supported regions to their waterbody collections.
var DefaultRegions = map[string]string{
	"Tripura":        "DWA Waterbodies Ph2 for Tripura.geojson",
	"Madhya Pradesh": "DWA Waterbodies Ph1 for Madhya Pradesh.geojson",
	"Odisha":         "DWA Waterbodies Ph1 for Odisha.geojson",
	"Telangana":      "DWA Waterbodies Ph2 for Telangana.geojson",
}

// DefaultManifest returns a manifest over DefaultRegions in dir. All
// regions are optional.
func DefaultManifest(dir string) *Manifest {
	m := &Manifest{BaseDir: dir}
	for name, file := range DefaultRegions {
		m.Regions = append(m.Regions, RegionSpec{Name: name, Files: []string{file}})
	}
	m.sort()
	return m
}

// LoadManifest reads a YAML manifest from path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: read manifest %s", path)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "geo: parse manifest %s", path)
	}

	dir := filepath.Dir(path)
	switch {
	case m.BaseDir == "":
		m.BaseDir = dir
	case !filepath.IsAbs(m.BaseDir):
		m.BaseDir = filepath.Join(dir, m.BaseDir)
	}

	if err := m.Validate(); err != nil {
		return nil, eris.Wrapf(err, "geo: manifest %s", path)
	}
	m.sort()
	return &m, nil
}

// Validate checks for empty and duplicate region names and regions
// without files.
func (m *Manifest) Validate() error {
	if len(m.Regions) == 0 {
		return eris.New("no regions defined")
	}

	var errs []string
	seen := make(map[string]bool, len(m.Regions))
	for i, r := range m.Regions {
		name := strings.TrimSpace(r.Name)
		switch {
		case name == "":
			errs = append(errs, fmt.Sprintf("regions[%d]: name is required", i))
			continue
		case seen[name]:
			errs = append(errs, "duplicate region "+name)
		}
		seen[name] = true
		if len(r.Files) == 0 {
			errs = append(errs, "region "+name+": no files")
		}
		m.Regions[i].Name = name
	}
	if len(errs) > 0 {
		return eris.Errorf("invalid manifest: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Resolve returns file as an absolute-or-BaseDir-relative path.
func (m *Manifest) Resolve(file string) string {
	if filepath.IsAbs(file) || m.BaseDir == "" {
		return file
	}
	return filepath.Join(m.BaseDir, file)
}

func (m *Manifest) sort() {
	slices.SortFunc(m.Regions, func(a, b RegionSpec) int {
		return strings.Compare(a.Name, b.Name)
	})
}
