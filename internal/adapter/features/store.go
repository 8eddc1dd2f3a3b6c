// Package features resolves analysis regions from a GeoJSON feature
// collection on disk.
package features

import (
	"context"
	"fmt"
	"os"

	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/heat-island-analysis/internal/domain"
)

// Store loads regions from a GeoJSON FeatureCollection whose features carry
// a "name" property and a polygonal geometry in the projected scene CRS.
// It implements pipeline.RegionStore.
type Store struct {
	regions map[string]domain.Region
}

// NewStore parses the GeoJSON file and indexes its features by name.
func NewStore(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read regions file: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse regions file %s: %w", path, err)
	}

	regions := make(map[string]domain.Region, len(fc.Features))
	for i, f := range fc.Features {
		name, ok := f.Properties["name"].(string)
		if !ok || name == "" {
			return nil, fmt.Errorf("regions file %s: feature %d has no name property", path, i)
		}
		if _, dup := regions[name]; dup {
			return nil, fmt.Errorf("regions file %s: duplicate region %q", path, name)
		}
		region, err := domain.NewRegion(name, f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("regions file %s: %w", path, err)
		}
		regions[name] = region
	}
	return &Store{regions: regions}, nil
}

// Region returns the named region.
func (s *Store) Region(_ context.Context, name string) (domain.Region, error) {
	region, ok := s.regions[name]
	if !ok {
		return domain.Region{}, fmt.Errorf("unknown region %q", name)
	}
	return region, nil
}

// Names returns the available region names, for logging and validation.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.regions))
	for name := range s.regions {
		names = append(names, name)
	}
	return names
}
