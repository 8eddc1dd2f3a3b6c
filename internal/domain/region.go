package domain

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Region is an immutable area-of-interest polygon used to spatially restrict
// zonal reductions. The geometry must be in the same projected CRS as the
// scene grids.
type Region struct {
	Name string

	geometry orb.MultiPolygon
}

// NewRegion wraps a polygonal geometry as a Region. Polygon and MultiPolygon
// geometries are accepted.
func NewRegion(name string, geom orb.Geometry) (Region, error) {
	switch g := geom.(type) {
	case orb.Polygon:
		return Region{Name: name, geometry: orb.MultiPolygon{g}}, nil
	case orb.MultiPolygon:
		return Region{Name: name, geometry: g}, nil
	default:
		return Region{}, fmt.Errorf("region %q: unsupported geometry type %s", name, geom.GeoJSONType())
	}
}

// Contains reports whether the projected point lies inside the region.
func (r Region) Contains(p orb.Point) bool {
	return planar.MultiPolygonContains(r.geometry, p)
}

// Bound returns the region's bounding box.
func (r Region) Bound() orb.Bound { return r.geometry.Bound() }

// AreaM2 returns the planar area of the region in square meters.
func (r Region) AreaM2() float64 { return planar.Area(r.geometry) }

// Geometry returns the underlying multipolygon. Callers must treat it as
// read-only.
func (r Region) Geometry() orb.MultiPolygon { return r.geometry }
