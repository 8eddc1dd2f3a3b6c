// Package scenes loads satellite scenes from a directory catalog: a JSON
// index describing each scene plus per-scene raster payloads in GeoTIFF-band
// or NetCDF form.
package scenes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/couchcryptid/heat-island-analysis/internal/domain"
	"github.com/couchcryptid/heat-island-analysis/internal/pipeline"
)

// Scene payload formats understood by the catalog.
const (
	FormatTIFFDir = "tiff-dir"
	FormatNetCDF  = "netcdf"
)

// gridSpec is the index representation of a scene grid. TIFF carries no
// georeferencing, so the index is authoritative for placement.
type gridSpec struct {
	Cols      int     `json:"cols"`
	Rows      int     `json:"rows"`
	OriginX   float64 `json:"origin_x"`
	OriginY   float64 `json:"origin_y"`
	PixelSize float64 `json:"pixel_size"`
}

func (g gridSpec) grid() domain.Grid {
	return domain.Grid{Cols: g.Cols, Rows: g.Rows, OriginX: g.OriginX, OriginY: g.OriginY, PixelSize: g.PixelSize}
}

// indexEntry is one scene in the catalog index.
type indexEntry struct {
	ID         string    `json:"id"`
	AcquiredAt time.Time `json:"acquired_at"`
	// CloudCover is the scene-level cloud percentage from the provider.
	CloudCover float64  `json:"cloud_cover"`
	Path       string   `json:"path"`
	Format     string   `json:"format"`
	Grid       gridSpec `json:"grid"`
}

// Catalog reads scenes from a directory. It implements
// pipeline.SceneCatalog. The index is re-read on every query so newly
// ingested scenes show up without a restart.
type Catalog struct {
	dir       string
	indexName string
	logger    *slog.Logger
}

// NewCatalog creates a Catalog over dir, with the index file named by
// indexName inside it.
func NewCatalog(dir, indexName string, logger *slog.Logger) *Catalog {
	return &Catalog{dir: dir, indexName: indexName, logger: logger}
}

// Scenes returns the rasters matching the query, ordered by acquisition
// time then ID. Filtering happens on index metadata; only matching scenes
// are read from disk.
func (c *Catalog) Scenes(ctx context.Context, q pipeline.SceneQuery) ([]*domain.Raster, error) {
	entries, err := c.readIndex()
	if err != nil {
		return nil, err
	}

	matched := make([]indexEntry, 0, len(entries))
	for _, e := range entries {
		if e.AcquiredAt.Before(q.Start) || !e.AcquiredAt.Before(q.End) {
			continue
		}
		if e.CloudCover > q.MaxCloudCover {
			continue
		}
		if !e.Grid.grid().Bound().Intersects(q.Bound) {
			continue
		}
		matched = append(matched, e)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].AcquiredAt.Equal(matched[j].AcquiredAt) {
			return matched[i].AcquiredAt.Before(matched[j].AcquiredAt)
		}
		return matched[i].ID < matched[j].ID
	})

	rasters := make([]*domain.Raster, 0, len(matched))
	for _, e := range matched {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := c.load(e)
		if err != nil {
			return nil, fmt.Errorf("scene %s: %w", e.ID, err)
		}
		rasters = append(rasters, r)
	}

	c.logger.Debug("scenes selected",
		"total", len(entries),
		"matched", len(matched),
		"window_start", q.Start,
		"window_end", q.End,
		"max_cloud_cover", q.MaxCloudCover)
	return rasters, nil
}

func (c *Catalog) readIndex() ([]indexEntry, error) {
	path := filepath.Join(c.dir, c.indexName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene index: %w", err)
	}
	var entries []indexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse scene index %s: %w", path, err)
	}
	for i, e := range entries {
		if e.ID == "" || e.Path == "" {
			return nil, fmt.Errorf("scene index %s: entry %d missing id or path", path, i)
		}
		if e.Grid.Cols <= 0 || e.Grid.Rows <= 0 || e.Grid.PixelSize <= 0 {
			return nil, fmt.Errorf("scene index %s: entry %s has an invalid grid", path, e.ID)
		}
	}
	return entries, nil
}

func (c *Catalog) load(e indexEntry) (*domain.Raster, error) {
	path := filepath.Join(c.dir, e.Path)
	switch e.Format {
	case FormatTIFFDir:
		return loadTIFFDir(path, e.Grid.grid())
	case FormatNetCDF:
		return loadNetCDF(path, e.Grid.grid())
	default:
		return nil, fmt.Errorf("unknown scene format %q", e.Format)
	}
}
