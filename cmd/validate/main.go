// Command validate performs integrity checks across an on-disk scene
// catalog and regions file: index parseability, band presence and shape,
// quality-flag plausibility, and region/scene overlap. Run it after
// ingesting new scenes and before pointing the service at the catalog.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -scenes-dir data/scenes \
//	  -regions data/regions.geojson
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/heat-island-analysis/internal/adapter/features"
	"github.com/couchcryptid/heat-island-analysis/internal/adapter/scenes"
	"github.com/couchcryptid/heat-island-analysis/internal/domain"
	"github.com/couchcryptid/heat-island-analysis/internal/pipeline"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	scenesDir := flag.String("scenes-dir", "data/scenes", "scene catalog directory")
	indexName := flag.String("index", "index.json", "index file name inside the catalog directory")
	regionsFile := flag.String("regions", "data/regions.geojson", "regions GeoJSON file")
	flag.Parse()

	phases := []*phase{
		validateIndex(*scenesDir, *indexName),
		validateScenes(*scenesDir, *indexName),
		validateRegions(*regionsFile, *scenesDir, *indexName),
	}

	failed := false
	for _, p := range phases {
		if p.passed() {
			fmt.Printf("PASS  %s\n", p.name)
			continue
		}
		failed = true
		fmt.Printf("FAIL  %s\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("      - %s\n", e)
		}
	}
	if failed {
		os.Exit(1)
	}
}

// rawGrid and rawEntry mirror the index schema loosely, so validation can
// report per-field problems the stricter catalog loader rejects wholesale.
type rawGrid struct {
	Cols      int     `json:"cols"`
	Rows      int     `json:"rows"`
	OriginX   float64 `json:"origin_x"`
	OriginY   float64 `json:"origin_y"`
	PixelSize float64 `json:"pixel_size"`
}

func (g rawGrid) grid() domain.Grid {
	return domain.Grid{Cols: g.Cols, Rows: g.Rows, OriginX: g.OriginX, OriginY: g.OriginY, PixelSize: g.PixelSize}
}

type rawEntry struct {
	ID         string    `json:"id"`
	AcquiredAt time.Time `json:"acquired_at"`
	CloudCover float64   `json:"cloud_cover"`
	Path       string    `json:"path"`
	Format     string    `json:"format"`
	Grid       rawGrid   `json:"grid"`
}

func readRawIndex(dir, indexName string) ([]rawEntry, error) {
	data, err := os.ReadFile(filepath.Join(dir, indexName))
	if err != nil {
		return nil, err
	}
	var entries []rawEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func validateIndex(dir, indexName string) *phase {
	p := &phase{name: "index"}

	entries, err := readRawIndex(dir, indexName)
	if err != nil {
		p.errorf("read index: %v", err)
		return p
	}
	if len(entries) == 0 {
		p.errorf("index is empty")
		return p
	}

	seen := map[string]bool{}
	for i, e := range entries {
		if e.ID == "" {
			p.errorf("entry %d: missing id", i)
			continue
		}
		if seen[e.ID] {
			p.errorf("duplicate scene id %q", e.ID)
		}
		seen[e.ID] = true
		if e.Path == "" {
			p.errorf("%s: missing path", e.ID)
		}
		if e.AcquiredAt.IsZero() {
			p.errorf("%s: missing acquired_at", e.ID)
		}
		if e.CloudCover < 0 || e.CloudCover > 100 {
			p.errorf("%s: cloud_cover %g out of range", e.ID, e.CloudCover)
		}
		if e.Format != scenes.FormatTIFFDir && e.Format != scenes.FormatNetCDF {
			p.errorf("%s: unknown format %q", e.ID, e.Format)
		}
		if e.Grid.Cols <= 0 || e.Grid.Rows <= 0 || e.Grid.PixelSize <= 0 {
			p.errorf("%s: invalid grid %dx%d @ %gm", e.ID, e.Grid.Cols, e.Grid.Rows, e.Grid.PixelSize)
		}
	}
	return p
}

// validateScenes loads every scene through the same catalog path the service
// uses and sanity-checks the band contents.
func validateScenes(dir, indexName string) *phase {
	p := &phase{name: "scenes"}

	entries, err := readRawIndex(dir, indexName)
	if err != nil {
		p.errorf("read index: %v", err)
		return p
	}

	catalog := scenes.NewCatalog(dir, indexName, discardLogger())
	for _, e := range entries {
		// A query matching exactly this entry forces a full load.
		q := pipeline.SceneQuery{
			Start:         e.AcquiredAt,
			End:           e.AcquiredAt.Add(time.Second),
			MaxCloudCover: 100,
			Bound:         e.Grid.grid().Bound(),
		}
		rasters, err := catalog.Scenes(context.Background(), q)
		if err != nil {
			p.errorf("%s: load failed: %v", e.ID, err)
			continue
		}
		if len(rasters) == 0 {
			p.errorf("%s: catalog returned no raster for its own index entry", e.ID)
			continue
		}
		for _, r := range rasters {
			checkBands(p, e.ID, r)
		}
	}
	return p
}

func checkBands(p *phase, id string, r *domain.Raster) {
	qa, ok := r.Band(domain.BandQA)
	if !ok {
		p.errorf("%s: missing band %s", id, domain.BandQA)
		return
	}
	thermal, ok := r.Band(domain.BandThermal)
	if !ok {
		p.errorf("%s: missing band %s", id, domain.BandThermal)
		return
	}

	usable := 0
	for i := 0; i < thermal.Len(); i++ {
		v, valid := thermal.At(i)
		if valid && v > domain.ThermalDNLow && v < domain.ThermalDNHigh {
			usable++
		}
	}
	if usable == 0 {
		p.errorf("%s: no usable thermal pixels (all fill or saturated)", id)
	}

	valid, err := domain.QualityMask(qa, domain.DefaultQAChecks)
	if err != nil {
		p.errorf("%s: quality mask: %v", id, err)
		return
	}
	clearPixels := 0
	for _, ok := range valid {
		if ok {
			clearPixels++
		}
	}
	if clearPixels == 0 {
		p.errorf("%s: every pixel is flagged cloudy or shadowed", id)
	}
}

func validateRegions(regionsFile, dir, indexName string) *phase {
	p := &phase{name: "regions"}

	store, err := features.NewStore(regionsFile)
	if err != nil {
		p.errorf("load regions: %v", err)
		return p
	}
	names := store.Names()
	if len(names) == 0 {
		p.errorf("regions file has no features")
		return p
	}

	entries, err := readRawIndex(dir, indexName)
	if err != nil {
		p.errorf("read index: %v", err)
		return p
	}

	for _, name := range names {
		region, err := store.Region(context.Background(), name)
		if err != nil {
			p.errorf("%s: %v", name, err)
			continue
		}
		if region.AreaM2() <= 0 {
			p.errorf("%s: degenerate geometry (zero area)", name)
			continue
		}

		overlaps := 0
		for _, e := range entries {
			if e.Grid.grid().Bound().Intersects(region.Bound()) {
				overlaps++
			}
		}
		if overlaps == 0 {
			p.errorf("%s: no scene in the catalog overlaps this region", name)
		}
	}
	return p
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
