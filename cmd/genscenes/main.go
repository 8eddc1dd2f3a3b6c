// Command genscenes generates a synthetic scene catalog for local runs and
// test fixtures: per-band GeoTIFFs, the JSON index, and a regions file. It
// uses the actual radiometric constants so the analysis recovers the
// temperatures planted here.
//
// Usage:
//
//	go run ./cmd/genscenes -out data/scenes -regions data/regions.geojson
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/image/tiff"

	"github.com/couchcryptid/heat-island-analysis/internal/domain"
)

const (
	gridCols  = 64
	gridRows  = 64
	pixelSize = 30.0

	// Warm block planted in every scene: an industrial district that runs a
	// few degrees above its surroundings.
	blockMinCol, blockMaxCol = 20, 35
	blockMinRow, blockMaxRow = 24, 39

	coolC = 27.0
	hotC  = 36.0
)

type sceneSpec struct {
	id         string
	acquiredAt time.Time
	cloudCover float64
	// cloudFraction of pixels get the cloud QA bit.
	cloudFraction float64
}

type gridJSON struct {
	Cols      int     `json:"cols"`
	Rows      int     `json:"rows"`
	OriginX   float64 `json:"origin_x"`
	OriginY   float64 `json:"origin_y"`
	PixelSize float64 `json:"pixel_size"`
}

type indexJSON struct {
	ID         string    `json:"id"`
	AcquiredAt time.Time `json:"acquired_at"`
	CloudCover float64   `json:"cloud_cover"`
	Path       string    `json:"path"`
	Format     string    `json:"format"`
	Grid       gridJSON  `json:"grid"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data/scenes", "output directory for the scene catalog")
	regionsOut := flag.String("regions", "data/regions.geojson", "output path for the regions file")
	seed := flag.Int64("seed", 42, "random seed for cloud speckle")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))

	specs := summerSpecs(2023)
	specs = append(specs, summerSpecs(2024)...)

	if err := os.MkdirAll(*out, 0o755); err != nil {
		return err
	}

	entries := make([]indexJSON, 0, len(specs))
	for _, spec := range specs {
		if err := writeScene(*out, spec, rng); err != nil {
			return fmt.Errorf("scene %s: %w", spec.id, err)
		}
		entries = append(entries, indexJSON{
			ID:         spec.id,
			AcquiredAt: spec.acquiredAt,
			CloudCover: spec.cloudCover,
			Path:       spec.id,
			Format:     "tiff-dir",
			Grid: gridJSON{
				Cols: gridCols, Rows: gridRows,
				OriginX: 0, OriginY: float64(gridRows) * pixelSize,
				PixelSize: pixelSize,
			},
		})
		log.Printf("%s: acquired %s, cloud cover %.0f%%", spec.id, spec.acquiredAt.Format(time.DateOnly), spec.cloudCover)
	}

	if err := writeJSON(filepath.Join(*out, "index.json"), entries); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	log.Printf("wrote index with %d scenes: %s", len(entries), filepath.Join(*out, "index.json"))

	if err := writeRegions(*regionsOut); err != nil {
		return fmt.Errorf("writing regions: %w", err)
	}
	log.Printf("wrote regions: %s", *regionsOut)
	return nil
}

// summerSpecs builds one summer of acquisitions: a 16-day revisit cadence
// with varying scene-level cloud cover, including one scene cloudy enough to
// be filtered out at the default threshold.
func summerSpecs(year int) []sceneSpec {
	start := time.Date(year, 6, 5, 10, 30, 0, 0, time.UTC)
	covers := []float64{5, 12, 65, 8, 22, 3}
	specs := make([]sceneSpec, 0, len(covers))
	for i, cover := range covers {
		specs = append(specs, sceneSpec{
			id:            fmt.Sprintf("LC09_%d_%03d", year, i+1),
			acquiredAt:    start.AddDate(0, 0, 16*i),
			cloudCover:    cover,
			cloudFraction: cover / 100,
		})
	}
	return specs
}

func writeScene(dir string, spec sceneSpec, rng *rand.Rand) error {
	sceneDir := filepath.Join(dir, spec.id)
	if err := os.MkdirAll(sceneDir, 0o755); err != nil {
		return err
	}

	qa := image.NewGray16(image.Rect(0, 0, gridCols, gridRows))
	thermal := image.NewGray16(image.Rect(0, 0, gridCols, gridRows))

	for row := 0; row < gridRows; row++ {
		for col := 0; col < gridCols; col++ {
			if rng.Float64() < spec.cloudFraction {
				// Cloudy pixel: QA flags it and the reading is cold junk.
				qa.SetGray16(col, row, color.Gray16{Y: 1 << domain.CloudBit})
				thermal.SetGray16(col, row, color.Gray16{Y: celsiusToDN(5)})
				continue
			}
			qa.SetGray16(col, row, color.Gray16{Y: 0})

			c := coolC
			if col >= blockMinCol && col <= blockMaxCol && row >= blockMinRow && row <= blockMaxRow {
				c = hotC
			}
			// Sub-degree noise so composites actually exercise the median.
			c += rng.Float64() - 0.5
			thermal.SetGray16(col, row, color.Gray16{Y: celsiusToDN(c)})
		}
	}

	if err := writeTIFF(filepath.Join(sceneDir, domain.BandQA+".tif"), qa); err != nil {
		return err
	}
	return writeTIFF(filepath.Join(sceneDir, domain.BandThermal+".tif"), thermal)
}

func celsiusToDN(c float64) uint16 {
	kelvin := domain.KelvinToCelsius.Inverse().Apply(c)
	return uint16(domain.ThermalToKelvin.Inverse().Apply(kelvin))
}

func writeTIFF(path string, img *image.Gray16) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := tiff.Encode(f, img, nil); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

// writeRegions emits two regions: "downtown" covering the warm block plus
// margin, and "outskirts" well away from it.
func writeRegions(path string) error {
	type geometry struct {
		Type        string         `json:"type"`
		Coordinates [][][2]float64 `json:"coordinates"`
	}
	type feature struct {
		Type       string            `json:"type"`
		Properties map[string]string `json:"properties"`
		Geometry   geometry          `json:"geometry"`
	}
	type collection struct {
		Type     string    `json:"type"`
		Features []feature `json:"features"`
	}

	rect := func(minX, minY, maxX, maxY float64) geometry {
		return geometry{
			Type: "Polygon",
			Coordinates: [][][2]float64{{
				{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY},
			}},
		}
	}

	extent := float64(gridCols) * pixelSize
	fc := collection{
		Type: "FeatureCollection",
		Features: []feature{
			{
				Type:       "Feature",
				Properties: map[string]string{"name": "downtown"},
				Geometry:   rect(300, 300, extent-300, extent-300),
			},
			{
				Type:       "Feature",
				Properties: map[string]string{"name": "outskirts"},
				Geometry:   rect(0, 0, 270, 270),
			},
		},
	}
	return writeJSON(path, fc)
}
