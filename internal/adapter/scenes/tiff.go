package scenes

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"golang.org/x/image/tiff"

	"github.com/couchcryptid/heat-island-analysis/internal/domain"
)

// sceneBands are the raster layers every scene must provide.
var sceneBands = []string{domain.BandQA, domain.BandThermal}

// loadTIFFDir reads a scene stored as one 16-bit grayscale GeoTIFF per band
// in a directory, named <band>.tif. Every pixel loads as valid; sentinel and
// saturation values are handled downstream by the range mask.
func loadTIFFDir(dir string, g domain.Grid) (*domain.Raster, error) {
	bands := make([]*domain.Band, 0, len(sceneBands))
	for _, name := range sceneBands {
		b, err := loadGray16(filepath.Join(dir, name+".tif"), name, g)
		if err != nil {
			return nil, err
		}
		bands = append(bands, b)
	}
	return domain.NewRaster(g, bands...)
}

func loadGray16(path, bandName string, g domain.Grid) (*domain.Band, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open band %s: %w", bandName, err)
	}
	defer f.Close()

	img, err := tiff.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode band %s: %w", bandName, err)
	}
	gray, ok := img.(*image.Gray16)
	if !ok {
		return nil, fmt.Errorf("band %s: want 16-bit grayscale, got %T", bandName, img)
	}

	size := gray.Bounds().Size()
	if size.X != g.Cols || size.Y != g.Rows {
		return nil, fmt.Errorf("band %s: image is %dx%d, index grid says %dx%d",
			bandName, size.X, size.Y, g.Cols, g.Rows)
	}

	b := domain.NewBand(bandName, g.NumPixels())
	min := gray.Bounds().Min
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			v := gray.Gray16At(min.X+col, min.Y+row).Y
			b.Set(row*g.Cols+col, float64(v))
		}
	}
	return b, nil
}
