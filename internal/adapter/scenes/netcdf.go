package scenes

import (
	"fmt"

	"github.com/batchatco/go-native-netcdf/netcdf"

	"github.com/couchcryptid/heat-island-analysis/internal/domain"
)

// loadNetCDF reads a scene stored as a single NetCDF file with one 2D
// variable per band, dimensioned (y, x) in row-major top-down order.
func loadNetCDF(path string, g domain.Grid) (*domain.Raster, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open netcdf: %w", err)
	}
	defer nc.Close()

	bands := make([]*domain.Band, 0, len(sceneBands))
	for _, name := range sceneBands {
		vr, err := nc.GetVariable(name)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", name, err)
		}
		b, err := bandFromValues(name, vr.Values, g)
		if err != nil {
			return nil, err
		}
		bands = append(bands, b)
	}
	return domain.NewRaster(g, bands...)
}

// bandFromValues converts a 2D netcdf value grid to a band. The on-disk
// numeric type varies by producer, so each supported element type gets a
// case.
func bandFromValues(name string, values any, g domain.Grid) (*domain.Band, error) {
	b := domain.NewBand(name, g.NumPixels())

	fill := func(rows int, cols func(row int) int, at func(row, col int) float64) error {
		if rows != g.Rows {
			return fmt.Errorf("variable %s: %d rows, index grid says %d", name, rows, g.Rows)
		}
		for row := 0; row < rows; row++ {
			if cols(row) != g.Cols {
				return fmt.Errorf("variable %s: row %d has %d columns, index grid says %d",
					name, row, cols(row), g.Cols)
			}
			for col := 0; col < g.Cols; col++ {
				b.Set(row*g.Cols+col, at(row, col))
			}
		}
		return nil
	}

	var err error
	switch v := values.(type) {
	case [][]uint16:
		err = fill(len(v), func(r int) int { return len(v[r]) }, func(r, c int) float64 { return float64(v[r][c]) })
	case [][]int16:
		err = fill(len(v), func(r int) int { return len(v[r]) }, func(r, c int) float64 { return float64(v[r][c]) })
	case [][]int32:
		err = fill(len(v), func(r int) int { return len(v[r]) }, func(r, c int) float64 { return float64(v[r][c]) })
	case [][]float32:
		err = fill(len(v), func(r int) int { return len(v[r]) }, func(r, c int) float64 { return float64(v[r][c]) })
	case [][]float64:
		err = fill(len(v), func(r int) int { return len(v[r]) }, func(r, c int) float64 { return v[r][c] })
	default:
		return nil, fmt.Errorf("variable %s: unsupported element type %T", name, values)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}
