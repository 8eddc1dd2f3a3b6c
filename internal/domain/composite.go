package domain

import (
	"fmt"
	"sort"
)

// Collection is an ordered sequence of scenes sharing a grid and a nominal
// band schema. Order does not affect composite results but is kept stable
// for reproducibility.
type Collection struct {
	Scenes []*Raster
}

// Len returns the number of scenes.
func (c Collection) Len() int { return len(c.Scenes) }

// Percentile returns the p-th percentile of sorted (ascending) values using
// linear interpolation between closest ranks: rank = p/100·(n−1). p is
// clamped to [0, 100]. The slice must be non-empty.
func Percentile(sorted []float64, p float64) float64 {
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(rank)
	frac := rank - float64(lo)
	if lo+1 >= len(sorted) {
		return sorted[lo]
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// CompositePercentile reduces a collection to one raster whose pixels are
// the requested percentile of that pixel's valid observations across all
// scenes. Each pixel position is computed independently over its own
// valid-value set; a pixel with zero valid observations is invalid in the
// output, never zero. The output band is named "<band>_p<pct>" so callers
// can rename it to a stable alias before further processing.
func CompositePercentile(c Collection, band string, pct int) (*Raster, error) {
	if c.Len() == 0 {
		return nil, fmt.Errorf("composite: empty collection")
	}
	if pct < 0 || pct > 100 {
		return nil, fmt.Errorf("composite: percentile %d out of range", pct)
	}

	grid := c.Scenes[0].Grid
	srcs := make([]*Band, c.Len())
	for i, s := range c.Scenes {
		if !s.Grid.Equal(grid) {
			return nil, fmt.Errorf("composite: scene %d grid differs from scene 0", i)
		}
		b, ok := s.Band(band)
		if !ok {
			return nil, fmt.Errorf("composite: scene %d is missing band %q", i, band)
		}
		srcs[i] = b
	}

	out := NewBand(fmt.Sprintf("%s_p%d", band, pct), grid.NumPixels())
	vals := make([]float64, 0, c.Len())
	for i := 0; i < grid.NumPixels(); i++ {
		vals = vals[:0]
		for _, b := range srcs {
			if v, ok := b.At(i); ok {
				vals = append(vals, v)
			}
		}
		if len(vals) == 0 {
			continue
		}
		sort.Float64s(vals)
		out.Set(i, Percentile(vals, float64(pct)))
	}
	return NewRaster(grid, out)
}
