package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
)

// Stat names an aggregate the zonal reducer can compute.
type Stat string

const (
	StatMin  Stat = "min"
	StatMax  Stat = "max"
	StatMean Stat = "mean"
	StatSum  Stat = "sum"
)

// DefaultMaxSamples bounds a zonal reduction when the caller does not give a
// budget.
const DefaultMaxSamples = 1_000_000_000

// ErrSampleBudget is returned when a reduction would exceed its sample
// budget and best-effort coarsening is not allowed.
var ErrSampleBudget = errors.New("zonal: sample budget exceeded")

// ReduceSpec configures one zonal reduction.
type ReduceSpec struct {
	Stats       []Stat
	Percentiles []int
	// Scale is the requested ground distance between samples in meters.
	Scale float64
	// MaxSamples caps the number of grid samples; zero means
	// DefaultMaxSamples.
	MaxSamples int
	// BestEffort allows deterministic coarsening of Scale (doubling the
	// step) until the budget is met instead of failing.
	BestEffort bool
}

// ZonalResult maps synthesized statistic keys ("<band>_min", "<band>_p90",
// …) to values, preserving insertion order so the documented first-entry
// fallback is well defined. An empty result means the reduction found zero
// valid samples — absence, not zero.
type ZonalResult struct {
	keys   []string
	values map[string]float64

	// Sampling diagnostics.
	Samples   int
	Scale     float64
	Coarsened bool
}

// Get returns the value for a synthesized key.
func (zr ZonalResult) Get(key string) (float64, bool) {
	v, ok := zr.values[key]
	return v, ok
}

// First returns the first entry in insertion order.
func (zr ZonalResult) First() (string, float64, bool) {
	if len(zr.keys) == 0 {
		return "", 0, false
	}
	return zr.keys[0], zr.values[zr.keys[0]], true
}

// Keys returns the synthesized keys in insertion order.
func (zr ZonalResult) Keys() []string {
	out := make([]string, len(zr.keys))
	copy(out, zr.keys)
	return out
}

// Empty reports whether the reduction produced no statistics.
func (zr ZonalResult) Empty() bool { return len(zr.keys) == 0 }

// Values returns a copy of the key→value mapping, for reports.
func (zr ZonalResult) Values() map[string]float64 {
	if len(zr.values) == 0 {
		return nil
	}
	out := make(map[string]float64, len(zr.values))
	for k, v := range zr.values {
		out[k] = v
	}
	return out
}

func (zr *ZonalResult) put(key string, v float64) {
	if _, dup := zr.values[key]; !dup {
		zr.keys = append(zr.keys, key)
	}
	zr.values[key] = v
}

// ReduceRegion samples the named band on a grid of the requested scale
// clipped to the region, skips invalid pixels, and accumulates the requested
// statistics over the valid samples.
//
// When the region implies more samples than the budget and BestEffort is
// set, the sampling step is doubled (deterministically) until the budget is
// met and the result is still returned; the coarsening is recorded on the
// result. Sum contributions are weighted by the squared coarsening factor so
// area totals stay approximately scale-invariant. Zero valid samples inside
// the region yield an empty result.
func ReduceRegion(r *Raster, band string, region Region, spec ReduceSpec) (ZonalResult, error) {
	src, ok := r.Band(band)
	if !ok {
		return ZonalResult{}, fmt.Errorf("zonal: unknown band %q", band)
	}
	if spec.Scale <= 0 {
		return ZonalResult{}, fmt.Errorf("zonal: scale %g must be positive", spec.Scale)
	}
	if len(spec.Stats) == 0 && len(spec.Percentiles) == 0 {
		return ZonalResult{}, fmt.Errorf("zonal: no statistics requested")
	}
	for _, s := range spec.Stats {
		switch s {
		case StatMin, StatMax, StatMean, StatSum:
		default:
			return ZonalResult{}, fmt.Errorf("zonal: unknown statistic %q", s)
		}
	}
	for _, p := range spec.Percentiles {
		if p < 0 || p > 100 {
			return ZonalResult{}, fmt.Errorf("zonal: percentile %d out of range", p)
		}
	}
	budget := spec.MaxSamples
	if budget <= 0 {
		budget = DefaultMaxSamples
	}

	bound, overlaps := clipBound(region.Bound(), r.Grid.Bound())
	zr := ZonalResult{values: make(map[string]float64), Scale: spec.Scale}
	if !overlaps {
		return zr, nil
	}

	width := bound.Max[0] - bound.Min[0]
	height := bound.Max[1] - bound.Min[1]
	step := spec.Scale
	for estimateSamples(width, height, step) > budget {
		if !spec.BestEffort {
			return ZonalResult{}, fmt.Errorf("%w: %d samples at %gm over budget %d",
				ErrSampleBudget, estimateSamples(width, height, step), step, budget)
		}
		step *= 2
		zr.Coarsened = true
	}
	zr.Scale = step
	weight := (step / spec.Scale) * (step / spec.Scale)

	var (
		count    int
		sum      float64
		plainSum float64
		minV     = math.Inf(1)
		maxV     = math.Inf(-1)
		vals     []float64
	)
	wantPct := len(spec.Percentiles) > 0

	for sy := 0; ; sy++ {
		y := bound.Max[1] - (float64(sy)+0.5)*step
		if y < bound.Min[1] {
			break
		}
		for sx := 0; ; sx++ {
			x := bound.Min[0] + (float64(sx)+0.5)*step
			if x > bound.Max[0] {
				break
			}
			p := orb.Point{x, y}
			if !region.Contains(p) {
				continue
			}
			col, row, inside := r.Grid.Locate(p)
			if !inside {
				continue
			}
			v, valid := src.At(row*r.Grid.Cols + col)
			if !valid {
				continue
			}
			count++
			sum += v * weight
			plainSum += v
			minV = math.Min(minV, v)
			maxV = math.Max(maxV, v)
			if wantPct {
				vals = append(vals, v)
			}
		}
	}

	zr.Samples = count
	if count == 0 {
		return zr, nil
	}

	for _, s := range spec.Stats {
		key := fmt.Sprintf("%s_%s", band, s)
		switch s {
		case StatMin:
			zr.put(key, minV)
		case StatMax:
			zr.put(key, maxV)
		case StatMean:
			zr.put(key, plainSum/float64(count))
		case StatSum:
			zr.put(key, sum)
		}
	}
	if wantPct {
		sort.Float64s(vals)
		for _, p := range spec.Percentiles {
			zr.put(fmt.Sprintf("%s_p%d", band, p), Percentile(vals, float64(p)))
		}
	}
	return zr, nil
}

// PixelAreaRaster builds a single-band raster named "area" whose valid
// pixels carry the grid's pixel area in square meters. With a non-nil mask
// only set pixels are valid, so a sum reduction over a region yields the
// masked area, mirroring pixel-area images in raster calculators.
func PixelAreaRaster(g Grid, m *Mask) (*Raster, error) {
	b := NewBand("area", g.NumPixels())
	area := g.PixelArea()
	for i := 0; i < g.NumPixels(); i++ {
		if m == nil || m.At(i) {
			b.Set(i, area)
		}
	}
	return NewRaster(g, b)
}

func estimateSamples(width, height, step float64) int {
	cols := int(math.Ceil(width / step))
	rows := int(math.Ceil(height / step))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	return cols * rows
}

func clipBound(a, b orb.Bound) (orb.Bound, bool) {
	out := orb.Bound{
		Min: orb.Point{math.Max(a.Min[0], b.Min[0]), math.Max(a.Min[1], b.Min[1])},
		Max: orb.Point{math.Min(a.Max[0], b.Max[0]), math.Min(a.Max[1], b.Max[1])},
	}
	if out.Min[0] > out.Max[0] || out.Min[1] > out.Max[1] {
		return orb.Bound{}, false
	}
	return out, true
}
