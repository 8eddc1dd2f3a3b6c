package domain

import (
	"errors"
	"fmt"
)

// ErrNoSamples is returned when a threshold is requested from an empty zonal
// result (zero valid samples in the region).
var ErrNoSamples = errors.New("threshold: zonal result has no samples")

// ThresholdFromResult extracts the scalar hotspot threshold from a zonal
// percentile reduction of the named band. It first looks for the synthesized
// key "<band>_p<pct>"; when the producing reducer did not echo that exact
// name it falls back to the first entry in the result.
//
// The fallback is a compatibility shim kept from the original methodology:
// it silently assumes the first entry is the requested percentile, which is
// fragile when the result carries several values. fallback is true when the
// shim was taken so callers can log and count it.
func ThresholdFromResult(zr ZonalResult, band string, pct int) (value float64, fallback bool, err error) {
	if pct < 0 || pct > 100 {
		return 0, false, fmt.Errorf("threshold: percentile %d out of range", pct)
	}
	if zr.Empty() {
		return 0, false, ErrNoSamples
	}
	if v, ok := zr.Get(fmt.Sprintf("%s_p%d", band, pct)); ok {
		return v, false, nil
	}
	_, v, _ := zr.First()
	return v, true, nil
}

// HotspotMask derives the raw hotspot mask: set where the band is valid and
// the value meets the threshold. Ties (exact equality) are included.
func HotspotMask(r *Raster, band string, threshold float64) (*Mask, error) {
	src, ok := r.Band(band)
	if !ok {
		return nil, fmt.Errorf("hotspot mask: unknown band %q", band)
	}
	m := NewMask(r.Grid)
	for i := 0; i < src.Len(); i++ {
		if v, valid := src.At(i); valid && v >= threshold {
			m.Set(i)
		}
	}
	return m, nil
}
