package domain

import "fmt"

// BitCheck is one per-bit condition against an integer quality band.
// With MustBeClear true the pixel passes when the bit is 0; with false it
// passes when the bit is 1. A pixel survives a check list only when every
// check passes.
type BitCheck struct {
	Bit         uint
	MustBeClear bool
}

// QualityMask decodes an integer quality band into a validity mask: true
// where all checks pass. Pixels that are already invalid in the quality band
// stay invalid. Apply the result with [Raster.UpdateMask], which intersects
// it with any pre-existing mask.
func QualityMask(qa *Band, checks []BitCheck) ([]bool, error) {
	if len(checks) == 0 {
		return nil, fmt.Errorf("quality mask: no bit checks given")
	}
	valid := make([]bool, qa.Len())
	for i := range valid {
		v, ok := qa.At(i)
		if !ok {
			continue
		}
		bits := uint64(v)
		pass := true
		for _, c := range checks {
			bitClear := bits&(1<<c.Bit) == 0
			if bitClear != c.MustBeClear {
				pass = false
				break
			}
		}
		valid[i] = pass
	}
	return valid, nil
}

// RangeMask builds a validity mask that keeps pixels strictly inside
// (low, high). Both bounds are exclusive so sentinel no-data and saturation
// values sitting exactly on them are rejected. Invalid input pixels stay
// invalid.
func RangeMask(b *Band, low, high float64) ([]bool, error) {
	if low >= high {
		return nil, fmt.Errorf("range mask: low %g must be below high %g", low, high)
	}
	valid := make([]bool, b.Len())
	for i := range valid {
		v, ok := b.At(i)
		valid[i] = ok && v > low && v < high
	}
	return valid, nil
}
