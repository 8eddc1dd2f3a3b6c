package domain

import "fmt"

// Linear is one affine conversion stage: v → Scale·v + Offset.
type Linear struct {
	Scale, Offset float64
}

// Apply evaluates the stage.
func (l Linear) Apply(v float64) float64 { return l.Scale*v + l.Offset }

// Inverse returns the stage undoing this one. Scale must be nonzero.
func (l Linear) Inverse() Linear {
	return Linear{Scale: 1 / l.Scale, Offset: -l.Offset / l.Scale}
}

// KelvinToCelsius is the final stage of the thermal conversion chain.
var KelvinToCelsius = Linear{Scale: 1, Offset: -273.15}

// ConvertBand applies the stages in sequence to the named band and returns a
// raster with the result added under newName (replacing any existing band of
// that name). Validity is carried through unchanged; no other band is
// touched.
func ConvertBand(r *Raster, band string, stages []Linear, newName string) (*Raster, error) {
	src, ok := r.Band(band)
	if !ok {
		return nil, fmt.Errorf("convert: unknown band %q", band)
	}
	if newName == "" {
		return nil, fmt.Errorf("convert: output band name is empty")
	}

	out := NewBand(newName, src.Len())
	for i := 0; i < src.Len(); i++ {
		v, valid := src.At(i)
		if !valid {
			continue
		}
		for _, s := range stages {
			v = s.Apply(v)
		}
		out.Set(i, v)
	}
	return r.WithBand(out)
}
