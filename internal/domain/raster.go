package domain

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Grid describes the geometry shared by every band of a raster: a
// rectangular pixel lattice anchored at a projected top-left origin with
// square pixels of PixelSize meters.
type Grid struct {
	Cols, Rows int
	// OriginX, OriginY is the projected coordinate of the top-left corner.
	// Y decreases as row indices grow.
	OriginX, OriginY float64
	PixelSize        float64
}

// NumPixels returns the total pixel count of the grid.
func (g Grid) NumPixels() int { return g.Cols * g.Rows }

// PixelArea returns the area of one pixel in square meters.
func (g Grid) PixelArea() float64 { return g.PixelSize * g.PixelSize }

// Bound returns the grid's extent as an orb bound.
func (g Grid) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{g.OriginX, g.OriginY - float64(g.Rows)*g.PixelSize},
		Max: orb.Point{g.OriginX + float64(g.Cols)*g.PixelSize, g.OriginY},
	}
}

// Center returns the projected coordinate of the center of pixel (col, row).
func (g Grid) Center(col, row int) orb.Point {
	return orb.Point{
		g.OriginX + (float64(col)+0.5)*g.PixelSize,
		g.OriginY - (float64(row)+0.5)*g.PixelSize,
	}
}

// Locate maps a projected point to the pixel containing it. ok is false when
// the point falls outside the grid.
func (g Grid) Locate(p orb.Point) (col, row int, ok bool) {
	col = int((p[0] - g.OriginX) / g.PixelSize)
	row = int((g.OriginY - p[1]) / g.PixelSize)
	if col < 0 || col >= g.Cols || row < 0 || row >= g.Rows {
		return 0, 0, false
	}
	return col, row, true
}

// Equal reports whether two grids describe the same lattice.
func (g Grid) Equal(o Grid) bool { return g == o }

// Band holds one named measurement layer: a float64 sample per pixel plus a
// per-pixel validity flag. Invalid pixels are excluded from every downstream
// reduction and from area computation.
type Band struct {
	Name string

	data  []float64
	valid []bool
}

// NewBand creates a band of the given pixel count with every pixel invalid.
// Pixels become valid when set.
func NewBand(name string, size int) *Band {
	return &Band{
		Name:  name,
		data:  make([]float64, size),
		valid: make([]bool, size),
	}
}

// FilledBand creates a band with every pixel valid and equal to v.
func FilledBand(name string, size int, v float64) *Band {
	b := NewBand(name, size)
	for i := range b.data {
		b.data[i] = v
		b.valid[i] = true
	}
	return b
}

// Len returns the band's pixel count.
func (b *Band) Len() int { return len(b.data) }

// At returns the sample at pixel i and whether it is valid.
func (b *Band) At(i int) (float64, bool) { return b.data[i], b.valid[i] }

// Set stores v at pixel i and marks it valid.
func (b *Band) Set(i int, v float64) {
	b.data[i] = v
	b.valid[i] = true
}

// SetInvalid marks pixel i invalid.
func (b *Band) SetInvalid(i int) { b.valid[i] = false }

// Renamed returns a band with a new identifier sharing the same samples.
// Renaming never alters data; all mutating operations in this package
// allocate fresh slices, so the share is safe.
func (b *Band) Renamed(name string) *Band {
	return &Band{Name: name, data: b.data, valid: b.valid}
}

// Raster is an immutable set of named bands on one grid. Operations that
// change band content return a new Raster; the bands map is copied, the
// untouched bands are shared.
type Raster struct {
	Grid Grid

	bands map[string]*Band
	order []string
}

// NewRaster assembles a raster from bands, which must all match the grid's
// pixel count.
func NewRaster(g Grid, bands ...*Band) (*Raster, error) {
	r := &Raster{Grid: g, bands: make(map[string]*Band, len(bands))}
	for _, b := range bands {
		if b.Len() != g.NumPixels() {
			return nil, fmt.Errorf("band %q has %d pixels, grid has %d", b.Name, b.Len(), g.NumPixels())
		}
		if _, dup := r.bands[b.Name]; dup {
			return nil, fmt.Errorf("duplicate band %q", b.Name)
		}
		r.bands[b.Name] = b
		r.order = append(r.order, b.Name)
	}
	return r, nil
}

// Band returns the named band.
func (r *Raster) Band(name string) (*Band, bool) {
	b, ok := r.bands[name]
	return b, ok
}

// BandNames returns the band identifiers in insertion order.
func (r *Raster) BandNames() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// WithBand returns a raster with b added, replacing any band of the same name.
func (r *Raster) WithBand(b *Band) (*Raster, error) {
	if b.Len() != r.Grid.NumPixels() {
		return nil, fmt.Errorf("band %q has %d pixels, grid has %d", b.Name, b.Len(), r.Grid.NumPixels())
	}
	out := r.shallowCopy()
	if _, exists := out.bands[b.Name]; !exists {
		out.order = append(out.order, b.Name)
	}
	out.bands[b.Name] = b
	return out, nil
}

// RenameBand returns a raster with band oldName available as newName. The
// samples are untouched; only the identifier changes.
func (r *Raster) RenameBand(oldName, newName string) (*Raster, error) {
	b, ok := r.bands[oldName]
	if !ok {
		return nil, fmt.Errorf("unknown band %q", oldName)
	}
	out := r.shallowCopy()
	delete(out.bands, oldName)
	out.bands[newName] = b.Renamed(newName)
	for i, n := range out.order {
		if n == oldName {
			out.order[i] = newName
		}
	}
	return out, nil
}

// UpdateMask intersects every band's validity with the given mask, so masks
// accumulate across successive applications. valid must have one entry per
// grid pixel.
func (r *Raster) UpdateMask(valid []bool) (*Raster, error) {
	if len(valid) != r.Grid.NumPixels() {
		return nil, fmt.Errorf("mask has %d pixels, grid has %d", len(valid), r.Grid.NumPixels())
	}
	out := r.shallowCopy()
	for name, b := range out.bands {
		nb := &Band{Name: b.Name, data: b.data, valid: make([]bool, len(b.valid))}
		for i := range nb.valid {
			nb.valid[i] = b.valid[i] && valid[i]
		}
		out.bands[name] = nb
	}
	return out, nil
}

func (r *Raster) shallowCopy() *Raster {
	out := &Raster{
		Grid:  r.Grid,
		bands: make(map[string]*Band, len(r.bands)),
		order: make([]string, len(r.order)),
	}
	for k, v := range r.bands {
		out.bands[k] = v
	}
	copy(out.order, r.order)
	return out
}

// Mask is a sparse boolean raster band: a pixel is either set or absent.
// Absent pixels carry no value and are excluded from reductions.
type Mask struct {
	Grid Grid

	set []bool
}

// NewMask creates an empty mask on the grid.
func NewMask(g Grid) *Mask {
	return &Mask{Grid: g, set: make([]bool, g.NumPixels())}
}

// Set marks pixel i.
func (m *Mask) Set(i int) { m.set[i] = true }

// At reports whether pixel i is set.
func (m *Mask) At(i int) bool { return m.set[i] }

// Count returns the number of set pixels.
func (m *Mask) Count() int {
	n := 0
	for _, s := range m.set {
		if s {
			n++
		}
	}
	return n
}

// Clone returns an independent copy of the mask.
func (m *Mask) Clone() *Mask {
	out := NewMask(m.Grid)
	copy(out.set, m.set)
	return out
}

// Bools returns the mask as a per-pixel boolean slice, in the shape
// UpdateMask accepts. The slice is a copy.
func (m *Mask) Bools() []bool {
	out := make([]bool, len(m.set))
	copy(out, m.set)
	return out
}
