package domain

// FilterComponents removes connected groups of set pixels smaller than
// minSize. Connectivity is 8-neighbor: diagonal contact joins a component.
// Pixels of surviving components stay set; all others are absent in the
// output, so the result is a sparse mask rather than a dense boolean raster.
//
// maxSizeHint bounds the flood-fill frontier preallocation for typical
// inputs; labeling stays exact for components of any size, the hint is a
// performance knob only.
func FilterComponents(m *Mask, minSize, maxSizeHint int) *Mask {
	if minSize <= 1 {
		return m.Clone()
	}

	cols, rows := m.Grid.Cols, m.Grid.Rows
	visited := make([]bool, len(m.set))
	out := NewMask(m.Grid)

	hint := maxSizeHint
	if hint <= 0 || hint > len(m.set) {
		hint = len(m.set)
	}
	frontier := make([]int, 0, hint)
	component := make([]int, 0, hint)

	for start := range m.set {
		if !m.set[start] || visited[start] {
			continue
		}

		frontier = frontier[:0]
		component = component[:0]
		frontier = append(frontier, start)
		visited[start] = true

		for len(frontier) > 0 {
			i := frontier[len(frontier)-1]
			frontier = frontier[:len(frontier)-1]
			component = append(component, i)

			col, row := i%cols, i/cols
			for dr := -1; dr <= 1; dr++ {
				for dc := -1; dc <= 1; dc++ {
					if dr == 0 && dc == 0 {
						continue
					}
					nc, nr := col+dc, row+dr
					if nc < 0 || nc >= cols || nr < 0 || nr >= rows {
						continue
					}
					n := nr*cols + nc
					if m.set[n] && !visited[n] {
						visited[n] = true
						frontier = append(frontier, n)
					}
				}
			}
		}

		if len(component) >= minSize {
			for _, i := range component {
				out.Set(i)
			}
		}
	}
	return out
}
