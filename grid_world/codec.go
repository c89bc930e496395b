package grid_world

import "fmt"

// Flatten returns the grid row-major as cell codes, the layout the training
// service and the saved-maze documents use.
func (g Grid) Flatten() []int {
	flat := make([]int, 0, Rows*Cols)
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			flat = append(flat, int(g[r][c]))
		}
	}
	return flat
}

// Reshape is the inverse of Flatten. rows and cols must match the grid size
// and every value must be a known cell code.
func Reshape(flat []int, rows, cols int) (g Grid, err error) {
	if rows != Rows || cols != Cols {
		return g, fmt.Errorf("%w: got %dx%d", ErrDimensions, rows, cols)
	}
	if len(flat) != rows*cols {
		return g, fmt.Errorf("%w: got %d cells for %dx%d", ErrDimensions, len(flat), rows, cols)
	}
	for i, v := range flat {
		cell := Cell(v)
		if !cell.valid() {
			return g, fmt.Errorf("%w: %d at index %d", ErrCellValue, v, i)
		}
		g[i/cols][i%cols] = cell
	}
	return g, nil
}

// Matrix returns the grid as nested rows of cell codes.
func (g Grid) Matrix() [][]int {
	m := make([][]int, Rows)
	for r := range m {
		m[r] = make([]int, Cols)
		for c := range m[r] {
			m[r][c] = int(g[r][c])
		}
	}
	return m
}

// FromMatrix is the inverse of Matrix.
func FromMatrix(m [][]int) (Grid, error) {
	if len(m) != Rows {
		return Grid{}, fmt.Errorf("%w: got %d rows", ErrDimensions, len(m))
	}
	flat := make([]int, 0, Rows*Cols)
	for r, row := range m {
		if len(row) != Cols {
			return Grid{}, fmt.Errorf("%w: row %d has %d columns", ErrDimensions, r, len(row))
		}
		flat = append(flat, row...)
	}
	return Reshape(flat, Rows, Cols)
}

// PolicyFromFlat rebuilds a policy from the training service's row-major list
// with one optional action index per cell. nil entries mean no action.
func PolicyFromFlat(flat []*int, rows, cols int) (Policy, error) {
	pol := NewPolicy()
	if rows != Rows || cols != Cols {
		return pol, fmt.Errorf("%w: got %dx%d", ErrDimensions, rows, cols)
	}
	if len(flat) != rows*cols {
		return pol, fmt.Errorf("%w: got %d policy entries for %dx%d", ErrDimensions, len(flat), rows, cols)
	}
	for i, v := range flat {
		if v == nil {
			continue
		}
		a := Action(*v)
		if !a.Valid() {
			return pol, fmt.Errorf("grid_world: unknown action index %d at %d", *v, i)
		}
		pol.Set(Position{Row: i / cols, Col: i % cols}, a)
	}
	return pol, nil
}

// Flat is the inverse of PolicyFromFlat.
func (pol Policy) Flat() []*int {
	flat := make([]*int, Rows*Cols)
	pol.Visit(func(p Position, a Action) {
		v := int(a)
		flat[p.Row*Cols+p.Col] = &v
	})
	return flat
}
