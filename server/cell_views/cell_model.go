// cell_views contains views derived from the Cell view-model.
package cell_views

import (
	"fmt"

	"mazerl/grid_world"
	"mazerl/simulation"
)

// Cell is one maze square with everything a view needs to draw it. X is the
// column and Y the row, which is already svg orientation: row 0 is the top.
type Cell struct {
	X, Y int
	Kind grid_world.Cell
	Fill string
	// HasPolicy is set when the policy has an action here; the view draws an
	// up arrow rotated by PolicyArrowRotation degrees.
	HasPolicy           bool
	PolicyArrowRotation int
	Visited             bool
}

// Snapshot is what the page shows at one moment: the maze, the policy being
// run or trained, and the latest frame of an animated run, if any.
type Snapshot struct {
	Grid   grid_world.Grid
	Tier   grid_world.Tier
	Policy grid_world.Policy
	Frame  *simulation.Frame
	// Status is a one-line message such as training progress.
	Status string
}

// Board is the view model of a Snapshot.
type Board struct {
	Cells [][]Cell
	// Agent is nil when no run is shown.
	Agent      *grid_world.Position
	Collision  *grid_world.Position
	Step       int
	Outcome    string
	Diagnostic string
	Tier       string
	Status     string
}

// Convert maps a grid and its policy to rows of view cells.
func Convert(g grid_world.Grid, pol grid_world.Policy) (cells [][]Cell) {
	cells = make([][]Cell, grid_world.Rows)
	for r := range cells {
		cells[r] = make([]Cell, grid_world.Cols)
	}
	g.Visit(func(p grid_world.Position, kind grid_world.Cell) {
		cell := Cell{
			X:    p.Col,
			Y:    p.Row,
			Kind: kind,
			Fill: getFill(kind, false),
		}
		if a, ok := pol.Lookup(p); ok && kind != grid_world.Wall && kind != grid_world.Goal {
			cell.HasPolicy = true
			cell.PolicyArrowRotation = getDegrees(a)
		}
		cells[p.Row][p.Col] = cell
	})
	return
}

// FromSnapshot builds the board, marking the frame's trace as visited.
func FromSnapshot(s Snapshot) Board {
	board := Board{
		Cells:  Convert(s.Grid, s.Policy),
		Tier:   s.Tier.String(),
		Status: s.Status,
	}
	if s.Frame == nil {
		return board
	}

	for _, p := range s.Frame.Trace {
		if grid_world.InBounds(p) {
			cell := &board.Cells[p.Row][p.Col]
			cell.Visited = true
			cell.Fill = getFill(cell.Kind, true)
		}
	}
	pos := s.Frame.Position
	board.Agent = &pos
	board.Collision = s.Frame.Collision
	board.Step = s.Frame.Step
	board.Diagnostic = s.Frame.Diagnostic
	if s.Frame.Outcome.Terminal() {
		board.Outcome = s.Frame.Outcome.String()
	} else {
		board.Outcome = fmt.Sprintf("step %d", s.Frame.Step)
	}
	return board
}

// getDegrees is the svg rotation that turns an up arrow to point along a.
func getDegrees(a grid_world.Action) int {
	switch a {
	case grid_world.Right:
		return 90
	case grid_world.Down:
		return 180
	case grid_world.Left:
		return 270
	}
	return 0
}

func getFill(kind grid_world.Cell, visited bool) (fill string) {
	switch kind {
	case grid_world.Wall:
		fill = "#374151"
	case grid_world.Path:
		fill = "#f9fafb"
		if visited {
			fill = "#fde68a"
		}
	case grid_world.Start:
		fill = "#60a5fa"
	case grid_world.Goal:
		fill = "#34d399"
	}
	return
}
