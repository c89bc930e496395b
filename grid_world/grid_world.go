package grid_world

import (
	"errors"
	"fmt"
	"strings"
)

// Cell is the content of a single maze square. The integer values are the wire
// encoding shared with the training service, so they must not be reordered.
type Cell int

const (
	Wall Cell = iota
	Path
	Start
	Goal
)

const (
	// Maze dimensions. Every grid handled by this module is exactly this size.
	Rows = 16
	Cols = 17

	// MaxSteps bounds the number of moves a policy may make during one simulation.
	MaxSteps = 200
)

// Fixed corners where generated mazes place their start and goal.
var (
	StartCorner = Position{Row: 0, Col: 1}
	GoalCorner  = Position{Row: Rows - 1, Col: Cols - 2}
)

func (c Cell) String() string {
	switch c {
	case Wall:
		return "wall"
	case Path:
		return "path"
	case Start:
		return "start"
	case Goal:
		return "goal"
	}
	return fmt.Sprintf("cell(%d)", int(c))
}

// Passable reports whether an agent may stand on the cell.
func (c Cell) Passable() bool {
	return c != Wall
}

func (c Cell) valid() bool {
	return c >= Wall && c <= Goal
}

// Position is a 0-indexed (row, col) pair.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

// Move returns the position one step away in the direction of the action.
// The result is not bounds checked.
func (p Position) Move(a Action) Position {
	dr, dc := a.Delta()
	return Position{Row: p.Row + dr, Col: p.Col + dc}
}

// Grid is the maze. It is a value type: assigning or passing a Grid copies
// every cell, so a grid handed to the search or the simulator cannot be
// mutated behind their backs.
type Grid [Rows][Cols]Cell

// Neighbor is an orthogonally adjacent, in-bounds position.
type Neighbor struct {
	Position
	Passable bool
}

// InBounds reports whether p lies inside the grid.
func InBounds(p Position) bool {
	return p.Row >= 0 && p.Row < Rows && p.Col >= 0 && p.Col < Cols
}

// At returns the cell at p. Out-of-bounds positions read as Wall.
func (g *Grid) At(p Position) Cell {
	if !InBounds(p) {
		return Wall
	}
	return g[p.Row][p.Col]
}

// Set writes the cell at p; out-of-bounds writes are ignored.
func (g *Grid) Set(p Position, c Cell) {
	if InBounds(p) {
		g[p.Row][p.Col] = c
	}
}

func (g *Grid) Passable(p Position) bool {
	return g.At(p).Passable()
}

// Start returns the first Start cell in row-major order.
func (g *Grid) Start() (Position, bool) {
	return g.find(Start)
}

// Goal returns the first Goal cell in row-major order.
func (g *Grid) Goal() (Position, bool) {
	return g.find(Goal)
}

// find is a linear scan where the first occurrence wins. Grids that break the
// single start/goal invariant still get a deterministic answer.
func (g *Grid) find(c Cell) (Position, bool) {
	for r := 0; r < Rows; r++ {
		for col := 0; col < Cols; col++ {
			if g[r][col] == c {
				return Position{Row: r, Col: col}, true
			}
		}
	}
	return Position{}, false
}

// Neighbors returns the in-bounds orthogonal neighbors of p in the fixed order
// Up, Down, Left, Right.
func (g *Grid) Neighbors(p Position) []Neighbor {
	neighbors := make([]Neighbor, 0, len(Actions))
	for _, a := range Actions {
		next := p.Move(a)
		if !InBounds(next) {
			continue
		}
		neighbors = append(neighbors, Neighbor{
			Position: next,
			Passable: g.Passable(next),
		})
	}
	return neighbors
}

// PassableNeighbors counts the passable orthogonal neighbors of p.
func (g *Grid) PassableNeighbors(p Position) (n int) {
	for _, nb := range g.Neighbors(p) {
		if nb.Passable {
			n++
		}
	}
	return
}

// Count returns the number of cells of the given kind.
func (g *Grid) Count(c Cell) (n int) {
	g.Visit(func(_ Position, cell Cell) {
		if cell == c {
			n++
		}
	})
	return
}

// Visit calls fn for every cell in row-major order.
func (g *Grid) Visit(fn func(p Position, c Cell)) {
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			fn(Position{Row: r, Col: c}, g[r][c])
		}
	}
}

// Fill sets every cell to c.
func (g *Grid) Fill(c Cell) {
	for r := 0; r < Rows; r++ {
		for col := 0; col < Cols; col++ {
			g[r][col] = c
		}
	}
}

var (
	ErrNoStart       = errors.New("grid_world: maze has no start cell")
	ErrNoGoal        = errors.New("grid_world: maze has no goal cell")
	ErrMultipleStart = errors.New("grid_world: maze has more than one start cell")
	ErrMultipleGoal  = errors.New("grid_world: maze has more than one goal cell")
	ErrDimensions    = errors.New("grid_world: maze dimensions must be 16x17")
	ErrCellValue     = errors.New("grid_world: unknown cell value")
)

// Validate checks the exactly-one start and goal invariant.
func (g *Grid) Validate() error {
	switch n := g.Count(Start); {
	case n == 0:
		return ErrNoStart
	case n > 1:
		return ErrMultipleStart
	}
	switch n := g.Count(Goal); {
	case n == 0:
		return ErrNoGoal
	case n > 1:
		return ErrMultipleGoal
	}
	return nil
}

// Text encoding used by fixtures and the console. One rune per cell.
const (
	WallRune  = '#'
	PathRune  = '.'
	StartRune = 'S'
	GoalRune  = 'G'
)

func (c Cell) Rune() rune {
	switch c {
	case Path:
		return PathRune
	case Start:
		return StartRune
	case Goal:
		return GoalRune
	}
	return WallRune
}

// ParseGrid converts text rows into a grid. Rows must be exactly Rows long and
// each row exactly Cols runes of '#', '.', 'S' or 'G'.
func ParseGrid(rows []string) (g Grid, err error) {
	if len(rows) != Rows {
		return g, fmt.Errorf("%w: got %d rows", ErrDimensions, len(rows))
	}
	for r, row := range rows {
		runes := []rune(row)
		if len(runes) != Cols {
			return g, fmt.Errorf("%w: row %d has %d columns", ErrDimensions, r, len(runes))
		}
		for c, ch := range runes {
			switch ch {
			case WallRune:
				g[r][c] = Wall
			case PathRune:
				g[r][c] = Path
			case StartRune:
				g[r][c] = Start
			case GoalRune:
				g[r][c] = Goal
			default:
				return g, fmt.Errorf("%w: %q at (%d,%d)", ErrCellValue, ch, r, c)
			}
		}
	}
	return g, nil
}

// MustParseGrid is ParseGrid for fixtures known to be valid.
func MustParseGrid(rows []string) Grid {
	g, err := ParseGrid(rows)
	if err != nil {
		panic(err)
	}
	return g
}

func (g Grid) String() string {
	var sb strings.Builder
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			sb.WriteRune(g[r][c].Rune())
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// DefaultMaze is the hand-drawn medium maze shown before anything is generated.
var DefaultMaze = []string{
	"#S###############",
	"#....#....#.....#",
	"###.###.#.#.###.#",
	"#.#.....#.#.#.###",
	"#...#.###...#...#",
	"#.###...#####.#.#",
	"#.#.#.###.....#.#",
	"#.#.#.#...#####.#",
	"#...#.###.#.....#",
	"#####...#.#.###.#",
	"#.#.###.#.#...#.#",
	"#.#...#.#.###.###",
	"#.#.#...#.#.....#",
	"#.#.#####.#.#####",
	"#.........#.....#",
	"###############G#",
}

// Default returns a copy of DefaultMaze.
func Default() Grid {
	return MustParseGrid(DefaultMaze)
}

// Empty returns a walled border around an open interior, with the start and
// goal stamped on the border at their usual corners.
func Empty() (g Grid) {
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			if r == 0 || r == Rows-1 || c == 0 || c == Cols-1 {
				g[r][c] = Wall
			} else {
				g[r][c] = Path
			}
		}
	}
	g.Set(StartCorner, Start)
	g.Set(GoalCorner, Goal)
	return
}
