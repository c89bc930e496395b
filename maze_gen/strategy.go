package maze_gen

import (
	. "mazerl/grid_world"
)

// Rand is the randomness a generator consumes. *math/rand.Rand satisfies it;
// tests inject a seeded one for reproducible mazes.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// Strategy carves passages into an all-wall grid. Implementations keep their
// working state (visited sets, frontiers, union-find tables) local to Carve.
type Strategy interface {
	Name() string
	Carve(g *Grid, rng Rand)
}

// The eight construction strategies, in their canonical order.
var (
	Prim              Strategy = primStrategy{}
	RecursiveDivision Strategy = divisionStrategy{}
	Kruskal           Strategy = kruskalStrategy{}
	Backtracker       Strategy = backtrackStrategy{}
	RandomWalks       Strategy = walkStrategy{}
	Lattice           Strategy = latticeStrategy{}
	Cave              Strategy = caveStrategy{}
	Rooms             Strategy = roomStrategy{}
)

// Strategies returns all construction strategies.
func Strategies() []Strategy {
	return []Strategy{
		Prim,
		RecursiveDivision,
		Kruskal,
		Backtracker,
		RandomWalks,
		Lattice,
		Cave,
		Rooms,
	}
}

// StrategyByName finds a strategy by its Name.
func StrategyByName(name string) (Strategy, bool) {
	for _, s := range Strategies() {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

// Bounds of the carvable interior; the outer ring stays wall.
const (
	minRow = 1
	maxRow = Rows - 2
	minCol = 1
	maxCol = Cols - 2
)

func interior(p Position) bool {
	return p.Row >= minRow && p.Row <= maxRow && p.Col >= minCol && p.Col <= maxCol
}

// Lattice moves: two cells at a time, so the cell in between is the wall to knock out.
var latticeSteps = [...]Position{{Row: -2}, {Row: 2}, {Col: -2}, {Col: 2}}

func between(a, b Position) Position {
	return Position{Row: (a.Row + b.Row) / 2, Col: (a.Col + b.Col) / 2}
}

func shuffle[T any](items []T, rng Rand) {
	for i := len(items) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

// randomLatticeCell returns a random odd-coordinate interior cell.
func randomLatticeCell(rng Rand) Position {
	return Position{
		Row: rng.Intn((maxRow+1)/2)*2 + 1,
		Col: rng.Intn((maxCol+1)/2)*2 + 1,
	}
}

func randomInterior(rng Rand) Position {
	return Position{
		Row: rng.Intn(maxRow) + minRow,
		Col: rng.Intn(maxCol) + minCol,
	}
}

// carveLine opens every cell on the straight segment from a to b, which must
// share a row or a column.
func carveLine(g *Grid, a, b Position) {
	dr, dc := sign(b.Row-a.Row), sign(b.Col-a.Col)
	for p := a; ; p = (Position{Row: p.Row + dr, Col: p.Col + dc}) {
		if g.At(p) == Wall {
			g.Set(p, Path)
		}
		if p == b {
			return
		}
	}
}

// carveElbow joins a and b with an L-shaped corridor, horizontal leg first
// when horizontalFirst is set.
func carveElbow(g *Grid, a, b Position, horizontalFirst bool) {
	if horizontalFirst {
		corner := Position{Row: a.Row, Col: b.Col}
		carveLine(g, a, corner)
		carveLine(g, corner, b)
		return
	}
	corner := Position{Row: b.Row, Col: a.Col}
	carveLine(g, a, corner)
	carveLine(g, corner, b)
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
