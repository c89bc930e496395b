package maze_gen

import (
	. "mazerl/grid_world"

	"github.com/zyedidia/generic/mapset"
)

// primStrategy grows a tree from a random lattice cell, pulling in a random
// frontier cell two steps away and opening the wall between.
type primStrategy struct{}

func (primStrategy) Name() string { return "prim" }

type frontier struct {
	cell, via Position
}

func (primStrategy) Carve(g *Grid, rng Rand) {
	seen := mapset.New[Position]()
	var edge []frontier

	add := func(p Position) {
		for _, d := range latticeSteps {
			next := Position{Row: p.Row + d.Row, Col: p.Col + d.Col}
			if !interior(next) || g.At(next) != Wall || seen.Has(next) {
				continue
			}
			seen.Put(next)
			edge = append(edge, frontier{cell: next, via: p})
		}
	}

	root := randomLatticeCell(rng)
	g.Set(root, Path)
	seen.Put(root)
	add(root)

	for len(edge) > 0 {
		i := rng.Intn(len(edge))
		f := edge[i]
		edge[i] = edge[len(edge)-1]
		edge = edge[:len(edge)-1]

		if g.At(f.cell) != Wall {
			continue
		}
		g.Set(between(f.cell, f.via), Path)
		g.Set(f.cell, Path)
		add(f.cell)
	}
}

// divisionStrategy opens the interior and recursively splits it with walls,
// leaving one gap in each.
type divisionStrategy struct{}

func (divisionStrategy) Name() string { return "recursive-division" }

func (divisionStrategy) Carve(g *Grid, rng Rand) {
	for r := minRow; r <= maxRow; r++ {
		for c := minCol; c <= maxCol; c++ {
			g[r][c] = Path
		}
	}
	divide(g, rng, minRow, maxRow+1, minCol, maxCol+1)
}

// divide splits the half-open region [top,bottom) x [left,right). Walls go on
// even rows and columns and gaps on odd ones, so a later wall can never land
// on an earlier wall's gap.
func divide(g *Grid, rng Rand, top, bottom, left, right int) {
	rows := evensBetween(top, bottom-1)
	cols := evensBetween(left, right-1)
	if len(rows) == 0 && len(cols) == 0 {
		return
	}

	height, width := bottom-top, right-left
	horizontal := height > width
	if height == width {
		horizontal = rng.Float64() < 0.5
	}
	switch {
	case len(rows) == 0:
		horizontal = false
	case len(cols) == 0:
		horizontal = true
	}

	if horizontal {
		wall := rows[rng.Intn(len(rows))]
		gap := randomOdd(rng, left, right)
		for c := left; c < right; c++ {
			if c != gap {
				g[wall][c] = Wall
			}
		}
		divide(g, rng, top, wall, left, right)
		divide(g, rng, wall+1, bottom, left, right)
		return
	}

	wall := cols[rng.Intn(len(cols))]
	gap := randomOdd(rng, top, bottom)
	for r := top; r < bottom; r++ {
		if r != gap {
			g[r][wall] = Wall
		}
	}
	divide(g, rng, top, bottom, left, wall)
	divide(g, rng, top, bottom, wall+1, right)
}

// evensBetween lists the even numbers strictly between lo and hi.
func evensBetween(lo, hi int) (evens []int) {
	for n := lo + 1; n < hi; n++ {
		if n%2 == 0 {
			evens = append(evens, n)
		}
	}
	return
}

// randomOdd picks an odd number in [lo,hi). Regions always start on an odd
// index, so there is at least one.
func randomOdd(rng Rand, lo, hi int) int {
	first := lo | 1
	if first >= hi {
		return lo
	}
	return first + 2*rng.Intn((hi-1-first)/2+1)
}

// kruskalStrategy joins lattice cells in random edge order with a union-find,
// occasionally keeping a redundant edge to form a loop.
type kruskalStrategy struct{}

func (kruskalStrategy) Name() string { return "kruskal" }

const kruskalLoopChance = 0.1

type edge struct {
	a, b Position
}

func (kruskalStrategy) Carve(g *Grid, rng Rand) {
	parent := map[Position]Position{}
	var find func(p Position) Position
	find = func(p Position) Position {
		if parent[p] != p {
			parent[p] = find(parent[p])
		}
		return parent[p]
	}

	var edges []edge
	for r := minRow; r <= maxRow; r += 2 {
		for c := minCol; c <= maxCol; c += 2 {
			p := Position{Row: r, Col: c}
			parent[p] = p
			g.Set(p, Path)
			if c+2 <= maxCol {
				edges = append(edges, edge{p, Position{Row: r, Col: c + 2}})
			}
			if r+2 <= maxRow {
				edges = append(edges, edge{p, Position{Row: r + 2, Col: c}})
			}
		}
	}
	shuffle(edges, rng)

	for _, e := range edges {
		ra, rb := find(e.a), find(e.b)
		if ra != rb {
			parent[ra] = rb
			g.Set(between(e.a, e.b), Path)
		} else if rng.Float64() < kruskalLoopChance {
			g.Set(between(e.a, e.b), Path)
		}
	}
}

// backtrackStrategy is the depth-first recursive backtracker.
type backtrackStrategy struct{}

func (backtrackStrategy) Name() string { return "backtracker" }

func (backtrackStrategy) Carve(g *Grid, rng Rand) {
	visited := mapset.New[Position]()
	var visit func(p Position)
	visit = func(p Position) {
		visited.Put(p)
		g.Set(p, Path)
		steps := latticeSteps
		shuffle(steps[:], rng)
		for _, d := range steps {
			next := Position{Row: p.Row + d.Row, Col: p.Col + d.Col}
			if !interior(next) || visited.Has(next) {
				continue
			}
			g.Set(between(p, next), Path)
			visit(next)
		}
	}
	visit(randomLatticeCell(rng))
}

// walkStrategy overlays a handful of direction-persistent random walks that
// sometimes step back on themselves.
type walkStrategy struct{}

func (walkStrategy) Name() string { return "random-walks" }

const (
	walkPersistence = 0.6
	walkBacktrack   = 0.15
)

func (walkStrategy) Carve(g *Grid, rng Rand) {
	walks := rng.Intn(4) + 3
	for w := 0; w < walks; w++ {
		p := randomInterior(rng)
		steps := rng.Intn(60) + 30
		last := Actions[rng.Intn(len(Actions))]
		for s := 0; s < steps; s++ {
			g.Set(p, Path)

			dir := last
			if rng.Float64() >= walkPersistence {
				dir = Actions[rng.Intn(len(Actions))]
				last = dir
			}
			prev := p
			next := p.Move(dir)
			if interior(next) {
				p = next
			}
			if rng.Float64() < walkBacktrack {
				p = prev
			}
		}
	}
}

// latticeStrategy places regularly spaced nodes and randomly links each to its
// right and lower neighbours, with the odd diagonal shortcut.
type latticeStrategy struct{}

func (latticeStrategy) Name() string { return "lattice" }

const latticeDiagonal = 0.2

func (latticeStrategy) Carve(g *Grid, rng Rand) {
	spacing := 2 + rng.Intn(2)
	link := rng.Float64()*0.4 + 0.3
	for r := minRow; r <= maxRow; r += spacing {
		for c := minCol; c <= maxCol; c += spacing {
			g[r][c] = Path
			if c < maxCol && rng.Float64() < link {
				g[r][c+1] = Path
			}
			if r < maxRow && rng.Float64() < link {
				g[r+1][c] = Path
			}
			if r < maxRow && c < maxCol && rng.Float64() < latticeDiagonal {
				g[r+1][c+1] = Path
			}
		}
	}
}

// caveStrategy seeds random noise and smooths it with a few cellular
// automaton passes.
type caveStrategy struct{}

func (caveStrategy) Name() string { return "cave" }

const (
	cavePasses = 3
	caveErode  = 0.3
)

func (caveStrategy) Carve(g *Grid, rng Rand) {
	fill := rng.Float64()*0.2 + 0.4
	for r := minRow; r <= maxRow; r++ {
		for c := minCol; c <= maxCol; c++ {
			if rng.Float64() < fill {
				g[r][c] = Path
			}
		}
	}

	for pass := 0; pass < cavePasses; pass++ {
		prev := *g
		for r := minRow; r <= maxRow; r++ {
			for c := minCol; c <= maxCol; c++ {
				n := prev.PassableNeighbors(Position{Row: r, Col: c})
				switch {
				case n >= 3:
					g[r][c] = Path
				case n == 1 && rng.Float64() < caveErode:
					g[r][c] = Wall
				}
			}
		}
	}
}

// roomStrategy places non-overlapping rectangular rooms and chains them with
// L-shaped corridors between their centres.
type roomStrategy struct{}

func (roomStrategy) Name() string { return "rooms" }

const roomPlacementTries = 20

type room struct {
	top, left, height, width int
}

func (rm room) centre() Position {
	return Position{Row: rm.top + rm.height/2, Col: rm.left + rm.width/2}
}

// overlaps reports whether the rooms touch, counting a one-cell margin so
// rooms never merge into one.
func (rm room) overlaps(other room) bool {
	return rm.top-1 < other.top+other.height &&
		other.top-1 < rm.top+rm.height &&
		rm.left-1 < other.left+other.width &&
		other.left-1 < rm.left+rm.width
}

func (roomStrategy) Carve(g *Grid, rng Rand) {
	want := rng.Intn(5) + 4
	var rooms []room

	for len(rooms) < want {
		placed := false
		for try := 0; try < roomPlacementTries && !placed; try++ {
			rm := room{height: rng.Intn(4) + 3, width: rng.Intn(4) + 3}
			rm.top = rng.Intn(maxRow-rm.height+1) + minRow
			rm.left = rng.Intn(maxCol-rm.width+1) + minCol
			placed = true
			for _, other := range rooms {
				if rm.overlaps(other) {
					placed = false
					break
				}
			}
			if placed {
				rooms = append(rooms, rm)
			}
		}
		if !placed {
			break
		}
	}

	for _, rm := range rooms {
		for r := rm.top; r < rm.top+rm.height; r++ {
			for c := rm.left; c < rm.left+rm.width; c++ {
				g[r][c] = Path
			}
		}
	}
	for i := 1; i < len(rooms); i++ {
		carveElbow(g, rooms[i-1].centre(), rooms[i].centre(), rng.Float64() < 0.5)
	}
}
