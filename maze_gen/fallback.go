package maze_gen

import (
	. "mazerl/grid_world"
)

// pattern draws a route from the start corner to the goal corner. Every
// pattern leaves the two corners connected before corridors are added.
type pattern struct {
	name  string
	carve func(g *Grid, rng Rand)
}

var patterns = [...]pattern{
	{"fallback-l", carveLShape},
	{"fallback-snake", carveSnake},
	{"fallback-staircase", carveStaircase},
	{"fallback-spiral", carveSpiral},
	{"fallback-branches", carveBranches},
}

// fallback builds a guaranteed-solvable maze from a fixed pattern, thinned
// or padded with corridors according to the target tier.
func (gen *Generator) fallback(target Tier) Result {
	pat := patterns[gen.rng.Intn(len(patterns))]

	var g Grid
	g.Fill(Wall)
	pat.carve(&g, gen.rng)
	addCorridors(&g, gen.rng, target)
	g.Set(StartCorner, Start)
	g.Set(GoalCorner, Goal)

	length, ok := ShortestPathLength(g)
	if !ok {
		// Only corridors are added after the pattern, so this means the
		// pattern itself is broken. Lay the L route over it.
		gen.logger.Printf("%s left the goal unreachable, laying an L route", pat.name)
		carveLShape(&g, gen.rng)
		g.Set(StartCorner, Start)
		g.Set(GoalCorner, Goal)
		length, _ = ShortestPathLength(g)
	}

	tier := Classify(length)
	return Result{
		Grid:       g,
		Tier:       tier,
		PathLength: length,
		Exact:      tier == target,
		Fallback:   true,
		Strategy:   pat.name,
	}
}

// carveLShape runs down column 1 from the start then along the bottom row
// of the interior to the goal.
func carveLShape(g *Grid, _ Rand) {
	corner := Position{Row: GoalCorner.Row, Col: StartCorner.Col}
	carveLine(g, StartCorner, corner)
	carveLine(g, corner, GoalCorner)
}

// carveSnake descends from the start, swinging sideways every third row.
func carveSnake(g *Grid, rng Rand) {
	col := StartCorner.Col
	for r := 0; r < Rows; r++ {
		g[r][col] = Path
		if r < Rows-1 && r%3 == 2 {
			dir := 1
			if col >= Cols/2 {
				dir = -1
			}
			next := clamp(col+dir*(rng.Intn(6)+3), minCol, maxCol)
			carveLine(g, Position{Row: r, Col: col}, Position{Row: r, Col: next})
			col = next
		}
	}
	carveLine(g, Position{Row: GoalCorner.Row, Col: col}, GoalCorner)
}

// carveStaircase steps diagonally toward the goal, opening both cells of
// each step so consecutive cells share an edge.
func carveStaircase(g *Grid, _ Rand) {
	for step := 0; step < Rows; step++ {
		r := step
		c := clamp(step, minCol, maxCol)
		g[r][c] = Path
		if r > 0 {
			g[r-1][c] = Path
		}
		if c > minCol {
			g[r][c-1] = Path
		}
	}
}

// carveSpiral winds inward from the top-left of the interior, two cells
// between laps. The first lap passes next to both corners.
func carveSpiral(g *Grid, _ Rand) {
	top, bottom, left, right := minRow, maxRow, minCol, maxCol
	for lap := 0; top <= bottom && left <= right; lap++ {
		if lap > 0 {
			// Link the end of the previous lap to this one.
			g[top][left-1] = Path
		}
		carveLine(g, Position{Row: top, Col: left}, Position{Row: top, Col: right})
		carveLine(g, Position{Row: top, Col: right}, Position{Row: bottom, Col: right})
		if bottom > top {
			carveLine(g, Position{Row: bottom, Col: right}, Position{Row: bottom, Col: left})
		}
		if left < right && bottom-top >= 2 {
			carveLine(g, Position{Row: bottom, Col: left}, Position{Row: top + 2, Col: left})
		}
		top, bottom, left, right = top+2, bottom-2, left+2, right-2
	}
	carveLine(g, StartCorner, Position{Row: minRow, Col: StartCorner.Col})
	carveLine(g, Position{Row: maxRow, Col: GoalCorner.Col}, GoalCorner)
}

// carveBranches lays a wandering backbone biased toward the goal, then grows
// a few random dead-end branches off it.
func carveBranches(g *Grid, rng Rand) {
	target := Position{Row: maxRow, Col: GoalCorner.Col}
	p := Position{Row: minRow, Col: StartCorner.Col}
	backbone := []Position{StartCorner, p}
	g.Set(StartCorner, Path)
	g.Set(p, Path)

	for p != target {
		var dir Action
		switch {
		case rng.Float64() < 0.7:
			dir = Down
			if target.Row == p.Row || (target.Col != p.Col && rng.Float64() < 0.5) {
				dir = Right
			}
		default:
			dir = Actions[rng.Intn(len(Actions))]
		}
		next := p.Move(dir)
		if !interior(next) {
			continue
		}
		p = next
		g.Set(p, Path)
		backbone = append(backbone, p)
	}
	g.Set(GoalCorner, Path)

	branches := rng.Intn(3) + 2
	for b := 0; b < branches; b++ {
		p := backbone[rng.Intn(len(backbone)-1)+1]
		steps := rng.Intn(25) + 15
		for s := 0; s < steps; s++ {
			next := p.Move(Actions[rng.Intn(len(Actions))])
			if interior(next) {
				p = next
				g.Set(p, Path)
			}
		}
	}
}

// addCorridors opens extra passage at a density drawn per maze. Only walls
// become paths here, so connectivity is never lost.
func addCorridors(g *Grid, rng Rand, target Tier) {
	density := rng.Float64()*0.3 + 0.85

	switch target {
	case Easy:
		corridors(g, rng, rng.Intn(4)+6, 5, 8, 0.7*density)
	case Medium:
		corridors(g, rng, rng.Intn(3)+3, 3, 6, 0.5*density)
	default:
		spots := rng.Intn(3) + 2
		for i := 0; i < spots; i++ {
			p := randomInterior(rng)
			if g.At(p) == Wall && g.PassableNeighbors(p) == 1 && rng.Float64() < 0.25*density {
				g.Set(p, Path)
			}
		}
	}
}

// corridors opens n straight runs of minLen to minLen+spread-1 cells, each
// cell with probability p.
func corridors(g *Grid, rng Rand, n, minLen, spread int, p float64) {
	for i := 0; i < n; i++ {
		length := rng.Intn(spread) + minLen
		from, step := Position{}, Position{}
		if rng.Float64() < 0.5 {
			from = Position{Row: rng.Intn(maxRow) + minRow, Col: rng.Intn(maxCol-length+1) + minCol}
			step = Position{Col: 1}
		} else {
			from = Position{Row: rng.Intn(maxRow-length+1) + minRow, Col: rng.Intn(maxCol) + minCol}
			step = Position{Row: 1}
		}
		for k := 0; k < length; k++ {
			pos := Position{Row: from.Row + k*step.Row, Col: from.Col + k*step.Col}
			if interior(pos) && rng.Float64() < p {
				g.Set(pos, Path)
			}
		}
	}
}
