package grid_world

import (
	"github.com/zyedidia/generic/mapset"
	"github.com/zyedidia/generic/queue"
)

// queueItem pairs a position with its BFS depth.
type queueItem struct {
	pos   Position
	depth int
}

// walker holds the mutable state of one breadth-first search.
type walker struct {
	grid    *Grid
	queue   *queue.Queue[queueItem]
	visited mapset.Set[Position]
	parent  map[Position]Position
}

func newWalker(g *Grid) *walker {
	return &walker{
		grid:    g,
		queue:   queue.New[queueItem](),
		visited: mapset.New[Position](),
		parent:  map[Position]Position{},
	}
}

func (w *walker) enqueue(p Position, depth int) {
	w.visited.Put(p)
	w.queue.Enqueue(queueItem{pos: p, depth: depth})
}

// search runs BFS from start, returning the depth at which goal is dequeued.
func (w *walker) search(start, goal Position) (int, bool) {
	w.enqueue(start, 0)
	for !w.queue.Empty() {
		item := w.queue.Dequeue()
		if item.pos == goal {
			return item.depth, true
		}
		for _, nb := range w.grid.Neighbors(item.pos) {
			if !nb.Passable || w.visited.Has(nb.Position) {
				continue
			}
			w.parent[nb.Position] = item.pos
			w.enqueue(nb.Position, item.depth+1)
		}
	}
	return 0, false
}

// ShortestPathLength returns the number of moves on a shortest route from
// the start to the goal, treating walls as impassable. ok is false when the
// goal cannot be reached or either endpoint is missing.
// Neighbors expand in Up, Down, Left, Right order so the result is exact and
// reproducible. The grid is only read.
func ShortestPathLength(g Grid) (length int, ok bool) {
	start, hasStart := g.Start()
	goal, hasGoal := g.Goal()
	if !hasStart || !hasGoal {
		return 0, false
	}
	return newWalker(&g).search(start, goal)
}

// ShortestPath returns the positions of one shortest route, start and goal
// included.
func ShortestPath(g Grid) ([]Position, bool) {
	start, hasStart := g.Start()
	goal, hasGoal := g.Goal()
	if !hasStart || !hasGoal {
		return nil, false
	}
	w := newWalker(&g)
	length, ok := w.search(start, goal)
	if !ok {
		return nil, false
	}
	route := make([]Position, length+1)
	at := goal
	for i := length; i > 0; i-- {
		route[i] = at
		at = w.parent[at]
	}
	route[0] = start
	return route, true
}

// Reachable returns every passable position connected to from.
func Reachable(g Grid, from Position) mapset.Set[Position] {
	w := newWalker(&g)
	if !g.Passable(from) {
		return w.visited
	}
	w.search(from, Position{Row: -1, Col: -1})
	return w.visited
}
