package grid_world

import (
	"fmt"
	"strings"
)

// Action is one of the four moves. The values are the training service's
// action indices.
type Action int

const (
	Up Action = iota
	Down
	Left
	Right
)

// Actions lists every action in the canonical enumeration order. Search and
// neighbor iteration depend on this order for reproducible results.
var Actions = [...]Action{Up, Down, Left, Right}

// Delta returns the row and column displacement of the action.
func (a Action) Delta() (dr, dc int) {
	switch a {
	case Up:
		return -1, 0
	case Down:
		return 1, 0
	case Left:
		return 0, -1
	case Right:
		return 0, 1
	}
	return 0, 0
}

func (a Action) Valid() bool {
	return a >= Up && a <= Right
}

func (a Action) String() string {
	switch a {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Arrow returns a printable arrow for console and html rendering.
func (a Action) Arrow() rune {
	switch a {
	case Up:
		return '↑'
	case Down:
		return '↓'
	case Left:
		return '←'
	case Right:
		return '→'
	}
	return ' '
}

// ParseAction accepts either the action name or its arrow.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "u", "↑":
		return Up, nil
	case "down", "d", "↓":
		return Down, nil
	case "left", "l", "←":
		return Left, nil
	case "right", "r", "→":
		return Right, nil
	}
	return 0, fmt.Errorf("grid_world: unknown action %q", s)
}

// Policy maps positions to the action learned there. A position without an
// entry is a legitimate state meaning nothing was learned for it.
type Policy struct {
	actions map[Position]Action
}

func NewPolicy() Policy {
	return Policy{actions: map[Position]Action{}}
}

// Set records the action for p. Invalid actions are ignored.
func (pol *Policy) Set(p Position, a Action) {
	if !a.Valid() {
		return
	}
	if pol.actions == nil {
		pol.actions = map[Position]Action{}
	}
	pol.actions[p] = a
}

// Lookup returns the action for p, if one was learned.
func (pol Policy) Lookup(p Position) (Action, bool) {
	a, ok := pol.actions[p]
	return a, ok
}

// Len returns the number of positions with an action.
func (pol Policy) Len() int {
	return len(pol.actions)
}

// Visit calls fn for each position with an action, in row-major order.
func (pol Policy) Visit(fn func(p Position, a Action)) {
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			p := Position{Row: r, Col: c}
			if a, ok := pol.actions[p]; ok {
				fn(p, a)
			}
		}
	}
}

// Coverage returns the fraction of passable cells of g that have an action.
func (pol Policy) Coverage(g *Grid) float64 {
	passable, covered := 0, 0
	g.Visit(func(p Position, c Cell) {
		if !c.Passable() {
			return
		}
		passable++
		if _, ok := pol.actions[p]; ok {
			covered++
		}
	})
	if passable == 0 {
		return 0
	}
	return float64(covered) / float64(passable)
}

// ParsePolicy reads a policy from text rows of arrows or U/D/L/R letters,
// one rune per cell; any other rune means no action. Handy for fixtures.
func ParsePolicy(rows []string) (Policy, error) {
	pol := NewPolicy()
	if len(rows) > Rows {
		return pol, fmt.Errorf("%w: got %d rows", ErrDimensions, len(rows))
	}
	for r, row := range rows {
		runes := []rune(row)
		if len(runes) > Cols {
			return pol, fmt.Errorf("%w: row %d has %d columns", ErrDimensions, r, len(runes))
		}
		for c, ch := range runes {
			if a, err := ParseAction(string(ch)); err == nil {
				pol.Set(Position{Row: r, Col: c}, a)
			}
		}
	}
	return pol, nil
}
