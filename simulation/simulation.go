// simulation replays a learned policy on a maze, one move at a time, and
// explains why a failed run failed.
package simulation

import (
	"fmt"

	. "mazerl/grid_world"
)

// Outcome is the state of a run after a step. Every value except Continue
// ends the run.
type Outcome int

const (
	Continue Outcome = iota
	GoalReached
	NoActionAvailable
	OutOfBounds
	WallCollision
	LoopDetected
	StepLimitExceeded
)

func (o Outcome) String() string {
	switch o {
	case Continue:
		return "continue"
	case GoalReached:
		return "goal-reached"
	case NoActionAvailable:
		return "no-action"
	case OutOfBounds:
		return "out-of-bounds"
	case WallCollision:
		return "wall-collision"
	case LoopDetected:
		return "loop-detected"
	case StepLimitExceeded:
		return "step-limit"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

func (o Outcome) Terminal() bool {
	return o != Continue
}

func (o Outcome) Failed() bool {
	return o != Continue && o != GoalReached
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Trace is the sequence of positions the agent has occupied, starting at the
// start cell. It only ever grows, and never holds the same position twice.
type Trace []Position

func (t Trace) Head() Position {
	return t[len(t)-1]
}

// Moves is the number of moves made so far.
func (t Trace) Moves() int {
	return len(t) - 1
}

func (t Trace) contains(p Position) bool {
	for _, q := range t {
		if q == p {
			return true
		}
	}
	return false
}

// Begin returns the one-element trace at the maze's start, or at the start
// corner when the grid has no start.
func Begin(g Grid) Trace {
	start, ok := g.Start()
	if !ok {
		start = StartCorner
	}
	return Trace{start}
}

// Step advances the agent by one policy move. When the returned outcome is
// Continue the result is a new trace one position longer; otherwise trace is
// returned unchanged. trace itself is never written to. The checks run in a fixed order: goal, step budget,
// policy lookup, bounds, wall, revisit.
func Step(g Grid, pol Policy, trace Trace, maxSteps int) (Trace, Outcome) {
	cur := trace.Head()

	goal, ok := g.Goal()
	if !ok {
		goal = GoalCorner
	}
	if cur == goal {
		return trace, GoalReached
	}
	if trace.Moves() >= maxSteps {
		return trace, StepLimitExceeded
	}

	action, ok := pol.Lookup(cur)
	if !ok {
		return trace, NoActionAvailable
	}

	next := cur.Move(action)
	switch {
	case !InBounds(next):
		return trace, OutOfBounds
	case g.At(next) == Wall:
		return trace, WallCollision
	case trace.contains(next):
		return trace, LoopDetected
	}
	// Clip capacity so the grown trace never shares trace's spare backing array.
	return append(trace[:len(trace):len(trace)], next), Continue
}

// Result is a finished run.
type Result struct {
	Trace      Trace
	Outcome    Outcome
	Diagnostic string
	// Collision is the cell the agent tried to enter when the run ended on a
	// wall, a revisit, or the maze edge.
	Collision *Position
}

// Run steps the policy from the start until the run ends. It never fails:
// every way a policy can go wrong is an Outcome.
func Run(g Grid, pol Policy, ctx Context) Result {
	trace := Begin(g)
	outcome := Continue
	for !outcome.Terminal() {
		trace, outcome = Step(g, pol, trace, MaxSteps)
	}
	return finish(pol, trace, outcome, ctx)
}

func finish(pol Policy, trace Trace, outcome Outcome, ctx Context) Result {
	res := Result{
		Trace:      trace,
		Outcome:    outcome,
		Diagnostic: Diagnose(outcome, ctx),
	}
	switch outcome {
	case OutOfBounds, WallCollision, LoopDetected:
		if a, ok := pol.Lookup(trace.Head()); ok {
			next := trace.Head().Move(a)
			res.Collision = &next
		}
	}
	return res
}
