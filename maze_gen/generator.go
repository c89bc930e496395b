package maze_gen

import (
	"io"
	"log"
	"math/rand"
	"time"

	. "mazerl/grid_world"
)

const (
	DefaultMaxAttempts     = 50
	DefaultCloseMatchAfter = 20
)

// Close-match bands, wider than the tier boundaries, that are accepted once
// enough attempts have missed the exact tier.
const (
	closeEasyBelow  = 35
	closeMediumLow  = 30
	closeMediumHigh = 55
	closeHardAbove  = 50
)

// Result is a generated maze and how it came to be.
type Result struct {
	Grid       Grid
	Tier       Tier
	PathLength int
	// Exact is set when Tier equals the requested tier.
	Exact bool
	// Fallback is set when no strategy attempt was accepted.
	Fallback bool
	Attempts int
	Strategy string
}

type Option func(*Generator)

func WithRand(rng Rand) Option {
	return func(gen *Generator) {
		gen.rng = rng
	}
}

func WithSeed(seed int64) Option {
	return func(gen *Generator) {
		gen.rng = rand.New(rand.NewSource(seed))
	}
}

// WithStrategies restricts the strategies drawn from. An empty list is ignored.
func WithStrategies(strategies ...Strategy) Option {
	return func(gen *Generator) {
		if len(strategies) > 0 {
			gen.strategies = strategies
		}
	}
}

func WithMaxAttempts(n int) Option {
	return func(gen *Generator) {
		if n > 0 {
			gen.maxAttempts = n
		}
	}
}

func WithCloseMatchAfter(n int) Option {
	return func(gen *Generator) {
		if n >= 0 {
			gen.closeMatchAfter = n
		}
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(gen *Generator) {
		if logger != nil {
			gen.logger = logger
		}
	}
}

// Generator builds random mazes aimed at a difficulty tier. A Generator is
// not safe for concurrent use since it owns its random source.
type Generator struct {
	rng             Rand
	strategies      []Strategy
	maxAttempts     int
	closeMatchAfter int
	logger          *log.Logger
}

func New(opts ...Option) *Generator {
	gen := &Generator{
		strategies:      Strategies(),
		maxAttempts:     DefaultMaxAttempts,
		closeMatchAfter: DefaultCloseMatchAfter,
		logger:          log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(gen)
	}
	if gen.rng == nil {
		gen.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return gen
}

// attempt carries the retry loop's bookkeeping from one try to the next.
type attempt struct {
	target Tier
	// n counts every try, reachable or not, against maxAttempts.
	n int
	// scored counts reachable tries; only these earn close-match leniency.
	scored      int
	unreachable int
	strategy    Strategy
}

func (at *attempt) closeMatch(length int) bool {
	switch at.target {
	case Easy:
		return length < closeEasyBelow
	case Medium:
		return length >= closeMediumLow && length <= closeMediumHigh
	}
	return length > closeHardAbove
}

// Generate returns a maze with exactly one start, one goal, and a finite
// shortest path between them. The requested tier is met exactly when possible;
// otherwise a near miss or a fallback pattern is returned and Exact is false.
func (gen *Generator) Generate(target Tier) Result {
	at := &attempt{target: target}
	for at.n = 1; at.n <= gen.maxAttempts; at.n++ {
		at.strategy = gen.strategies[gen.rng.Intn(len(gen.strategies))]
		g := gen.build(at)

		length, ok := ShortestPathLength(g)
		if !ok {
			at.unreachable++
			continue
		}
		at.scored++

		tier := Classify(length)
		switch {
		case tier == target:
		case at.scored > gen.closeMatchAfter && at.closeMatch(length):
			gen.logger.Printf("accepting close match %s (%d steps) for %s after %d attempts", tier, length, target, at.n)
		case at.n == gen.maxAttempts:
			gen.logger.Printf("accepting final attempt %s (%d steps) for %s", tier, length, target)
		default:
			continue
		}

		return Result{
			Grid:       g,
			Tier:       tier,
			PathLength: length,
			Exact:      tier == target,
			Attempts:   at.n,
			Strategy:   at.strategy.Name(),
		}
	}

	gen.logger.Printf("no strategy met %s in %d attempts (%d unreachable), using a fallback", target, gen.maxAttempts, at.unreachable)
	res := gen.fallback(target)
	res.Attempts = gen.maxAttempts
	return res
}

// build runs one strategy on a fresh all-wall grid and finishes it.
func (gen *Generator) build(at *attempt) Grid {
	var g Grid
	g.Fill(Wall)
	at.strategy.Carve(&g, gen.rng)
	stampEndpoints(&g)
	if at.target != Hard {
		addShortcuts(&g, gen.rng, at.target)
	}
	// Shortcuts may land next to the endpoints but never on them; restamp
	// so the endpoint cells are the last writes.
	stampEndpoints(&g)
	return g
}

// stampEndpoints writes Start and Goal at their corners and opens the cell
// below the start or above the goal when the carving left them sealed.
func stampEndpoints(g *Grid) {
	g.Set(StartCorner, Start)
	g.Set(GoalCorner, Goal)

	belowStart := Position{Row: StartCorner.Row + 1, Col: StartCorner.Col}
	twoBelow := Position{Row: StartCorner.Row + 2, Col: StartCorner.Col}
	if g.At(belowStart) == Wall && g.At(twoBelow) == Path {
		g.Set(belowStart, Path)
	}
	if g.PassableNeighbors(StartCorner) == 0 {
		g.Set(belowStart, Path)
	}

	aboveGoal := Position{Row: GoalCorner.Row - 1, Col: GoalCorner.Col}
	if g.PassableNeighbors(GoalCorner) == 0 {
		g.Set(aboveGoal, Path)
	}
}

// addShortcuts opens random walls that already touch two passages, which
// shortens routes for the easier tiers.
func addShortcuts(g *Grid, rng Rand, target Tier) {
	var tries int
	var p float64
	switch target {
	case Easy:
		tries, p = rng.Intn(30)+20, 0.6
	case Medium:
		tries, p = rng.Intn(15)+10, 0.4
	default:
		return
	}
	for i := 0; i < tries; i++ {
		pos := randomInterior(rng)
		if g.At(pos) == Wall && g.PassableNeighbors(pos) >= 2 && rng.Float64() < p {
			g.Set(pos, Path)
		}
	}
}
