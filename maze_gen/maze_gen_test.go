package maze_gen

import (
	"math/rand"
	"testing"

	. "mazerl/grid_world"

	. "github.com/smartystreets/goconvey/convey"
)

// soundMaze asserts the properties every generated maze must have.
func soundMaze(res Result) {
	g := res.Grid
	So(g.Count(Start), ShouldEqual, 1)
	So(g.Count(Goal), ShouldEqual, 1)
	So(g.Validate(), ShouldBeNil)

	start, _ := g.Start()
	goal, _ := g.Goal()
	So(start, ShouldResemble, StartCorner)
	So(goal, ShouldResemble, GoalCorner)

	length, ok := ShortestPathLength(g)
	So(ok, ShouldBeTrue)
	So(length, ShouldEqual, res.PathLength)
	So(res.Tier, ShouldEqual, Classify(length))
}

func TestGenerate(t *testing.T) {
	Convey("Given a seeded generator", t, func() {
		for _, target := range Tiers {
			for seed := int64(1); seed <= 8; seed++ {
				gen := New(WithSeed(seed))
				res := gen.Generate(target)

				soundMaze(res)
				So(res.Attempts, ShouldBeBetweenOrEqual, 1, DefaultMaxAttempts)
				So(res.Exact, ShouldEqual, res.Tier == target)
				So(res.Strategy, ShouldNotBeEmpty)
			}
		}
	})

	Convey("The same seed gives the same maze", t, func() {
		a := New(WithSeed(42)).Generate(Medium)
		b := New(WithSeed(42)).Generate(Medium)
		So(a.Grid, ShouldResemble, b.Grid)
		So(a.Strategy, ShouldEqual, b.Strategy)
	})

	Convey("Every strategy alone yields a sound maze", t, func() {
		for _, s := range Strategies() {
			for _, target := range Tiers {
				gen := New(WithRand(rand.New(rand.NewSource(7))), WithStrategies(s))
				res := gen.Generate(target)
				soundMaze(res)
				if !res.Fallback {
					So(res.Strategy, ShouldEqual, s.Name())
				}
			}
		}
	})

	Convey("Strategies are found by name", t, func() {
		So(Strategies(), ShouldHaveLength, 8)
		for _, s := range Strategies() {
			found, ok := StrategyByName(s.Name())
			So(ok, ShouldBeTrue)
			So(found.Name(), ShouldEqual, s.Name())
		}
		_, ok := StrategyByName("wilson")
		So(ok, ShouldBeFalse)
	})
}

// sealed carves nothing, so every attempt is unreachable.
type sealed struct{}

func (sealed) Name() string          { return "sealed" }
func (sealed) Carve(g *Grid, _ Rand) {}

// open carves the whole interior, giving a 29 step Easy maze every time.
type open struct{}

func (open) Name() string { return "open" }
func (open) Carve(g *Grid, _ Rand) {
	for r := minRow; r <= maxRow; r++ {
		for c := minCol; c <= maxCol; c++ {
			g[r][c] = Path
		}
	}
}

// detour carves a single 55 step route: down the first column, back up the
// third, along the top row and down to the goal. Medium, but a close match
// for Hard.
type detour struct {
	// sealedFirst attempts carve nothing before the route appears.
	sealedFirst int
	calls       *int
}

func (detour) Name() string { return "detour" }
func (d detour) Carve(g *Grid, _ Rand) {
	*d.calls++
	if *d.calls <= d.sealedFirst {
		return
	}
	carveLine(g, Position{Row: 1, Col: 1}, Position{Row: 14, Col: 1})
	carveLine(g, Position{Row: 14, Col: 1}, Position{Row: 14, Col: 3})
	carveLine(g, Position{Row: 14, Col: 3}, Position{Row: 1, Col: 3})
	carveLine(g, Position{Row: 1, Col: 3}, Position{Row: 1, Col: 15})
	carveLine(g, Position{Row: 1, Col: 15}, Position{Row: 14, Col: 15})
}

func TestAcceptance(t *testing.T) {
	Convey("When no attempt is ever reachable", t, func() {
		gen := New(WithSeed(3), WithStrategies(sealed{}), WithMaxAttempts(5))
		for _, target := range Tiers {
			res := gen.Generate(target)

			Convey("A fallback pattern is returned for "+target.String(), func() {
				So(res.Fallback, ShouldBeTrue)
				So(res.Attempts, ShouldEqual, 5)
				soundMaze(res)
			})
		}
	})

	Convey("When the exact tier is produced", t, func() {
		res := New(WithSeed(1), WithStrategies(open{})).Generate(Easy)
		So(res.Exact, ShouldBeTrue)
		So(res.Attempts, ShouldEqual, 1)
		So(res.Strategy, ShouldEqual, "open")
	})

	Convey("When only a miss is ever produced", t, func() {
		// An open interior is Easy; Hard is never met, and 29 steps is not a
		// close match for Hard either, so only the final attempt is accepted.
		res := New(WithSeed(1), WithStrategies(open{}), WithMaxAttempts(4)).Generate(Hard)
		So(res.Fallback, ShouldBeFalse)
		So(res.Exact, ShouldBeFalse)
		So(res.Tier, ShouldEqual, Easy)
		So(res.Attempts, ShouldEqual, 4)
	})

	Convey("Close-match leniency is earned by reachable attempts only", t, func() {
		calls := 0
		gen := New(WithSeed(1),
			WithStrategies(detour{sealedFirst: 3, calls: &calls}),
			WithCloseMatchAfter(2),
			WithMaxAttempts(10))
		res := gen.Generate(Hard)

		// Three sealed tries, then the third reachable one is the first past
		// the threshold of two.
		So(res.Attempts, ShouldEqual, 6)
		So(res.PathLength, ShouldEqual, 55)
		So(res.Tier, ShouldEqual, Medium)
		So(res.Exact, ShouldBeFalse)
		So(res.Fallback, ShouldBeFalse)
	})

	Convey("Close matches are judged against widened bands", t, func() {
		easy := &attempt{target: Easy}
		So(easy.closeMatch(34), ShouldBeTrue)
		So(easy.closeMatch(35), ShouldBeFalse)

		medium := &attempt{target: Medium}
		So(medium.closeMatch(30), ShouldBeTrue)
		So(medium.closeMatch(55), ShouldBeTrue)
		So(medium.closeMatch(29), ShouldBeFalse)

		hard := &attempt{target: Hard}
		So(hard.closeMatch(51), ShouldBeTrue)
		So(hard.closeMatch(50), ShouldBeFalse)
	})
}

func TestRecursiveDivision(t *testing.T) {
	Convey("Recursive division never seals a region off", t, func() {
		for seed := int64(0); seed < 200; seed++ {
			var g Grid
			g.Fill(Wall)
			RecursiveDivision.Carve(&g, rand.New(rand.NewSource(seed)))
			stampEndpoints(&g)

			_, ok := ShortestPathLength(g)
			So(ok, ShouldBeTrue)
			passable := g.Count(Path) + g.Count(Start) + g.Count(Goal)
			So(Reachable(g, StartCorner).Size(), ShouldEqual, passable)
		}
	})
}

func TestFallbackPatterns(t *testing.T) {
	Convey("Every fallback pattern connects start and goal", t, func() {
		for _, pat := range patterns {
			for seed := int64(0); seed < 20; seed++ {
				rng := rand.New(rand.NewSource(seed))
				var g Grid
				g.Fill(Wall)
				pat.carve(&g, rng)
				g.Set(StartCorner, Start)
				g.Set(GoalCorner, Goal)

				_, ok := ShortestPathLength(g)
				So(ok, ShouldBeTrue)
			}
		}
	})

	Convey("Corridors only ever add passages", t, func() {
		for _, target := range Tiers {
			rng := rand.New(rand.NewSource(11))
			var g Grid
			g.Fill(Wall)
			carveLShape(&g, rng)
			before := g
			addCorridors(&g, rng, target)
			before.Visit(func(p Position, c Cell) {
				if c == Path {
					So(g.At(p), ShouldEqual, Path)
				}
			})
		}
	})
}

func TestStampEndpoints(t *testing.T) {
	Convey("Given a grid where carving sealed both corners", t, func() {
		var g Grid
		g.Fill(Wall)
		stampEndpoints(&g)

		Convey("One neighbour of each endpoint is opened", func() {
			So(g.At(Position{Row: 1, Col: 1}), ShouldEqual, Path)
			So(g.At(Position{Row: 14, Col: 15}), ShouldEqual, Path)
			So(g.Count(Path), ShouldEqual, 2)
		})
	})
}
