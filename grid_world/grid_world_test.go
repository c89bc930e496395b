package grid_world

import (
	"bytes"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

// corridor returns an all-wall grid with a straight horizontal corridor of
// length moves from a start at (row, 1) to a goal at (row, 1+length).
func corridor(row, length int) (g Grid) {
	g.Fill(Wall)
	for c := 1; c < 1+length; c++ {
		g[row][c] = Path
	}
	g[row][1] = Start
	g[row][1+length] = Goal
	return
}

func TestShortestPathLength(t *testing.T) {
	Convey("When searching a straight corridor", t, func() {
		for _, length := range []int{1, 2, 7, 15} {
			g := corridor(4, length)
			got, ok := ShortestPathLength(g)
			So(ok, ShouldBeTrue)
			So(got, ShouldEqual, length)
		}
	})

	Convey("When searching a vertical corridor", t, func() {
		var g Grid
		for r := 0; r < Rows; r++ {
			g[r][3] = Path
		}
		g[0][3] = Start
		g[Rows-1][3] = Goal
		got, ok := ShortestPathLength(g)
		So(ok, ShouldBeTrue)
		So(got, ShouldEqual, Rows-1)
	})

	Convey("When the goal is walled off", t, func() {
		g := corridor(2, 6)
		g[2][4] = Wall
		_, ok := ShortestPathLength(g)
		So(ok, ShouldBeFalse)

		_, ok = ClassifyPath(0, ok)
		So(ok, ShouldBeFalse)
	})

	Convey("When the grid has no start or goal", t, func() {
		var g Grid
		g.Fill(Path)
		_, ok := ShortestPathLength(g)
		So(ok, ShouldBeFalse)
	})

	Convey("When searching the default maze", t, func() {
		g := Default()
		before := g
		first, ok := ShortestPathLength(g)
		So(ok, ShouldBeTrue)
		second, _ := ShortestPathLength(g)

		Convey("The search is repeatable and leaves the grid untouched", func() {
			So(second, ShouldEqual, first)
			So(g, ShouldResemble, before)
		})

		Convey("The reconstructed route has length+1 positions of passable cells", func() {
			route, ok := ShortestPath(g)
			So(ok, ShouldBeTrue)
			So(route, ShouldHaveLength, first+1)
			So(route[0], ShouldResemble, StartCorner)
			So(route[len(route)-1], ShouldResemble, GoalCorner)
			for i, p := range route {
				So(g.Passable(p), ShouldBeTrue)
				if i > 0 {
					dr := p.Row - route[i-1].Row
					dc := p.Col - route[i-1].Col
					So(dr*dr+dc*dc, ShouldEqual, 1)
				}
			}
		})
	})

	Convey("When an open room offers many routes", t, func() {
		g := Empty()
		length, ok := ShortestPathLength(g)
		So(ok, ShouldBeTrue)
		// Manhattan distance from (0,1) to (15,15).
		So(length, ShouldEqual, 15+14)
	})
}

func TestClassify(t *testing.T) {
	Convey("Tier boundaries are exact", t, func() {
		So(Classify(0), ShouldEqual, Easy)
		So(Classify(29), ShouldEqual, Easy)
		So(Classify(30), ShouldEqual, Medium)
		So(Classify(55), ShouldEqual, Medium)
		So(Classify(56), ShouldEqual, Hard)
		So(Classify(200), ShouldEqual, Hard)
	})

	Convey("Classification is monotonic in path length", t, func() {
		prev := Classify(0)
		for length := 1; length < 120; length++ {
			cur := Classify(length)
			So(cur, ShouldBeGreaterThanOrEqualTo, prev)
			prev = cur
		}
	})

	Convey("Tiers parse and cycle", t, func() {
		for _, tier := range Tiers {
			parsed, err := ParseTier(tier.String())
			So(err, ShouldBeNil)
			So(parsed, ShouldEqual, tier)
		}
		So(Easy.Next(), ShouldEqual, Medium)
		So(Medium.Next(), ShouldEqual, Hard)
		So(Hard.Next(), ShouldEqual, Easy)

		_, err := ParseTier("brutal")
		So(err, ShouldNotBeNil)
	})
}

func TestGridModel(t *testing.T) {
	Convey("Given the default maze", t, func() {
		g := Default()

		Convey("Start and goal are found at the corners", func() {
			start, ok := g.Start()
			So(ok, ShouldBeTrue)
			So(start, ShouldResemble, StartCorner)
			goal, ok := g.Goal()
			So(ok, ShouldBeTrue)
			So(goal, ShouldResemble, GoalCorner)
			So(g.Validate(), ShouldBeNil)
		})

		Convey("Neighbors are clipped to the grid and listed up, down, left, right", func() {
			nbs := g.Neighbors(Position{Row: 0, Col: 1})
			So(nbs, ShouldHaveLength, 3)
			So(nbs[0].Position, ShouldResemble, Position{Row: 1, Col: 1})
			So(nbs[0].Passable, ShouldBeTrue)
			So(nbs[1].Position, ShouldResemble, Position{Row: 0, Col: 0})
			So(nbs[1].Passable, ShouldBeFalse)
			So(nbs[2].Position, ShouldResemble, Position{Row: 0, Col: 2})

			So(g.Neighbors(Position{Row: 0, Col: 0}), ShouldHaveLength, 2)
			So(g.Neighbors(Position{Row: 5, Col: 5}), ShouldHaveLength, 4)
		})

		Convey("Flatten and Reshape round-trip exactly", func() {
			flat := g.Flatten()
			So(flat, ShouldHaveLength, Rows*Cols)
			So(flat[1], ShouldEqual, int(Start))
			back, err := Reshape(flat, Rows, Cols)
			So(err, ShouldBeNil)
			So(back, ShouldResemble, g)

			m, err := FromMatrix(g.Matrix())
			So(err, ShouldBeNil)
			So(m, ShouldResemble, g)
		})

		Convey("Text rendering round-trips", func() {
			parsed, err := ParseGrid(splitLines(g.String()))
			So(err, ShouldBeNil)
			So(parsed, ShouldResemble, g)
		})
	})

	Convey("When the start invariant is violated", t, func() {
		g := Default()
		g[3][1] = Start
		start, _ := g.Start()
		So(start, ShouldResemble, StartCorner)
		So(g.Validate(), ShouldEqual, ErrMultipleStart)

		g[0][1] = Path
		g[3][1] = Path
		So(g.Validate(), ShouldEqual, ErrNoStart)
	})

	Convey("Reshape rejects malformed input", t, func() {
		_, err := Reshape(make([]int, 10), Rows, Cols)
		So(err, ShouldNotBeNil)
		_, err = Reshape(make([]int, Rows*Cols), Rows+1, Cols)
		So(err, ShouldNotBeNil)
		bad := make([]int, Rows*Cols)
		bad[7] = 9
		_, err = Reshape(bad, Rows, Cols)
		So(err, ShouldNotBeNil)
	})

	Convey("Out of bounds reads are walls", t, func() {
		g := Empty()
		So(g.At(Position{Row: -1, Col: 0}), ShouldEqual, Wall)
		So(g.At(Position{Row: Rows, Col: 3}), ShouldEqual, Wall)
		So(InBounds(Position{Row: 15, Col: 16}), ShouldBeTrue)
		So(InBounds(Position{Row: 16, Col: 16}), ShouldBeFalse)
	})
}

func TestPolicy(t *testing.T) {
	Convey("Given a flat policy from the trainer", t, func() {
		flat := make([]*int, Rows*Cols)
		down, right := int(Down), int(Right)
		flat[1] = &down
		flat[Cols+1] = &right

		pol, err := PolicyFromFlat(flat, Rows, Cols)
		So(err, ShouldBeNil)
		So(pol.Len(), ShouldEqual, 2)

		a, ok := pol.Lookup(Position{Row: 0, Col: 1})
		So(ok, ShouldBeTrue)
		So(a, ShouldEqual, Down)
		a, ok = pol.Lookup(Position{Row: 1, Col: 1})
		So(ok, ShouldBeTrue)
		So(a, ShouldEqual, Right)
		_, ok = pol.Lookup(Position{Row: 2, Col: 1})
		So(ok, ShouldBeFalse)

		Convey("It flattens back to the same entries", func() {
			back := pol.Flat()
			So(*back[1], ShouldEqual, down)
			So(*back[Cols+1], ShouldEqual, right)
			So(back[2], ShouldBeNil)
		})

		Convey("Bad action indices are rejected", func() {
			bogus := 7
			flat[5] = &bogus
			_, err := PolicyFromFlat(flat, Rows, Cols)
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Policies parse from arrow rows", t, func() {
		pol, err := ParsePolicy([]string{
			"#↓",
			"#→→↑",
		})
		So(err, ShouldBeNil)
		So(pol.Len(), ShouldEqual, 4)
		a, _ := pol.Lookup(Position{Row: 1, Col: 3})
		So(a, ShouldEqual, Up)
	})

	Convey("Console rendering mentions every row", t, func() {
		var buf bytes.Buffer
		route, _ := ShortestPath(Default())
		ShowGrid(&buf, Default(), route)
		So(bytes.Count(buf.Bytes(), []byte("\n")), ShouldEqual, Rows)
	})
}

func splitLines(s string) (lines []string) {
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	return
}
