package grid_world

import (
	"fmt"
	"io"

	"github.com/gookit/color"
)

// Console styles for each kind of square.
var (
	ColorWall  = color.Style{color.FgDarkGray}
	ColorPath  = color.Style{color.FgWhite}
	ColorStart = color.Style{color.FgLightBlue, color.OpBold}
	ColorGoal  = color.Style{color.FgYellow, color.OpBold}
	ColorTrail = color.Style{color.FgGreen}
	ColorArrow = color.Style{color.FgCyan}
)

func styleOf(c Cell) color.Style {
	switch c {
	case Path:
		return ColorPath
	case Start:
		return ColorStart
	case Goal:
		return ColorGoal
	}
	return ColorWall
}

// ShowGrid prints the maze, for visual reference. Positions in trail are
// overdrawn with a marker so a simulated or shortest route can be followed.
func ShowGrid(w io.Writer, g Grid, trail []Position) {
	onTrail := map[Position]bool{}
	for _, p := range trail {
		onTrail[p] = true
	}
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			p := Position{Row: r, Col: c}
			cell := g.At(p)
			if onTrail[p] && cell == Path {
				fmt.Fprint(w, ColorTrail.Sprint("o "))
				continue
			}
			fmt.Fprint(w, styleOf(cell).Sprintf("%c ", cell.Rune()))
		}
		fmt.Fprintln(w)
	}
}

// ShowPolicy prints an arrow per passable cell that has a learned action and
// '-' for walls. Cells without an action are left blank.
func ShowPolicy(w io.Writer, g Grid, pol Policy) {
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			p := Position{Row: r, Col: c}
			cell := g.At(p)
			switch {
			case cell == Wall:
				fmt.Fprint(w, ColorWall.Sprint("- "))
			case cell == Goal:
				fmt.Fprint(w, ColorGoal.Sprintf("%c ", GoalRune))
			default:
				if a, ok := pol.Lookup(p); ok {
					fmt.Fprint(w, ColorArrow.Sprintf("%c ", a.Arrow()))
				} else {
					fmt.Fprint(w, "  ")
				}
			}
		}
		fmt.Fprintln(w)
	}
}
