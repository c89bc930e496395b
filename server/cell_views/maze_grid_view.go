package cell_views

import (
	"fmt"
	"html/template"
	"strconv"

	"mazerl/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// cellDim is the side of one maze square in pixels.
const cellDim = 32

// MazeGrid draws the maze as an svg of squares with policy arrows, the agent
// of an animated run, and a marker on the cell it collided with.
type MazeGrid struct {
	id      string
	updates <-chan []fastview.EleUpdate
}

func NewMazeGrid(
	done <-chan struct{},
	boards <-chan Board,
) (mg *MazeGrid) {
	mg = &MazeGrid{id: "maze"}
	mg.updates = channerics.Convert(done, boards, mg.onUpdate)
	return
}

func (mg *MazeGrid) Updates() <-chan []fastview.EleUpdate {
	return mg.updates
}

func (mg *MazeGrid) cellId(x, y int, part string) string {
	return fmt.Sprintf("%s-%d-%d-%s", mg.id, y, x, part)
}

// center returns the pixel center of grid coordinate i.
func center(i int) string {
	return strconv.Itoa(i*cellDim + cellDim/2)
}

func visibility(shown bool) string {
	if shown {
		return "visible"
	}
	return "hidden"
}

// onUpdate returns the full state of every element, so any single batch is
// enough to bring a page up to date.
func (mg *MazeGrid) onUpdate(board Board) (ops []fastview.EleUpdate) {
	for _, row := range board.Cells {
		for _, cell := range row {
			ops = append(ops,
				fastview.EleUpdate{
					EleId: mg.cellId(cell.X, cell.Y, "cell"),
					Ops:   []fastview.Op{{Key: "fill", Value: cell.Fill}},
				},
				fastview.EleUpdate{
					EleId: mg.cellId(cell.X, cell.Y, "arrow"),
					Ops: []fastview.Op{
						{Key: "transform", Value: fmt.Sprintf("rotate(%d)", cell.PolicyArrowRotation)},
						{Key: "visibility", Value: visibility(cell.HasPolicy)},
					},
				})
		}
	}

	agent := fastview.EleUpdate{
		EleId: mg.id + "-agent",
		Ops:   []fastview.Op{{Key: "visibility", Value: visibility(board.Agent != nil)}},
	}
	if board.Agent != nil {
		agent.Ops = append(agent.Ops,
			fastview.Op{Key: "cx", Value: center(board.Agent.Col)},
			fastview.Op{Key: "cy", Value: center(board.Agent.Row)})
	}

	collision := fastview.EleUpdate{
		EleId: mg.id + "-collision",
		Ops:   []fastview.Op{{Key: "visibility", Value: visibility(board.Collision != nil)}},
	}
	if board.Collision != nil {
		collision.Ops = append(collision.Ops,
			fastview.Op{Key: "x", Value: strconv.Itoa(board.Collision.Col * cellDim)},
			fastview.Op{Key: "y", Value: strconv.Itoa(board.Collision.Row * cellDim)})
	}

	return append(ops, agent, collision)
}

// Parse defines the maze svg. It expects a Board as data.
func (mg *MazeGrid) Parse(
	t *template.Template,
) (name string, err error) {
	name = mg.id
	dim := strconv.Itoa(cellDim)
	_, err = t.Parse(
		`{{ define "` + name + `" }}
		<div style="padding:20px;">
			{{ $dim := ` + dim + ` }}
			{{ $half := div $dim 2 }}
			{{ $rows := len .Cells }}
			{{ $cols := len (index .Cells 0) }}
			<svg id="` + mg.id + `" xmlns='http://www.w3.org/2000/svg'
				width="{{ mult $dim $cols }}px"
				height="{{ mult $dim $rows }}px"
				style="shape-rendering: crispEdges;">
				{{ range $row := .Cells }}
					{{ range $cell := $row }}
					<rect id="` + mg.id + `-{{$cell.Y}}-{{$cell.X}}-cell"
						x="{{ mult $cell.X $dim }}"
						y="{{ mult $cell.Y $dim }}"
						width="{{ $dim }}"
						height="{{ $dim }}"
						fill="{{ $cell.Fill }}"
						stroke="#e5e7eb"
						stroke-width="1"/>
					<g transform="translate({{ add (mult $cell.X $dim) $half }}, {{ add (mult $cell.Y $dim) $half }})">
						<text id="` + mg.id + `-{{$cell.Y}}-{{$cell.X}}-arrow"
							fill="#1d4ed8"
							font-size="16"
							dominant-baseline="central" text-anchor="middle"
							transform="rotate({{ $cell.PolicyArrowRotation }})"
							visibility="{{ if $cell.HasPolicy }}visible{{ else }}hidden{{ end }}"
							>&uarr;</text>
					</g>
					{{ end }}
				{{ end }}
				<rect id="` + mg.id + `-collision"
					x="0" y="0" width="{{ $dim }}" height="{{ $dim }}"
					fill="none" stroke="#dc2626" stroke-width="3"
					visibility="hidden"/>
				<circle id="` + mg.id + `-agent"
					cx="{{ $half }}" cy="{{ $half }}" r="{{ div $dim 3 }}"
					fill="#ef4444"
					visibility="hidden"/>
			</svg>
		</div>
		{{ end }}`)
	return
}
