package cell_views

import (
	"html/template"

	"mazerl/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// StatusPanel shows the maze tier, the outcome of the latest run with its
// diagnostic, and a free-form status line.
type StatusPanel struct {
	id      string
	updates <-chan []fastview.EleUpdate
}

func NewStatusPanel(
	done <-chan struct{},
	boards <-chan Board,
) (sp *StatusPanel) {
	sp = &StatusPanel{id: "status"}
	sp.updates = channerics.Convert(done, boards, sp.onUpdate)
	return
}

func (sp *StatusPanel) Updates() <-chan []fastview.EleUpdate {
	return sp.updates
}

func (sp *StatusPanel) onUpdate(board Board) []fastview.EleUpdate {
	text := func(field, value string) fastview.EleUpdate {
		return fastview.EleUpdate{
			EleId: sp.id + "-" + field,
			Ops:   []fastview.Op{{Key: "textContent", Value: value}},
		}
	}
	return []fastview.EleUpdate{
		text("tier", board.Tier),
		text("outcome", board.Outcome),
		text("diagnostic", board.Diagnostic),
		text("message", board.Status),
	}
}

func (sp *StatusPanel) Parse(
	t *template.Template,
) (name string, err error) {
	name = sp.id
	_, err = t.Parse(
		`{{ define "` + name + `" }}
		<div id="` + sp.id + `" style="padding:20px; font-family:sans-serif;">
			<p>Difficulty: <b id="` + sp.id + `-tier">{{ .Tier }}</b></p>
			<p>Run: <b id="` + sp.id + `-outcome">{{ .Outcome }}</b></p>
			<p id="` + sp.id + `-diagnostic" style="max-width:36em;">{{ .Diagnostic }}</p>
			<p id="` + sp.id + `-message" style="color:#6b7280;">{{ .Status }}</p>
		</div>
		{{ end }}`)
	return
}
