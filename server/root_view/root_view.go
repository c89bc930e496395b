package root_view

import (
	"context"
	"html/template"
	"time"

	"mazerl/server/cell_views"
	"mazerl/server/fastview"
)

// batchWindow bounds how often merged view updates leave the page's views.
const batchWindow = 20 * time.Millisecond

// RootView is the main page, which contains the view components and the
// controls that drive the api.
type RootView struct {
	views   []fastview.ViewComponent
	updates <-chan []fastview.EleUpdate
}

// NewRootView builds the page's views over a stream of snapshots.
func NewRootView(
	ctx context.Context,
	snapshots <-chan cell_views.Snapshot,
) (*RootView, error) {
	views, err := fastview.NewViewBuilder[cell_views.Snapshot, cell_views.Board]().
		WithContext(ctx).
		WithModel(snapshots, cell_views.FromSnapshot).
		WithView(func(
			done <-chan struct{},
			boards <-chan cell_views.Board) fastview.ViewComponent {
			return cell_views.NewMazeGrid(done, boards)
		}).
		WithView(func(
			done <-chan struct{},
			boards <-chan cell_views.Board) fastview.ViewComponent {
			return cell_views.NewStatusPanel(done, boards)
		}).
		Build()
	if err != nil {
		return nil, err
	}

	return &RootView{
		views:   views,
		updates: fastview.FanIn(ctx.Done(), views, batchWindow),
	}, nil
}

// Updates returns the merged element updates of every view.
func (rv *RootView) Updates() <-chan []fastview.EleUpdate {
	return rv.updates
}

// funcs are shared by every child view's template.
var funcs = template.FuncMap{
	"add":  func(i, j int) int { return i + j },
	"sub":  func(i, j int) int { return i - j },
	"mult": func(i, j int) int { return i * j },
	"div":  func(i, j int) int { return i / j },
}

// Parse defines the main page, with the websocket bootstrap and the
// controls, and returns its name. It expects a cell_views.Board as data.
func (rv *RootView) Parse(
	parent *template.Template,
) (name string, err error) {
	rt := parent.Funcs(funcs)

	var bodySpec string
	for _, vc := range rv.views {
		tname, parseErr := vc.Parse(rt)
		if parseErr != nil {
			return "", parseErr
		}
		bodySpec += `{{ template "` + tname + `" . }}`
	}

	name = "mainpage"
	indexTemplate := `
	{{ define "` + name + `" }}
	<!DOCTYPE html>
	<html>
		<head>
			<title>mazerl</title>
			<link rel="icon" href="data:,">
			<script>
				const scheme = location.protocol === "https:" ? "wss://" : "ws://";
				const ws = new WebSocket(scheme + location.host + "/ws");
				ws.onopen = function (event) {
					console.log("Web socket opened");
				};
				ws.onerror = function (event) {
					console.log("WebSocket error: ", event);
				};
				// The server pushes element updates; apply them by id.
				ws.onmessage = function (event) {
					const items = JSON.parse(event.data);
					for (const update of items) {
						const ele = document.getElementById(update.EleId);
						if (!ele) {
							continue;
						}
						for (const op of update.Ops) {
							if (op.Key === "textContent") {
								ele.textContent = op.Value;
							} else {
								ele.setAttribute(op.Key, op.Value);
							}
						}
					}
				};

				function report(text) {
					document.getElementById("controls-result").textContent = text;
				}
				async function call(method, path, body) {
					const opts = { method: method, headers: {} };
					if (body !== undefined) {
						opts.headers["Content-Type"] = "application/json";
						opts.body = JSON.stringify(body);
					}
					const resp = await fetch(path, opts);
					const data = await resp.json().catch(function () { return {}; });
					if (!resp.ok) {
						report(data.error || resp.statusText);
						throw new Error(data.error || resp.statusText);
					}
					return data;
				}
				async function generate() {
					const tier = document.getElementById("tier").value;
					const data = await call("POST", "/api/mazes/generate?tier=" + tier);
					report("Generated " + data.complexity + " maze, path length " + data.path_length);
				}
				async function train() {
					const algorithm = document.getElementById("algorithm").value;
					const data = await call("POST", "/api/train", { algorithm: algorithm });
					report("Training job " + data.job_id);
				}
				async function simulate() {
					const data = await call("POST", "/api/simulate", {});
					report(data.summary);
				}
				async function save() {
					const name = document.getElementById("maze-name").value;
					await call("POST", "/api/mazes", { name: name });
					report("Saved " + name);
					await refresh();
				}
				async function load() {
					const name = document.getElementById("saved").value;
					if (name) {
						await call("GET", "/api/mazes/" + encodeURIComponent(name));
						report("Loaded " + name);
					}
				}
				async function exportMaze() {
					const name = document.getElementById("saved").value;
					if (name) {
						location.href = "/api/mazes/" + encodeURIComponent(name) + "/export";
					}
				}
				async function refresh() {
					const list = await call("GET", "/api/mazes");
					const sel = document.getElementById("saved");
					sel.innerHTML = "";
					for (const rec of list) {
						const opt = document.createElement("option");
						opt.value = rec.name;
						opt.textContent = rec.name + " (" + rec.complexity + ")";
						sel.appendChild(opt);
					}
				}
				window.addEventListener("load", refresh);
			</script>
		</head>
		<body style="display:flex; flex-wrap:wrap;">
			<div id="controls" style="padding:20px; font-family:sans-serif;">
				<p>
					<select id="tier">
						<option value="easy">Easy</option>
						<option value="medium" selected>Medium</option>
						<option value="hard">Hard</option>
					</select>
					<button onclick="generate()">Generate</button>
				</p>
				<p>
					<select id="algorithm">
						<option value="q_learning">Q-learning</option>
						<option value="sarsa">SARSA</option>
						<option value="monte_carlo">Monte Carlo</option>
					</select>
					<button onclick="train()">Train</button>
					<button onclick="simulate()">Simulate</button>
				</p>
				<p>
					<input id="maze-name" placeholder="maze name">
					<button onclick="save()">Save</button>
				</p>
				<p>
					<select id="saved"></select>
					<button onclick="load()">Load</button>
					<button onclick="exportMaze()">Export</button>
				</p>
				<p id="controls-result"></p>
			</div>
		` + bodySpec + `
		</body></html>
	{{ end }}
	`

	_, err = rt.Parse(indexTemplate)
	return
}
