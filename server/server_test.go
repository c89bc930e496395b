package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mazerl/config"
	"mazerl/grid_world"
	"mazerl/maze_gen"
	"mazerl/mazes"
	"mazerl/trainer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// routePolicy is the flat policy walking the shortest route through g.
func routePolicy(t *testing.T, g grid_world.Grid) []*int {
	route, ok := grid_world.ShortestPath(g)
	require.True(t, ok)
	flat := make([]*int, grid_world.Rows*grid_world.Cols)
	for i := 1; i < len(route); i++ {
		from, to := route[i-1], route[i]
		for _, a := range grid_world.Actions {
			if from.Move(a) == to {
				action := int(a)
				flat[from.Row*grid_world.Cols+from.Col] = &action
			}
		}
	}
	return flat
}

// fakeTrainer finishes every job on its first poll with the route policy of
// the default maze.
func fakeTrainer(t *testing.T) *httptest.Server {
	policy := routePolicy(t, grid_world.Default())
	mux := http.NewServeMux()
	mux.HandleFunc("/train", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"job_id": "job-1"})
	})
	mux.HandleFunc("/status/", func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimPrefix(r.URL.Path, "/status/") != "job-1" {
			json.NewEncoder(w).Encode(map[string]string{"error": "job not found"})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":   "finished",
			"progress": 100,
			"episode":  1000,
			"episodes": 1000,
			"policy":   policy,
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type harness struct {
	t   *testing.T
	srv *Server
	h   http.Handler
}

func newHarness(t *testing.T) *harness {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := config.Default()
	cfg.Server.StepDelay = time.Millisecond
	cfg.Training.PollInterval = time.Millisecond
	store := mazes.NewFileStore(filepath.Join(t.TempDir(), "mazes.json"))

	srv, err := NewServer(ctx, cfg, store,
		WithGenerator(maze_gen.New(maze_gen.WithSeed(3))),
		WithTrainer(trainer.NewClient(fakeTrainer(t).URL)))
	require.NoError(t, err)
	return &harness{t: t, srv: srv, h: srv.Handler()}
}

func (hs *harness) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(hs.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	hs.h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v), rec.Body.String())
}

func TestCurrentMaze(t *testing.T) {
	hs := newHarness(t)

	rec := hs.do(http.MethodGet, "/api/maze", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp mazeResponse
	decode(t, rec, &resp)

	tier, length, _ := grid_world.Measure(grid_world.Default())
	assert.Equal(t, grid_world.Default().Matrix(), resp.Maze)
	assert.Equal(t, tier.String(), resp.Complexity)
	assert.Equal(t, length, resp.PathLength)
	assert.Nil(t, resp.Policy)
}

func TestGenerate(t *testing.T) {
	hs := newHarness(t)

	rec := hs.do(http.MethodPost, "/api/mazes/generate?tier=easy", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp mazeResponse
	decode(t, rec, &resp)

	g, err := grid_world.FromMatrix(resp.Maze)
	require.NoError(t, err)
	require.NoError(t, g.Validate())
	tier, length, ok := grid_world.Measure(g)
	assert.True(t, ok)
	assert.Equal(t, tier.String(), resp.Complexity)
	assert.Equal(t, length, resp.PathLength)
	require.NotNil(t, resp.Exact)
	assert.Greater(t, resp.Attempts, 0)

	rec = hs.do(http.MethodGet, "/api/maze", nil)
	var current mazeResponse
	decode(t, rec, &current)
	assert.Equal(t, resp.Maze, current.Maze)

	rec = hs.do(http.MethodPost, "/api/mazes/generate?tier=brutal", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSimulate(t *testing.T) {
	hs := newHarness(t)

	rec := hs.do(http.MethodPost, "/api/simulate", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	policy := routePolicy(t, grid_world.Default())
	rec = hs.do(http.MethodPost, "/api/simulate", map[string]interface{}{"policy": policy})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		RunID      string `json:"run_id"`
		Outcome    string `json:"outcome"`
		Diagnostic string `json:"diagnostic"`
		Steps      int    `json:"steps"`
	}
	decode(t, rec, &resp)
	_, length, _ := grid_world.Measure(grid_world.Default())
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, "goal-reached", resp.Outcome)
	assert.Empty(t, resp.Diagnostic)
	assert.Equal(t, length, resp.Steps)

	// The supplied policy is now current, so a second run needs no body.
	rec = hs.do(http.MethodPost, "/api/simulate", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// The animated run reaches the page state.
	require.Eventually(t, func() bool {
		snap := hs.srv.snapshot()
		return snap.Frame != nil && snap.Frame.Outcome.Terminal()
	}, 5*time.Second, 5*time.Millisecond)

	rec = hs.do(http.MethodGet, "/api/stats", nil)
	var stats statsResponse
	decode(t, rec, &stats)
	assert.Equal(t, 2, stats.Runs)
	assert.Equal(t, 2, stats.Goals)
	assert.Equal(t, 1.0, stats.SuccessRate)
	assert.Equal(t, float64(length), stats.AvgSteps)
}

func TestSimulateFailureIsDiagnosed(t *testing.T) {
	hs := newHarness(t)

	// Up from the start leaves the maze.
	policy := make([]*int, grid_world.Rows*grid_world.Cols)
	up := int(grid_world.Up)
	start := grid_world.StartCorner
	policy[start.Row*grid_world.Cols+start.Col] = &up

	rec := hs.do(http.MethodPost, "/api/simulate", map[string]interface{}{"policy": policy})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Outcome    string `json:"outcome"`
		Diagnostic string `json:"diagnostic"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, "out-of-bounds", resp.Outcome)
	assert.NotEmpty(t, resp.Diagnostic)

	rec = hs.do(http.MethodPost, "/api/simulate", map[string]interface{}{"policy": policy[:3]})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrain(t *testing.T) {
	hs := newHarness(t)

	rec := hs.do(http.MethodPost, "/api/train", map[string]interface{}{"algorithm": "sarsa", "episodes": 1000})
	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp trainResponse
	decode(t, rec, &resp)
	assert.Equal(t, "job-1", resp.JobID)
	assert.Equal(t, config.SARSA, resp.Hyperparams.Algorithm)
	assert.Equal(t, 1000, resp.Hyperparams.Episodes)

	require.Eventually(t, func() bool {
		return hs.srv.current().policy.Len() > 0
	}, 5*time.Second, 5*time.Millisecond)

	rec = hs.do(http.MethodGet, "/api/maze", nil)
	var maze mazeResponse
	decode(t, rec, &maze)
	assert.Len(t, maze.Policy, grid_world.Rows*grid_world.Cols)

	rec = hs.do(http.MethodPost, "/api/simulate", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = hs.do(http.MethodGet, "/api/train/job-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = hs.do(http.MethodGet, "/api/train/job-9", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = hs.do(http.MethodPost, "/api/train", map[string]interface{}{"algorithm": "dqn"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSavedMazes(t *testing.T) {
	hs := newHarness(t)

	rec := hs.do(http.MethodPost, "/api/mazes", map[string]string{"name": "classic"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = hs.do(http.MethodPost, "/api/mazes", map[string]string{"name": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = hs.do(http.MethodGet, "/api/mazes", nil)
	var list []recordSummary
	decode(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "classic", list[0].Name)

	rec = hs.do(http.MethodGet, "/api/mazes/classic/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "classic.json")
	exported := rec.Body.Bytes()

	rec = hs.do(http.MethodPost, "/api/mazes/import?name=copy", exported)
	require.Equal(t, http.StatusCreated, rec.Code)
	var imported mazeResponse
	decode(t, rec, &imported)
	assert.Equal(t, "copy", imported.Name)
	assert.Equal(t, grid_world.Default().Matrix(), imported.Maze)

	rec = hs.do(http.MethodPost, "/api/mazes/import?name=bad", []byte(`{"maze":[[1,2]]}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	hs.do(http.MethodPost, "/api/mazes/generate?tier=hard", nil)
	rec = hs.do(http.MethodGet, "/api/mazes/classic", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var loaded mazeResponse
	decode(t, rec, &loaded)
	assert.Equal(t, grid_world.Default().Matrix(), loaded.Maze)
	assert.Equal(t, grid_world.Default(), hs.srv.current().grid)

	rec = hs.do(http.MethodDelete, "/api/mazes/classic", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = hs.do(http.MethodGet, "/api/mazes/classic", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = hs.do(http.MethodDelete, "/api/mazes/classic", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIndex(t *testing.T) {
	hs := newHarness(t)

	rec := hs.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `id="maze-0-1-cell"`)
	assert.Contains(t, body, `id="maze-agent"`)
	assert.Contains(t, body, `id="status-tier"`)
	assert.Contains(t, body, "/ws")
}
