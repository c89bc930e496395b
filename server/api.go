package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"mazerl/config"
	"mazerl/grid_world"
	"mazerl/mazes"
	"mazerl/simulation"
	"mazerl/trainer"

	"github.com/gorilla/mux"
)

// maxBodyBytes caps request bodies; an imported maze is a few kilobytes.
const maxBodyBytes = 1 << 20

var (
	errBadRequest = errors.New("bad request")
	errNoPolicy   = errors.New("no policy: train or supply one first")
)

type mazeResponse struct {
	Maze       [][]int `json:"maze"`
	Complexity string  `json:"complexity"`
	PathLength int     `json:"path_length"`
	Policy     []*int  `json:"policy,omitempty"`
	Name       string  `json:"name,omitempty"`
	// Generation details, set only by generate.
	Exact    *bool  `json:"exact,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`
	Attempts int    `json:"attempts,omitempty"`
	Strategy string `json:"strategy,omitempty"`
}

func newMazeResponse(st state) mazeResponse {
	resp := mazeResponse{
		Maze:       st.grid.Matrix(),
		Complexity: st.tier.String(),
		PathLength: st.pathLength,
	}
	if st.policy.Len() > 0 {
		resp.Policy = st.policy.Flat()
	}
	return resp
}

type recordSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Complexity string    `json:"complexity"`
	CreatedAt  time.Time `json:"created_at"`
}

func summarize(rec mazes.Record) recordSummary {
	return recordSummary{
		ID:         rec.ID,
		Name:       rec.Name,
		Complexity: rec.Tier.String(),
		CreatedAt:  rec.CreatedAt,
	}
}

func (s *Server) current() state {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Server) getMaze(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newMazeResponse(s.current()))
}

// generateMaze replaces the current maze with a new one of the requested
// tier, medium when none is given.
func (s *Server) generateMaze(w http.ResponseWriter, r *http.Request) {
	tier := grid_world.Medium
	if q := r.URL.Query().Get("tier"); q != "" {
		var err error
		if tier, err = grid_world.ParseTier(q); err != nil {
			writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
	}

	s.genMu.Lock()
	res := s.gen.Generate(tier)
	s.genMu.Unlock()

	status := fmt.Sprintf("Generated %s maze, shortest path %d", res.Tier, res.PathLength)
	if !res.Exact {
		status += fmt.Sprintf(" (asked for %s)", tier)
	}
	st := s.replaceMaze(res.Grid, res.Tier, status)
	s.logger.Printf("generated %s maze with %s in %d attempts, path %d, fallback=%v",
		res.Tier, res.Strategy, res.Attempts, res.PathLength, res.Fallback)

	resp := newMazeResponse(st)
	resp.Exact = &res.Exact
	resp.Fallback = res.Fallback
	resp.Attempts = res.Attempts
	resp.Strategy = res.Strategy
	writeJSON(w, http.StatusOK, resp)
}

type simulateRequest struct {
	// Policy is row-major with one optional action per cell. When empty the
	// current policy is used; otherwise it becomes the current policy.
	Policy []*int `json:"policy"`
	// The parameters the supplied policy was trained with, for diagnostics.
	// Missing ones are taken from the configured preset for the maze's tier.
	Episodes int      `json:"episodes"`
	Alpha    *float64 `json:"alpha"`
	Gamma    *float64 `json:"gamma"`
	Epsilon  *float64 `json:"epsilon"`
}

// context describes how a supplied policy was trained.
func (req simulateRequest) context(training config.Training, st state) simulation.Context {
	ctx := simulation.Context{Tier: st.tier, PathLength: st.pathLength}
	if hp, err := training.Hyperparams(st.tier); err == nil {
		ctx.Alpha, ctx.Gamma, ctx.Epsilon, ctx.Episodes = hp.Alpha, hp.Gamma, hp.Epsilon, hp.Episodes
	}
	if req.Episodes > 0 {
		ctx.Episodes = req.Episodes
	}
	if req.Alpha != nil {
		ctx.Alpha = *req.Alpha
	}
	if req.Gamma != nil {
		ctx.Gamma = *req.Gamma
	}
	if req.Epsilon != nil {
		ctx.Epsilon = *req.Epsilon
	}
	return ctx
}

type simulateResponse struct {
	RunID      string                `json:"run_id"`
	Outcome    simulation.Outcome    `json:"outcome"`
	Diagnostic string                `json:"diagnostic,omitempty"`
	Summary    string                `json:"summary"`
	Steps      int                   `json:"steps"`
	Trace      []grid_world.Position `json:"trace"`
	Collision  *grid_world.Position  `json:"collision,omitempty"`
}

// simulate runs the policy to completion for the response and starts an
// animated run of it on the page, superseding any run in flight.
func (s *Server) simulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if req.Policy != nil {
		pol, err := grid_world.PolicyFromFlat(req.Policy, grid_world.Rows, grid_world.Cols)
		if err != nil {
			writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		s.update(func(st *state) {
			st.policy = pol
			st.trained = req.context(s.training, *st)
			st.frame = nil
		})
	}

	st := s.current()
	if st.policy.Len() == 0 {
		writeError(w, errNoPolicy)
		return
	}

	res := simulation.Run(st.grid, st.policy, st.trained)
	s.stats.record(res)
	s.logger.Println(simulation.Summary(res))

	runID, frames := s.driver.Start(s.ctx, st.grid, st.policy, st.trained)
	go s.follow(st.version, frames)

	writeJSON(w, http.StatusOK, simulateResponse{
		RunID:      runID,
		Outcome:    res.Outcome,
		Diagnostic: res.Diagnostic,
		Summary:    simulation.Summary(res),
		Steps:      res.Trace.Moves(),
		Trace:      res.Trace,
		Collision:  res.Collision,
	})
}

// follow shows each frame of a run while its maze is still current.
func (s *Server) follow(version int, frames <-chan simulation.Frame) {
	for frame := range frames {
		frame := frame
		s.update(func(st *state) {
			if st.version != version {
				return
			}
			st.frame = &frame
			if frame.Outcome.Terminal() {
				st.status = frame.Outcome.String()
			}
		})
	}
}

type trainRequest struct {
	Algorithm string   `json:"algorithm"`
	MCMethod  string   `json:"mc_method"`
	Episodes  int      `json:"episodes"`
	Alpha     *float64 `json:"alpha"`
	Gamma     *float64 `json:"gamma"`
	Epsilon   *float64 `json:"epsilon"`
}

type trainResponse struct {
	JobID       string             `json:"job_id"`
	Hyperparams config.Hyperparams `json:"hyperparams"`
}

// train submits the current maze to the training service and adopts the
// learned policy when the job finishes.
func (s *Server) train(w http.ResponseWriter, r *http.Request) {
	var req trainRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	st := s.current()
	training := s.training
	if req.Algorithm != "" {
		training.Algorithm = req.Algorithm
	}
	if req.MCMethod != "" {
		training.MCMethod = req.MCMethod
	}
	hp, err := training.Hyperparams(st.tier)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if req.Episodes > 0 {
		hp.Episodes = req.Episodes
	}
	if req.Alpha != nil {
		hp.Alpha = *req.Alpha
	}
	if req.Gamma != nil {
		hp.Gamma = *req.Gamma
	}
	if req.Epsilon != nil {
		hp.Epsilon = *req.Epsilon
	}

	jobID, err := s.trainer.Train(r.Context(), trainer.NewTrainRequest(st.grid, hp))
	if err != nil {
		s.logger.Println("train:", err)
		writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error()})
		return
	}

	s.update(func(cur *state) {
		if cur.version == st.version {
			cur.jobID = jobID
			cur.status = fmt.Sprintf("Training %s", hp)
		}
	})
	go s.await(jobID, st.version, hp)

	writeJSON(w, http.StatusAccepted, trainResponse{JobID: jobID, Hyperparams: hp})
}

// await polls a job and, if it is still the current job for the current
// maze when it finishes, makes its policy current.
func (s *Server) await(jobID string, version int, hp config.Hyperparams) {
	owns := func(st *state) bool {
		return st.version == version && st.jobID == jobID
	}

	status, err := s.trainer.Await(s.ctx, jobID, s.training.PollInterval, func(ts *trainer.Status) {
		s.update(func(st *state) {
			if owns(st) {
				st.status = fmt.Sprintf("Training %s: episode %d/%d (%d%%)",
					hp.Algorithm, ts.Episode, ts.Episodes, ts.Progress)
			}
		})
	})
	if err != nil {
		s.logger.Printf("training job %s: %v", jobID, err)
		s.update(func(st *state) {
			if owns(st) {
				st.jobID = ""
				st.status = fmt.Sprintf("Training failed: %v", err)
			}
		})
		return
	}

	pol, err := status.PolicyGrid(grid_world.Rows, grid_world.Cols)
	s.update(func(st *state) {
		if !owns(st) {
			return
		}
		st.jobID = ""
		if err != nil {
			st.status = fmt.Sprintf("Training finished without a policy: %v", err)
			return
		}
		st.policy = pol
		st.frame = nil
		st.trained = simulation.Context{
			Alpha:      hp.Alpha,
			Gamma:      hp.Gamma,
			Epsilon:    hp.Epsilon,
			Episodes:   hp.Episodes,
			Tier:       st.tier,
			PathLength: st.pathLength,
		}
		st.status = fmt.Sprintf("Training finished: %s", hp)
	})
}

func (s *Server) trainStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.trainer.Status(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, trainer.ErrJobNotFound) {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) listMazes(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]recordSummary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, summarize(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

type saveRequest struct {
	Name string `json:"name"`
}

// saveMaze stores the current maze under a name.
func (s *Server) saveMaze(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	st := s.current()
	rec, err := s.store.Save(r.Context(), mazes.Record{
		Name: req.Name,
		Grid: st.grid,
		Tier: st.tier,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, summarize(rec))
}

// loadMaze makes a saved maze current.
func (s *Server) loadMaze(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Load(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		writeError(w, err)
		return
	}
	st := s.replaceMaze(rec.Grid, rec.Tier, "Loaded "+rec.Name)
	resp := newMazeResponse(st)
	resp.Name = rec.Name
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) deleteMaze(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), mux.Vars(r)["name"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) exportMaze(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Load(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		writeError(w, err)
		return
	}
	data, err := mazes.Export(rec)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rec.Name+".json"))
	_, _ = w.Write(data)
}

// importMaze saves an exported document under ?name= and makes it current.
func (s *Server) importMaze(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	rec, err := mazes.Import(r.URL.Query().Get("name"), data)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if rec, err = s.store.Save(r.Context(), rec); err != nil {
		writeError(w, err)
		return
	}
	st := s.replaceMaze(rec.Grid, rec.Tier, "Imported "+rec.Name)
	resp := newMazeResponse(st)
	resp.Name = rec.Name
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.snapshot())
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an error to its status code.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, mazes.ErrNotFound), errors.Is(err, trainer.ErrJobNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errBadRequest), errors.Is(err, mazes.ErrNoName):
		status = http.StatusBadRequest
	case errors.Is(err, errNoPolicy):
		status = http.StatusConflict
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// readJSON decodes an optional json body; an empty body leaves v unchanged.
func readJSON(r *http.Request, v interface{}) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
