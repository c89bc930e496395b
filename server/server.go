package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"mazerl/config"
	"mazerl/grid_world"
	"mazerl/maze_gen"
	"mazerl/mazes"
	"mazerl/server/cell_views"
	"mazerl/server/fastview"
	"mazerl/server/root_view"
	"mazerl/simulation"
	"mazerl/trainer"

	"github.com/gorilla/mux"
)

const shutdownGracePeriod = 5 * time.Second

// Server serves the maze page, its websocket of view updates, and the json
// api that generates mazes, trains and simulates policies, and manages saved
// mazes. It holds one current maze shared by every page.
type Server struct {
	ctx    context.Context
	addr   string
	logger *log.Logger

	training config.Training
	genMu    sync.Mutex
	gen      *maze_gen.Generator
	driver   *simulation.Driver
	trainer  *trainer.Client
	store    mazes.Store
	stats    *runStats

	rootView  *root_view.RootView
	hub       *fastview.Hub
	router    *mux.Router
	snapshots chan cell_views.Snapshot
	changed   chan struct{}

	mu    sync.Mutex
	state state
}

// state is the current maze and everything derived from it.
type state struct {
	grid       grid_world.Grid
	tier       grid_world.Tier
	pathLength int
	policy     grid_world.Policy
	// trained describes how the policy was trained, for diagnostics.
	trained simulation.Context
	frame   *simulation.Frame
	status  string
	// jobID is the training job whose policy will replace the current one.
	jobID string
	// version changes whenever the maze is replaced, so late results for an
	// older maze can be discarded.
	version int
}

type Option func(*Server)

func WithLogger(logger *log.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGenerator replaces the generator built from the config.
func WithGenerator(gen *maze_gen.Generator) Option {
	return func(s *Server) {
		if gen != nil {
			s.gen = gen
		}
	}
}

// WithTrainer replaces the training client built from the config.
func WithTrainer(client *trainer.Client) Option {
	return func(s *Server) {
		if client != nil {
			s.trainer = client
		}
	}
}

// NewServer builds the views and routes and starts the page pipeline, which
// runs until ctx is done.
func NewServer(
	ctx context.Context,
	cfg *config.AppConfig,
	store mazes.Store,
	opts ...Option,
) (*Server, error) {
	s := &Server{
		ctx:       ctx,
		addr:      cfg.Server.Addr(),
		logger:    log.New(io.Discard, "", 0),
		training:  cfg.Training,
		store:     store,
		stats:     &runStats{},
		hub:       fastview.NewHub(),
		snapshots: make(chan cell_views.Snapshot),
		changed:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.gen == nil {
		genOpts := []maze_gen.Option{
			maze_gen.WithMaxAttempts(cfg.Generation.MaxAttempts),
			maze_gen.WithCloseMatchAfter(cfg.Generation.CloseMatchAfter),
			maze_gen.WithLogger(s.logger),
		}
		if cfg.Generation.Seed != 0 {
			genOpts = append(genOpts, maze_gen.WithSeed(cfg.Generation.Seed))
		}
		s.gen = maze_gen.New(genOpts...)
	}
	if s.trainer == nil {
		s.trainer = trainer.NewClient(cfg.Training.ServiceURL, trainer.WithLogger(s.logger))
	}
	s.driver = simulation.NewDriver(
		simulation.WithStepDelay(cfg.Server.StepDelay),
		simulation.WithDriverLogger(s.logger))

	s.state = newState(grid_world.Default())

	var err error
	if s.rootView, err = root_view.NewRootView(ctx, s.snapshots); err != nil {
		return nil, fmt.Errorf("server: views: %w", err)
	}
	go s.hub.Run(ctx.Done(), s.rootView.Updates())
	go s.pump()
	s.notify()

	s.router = s.routes()
	return s, nil
}

func newState(g grid_world.Grid) state {
	tier, length, _ := grid_world.Measure(g)
	return state{
		grid:       g,
		tier:       tier,
		pathLength: length,
		policy:     grid_world.NewPolicy(),
	}
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.serveIndex).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.serveWebsocket)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/maze", s.getMaze).Methods(http.MethodGet)
	api.HandleFunc("/mazes/generate", s.generateMaze).Methods(http.MethodPost)
	api.HandleFunc("/mazes/import", s.importMaze).Methods(http.MethodPost)
	api.HandleFunc("/mazes", s.listMazes).Methods(http.MethodGet)
	api.HandleFunc("/mazes", s.saveMaze).Methods(http.MethodPost)
	api.HandleFunc("/mazes/{name}", s.loadMaze).Methods(http.MethodGet)
	api.HandleFunc("/mazes/{name}", s.deleteMaze).Methods(http.MethodDelete)
	api.HandleFunc("/mazes/{name}/export", s.exportMaze).Methods(http.MethodGet)
	api.HandleFunc("/simulate", s.simulate).Methods(http.MethodPost)
	api.HandleFunc("/train", s.train).Methods(http.MethodPost)
	api.HandleFunc("/train/{id}", s.trainStatus).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.getStats).Methods(http.MethodGet)
	return r
}

// Serve listens until the server's context is done, then shuts down.
func (s *Server) Serve() error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-s.ctx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	s.logger.Printf("serving on http://%s", s.addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	s.driver.Cancel()
	return nil
}

// notify asks the pump to publish the current state. It never blocks; a
// pending request already covers any later change.
func (s *Server) notify() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// pump feeds the views the latest snapshot after every change.
func (s *Server) pump() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.changed:
		}
		snap := s.snapshot()
		select {
		case s.snapshots <- snap:
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Server) snapshot() cell_views.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cell_views.Snapshot{
		Grid:   s.state.grid,
		Tier:   s.state.tier,
		Policy: s.state.policy,
		Frame:  s.state.frame,
		Status: s.state.status,
	}
}

// update applies fn to the state under the lock and publishes the result.
func (s *Server) update(fn func(st *state)) {
	s.mu.Lock()
	fn(&s.state)
	s.mu.Unlock()
	s.notify()
}

// replaceMaze makes g current. The old policy, run and pending training job
// belonged to the old maze and are dropped.
func (s *Server) replaceMaze(g grid_world.Grid, tier grid_world.Tier, status string) state {
	s.driver.Cancel()
	var current state
	s.update(func(st *state) {
		next := newState(g)
		next.tier = tier
		next.status = status
		next.version = st.version + 1
		*st = next
		current = next
	})
	return current
}

// serveWebsocket streams view updates to one page until it goes away.
func (s *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	updates, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	cli, err := fastview.NewClient(updates, w, r)
	if err != nil {
		s.logger.Println("upgrade:", err)
		return
	}
	if err = cli.Sync(); err != nil {
		s.logger.Println("websocket:", err)
	}
}

// serveIndex renders the page with the current state already drawn.
func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if err := renderTemplate(w, s.rootView, cell_views.FromSnapshot(s.snapshot())); err != nil {
		s.logger.Println("render:", err)
		_, _ = w.Write([]byte(err.Error()))
	}
}

func renderTemplate(
	w io.Writer,
	vc fastview.ViewComponent,
	data interface{},
) (err error) {
	t := template.New("index.html")
	var tname string
	if tname, err = vc.Parse(t); err != nil {
		return
	}
	if _, err = t.Parse(`{{ template "` + tname + `" . }}`); err != nil {
		return
	}
	return t.Execute(w, data)
}
