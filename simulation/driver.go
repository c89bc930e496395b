package simulation

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	. "mazerl/grid_world"

	"github.com/google/uuid"
	channerics "github.com/niceyeti/channerics/channels"
)

// DefaultStepDelay paces an animated run.
const DefaultStepDelay = 250 * time.Millisecond

// Frame is one observable moment of an animated run. The last frame of a run
// carries a terminal Outcome; all earlier ones carry Continue.
type Frame struct {
	RunID      string    `json:"run_id"`
	Step       int       `json:"step"`
	Position   Position  `json:"position"`
	Trace      Trace     `json:"trace"`
	Outcome    Outcome   `json:"outcome"`
	Diagnostic string    `json:"diagnostic,omitempty"`
	Collision  *Position `json:"collision,omitempty"`
}

// Driver animates runs one at a time. Starting a run supersedes the one in
// flight: the old run is cancelled and its frame channel closed before the
// new run produces anything.
type Driver struct {
	delay  time.Duration
	logger *log.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type DriverOption func(*Driver)

func WithStepDelay(delay time.Duration) DriverOption {
	return func(d *Driver) {
		if delay > 0 {
			d.delay = delay
		}
	}
}

func WithDriverLogger(logger *log.Logger) DriverOption {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func NewDriver(opts ...DriverOption) *Driver {
	d := &Driver{
		delay:  DefaultStepDelay,
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start begins an animated run and returns its id and frames. The channel is
// closed when the run ends, is superseded, or ctx is cancelled.
func (d *Driver) Start(ctx context.Context, g Grid, pol Policy, dctx Context) (string, <-chan Frame) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stop()

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})

	id := uuid.NewString()
	frames := make(chan Frame)
	go d.run(runCtx, id, g, pol, dctx, frames, d.done)
	return id, frames
}

// Cancel stops the run in flight, if any, and waits for it to wind down.
func (d *Driver) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stop()
}

// stop must be called with mu held.
func (d *Driver) stop() {
	if d.cancel == nil {
		return
	}
	d.cancel()
	<-d.done
	d.cancel = nil
	d.done = nil
}

func (d *Driver) run(
	ctx context.Context,
	id string,
	g Grid,
	pol Policy,
	dctx Context,
	frames chan<- Frame,
	done chan<- struct{},
) {
	defer close(done)
	defer close(frames)

	trace := Begin(g)
	first := Frame{RunID: id, Position: trace.Head(), Trace: trace, Outcome: Continue}
	if !emit(ctx, frames, first) {
		return
	}

	ticks := channerics.NewTicker(ctx.Done(), d.delay)
	for {
		select {
		case <-ctx.Done():
			d.logger.Printf("run %s cancelled after %d steps", id, trace.Moves())
			return
		case <-ticks:
		}

		var outcome Outcome
		trace, outcome = Step(g, pol, trace, MaxSteps)
		frame := Frame{
			RunID:    id,
			Step:     trace.Moves(),
			Position: trace.Head(),
			Trace:    trace,
			Outcome:  outcome,
		}

		if outcome.Terminal() {
			res := finish(pol, trace, outcome, dctx)
			frame.Diagnostic = res.Diagnostic
			frame.Collision = res.Collision
			d.logger.Printf("run %s: %s", id, Summary(res))
			emit(ctx, frames, frame)
			return
		}
		if !emit(ctx, frames, frame) {
			return
		}
	}
}

// emit delivers a frame unless the run is cancelled first.
func emit(ctx context.Context, frames chan<- Frame, frame Frame) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case frames <- frame:
		return true
	case <-ctx.Done():
		return false
	}
}
