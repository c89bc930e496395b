package fastview

import (
	"context"
	"errors"
	"time"

	channerics "github.com/niceyeti/channerics/channels"
)

// ViewBuilder wires one or more views to a common view model: every data
// model read from the source is converted once and broadcast to all views.
type ViewBuilder[DataModel any, ViewModel any] struct {
	source      <-chan DataModel
	viewModelFn func(DataModel) ViewModel
	builderFns  []ViewBuilderFunc[ViewModel]
	done        <-chan struct{} // nil never fires
}

func NewViewBuilder[DataModel any, ViewModel any]() *ViewBuilder[DataModel, ViewModel] {
	return &ViewBuilder[DataModel, ViewModel]{}
}

// WithModel sets the source of data models and their conversion to the
// view model.
func (vb *ViewBuilder[DataModel, ViewModel]) WithModel(
	input <-chan DataModel,
	convert func(DataModel) ViewModel,
) *ViewBuilder[DataModel, ViewModel] {
	vb.source = input
	vb.viewModelFn = convert
	return vb
}

// ViewBuilderFunc builds a view reading view models until done closes.
type ViewBuilderFunc[ViewModel any] func(<-chan struct{}, <-chan ViewModel) ViewComponent

// WithView adds a view. Build returns views in the order they were added.
func (vb *ViewBuilder[DataModel, ViewModel]) WithView(
	builderFn ViewBuilderFunc[ViewModel],
) *ViewBuilder[DataModel, ViewModel] {
	vb.builderFns = append(vb.builderFns, builderFn)
	return vb
}

// WithContext stops every stage of the pipeline when ctx is done.
func (vb *ViewBuilder[DataModel, ViewModel]) WithContext(
	ctx context.Context,
) *ViewBuilder[DataModel, ViewModel] {
	vb.done = ctx.Done()
	return vb
}

var (
	// ErrNoViews is returned when Build is called before any WithView.
	ErrNoViews error = errors.New("no views to build: WithView must be called")
	// ErrNoModel is returned when Build is called before WithModel.
	ErrNoModel error = errors.New("no model specified: WithModel must be called")
)

// Build runs the stored builders against a broadcast of the converted source.
func (vb *ViewBuilder[DataModel, ViewModel]) Build() (views []ViewComponent, err error) {
	if len(vb.builderFns) == 0 {
		return nil, ErrNoViews
	}
	if vb.viewModelFn == nil || vb.source == nil {
		return nil, ErrNoModel
	}

	vmChan := channerics.Convert(vb.done, vb.source, vb.viewModelFn)
	vmChans := channerics.Broadcast(vb.done, vmChan, len(vb.builderFns))
	for i, build := range vb.builderFns {
		views = append(views, build(vb.done, vmChans[i]))
	}
	return
}

// FanIn merges the views' updates and batches them: updates to the same
// element within one window collapse to the latest, and a pending batch is
// flushed at the end of its window even if nothing else arrives.
func FanIn(
	done <-chan struct{},
	views []ViewComponent,
	window time.Duration,
) <-chan []EleUpdate {
	inputs := make([]<-chan []EleUpdate, len(views))
	for i, view := range views {
		inputs[i] = view.Updates()
	}
	return batch(done, channerics.Merge(done, inputs...), window)
}

func batch(
	done <-chan struct{},
	source <-chan []EleUpdate,
	window time.Duration,
) <-chan []EleUpdate {
	output := make(chan []EleUpdate)

	go func() {
		defer close(output)

		pending := map[string]EleUpdate{}
		var order []string
		flush := func() bool {
			if len(order) == 0 {
				return true
			}
			out := make([]EleUpdate, 0, len(order))
			for _, id := range order {
				out = append(out, pending[id])
			}
			select {
			case output <- out:
				pending, order = map[string]EleUpdate{}, nil
				return true
			case <-done:
				return false
			}
		}

		ticks := channerics.NewTicker(done, window)
		for {
			select {
			case <-done:
				return
			case updates, ok := <-source:
				if !ok {
					flush()
					return
				}
				for _, update := range updates {
					if _, seen := pending[update.EleId]; !seen {
						order = append(order, update.EleId)
					}
					pending[update.EleId] = update
				}
			case <-ticks:
				if !flush() {
					return
				}
			}
		}
	}()

	return output
}
