package fastview

import (
	"context"
	"html/template"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func fill(id, value string) EleUpdate {
	return EleUpdate{EleId: id, Ops: []Op{{Key: "fill", Value: value}}}
}

// receive waits briefly for one batch; ok is false on timeout or close.
func receive(ch <-chan []EleUpdate) (batch []EleUpdate, ok bool) {
	select {
	case batch, ok = <-ch:
		return
	case <-time.After(time.Second):
		return nil, false
	}
}

// closed reports whether ch closes within a second, draining anything queued.
func closed(ch <-chan []EleUpdate) bool {
	timeout := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return true
			}
		case <-timeout:
			return false
		}
	}
}

func TestHub(t *testing.T) {
	Convey("Given a hub", t, func() {
		hub := NewHub()

		Convey("A new subscriber of an empty hub gets nothing until a publish", func() {
			sub, unsubscribe := hub.Subscribe()
			defer unsubscribe()
			So(len(sub), ShouldEqual, 0)

			hub.publish([]EleUpdate{fill("a", "1")})
			batch, ok := receive(sub)
			So(ok, ShouldBeTrue)
			So(batch, ShouldResemble, []EleUpdate{fill("a", "1")})
		})

		Convey("A late subscriber starts from the latest state of every element", func() {
			hub.publish([]EleUpdate{fill("a", "1")})
			hub.publish([]EleUpdate{fill("a", "2"), fill("b", "3")})

			sub, unsubscribe := hub.Subscribe()
			defer unsubscribe()
			batch, ok := receive(sub)
			So(ok, ShouldBeTrue)
			So(batch, ShouldResemble, []EleUpdate{fill("a", "2"), fill("b", "3")})
		})

		Convey("A subscriber that stops reading misses batches without blocking the hub", func() {
			sub, unsubscribe := hub.Subscribe()
			defer unsubscribe()

			published := make(chan struct{})
			go func() {
				for i := 0; i < subscriberBuffer+3; i++ {
					hub.publish([]EleUpdate{fill("a", "x")})
				}
				close(published)
			}()
			select {
			case <-published:
			case <-time.After(time.Second):
				t.Fatal("publish blocked on a full subscriber")
			}
			So(len(sub), ShouldEqual, subscriberBuffer)
		})

		Convey("Unsubscribing closes the channel once and may be repeated", func() {
			sub, unsubscribe := hub.Subscribe()
			unsubscribe()
			So(closed(sub), ShouldBeTrue)
			So(unsubscribe, ShouldNotPanic)

			hub.publish([]EleUpdate{fill("a", "1")})
			So(hub.subs, ShouldBeEmpty)
		})

		Convey("Run forwards batches and closes every subscriber when done fires", func() {
			done := make(chan struct{})
			source := make(chan []EleUpdate)
			first, unsubFirst := hub.Subscribe()
			second, unsubSecond := hub.Subscribe()

			finished := make(chan struct{})
			go func() {
				hub.Run(done, source)
				close(finished)
			}()

			source <- []EleUpdate{fill("a", "1")}
			batch, ok := receive(first)
			So(ok, ShouldBeTrue)
			So(batch, ShouldResemble, []EleUpdate{fill("a", "1")})

			close(done)
			So(closed(first), ShouldBeTrue)
			So(closed(second), ShouldBeTrue)
			<-finished

			So(unsubFirst, ShouldNotPanic)
			So(unsubSecond, ShouldNotPanic)
		})
	})
}

func TestBatch(t *testing.T) {
	Convey("Given a batching stage", t, func() {
		done := make(chan struct{})
		defer close(done)
		source := make(chan []EleUpdate)

		Convey("Updates to one element within a window collapse to the latest", func() {
			output := batch(done, source, time.Hour)
			source <- []EleUpdate{fill("a", "1"), fill("b", "1")}
			source <- []EleUpdate{fill("a", "2")}
			close(source)

			got, ok := receive(output)
			So(ok, ShouldBeTrue)
			So(got, ShouldResemble, []EleUpdate{fill("a", "2"), fill("b", "1")})
			So(closed(output), ShouldBeTrue)
		})

		Convey("A pending batch is flushed at the end of its window", func() {
			output := batch(done, source, 5*time.Millisecond)
			source <- []EleUpdate{fill("a", "1")}

			got, ok := receive(output)
			So(ok, ShouldBeTrue)
			So(got, ShouldResemble, []EleUpdate{fill("a", "1")})
		})

		Convey("Nothing is sent for an empty window", func() {
			output := batch(done, source, time.Millisecond)
			select {
			case got := <-output:
				So(got, ShouldBeNil)
			case <-time.After(20 * time.Millisecond):
			}
		})
	})
}

// echoView turns every int it reads into one update of element id.
type echoView struct {
	id      string
	updates chan []EleUpdate
}

func newEchoView(id string) ViewBuilderFunc[int] {
	return func(done <-chan struct{}, models <-chan int) ViewComponent {
		view := &echoView{id: id, updates: make(chan []EleUpdate)}
		go func() {
			defer close(view.updates)
			for {
				select {
				case <-done:
					return
				case n, ok := <-models:
					if !ok {
						return
					}
					select {
					case view.updates <- []EleUpdate{{EleId: id, Ops: []Op{{Key: "textContent", Value: string(rune('0' + n))}}}}:
					case <-done:
						return
					}
				}
			}
		}()
		return view
	}
}

func (view *echoView) Updates() <-chan []EleUpdate { return view.updates }

func (view *echoView) Parse(parent *template.Template) (string, error) {
	_, err := parent.New(view.id).Parse(`<p id="` + view.id + `"></p>`)
	return view.id, err
}

func TestViewBuilder(t *testing.T) {
	Convey("Build requires a model and at least one view", t, func() {
		_, err := NewViewBuilder[int, int]().Build()
		So(err, ShouldEqual, ErrNoViews)

		_, err = NewViewBuilder[int, int]().WithView(newEchoView("a")).Build()
		So(err, ShouldEqual, ErrNoModel)
	})

	Convey("Every view sees each converted model, and FanIn merges them", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		source := make(chan int)

		views, err := NewViewBuilder[int, int]().
			WithContext(ctx).
			WithModel(source, func(n int) int { return n + 1 }).
			WithView(newEchoView("left")).
			WithView(newEchoView("right")).
			Build()
		So(err, ShouldBeNil)
		So(views, ShouldHaveLength, 2)

		merged := FanIn(ctx.Done(), views, 5*time.Millisecond)
		source <- 1

		seen := map[string]string{}
		timeout := time.After(time.Second)
		for len(seen) < 2 {
			select {
			case updates := <-merged:
				for _, update := range updates {
					seen[update.EleId] = update.Ops[0].Value
				}
			case <-timeout:
				t.Fatal("views did not publish")
			}
		}
		So(seen, ShouldResemble, map[string]string{"left": "2", "right": "2"})
	})
}
