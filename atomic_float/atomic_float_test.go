package atomic_float

import (
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestAtomicAdd(t *testing.T) {
	Convey("When AtomicAdd is called", t, func() {
		Convey("When multiple writers add to the float value concurrently", func() {
			af := NewAtomicFloat64(0)
			numOps := 2000
			numWriters := 50

			start := make(chan struct{})
			wg := sync.WaitGroup{}
			wg.Add(numWriters)
			for i := 0; i < numWriters; i++ {
				go func() {
					defer wg.Done()
					<-start
					for j := 0; j < numOps; j++ {
						af.AtomicAdd(1.0)
					}
				}()
			}
			close(start)
			wg.Wait()
			So(af.AtomicRead(), ShouldEqual, float64(numOps*numWriters))
		})

		Convey("When writers increment and decrement concurrently", func() {
			af := NewAtomicFloat64(10)
			numOps := 2000
			numWriters := 50

			start := make(chan struct{})
			wg := sync.WaitGroup{}
			wg.Add(numWriters * 2)
			for i := 0; i < numWriters; i++ {
				for _, delta := range []float64{1, -1} {
					go func(delta float64) {
						defer wg.Done()
						<-start
						for j := 0; j < numOps; j++ {
							af.AtomicAdd(delta)
						}
					}(delta)
				}
			}
			close(start)
			wg.Wait()
			So(af.AtomicRead(), ShouldEqual, 10.0)
		})
	})

	Convey("TryAdd and AtomicSet without contention", t, func() {
		var af AtomicFloat64
		So(af.AtomicRead(), ShouldEqual, 0.0)

		newVal, ok := af.TryAdd(2.5)
		So(ok, ShouldBeTrue)
		So(newVal, ShouldEqual, 2.5)

		af.AtomicSet(-1.25)
		So(af.AtomicRead(), ShouldEqual, -1.25)
	})
}
