package looper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRunPending(t *testing.T) {
	Convey("Given a looper", t, func() {
		l := New()

		Convey("Messages run in posting order", func() {
			var got []int
			for i := 0; i < 5; i++ {
				i := i
				So(l.Post(func() { got = append(got, i) }), ShouldBeTrue)
			}

			So(l.RunPending(), ShouldEqual, 5)
			So(got, ShouldResemble, []int{0, 1, 2, 3, 4})
		})

		Convey("Messages posted while draining run in the same call", func() {
			var got []string
			l.Post(func() {
				got = append(got, "outer")
				l.Post(func() { got = append(got, "inner") })
			})

			So(l.RunPending(), ShouldEqual, 2)
			So(got, ShouldResemble, []string{"outer", "inner"})
		})

		Convey("A reentrant RunPending is a no-op", func() {
			var nested int
			l.Post(func() { nested = l.RunPending() })
			l.RunPending()
			So(nested, ShouldEqual, 0)
		})

		Convey("Posts after Quit are rejected", func() {
			l.Quit()
			So(l.Post(func() {}), ShouldBeFalse)
			So(l.Pending(), ShouldEqual, 0)
		})
	})
}

func TestLoop(t *testing.T) {
	Convey("Given a running loop", t, func() {
		l := New()
		done := make(chan error, 1)
		go func() { done <- l.Loop(context.Background()) }()

		Convey("Messages from many goroutines all run on the loop", func() {
			var (
				wg    sync.WaitGroup
				count int
				ran   = make(chan struct{}, 100)
			)
			for i := 0; i < 100; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					l.Post(func() {
						count++
						ran <- struct{}{}
					})
				}()
			}
			wg.Wait()
			for i := 0; i < 100; i++ {
				<-ran
			}

			l.Quit()
			So(<-done, ShouldBeNil)
			So(count, ShouldEqual, 100)
		})

		Convey("Quit drains what was queued before it", func() {
			var ran bool
			l.Post(func() { ran = true })
			l.Quit()

			So(<-done, ShouldBeNil)
			So(ran, ShouldBeTrue)
		})
	})

	Convey("Given a context that times out", t, func() {
		l := New()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		err := l.Loop(ctx)
		So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)

		Convey("messages posted before Quit still run afterwards", func() {
			ran := false
			l.Post(func() { ran = true })
			l.Quit()
			So(l.Loop(context.Background()), ShouldBeNil)
			So(ran, ShouldBeTrue)
		})
	})
}
