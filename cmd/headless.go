package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ringplayer/ringplayer/controller"
	"github.com/ringplayer/ringplayer/engine"
	"github.com/ringplayer/ringplayer/icon"
	"github.com/ringplayer/ringplayer/looper"
	"github.com/ringplayer/ringplayer/renderer"
	"github.com/ringplayer/ringplayer/style"
	"github.com/ringplayer/ringplayer/util"
	"github.com/samber/mo"
)

// headlessView prints state changes as lines and stops at the end of the
// stream or on the first error.
type headlessView struct {
	out        io.Writer
	loop       *looper.Looper
	controller *controller.Controller
	last       engine.State
	err        error
}

func newHeadlessView(out io.Writer, loop *looper.Looper) *headlessView {
	return &headlessView{out: out, loop: loop}
}

// run drives c on the calling goroutine until playback ends, fails or the
// process is interrupted.
func (v *headlessView) run(ctx context.Context, c *controller.Controller, surface mo.Option[renderer.Surface]) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	v.controller = c
	v.loop.Post(func() {
		if s, ok := surface.Get(); ok {
			c.SurfaceCreated(s)
		}
		c.Resume()
	})

	err := v.loop.Loop(ctx)

	if surface.IsPresent() {
		c.SurfaceDestroyed()
	}
	c.Destroy()

	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		return err
	}
	return v.err
}

func (v *headlessView) OnStatus(playWhenReady bool, state engine.State, text string) {
	if state == v.last {
		return
	}
	v.last = state

	var position string
	if s := v.controller.Session(); s != nil {
		position = util.FormatClock(s.PlayerControl().CurrentPosition())
	}
	fmt.Fprintf(v.out, "%s %s %s\n", v.stateIcon(playWhenReady, state), style.Faint(position), text)

	if state == engine.StateEnded {
		v.Finish(nil)
	}
}

func (v *headlessView) stateIcon(playWhenReady bool, state engine.State) string {
	switch {
	case state == engine.StateEnded:
		return icon.Get(icon.Ended)
	case state == engine.StateBuffering || state == engine.StatePreparing:
		return icon.Get(icon.Buffering)
	case playWhenReady:
		return icon.Get(icon.Play)
	default:
		return icon.Get(icon.Pause)
	}
}

func (v *headlessView) OnAspectRatio(ratio float64) {
	fmt.Fprintf(v.out, "%s %s\n", icon.Get(icon.Video), style.Faint(fmt.Sprintf("aspect ratio %.2f", ratio)))
}

func (v *headlessView) OnError(message string) {
	v.Finish(errors.New(message))
}

func (v *headlessView) ShowControls() {}

func (v *headlessView) Finish(err error) {
	if err != nil && v.err == nil {
		v.err = err
	}
	v.loop.Quit()
}
