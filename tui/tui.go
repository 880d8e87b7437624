// Package tui provides the transport bar shown while a session plays.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ringplayer/ringplayer/controller"
	"github.com/ringplayer/ringplayer/looper"
	"github.com/ringplayer/ringplayer/renderer"
	"github.com/samber/mo"
)

// Options encapsulates the runtime configuration of the transport bar.
type Options struct {
	Title string
	// Surface is created when the bar starts and destroyed when it quits.
	// Without one playback is audio only.
	Surface mo.Option[renderer.Surface]
}

// Bubble is the transport bar. It is the controller's View and drains the
// main looper from its update loop.
type Bubble = statefulBubble

// New returns a transport bar draining loop. Attach a controller before Run.
func New(loop *looper.Looper, options *Options) *Bubble {
	return newBubble(loop, options)
}

// Run attaches c and runs the bubbletea program until the user quits or the
// controller finishes.
func (b *statefulBubble) Run(c *controller.Controller) error {
	b.controller = c

	if _, err := tea.NewProgram(b).Run(); err != nil {
		return err
	}
	return b.err
}
