package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/ringplayer/ringplayer/controller"
	"github.com/ringplayer/ringplayer/engine"
	"github.com/ringplayer/ringplayer/looper"
	"github.com/ringplayer/ringplayer/style"
)

// controlsTimeout is how long the key help stays up after the last input.
const controlsTimeout = 3 * time.Second

type statefulBubble struct {
	state  state
	keymap *statefulKeymap

	progressC progress.Model
	helpC     help.Model

	loop       *looper.Looper
	options    *Options
	controller *controller.Controller

	playWhenReady bool
	playbackState engine.State
	statusText    string
	aspectRatio   float64
	lastError     string
	controlsUntil time.Time
	quitting      bool
	err           error

	width, height int
}

func newBubble(loop *looper.Looper, options *Options) *statefulBubble {
	keymap := newStatefulKeymap()
	bubble := &statefulBubble{
		keymap:        keymap,
		loop:          loop,
		options:       options,
		playbackState: engine.StateIdle,
		progressC:     progress.New(progress.WithSolidFill(string(style.AccentColor)), progress.WithoutPercentage()),
		helpC:         help.New(),
	}
	bubble.setState(loadingState)
	return bubble
}

func (b *statefulBubble) setState(s state) {
	b.state = s
	b.keymap.setState(s)
}

func (b *statefulBubble) resize(width, height int) {
	b.width, b.height = width, height
	b.helpC.Width = width
	b.progressC.Width = max(10, width-24)
}

// OnStatus implements controller.View.
func (b *statefulBubble) OnStatus(playWhenReady bool, state engine.State, text string) {
	b.playWhenReady = playWhenReady
	b.playbackState = state
	b.statusText = text

	if state != engine.StateIdle && state != engine.StatePreparing {
		b.lastError = ""
		b.setState(playerState)
	}
}

// OnAspectRatio implements controller.View.
func (b *statefulBubble) OnAspectRatio(ratio float64) {
	b.aspectRatio = ratio
}

// OnError implements controller.View.
func (b *statefulBubble) OnError(message string) {
	b.lastError = message
	b.setState(errorState)
}

// ShowControls implements controller.View.
func (b *statefulBubble) ShowControls() {
	b.controlsUntil = time.Now().Add(controlsTimeout)
}

// Finish implements controller.View.
func (b *statefulBubble) Finish(err error) {
	b.err = err
	b.quitting = true
}

func (b *statefulBubble) controlsVisible() bool {
	return b.state != playerState || b.helpC.ShowAll || time.Now().Before(b.controlsUntil)
}
