package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/ringplayer/ringplayer/color"
	"github.com/ringplayer/ringplayer/style"
)

// statefulKeymap defines the keys available in each state.
type statefulKeymap struct {
	state state

	quit, forceQuit,
	playPause,
	forward, rewind,
	seekStart, seekEnd,
	retry,
	showHelp key.Binding
}

func (k *statefulKeymap) setState(newState state) {
	k.state = newState
}

func newStatefulKeymap() *statefulKeymap {
	return &statefulKeymap{
		quit: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q", "quit"),
		),
		forceQuit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+d"),
			key.WithHelp("ctrl+c", "quit"),
		),
		playPause: key.NewBinding(
			key.WithKeys(" ", "p", "k"),
			key.WithHelp(style.Fg(color.Yellow)("space"), style.Fg(color.Yellow)("play/pause")),
		),
		forward: key.NewBinding(
			key.WithKeys("right", "l", "f"),
			key.WithHelp("→", "fast-forward"),
		),
		rewind: key.NewBinding(
			key.WithKeys("left", "h", "b"),
			key.WithHelp("←", "rewind"),
		),
		seekStart: key.NewBinding(
			key.WithKeys("g", "home", "0"),
			key.WithHelp("g", "start"),
		),
		seekEnd: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "end"),
		),
		retry: key.NewBinding(
			key.WithKeys("r", "enter"),
			key.WithHelp("r", "retry"),
		),
		showHelp: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

func (k *statefulKeymap) help() ([]key.Binding, []key.Binding) {
	h := func(bindings ...key.Binding) []key.Binding {
		return bindings
	}

	switch k.state {
	case loadingState:
		return h(k.forceQuit), h(k.forceQuit)
	case playerState:
		return h(k.playPause, k.forward, k.rewind, k.quit, k.showHelp),
			h(k.playPause, k.forward, k.rewind, k.seekStart, k.seekEnd, k.retry, k.quit)
	case errorState:
		return h(k.retry, k.quit), h(k.retry, k.quit)
	default:
		return h(), h()
	}
}

func (k *statefulKeymap) ShortHelp() []key.Binding {
	short, _ := k.help()
	return short
}

func (k *statefulKeymap) FullHelp() [][]key.Binding {
	_, full := k.help()
	return [][]key.Binding{full}
}
