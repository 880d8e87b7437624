package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ringplayer/ringplayer/controller"
)

// refreshInterval is how often the position is redrawn.
const refreshInterval = 250 * time.Millisecond

type (
	startMsg   struct{}
	loopMsg    struct{}
	refreshMsg time.Time
)

func (b *statefulBubble) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return startMsg{} },
		b.waitForLoop(),
		refresh(),
	)
}

// waitForLoop delivers a loopMsg once the main looper has work.
func (b *statefulBubble) waitForLoop() tea.Cmd {
	return func() tea.Msg {
		<-b.loop.Wake()
		return loopMsg{}
	}
}

func refresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (b *statefulBubble) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case startMsg:
		if surface, ok := b.options.Surface.Get(); ok {
			b.controller.SurfaceCreated(surface)
		}
		b.controller.Resume()
		b.ShowControls()
	case loopMsg:
		b.loop.RunPending()
		cmd = b.waitForLoop()
	case refreshMsg:
		b.loop.RunPending()
		cmd = refresh()
	case tea.WindowSizeMsg:
		b.resize(msg.Width, msg.Height)
	case tea.KeyMsg:
		cmd = b.handleKey(msg)
	}

	if b.quitting {
		return b, b.quit()
	}
	return b, cmd
}

func (b *statefulBubble) handleKey(msg tea.KeyMsg) tea.Cmd {
	c := b.controller
	b.ShowControls()

	switch {
	case key.Matches(msg, b.keymap.forceQuit), key.Matches(msg, b.keymap.quit):
		b.quitting = true
	case key.Matches(msg, b.keymap.showHelp):
		b.helpC.ShowAll = !b.helpC.ShowAll
	case key.Matches(msg, b.keymap.retry) && b.state == errorState:
		c.Retry()
	case key.Matches(msg, b.keymap.playPause):
		c.HandleKey(controller.KeyPlayPause)
	case key.Matches(msg, b.keymap.forward):
		c.HandleKey(controller.KeyFastForward)
	case key.Matches(msg, b.keymap.rewind):
		c.HandleKey(controller.KeyRewind)
	case key.Matches(msg, b.keymap.seekStart):
		c.SeekFraction(0)
	case key.Matches(msg, b.keymap.seekEnd):
		c.SeekFraction(1)
	}
	return nil
}

// quit tears the surface down before the session, as a closing window does.
func (b *statefulBubble) quit() tea.Cmd {
	if b.options.Surface.IsPresent() {
		b.controller.SurfaceDestroyed()
	}
	b.controller.Destroy()
	return tea.Quit
}
