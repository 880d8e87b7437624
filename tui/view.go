package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wrap"
	"github.com/ringplayer/ringplayer/engine"
	"github.com/ringplayer/ringplayer/icon"
	"github.com/ringplayer/ringplayer/renderer"
	"github.com/ringplayer/ringplayer/style"
	"github.com/ringplayer/ringplayer/util"
)

var paddingStyle = lipgloss.NewStyle().Padding(1, 2)

func (b *statefulBubble) View() string {
	if b.quitting {
		return ""
	}

	switch b.state {
	case loadingState:
		return b.viewLoading()
	case playerState:
		return b.viewPlayer()
	case errorState:
		return b.viewError()
	default:
		return "Unknown state"
	}
}

func (b *statefulBubble) title() string {
	title := b.options.Title
	if title == "" {
		title = b.controller.Media().Locator
	}
	if b.width > 8 {
		title = truncate.StringWithTail(title, uint(b.width-8), "…")
	}
	return style.Title(title)
}

func (b *statefulBubble) viewLoading() string {
	return b.renderLines([]string{
		b.title(),
		"",
		icon.Get(icon.Buffering) + " " + style.Faint("preparing"),
	})
}

func (b *statefulBubble) viewPlayer() string {
	s := b.controller.Session()
	if s == nil {
		return b.viewLoading()
	}
	control := s.PlayerControl()

	position, duration := control.CurrentPosition(), control.Duration()
	var fraction float64
	if duration > 0 {
		fraction = float64(position) / float64(duration)
	}

	bar := fmt.Sprintf("%s %s %s %s",
		b.stateIcon(),
		util.FormatClock(position),
		b.progressC.ViewAs(fraction),
		util.FormatClock(duration),
	)

	lines := []string{
		b.title(),
		"",
		bar,
		style.Faint(fmt.Sprintf("buffered %d%%", control.BufferPercentage())),
		"",
		b.tracksLine(),
		style.Faint(b.statusText),
	}
	return b.renderLines(lines)
}

func (b *statefulBubble) stateIcon() string {
	switch {
	case b.playbackState == engine.StateEnded:
		return icon.Get(icon.Ended)
	case b.playbackState == engine.StateBuffering:
		return icon.Get(icon.Buffering)
	case b.playWhenReady:
		return icon.Get(icon.Play)
	default:
		return icon.Get(icon.Pause)
	}
}

func (b *statefulBubble) tracksLine() string {
	s := b.controller.Session()

	var parts []string
	if f, ok := s.TrackFormat(renderer.Video, 0); ok {
		video := fmt.Sprintf("%s %s %dx%d", icon.Get(icon.Video), f.Codec, f.Width, f.Height)
		if b.aspectRatio > 0 {
			video += fmt.Sprintf(" (%.2f:1)", b.aspectRatio)
		}
		parts = append(parts, video)
	}
	if f, ok := s.TrackFormat(renderer.Audio, 0); ok {
		parts = append(parts, fmt.Sprintf("%s %s %s", icon.Get(icon.Audio), f.Codec, util.Quantify(f.ChannelCount, "channel", "channels")))
	}
	return strings.Join(parts, style.Faint(" · "))
}

func (b *statefulBubble) viewError() string {
	errorStyle := lipgloss.NewStyle().Foreground(style.ErrorColor).Bold(true)
	body := errorStyle.Render(b.lastError)
	if b.width > 4 {
		body = wrap.String(body, b.width-4)
	}

	return b.renderLines([]string{
		style.ErrorTitle("Error"),
		"",
		icon.Get(icon.Fail) + " " + body,
	})
}

func (b *statefulBubble) renderLines(lines []string) string {
	l := strings.Join(lines, "\n")
	if b.controlsVisible() {
		l += "\n\n" + b.helpC.View(b.keymap)
	}
	return paddingStyle.Render(l)
}
