package session

import (
	"time"

	"github.com/ringplayer/ringplayer/util"
)

// PlayerControl adapts a session to a media transport bar. Positions read as
// zero until the duration is known.
type PlayerControl struct {
	session *Session
}

func (c *PlayerControl) Start()          { c.session.SetPlayWhenReady(true) }
func (c *PlayerControl) Pause()          { c.session.SetPlayWhenReady(false) }
func (c *PlayerControl) IsPlaying() bool { return c.session.PlayWhenReady() }

func (c *PlayerControl) CanPause() bool        { return true }
func (c *PlayerControl) CanSeekBackward() bool { return true }
func (c *PlayerControl) CanSeekForward() bool  { return true }

// SeekTo clamps position to the media; with an unknown duration it seeks to the start.
func (c *PlayerControl) SeekTo(position time.Duration) {
	duration := c.session.Duration()
	if duration < 0 {
		c.session.SeekTo(0)
		return
	}
	c.session.SeekTo(util.Clamp(position, 0, duration))
}

func (c *PlayerControl) CurrentPosition() time.Duration {
	if c.session.Duration() < 0 {
		return 0
	}
	return c.session.CurrentPosition()
}

func (c *PlayerControl) Duration() time.Duration {
	if d := c.session.Duration(); d > 0 {
		return d
	}
	return 0
}

func (c *PlayerControl) BufferPercentage() int {
	return c.session.BufferedPercentage()
}
