package controller

import (
	"time"

	"github.com/ringplayer/ringplayer/util"
)

// Key is a transport key the host forwards.
type Key int

const (
	KeyOther Key = iota
	KeyPlayPause
	KeyPlay
	KeyPause
	KeyFastForward
	KeyRewind
)

// HandleKey applies a transport key and reports whether it was consumed.
// Seek keys are consumed only when the current session can seek.
func (c *Controller) HandleKey(k Key) bool {
	if c.session == nil {
		return false
	}
	control := c.session.PlayerControl()

	switch k {
	case KeyPlayPause:
		if control.IsPlaying() {
			control.Pause()
		} else {
			c.play()
		}
	case KeyPlay:
		c.play()
	case KeyPause:
		control.Pause()
	case KeyFastForward:
		if !control.CanSeekForward() {
			return false
		}
		control.SeekTo(control.CurrentPosition() + c.opts.SeekForward)
	case KeyRewind:
		if !control.CanSeekBackward() {
			return false
		}
		control.SeekTo(control.CurrentPosition() - c.opts.SeekBackward)
	default:
		return false
	}

	c.view.ShowControls()
	return true
}

// play resumes, preparing again first when an error left the session unprepared.
func (c *Controller) play() {
	if c.needsPrepare {
		c.preparePlayer(true)
		return
	}
	c.session.PlayerControl().Start()
}

// SeekFraction seeks to a share of the duration, as a progress bar click does.
func (c *Controller) SeekFraction(fraction float64) {
	if c.session == nil {
		return
	}
	control := c.session.PlayerControl()
	fraction = util.Clamp(fraction, 0, 1)
	control.SeekTo(time.Duration(float64(control.Duration()) * fraction))
}
