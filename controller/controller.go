// Package controller owns the host side of playback: the lifecycle of the
// session, the display surface and the transport intents of the user.
//
// Like the session it drives, a Controller is confined to the main looper.
package controller

import (
	"errors"
	"fmt"
	"time"

	"github.com/ringplayer/ringplayer/builder"
	"github.com/ringplayer/ringplayer/engine"
	"github.com/ringplayer/ringplayer/log"
	"github.com/ringplayer/ringplayer/looper"
	"github.com/ringplayer/ringplayer/renderer"
	"github.com/ringplayer/ringplayer/session"
	"github.com/ringplayer/ringplayer/source"
	"github.com/samber/mo"
)

// View is the host UI the controller reports to.
type View interface {
	// OnStatus receives every state change as it should be shown.
	OnStatus(playWhenReady bool, state engine.State, text string)
	// OnAspectRatio receives the display aspect ratio of the video.
	OnAspectRatio(ratio float64)
	// OnError receives a message for an error the user can retry from.
	OnError(message string)
	ShowControls()
	// Finish asks the host to close. err is nil for a normal exit.
	Finish(err error)
}

// PositionStore persists the last released position per locator.
type PositionStore interface {
	Position(locator string) (time.Duration, bool)
	Save(locator string, position, duration time.Duration) error
}

// Media names what to play.
type Media struct {
	Locator string
	// Type selects the builder. The zero value, TypeAuto, is inferred from
	// the locator.
	Type builder.ContentType
	// Extension overrides the extension used for inference.
	Extension string
}

// Options configure a Controller.
type Options struct {
	Builder       builder.Options
	PlayWhenReady bool
	SeekForward   time.Duration
	SeekBackward  time.Duration
	// StartPosition is where the first session starts. Zero defers to Store.
	StartPosition time.Duration
	// Store, when set, restores and saves positions across runs.
	Store PositionStore
}

// EngineFactory returns a fresh engine posting its callbacks to handler.
type EngineFactory func(handler looper.Poster) engine.Engine

// BuilderFactory returns the builder for one content type and locator.
type BuilderFactory func(t builder.ContentType, locator string, opts builder.Options) (builder.Builder, error)

// Controller drives one session at a time.
type Controller struct {
	handler     looper.Poster
	opts        Options
	view        View
	permissions PermissionRequester
	newEngine   EngineFactory
	newBuilder  BuilderFactory

	media        Media
	session      *session.Session
	surface      mo.Option[renderer.Surface]
	needsPrepare bool
	position     time.Duration
	awaiting     bool
	destroyed    bool
	logger       *eventLogger
}

// New returns a controller for media. Nothing is started before Resume.
func New(handler looper.Poster, media Media, opts Options, view View, permissions PermissionRequester, newEngine EngineFactory) *Controller {
	if opts.SeekForward <= 0 {
		opts.SeekForward = 15 * time.Second
	}
	if opts.SeekBackward <= 0 {
		opts.SeekBackward = 5 * time.Second
	}

	return &Controller{
		handler:     handler,
		opts:        opts,
		view:        view,
		permissions: permissions,
		newEngine:   newEngine,
		newBuilder:  builder.New,
		media:       media,
		surface:     mo.None[renderer.Surface](),
		position:    opts.StartPosition,
	}
}

// Session returns the current session, or nil.
func (c *Controller) Session() *session.Session { return c.session }

// Media returns what the controller plays.
func (c *Controller) Media() Media { return c.media }

// Resume shows the player. A missing session is created, unless the
// locator is a local file that first needs read permission.
func (c *Controller) Resume() {
	if c.destroyed || c.session != nil {
		return
	}
	if c.maybeRequestPermission() {
		return
	}
	c.preparePlayer(c.opts.PlayWhenReady)
}

// Pause hides the player and releases the session.
func (c *Controller) Pause() {
	c.releasePlayer()
}

// Destroy releases the session for good.
func (c *Controller) Destroy() {
	if c.destroyed {
		return
	}
	c.releasePlayer()
	c.destroyed = true
}

// NewMedia switches to another locator. Playback starts from its beginning
// on the next Resume.
func (c *Controller) NewMedia(media Media) {
	c.releasePlayer()
	c.media = media
	c.position = 0
	c.awaiting = false
}

// Retry prepares the session again after an error.
func (c *Controller) Retry() {
	c.preparePlayer(true)
}

// SurfaceCreated binds a new display surface.
func (c *Controller) SurfaceCreated(surface renderer.Surface) {
	c.surface = mo.Some(surface)
	if c.session != nil {
		c.session.SetSurface(surface)
	}
}

// SurfaceDestroyed unbinds the surface before it goes away.
func (c *Controller) SurfaceDestroyed() {
	c.surface = mo.None[renderer.Surface]()
	if c.session != nil {
		c.session.ClearSurfaceBlocking()
	}
}

// OnPermissionResult resumes after a permission request.
func (c *Controller) OnPermissionResult(granted bool) {
	if !c.awaiting || c.destroyed {
		return
	}
	c.awaiting = false

	if !granted {
		c.view.Finish(fmt.Errorf("%w: %s", ErrPermissionDenied, c.media.Locator))
		return
	}
	c.preparePlayer(true)
}

func (c *Controller) preparePlayer(playWhenReady bool) {
	if c.destroyed {
		return
	}

	if c.session == nil {
		b, err := c.builder()
		if err != nil {
			c.view.Finish(err)
			return
		}

		s := session.New(b, c.newEngine(c.handler), c.handler)
		c.logger = newEventLogger(s.ID().String(), c.media.Locator)
		s.AddListener(c)
		s.AddListener(c.logger)
		s.SetInfoListener(c.logger)
		s.SetInternalErrorListener(c.logger)

		if c.position == 0 && c.opts.Store != nil {
			if saved, ok := c.opts.Store.Position(c.media.Locator); ok {
				c.position = saved
			}
		}
		s.SeekTo(c.position)

		c.session = s
		c.needsPrepare = true
	}

	if c.needsPrepare {
		if err := c.session.Prepare(); err != nil {
			c.view.Finish(err)
			return
		}
		c.needsPrepare = false
	}

	if surface, ok := c.surface.Get(); ok {
		c.session.SetSurface(surface)
	}
	c.session.SetPlayWhenReady(playWhenReady)
}

func (c *Controller) builder() (builder.Builder, error) {
	t := c.media.Type.Resolve(c.media.Locator, c.media.Extension)
	return c.newBuilder(t, c.media.Locator, c.opts.Builder)
}

func (c *Controller) releasePlayer() {
	if c.session == nil {
		return
	}

	c.position = c.session.CurrentPosition()
	if c.opts.Store != nil {
		if err := c.opts.Store.Save(c.media.Locator, c.position, c.session.Duration()); err != nil {
			log.Warnf("saving position of %s: %v", c.media.Locator, err)
		}
	}

	c.session.Release()
	c.session = nil
	c.logger.end(c.position)
	c.logger = nil
}

// OnStateChanged implements session.Listener.
func (c *Controller) OnStateChanged(playWhenReady bool, state engine.State) {
	if state == engine.StateEnded {
		c.view.ShowControls()
	}
	c.view.OnStatus(playWhenReady, state, session.StateText(playWhenReady, state))
}

// OnError implements session.Listener.
func (c *Controller) OnError(err *session.Error) {
	c.view.OnError(errorString(err))
	c.needsPrepare = true
	c.view.ShowControls()
}

// OnVideoSizeChanged implements session.Listener.
func (c *Controller) OnVideoSizeChanged(width, height, _ int, pixelWidthHeightRatio float64) {
	ratio := 1.0
	if height != 0 {
		ratio = float64(width) * pixelWidthHeightRatio / float64(height)
	}
	c.view.OnAspectRatio(ratio)
}

func errorString(err error) string {
	var (
		decoderErr *renderer.DecoderInitializationError
		loadErr    *source.LoadError
	)

	switch {
	case errors.As(err, &decoderErr):
		if decoderErr.DecoderName == "" {
			return fmt.Sprintf("This device does not provide a decoder for %s", decoderErr.MimeType)
		}
		return fmt.Sprintf("Unable to instantiate decoder %s", decoderErr.DecoderName)
	case errors.Is(err, source.ErrNotMP4):
		return "This container format is not supported"
	case errors.Is(err, source.ErrUnsupportedScheme):
		return "This locator scheme is not supported"
	case errors.As(err, &loadErr):
		return fmt.Sprintf("Unable to load %s", loadErr.Locator)
	default:
		return fmt.Sprintf("Playback failed: %v", err)
	}
}
