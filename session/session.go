// Package session sequences renderer construction, surface binding and state
// reporting for one progressive playback session.
//
// A Session is confined to its main looper: every method must be called on
// the goroutine that drains it, and every builder, engine and renderer
// callback is delivered there. Nothing in a Session is locked.
package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ringplayer/ringplayer/builder"
	"github.com/ringplayer/ringplayer/engine"
	"github.com/ringplayer/ringplayer/log"
	"github.com/ringplayer/ringplayer/looper"
	"github.com/ringplayer/ringplayer/renderer"
	"github.com/ringplayer/ringplayer/source"
	"github.com/ringplayer/ringplayer/util"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
)

// BuildState tracks renderer construction.
type BuildState int

const (
	BuildIdle BuildState = iota + 1
	BuildBuilding
	BuildBuilt
)

func (b BuildState) String() string {
	switch b {
	case BuildIdle:
		return "idle"
	case BuildBuilding:
		return "building"
	case BuildBuilt:
		return "built"
	default:
		return fmt.Sprintf("BuildState(%d)", int(b))
	}
}

// Session is the playback façade the host controller drives.
type Session struct {
	id      uuid.UUID
	log     *logrus.Entry
	handler looper.Poster
	engine  engine.Engine
	builder builder.Builder
	control *PlayerControl
	events  *rendererEvents
	relay   *engineListener

	listeners             util.CopyOnWrite[Listener]
	internalErrorListener InternalErrorListener
	infoListener          InfoListener

	generation                uint64
	buildState                BuildState
	lastReportedState         engine.State
	lastReportedPlayWhenReady bool

	surface       mo.Option[renderer.Surface]
	videoRenderer *renderer.VideoRenderer
	videoCounters *renderer.CodecCounters
	audioCounters *renderer.CodecCounters
	videoFormat   mo.Option[renderer.Format]
	meter         *source.BandwidthMeter

	released       bool
	engineReleased bool
}

// New returns an idle session that builds with b and plays on e.
// handler is the main looper e posts its callbacks to.
func New(b builder.Builder, e engine.Engine, handler looper.Poster) *Session {
	id := uuid.New()
	s := &Session{
		id:                id,
		log:               log.WithFields(log.Fields{"session": id.String()}),
		handler:           handler,
		engine:            e,
		builder:           b,
		buildState:        BuildIdle,
		lastReportedState: engine.StateIdle,
		surface:           mo.None[renderer.Surface](),
		videoFormat:       mo.None[renderer.Format](),
	}
	s.control = &PlayerControl{session: s}
	s.events = &rendererEvents{session: s}
	s.relay = &engineListener{session: s}

	e.AddListener(s.relay)
	return s
}

// ID identifies the session in logs.
func (s *Session) ID() uuid.UUID { return s.id }

// BuildState returns the renderer construction state.
func (s *Session) BuildState() BuildState { return s.buildState }

// PlayerControl returns the transport-control adapter for this session.
func (s *Session) PlayerControl() *PlayerControl { return s.control }

// AddListener registers l. It is safe to call while an event is being broadcast.
// Listeners are compared by identity, so l must be a pointer or another
// comparable value.
func (s *Session) AddListener(l Listener) { s.listeners.Add(l) }

// RemoveListener unregisters l.
func (s *Session) RemoveListener(l Listener) { s.listeners.Remove(l) }

// SetInternalErrorListener replaces the internal error listener. nil clears it.
func (s *Session) SetInternalErrorListener(l InternalErrorListener) { s.internalErrorListener = l }

// SetInfoListener replaces the info listener. nil clears it.
func (s *Session) SetInfoListener(l InfoListener) { s.infoListener = l }

// Prepare (re)starts renderer construction. A built set is stopped and any
// build in flight is cancelled first, so at most one build is ever outstanding.
func (s *Session) Prepare() error {
	if s.released {
		return ErrReleased
	}

	if s.buildState == BuildBuilt {
		s.engine.Stop()
	}
	s.builder.Cancel()

	s.generation++
	s.videoFormat = mo.None[renderer.Format]()
	s.videoRenderer = nil
	s.videoCounters = nil
	s.audioCounters = nil
	s.meter = nil
	s.buildState = BuildBuilding
	s.maybeReportPlayerState()

	s.log.WithField("generation", s.generation).Debug("building renderers")
	s.builder.Build(&buildSink{session: s, generation: s.generation})
	return nil
}

// onRenderersReady completes a build: placeholders fill empty slots, the
// pending surface is pushed and the set goes to the engine.
func (s *Session) onRenderersReady(set renderer.Set, meter *source.BandwidthMeter) {
	filled := set.FillPlaceholders()

	if video, ok := set.Video(); ok {
		s.videoRenderer = video
		s.videoCounters = video.Counters()
		if formats := renderer.FormatsOf(video.Source(), renderer.Video); len(formats) > 0 {
			s.videoFormat = mo.Some(formats[0])
			if s.infoListener != nil {
				s.infoListener.OnVideoFormatEnabled(formats[0])
			}
		}
	}
	if audio, ok := set.Audio(); ok {
		s.audioCounters = audio.Counters()
		if formats := renderer.FormatsOf(audio.Source(), renderer.Audio); len(formats) > 0 && s.infoListener != nil {
			s.infoListener.OnAudioFormatEnabled(formats[0])
		}
	}
	s.meter = meter

	s.pushSurface(false)
	s.engine.Prepare(set)
	s.buildState = BuildBuilt

	s.log.WithField("placeholders", filled).Info("renderers ready")
}

// onRenderersError reports a failed build and returns to idle.
func (s *Session) onRenderersError(err error) {
	s.log.WithError(err).Error("renderer build failed")

	if s.internalErrorListener != nil {
		s.internalErrorListener.OnRendererInitializationError(err)
	}

	wrapped := &Error{Kind: KindRendererInit, Err: err}
	for _, l := range s.listeners.Snapshot() {
		l.OnError(wrapped)
	}

	s.buildState = BuildIdle
	s.maybeReportPlayerState()
}

// SetSurface binds the display surface without waiting. Without a video
// renderer it is only recorded and pushed once one is built.
func (s *Session) SetSurface(surface renderer.Surface) {
	s.surface = mo.Some(surface)
	s.pushSurface(false)
}

// ClearSurfaceBlocking unbinds the surface and returns once the engine has
// applied the detach, so the surface can be destroyed afterwards.
func (s *Session) ClearSurfaceBlocking() {
	s.surface = mo.None[renderer.Surface]()
	s.pushSurface(true)
}

// Surface returns the bound surface.
func (s *Session) Surface() mo.Option[renderer.Surface] { return s.surface }

func (s *Session) pushSurface(blocking bool) {
	if s.videoRenderer == nil || s.engineReleased {
		return
	}

	var payload any
	if surface, ok := s.surface.Get(); ok {
		payload = &surface
	}

	if blocking {
		s.engine.BlockingSendMessage(s.videoRenderer, renderer.MsgSetSurface, payload)
	} else {
		s.engine.SendMessage(s.videoRenderer, renderer.MsgSetSurface, payload)
	}
}

// SetPlayWhenReady forwards the play intent to the engine.
func (s *Session) SetPlayWhenReady(playWhenReady bool) {
	if s.engineReleased {
		return
	}
	s.engine.SetPlayWhenReady(playWhenReady)
}

// SeekTo forwards a seek to the engine.
func (s *Session) SeekTo(position time.Duration) {
	if s.engineReleased {
		return
	}
	s.engine.SeekTo(position)
}

// PlaybackState reports Preparing while renderers are being built, and while
// a built set has not reached the engine yet. Otherwise it is the engine's state.
func (s *Session) PlaybackState() engine.State {
	if s.buildState == BuildBuilding {
		return engine.StatePreparing
	}

	state := s.engine.PlaybackState()
	if s.buildState == BuildBuilt && state == engine.StateIdle {
		return engine.StatePreparing
	}
	return state
}

func (s *Session) PlayWhenReady() bool            { return s.engine.PlayWhenReady() }
func (s *Session) CurrentPosition() time.Duration { return s.engine.CurrentPosition() }
func (s *Session) Duration() time.Duration        { return s.engine.Duration() }
func (s *Session) BufferedPercentage() int        { return s.engine.BufferedPercentage() }

func (s *Session) TrackCount(t renderer.TrackType) int {
	return s.engine.TrackCount(t)
}

func (s *Session) TrackFormat(t renderer.TrackType, index int) (renderer.Format, bool) {
	return s.engine.TrackFormat(t, index)
}

// VideoFormat returns the format of the enabled video track, once built.
func (s *Session) VideoFormat() mo.Option[renderer.Format] { return s.videoFormat }

// VideoCounters returns the video decoder statistics of the current build.
func (s *Session) VideoCounters() (*renderer.CodecCounters, bool) {
	return s.videoCounters, s.videoCounters != nil
}

// AudioCounters returns the audio decoder statistics of the current build.
func (s *Session) AudioCounters() (*renderer.CodecCounters, bool) {
	return s.audioCounters, s.audioCounters != nil
}

// BandwidthMeter returns the meter of the current build, or nil.
func (s *Session) BandwidthMeter() *source.BandwidthMeter { return s.meter }

// Release cancels any build, drops the surface and releases the engine.
// Further calls do nothing more.
func (s *Session) Release() {
	s.builder.Cancel()
	s.generation++
	s.buildState = BuildIdle
	s.surface = mo.None[renderer.Surface]()
	s.videoRenderer = nil

	if !s.engineReleased {
		s.engineReleased = true
		s.engine.RemoveListener(s.relay)
		s.engine.Release()
		s.log.Info("released")
	}
	s.released = true
}

// maybeReportPlayerState broadcasts the (playWhenReady, state) pair if it
// differs from the last one broadcast.
func (s *Session) maybeReportPlayerState() {
	playWhenReady := s.engine.PlayWhenReady()
	state := s.PlaybackState()

	if playWhenReady == s.lastReportedPlayWhenReady && state == s.lastReportedState {
		return
	}
	s.lastReportedPlayWhenReady = playWhenReady
	s.lastReportedState = state

	s.log.WithFields(logrus.Fields{"play_when_ready": playWhenReady, "state": state}).Debug("state changed")
	for _, l := range s.listeners.Snapshot() {
		l.OnStateChanged(playWhenReady, state)
	}
}

// StateText renders a state pair the way the controller shows it.
func StateText(playWhenReady bool, state engine.State) string {
	return fmt.Sprintf("playWhenReady=%t, playbackState=%s", playWhenReady, state)
}
