package session

import (
	"time"

	"github.com/ringplayer/ringplayer/engine"
	"github.com/ringplayer/ringplayer/looper"
	"github.com/ringplayer/ringplayer/renderer"
	"github.com/ringplayer/ringplayer/source"
)

// buildSink receives the outcome of one build. Outcomes of any build other
// than the session's current one are dropped.
type buildSink struct {
	session    *Session
	generation uint64
}

func (b *buildSink) current() bool {
	s := b.session
	return !s.released && s.generation == b.generation && s.buildState == BuildBuilding
}

func (b *buildSink) Handler() looper.Poster                    { return b.session.handler }
func (b *buildSink) VideoEvents() renderer.VideoEventListener  { return b.session.events }
func (b *buildSink) AudioEvents() renderer.AudioEventListener  { return b.session.events }
func (b *buildSink) BandwidthEvents() source.BandwidthListener { return b.session.events }
func (b *buildSink) LoadEvents() source.LoadEventListener      { return b.session.events }

func (b *buildSink) RenderersReady(set renderer.Set, meter *source.BandwidthMeter) {
	if !b.current() {
		b.session.log.WithField("generation", b.generation).Debug("discarding stale renderers")
		return
	}
	b.session.onRenderersReady(set, meter)
}

func (b *buildSink) RenderersFailed(err error) {
	if !b.current() {
		b.session.log.WithField("generation", b.generation).Debug("discarding stale build error")
		return
	}
	b.session.onRenderersError(err)
}

// engineListener relays engine callbacks into the session.
type engineListener struct {
	session *Session
}

func (e *engineListener) OnPlayerStateChanged(bool, engine.State) {
	if e.session.released {
		return
	}
	e.session.maybeReportPlayerState()
}

func (e *engineListener) OnPlayWhenReadyCommitted() {}

func (e *engineListener) OnPlayerError(err *engine.PlaybackError) {
	s := e.session
	if s.released {
		return
	}

	s.log.WithError(err).Error("playback error")
	s.buildState = BuildIdle

	wrapped := &Error{Kind: KindPlayback, Err: err}
	for _, l := range s.listeners.Snapshot() {
		l.OnError(wrapped)
	}
	s.maybeReportPlayerState()
}

// rendererEvents relays renderer, bandwidth and load events to listeners.
type rendererEvents struct {
	session *Session
}

var (
	_ renderer.VideoEventListener = (*rendererEvents)(nil)
	_ renderer.AudioEventListener = (*rendererEvents)(nil)
	_ source.BandwidthListener    = (*rendererEvents)(nil)
	_ source.LoadEventListener    = (*rendererEvents)(nil)
)

func (r *rendererEvents) info() InfoListener {
	if r.session.released {
		return nil
	}
	return r.session.infoListener
}

func (r *rendererEvents) internal() InternalErrorListener {
	if r.session.released {
		return nil
	}
	return r.session.internalErrorListener
}

func (r *rendererEvents) OnDecoderInitialized(decoderName string, elapsedRealtime, initializationDuration time.Duration) {
	if l := r.info(); l != nil {
		l.OnDecoderInitialized(decoderName, elapsedRealtime, initializationDuration)
	}
}

func (r *rendererEvents) OnDecoderInitializationError(err *renderer.DecoderInitializationError) {
	if l := r.internal(); l != nil {
		l.OnDecoderInitializationError(err)
	}
}

func (r *rendererEvents) OnCryptoError(err *renderer.CryptoError) {
	if l := r.internal(); l != nil {
		l.OnCryptoError(err)
	}
}

func (r *rendererEvents) OnDroppedFrames(count int, elapsed time.Duration) {
	if l := r.info(); l != nil {
		l.OnDroppedFrames(count, elapsed)
	}
}

func (r *rendererEvents) OnVideoSizeChanged(width, height, unappliedRotationDegrees int, pixelWidthHeightRatio float64) {
	if r.session.released {
		return
	}
	for _, l := range r.session.listeners.Snapshot() {
		l.OnVideoSizeChanged(width, height, unappliedRotationDegrees, pixelWidthHeightRatio)
	}
}

func (r *rendererEvents) OnDrawnToSurface(surface renderer.Surface) {
	r.session.log.WithField("surface", surface.ID).Debug("drawn to surface")
}

func (r *rendererEvents) OnAudioTrackInitializationError(err *renderer.AudioTrackInitializationError) {
	if l := r.internal(); l != nil {
		l.OnAudioTrackInitializationError(err)
	}
}

func (r *rendererEvents) OnAudioTrackWriteError(err *renderer.AudioTrackWriteError) {
	if l := r.internal(); l != nil {
		l.OnAudioTrackWriteError(err)
	}
}

func (r *rendererEvents) OnAudioTrackUnderrun(bufferSize int, bufferDuration, elapsedSinceLastFeed time.Duration) {
	if l := r.internal(); l != nil {
		l.OnAudioTrackUnderrun(bufferSize, bufferDuration, elapsedSinceLastFeed)
	}
}

func (r *rendererEvents) OnBandwidthSample(elapsed time.Duration, bytes int64, bitrateEstimate int64) {
	if l := r.info(); l != nil {
		l.OnBandwidthSample(elapsed, bytes, bitrateEstimate)
	}
}

func (r *rendererEvents) OnLoadStarted(sourceID int, length int64) {
	if l := r.info(); l != nil {
		l.OnLoadStarted(sourceID, length)
	}
}

func (r *rendererEvents) OnLoadCompleted(sourceID int, bytesLoaded int64, loadDuration time.Duration) {
	if l := r.info(); l != nil {
		l.OnLoadCompleted(sourceID, bytesLoaded, loadDuration)
	}
}

func (r *rendererEvents) OnLoadError(err *source.LoadError) {
	if l := r.internal(); l != nil {
		l.OnLoadError(err.SourceID, err)
	}
}
