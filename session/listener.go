package session

import (
	"time"

	"github.com/ringplayer/ringplayer/engine"
	"github.com/ringplayer/ringplayer/renderer"
)

// Listener observes a session. Every registered listener receives every event.
type Listener interface {
	// OnStateChanged fires only when the (playWhenReady, state) pair changes.
	OnStateChanged(playWhenReady bool, state engine.State)
	// OnError receives fatal errors. The session must be prepared again afterwards.
	OnError(err *Error)
	OnVideoSizeChanged(width, height, unappliedRotationDegrees int, pixelWidthHeightRatio float64)
}

// InternalErrorListener receives errors the session recovers from or that
// are reported to listeners in a more general form.
type InternalErrorListener interface {
	OnRendererInitializationError(err error)
	OnDecoderInitializationError(err *renderer.DecoderInitializationError)
	OnAudioTrackInitializationError(err *renderer.AudioTrackInitializationError)
	OnAudioTrackWriteError(err *renderer.AudioTrackWriteError)
	OnAudioTrackUnderrun(bufferSize int, bufferDuration, elapsedSinceLastFeed time.Duration)
	OnCryptoError(err *renderer.CryptoError)
	OnLoadError(sourceID int, err error)
}

// InfoListener receives advisory events. None of them change session state.
type InfoListener interface {
	OnVideoFormatEnabled(format renderer.Format)
	OnAudioFormatEnabled(format renderer.Format)
	OnDroppedFrames(count int, elapsed time.Duration)
	OnBandwidthSample(elapsed time.Duration, bytes int64, bitrateEstimate int64)
	OnLoadStarted(sourceID int, length int64)
	OnLoadCompleted(sourceID int, bytesLoaded int64, loadDuration time.Duration)
	OnDecoderInitialized(decoderName string, elapsedRealtime, initializationDuration time.Duration)
}
