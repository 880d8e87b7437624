package renderer

import (
	"time"

	"github.com/ringplayer/ringplayer/looper"
)

// CodecEventListener receives events common to decoder-backed renderers.
type CodecEventListener interface {
	OnDecoderInitialized(decoderName string, elapsedRealtime, initializationDuration time.Duration)
	OnDecoderInitializationError(err *DecoderInitializationError)
	OnCryptoError(err *CryptoError)
}

// VideoEventListener receives events from a VideoRenderer.
type VideoEventListener interface {
	CodecEventListener
	OnDroppedFrames(count int, elapsed time.Duration)
	OnVideoSizeChanged(width, height, unappliedRotationDegrees int, pixelWidthHeightRatio float64)
	OnDrawnToSurface(surface Surface)
}

// AudioEventListener receives events from an AudioRenderer.
type AudioEventListener interface {
	CodecEventListener
	OnAudioTrackInitializationError(err *AudioTrackInitializationError)
	OnAudioTrackWriteError(err *AudioTrackWriteError)
	OnAudioTrackUnderrun(bufferSize int, bufferDuration, elapsedSinceLastFeed time.Duration)
}

// started anchors the elapsed-realtime values reported with decoder events.
var started = time.Now()

// post delivers fn through h. Without a handler fn runs on the caller.
func post(h looper.Poster, fn func()) {
	if h == nil {
		fn()
		return
	}
	h.Post(fn)
}
