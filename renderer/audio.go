package renderer

import (
	"time"

	"github.com/ringplayer/ringplayer/looper"
)

// AudioRenderer decodes the audio track of its sample source to the audio output.
type AudioRenderer struct {
	codecRenderer
	events AudioEventListener
}

// NewAudioRenderer binds an audio renderer to src. Events are posted through handler.
func NewAudioRenderer(src SampleSource, handler looper.Poster, events AudioEventListener) *AudioRenderer {
	var codec CodecEventListener
	if events != nil {
		codec = events
	}

	return &AudioRenderer{
		codecRenderer: newCodecRenderer(src, Audio, handler, codec),
		events:        events,
	}
}

func (*AudioRenderer) Kind() Kind { return KindAudio }
func (*AudioRenderer) sealed()    {}

// ReportTrackInitializationError forwards a failure to open the audio output.
func (a *AudioRenderer) ReportTrackInitializationError(sampleRate, channelCount int, err error) {
	if a.events == nil {
		return
	}

	wrapped := &AudioTrackInitializationError{SampleRate: sampleRate, ChannelCount: channelCount, Err: err}
	post(a.handler, func() { a.events.OnAudioTrackInitializationError(wrapped) })
}

// ReportTrackWriteError forwards a failed write to the audio output.
func (a *AudioRenderer) ReportTrackWriteError(err error) {
	if a.events == nil {
		return
	}

	wrapped := &AudioTrackWriteError{Err: err}
	post(a.handler, func() { a.events.OnAudioTrackWriteError(wrapped) })
}

// ReportUnderrun forwards an output buffer that ran dry. It is advisory only.
func (a *AudioRenderer) ReportUnderrun(bufferSize int, bufferDuration, elapsedSinceLastFeed time.Duration) {
	if a.events == nil {
		return
	}
	post(a.handler, func() { a.events.OnAudioTrackUnderrun(bufferSize, bufferDuration, elapsedSinceLastFeed) })
}
