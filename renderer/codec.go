package renderer

import (
	"time"

	"github.com/ringplayer/ringplayer/looper"
)

// codecRenderer holds what video and audio renderers share: the sample source,
// the handler events are delivered through, and decoder statistics.
type codecRenderer struct {
	source   SampleSource
	handler  looper.Poster
	counters *CodecCounters
	codec    CodecEventListener
	mimeType string
}

func newCodecRenderer(src SampleSource, t TrackType, handler looper.Poster, codec CodecEventListener) codecRenderer {
	r := codecRenderer{
		source:   src,
		handler:  handler,
		counters: new(CodecCounters),
		codec:    codec,
	}
	if formats := FormatsOf(src, t); len(formats) > 0 {
		r.mimeType = formats[0].MimeType
	}
	return r
}

// Source implements Renderer.
func (r *codecRenderer) Source() SampleSource { return r.source }

// HandleMessage implements Renderer. Decoder renderers take no messages of their own.
func (r *codecRenderer) HandleMessage(MessageID, any) error { return nil }

// Counters returns this renderer's decoder statistics.
func (r *codecRenderer) Counters() *CodecCounters { return r.counters }

// ReportDecoderInitialized records a decoder that finished initializing.
func (r *codecRenderer) ReportDecoderInitialized(decoderName string, initializationDuration time.Duration) {
	r.counters.DecoderInitCount.Add(1)
	if r.codec == nil {
		return
	}

	elapsed := time.Since(started)
	post(r.handler, func() {
		r.codec.OnDecoderInitialized(decoderName, elapsed, initializationDuration)
	})
}

// ReportDecoderReleased records a decoder being torn down.
func (r *codecRenderer) ReportDecoderReleased() {
	r.counters.DecoderReleaseCount.Add(1)
}

// ReportDecoderInitializationError forwards a decoder setup failure.
func (r *codecRenderer) ReportDecoderInitializationError(decoderName string, err error) {
	if r.codec == nil {
		return
	}

	wrapped := &DecoderInitializationError{MimeType: r.mimeType, DecoderName: decoderName, Err: err}
	post(r.handler, func() { r.codec.OnDecoderInitializationError(wrapped) })
}

// ReportCryptoError forwards a decryption failure.
func (r *codecRenderer) ReportCryptoError(err error) {
	if r.codec == nil {
		return
	}

	wrapped := &CryptoError{Err: err}
	post(r.handler, func() { r.codec.OnCryptoError(wrapped) })
}
