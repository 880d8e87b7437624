// Package builder turns a media locator into the renderer set a session plays.
package builder

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ringplayer/ringplayer/looper"
	"github.com/ringplayer/ringplayer/renderer"
	"github.com/ringplayer/ringplayer/source"
)

// ErrUnsupportedType is returned for content types that have no builder.
var ErrUnsupportedType = errors.New("unsupported content type")

// Sink receives the outcome of one build. RenderersReady and RenderersFailed
// are invoked on Handler, at most once per build, and never after Cancel.
type Sink interface {
	Handler() looper.Poster
	VideoEvents() renderer.VideoEventListener
	AudioEvents() renderer.AudioEventListener
	BandwidthEvents() source.BandwidthListener
	LoadEvents() source.LoadEventListener

	// RenderersReady delivers a set sized to the track-type count. Slots for
	// track types the builder does not handle are left nil.
	RenderersReady(renderers renderer.Set, meter *source.BandwidthMeter)
	RenderersFailed(err error)
}

// Builder constructs renderers asynchronously.
type Builder interface {
	Build(sink Sink)
	// Cancel discards the outcome of an in-flight build. It never fails.
	Cancel()
}

// Options tunes the builders.
type Options struct {
	UserAgent    string
	SegmentSize  int
	SegmentCount int
	HWDec        string
}

// Video renderer tuning used by every builder.
const (
	AllowedJoiningTime       = 5 * time.Second
	MaxDroppedFramesToNotify = 50
)

// ContentType discriminates how a locator is streamed. The zero value,
// TypeAuto, asks for the type to be inferred from the locator.
type ContentType int

const (
	TypeAuto ContentType = iota
	TypeDASH
	TypeSS
	TypeHLS
	TypeOther
)

func (t ContentType) String() string {
	switch t {
	case TypeAuto:
		return "auto"
	case TypeDASH:
		return "dash"
	case TypeSS:
		return "ss"
	case TypeHLS:
		return "hls"
	case TypeOther:
		return "other"
	default:
		return fmt.Sprintf("ContentType(%d)", int(t))
	}
}

// ParseContentType parses the names String returns.
func ParseContentType(name string) (ContentType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "dash", "mpd":
		return TypeDASH, nil
	case "ss", "smoothstreaming", "ism":
		return TypeSS, nil
	case "hls", "m3u8":
		return TypeHLS, nil
	case "other", "progressive":
		return TypeOther, nil
	case "auto", "":
		return TypeAuto, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedType, name)
	}
}

// InferContentType guesses the content type from the locator's last path
// segment, or from extension when one is given.
func InferContentType(locator, extension string) ContentType {
	segment := source.LastPathSegment(locator)
	if extension != "" {
		segment = "." + strings.TrimPrefix(extension, ".")
	}
	segment = strings.ToLower(segment)

	switch {
	case strings.HasSuffix(segment, ".mpd"):
		return TypeDASH
	case strings.HasSuffix(segment, ".ism"):
		return TypeSS
	case strings.HasSuffix(segment, ".m3u8"):
		return TypeHLS
	default:
		return TypeOther
	}
}

// Resolve returns t, or the type inferred from locator and extension when t
// is TypeAuto. An explicit type always wins over the locator's suffix.
func (t ContentType) Resolve(locator, extension string) ContentType {
	if t != TypeAuto {
		return t
	}
	return InferContentType(locator, extension)
}

// New returns the builder for a content type. Only progressive media is
// supported. TypeAuto is inferred from locator.
func New(t ContentType, locator string, opts Options) (Builder, error) {
	if t = t.Resolve(locator, ""); t != TypeOther {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}
	return NewExtractorBuilder(locator, opts), nil
}
