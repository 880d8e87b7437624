package renderer

import (
	"fmt"
	"time"

	"github.com/samber/lo"
)

// Format describes one elementary stream found by the demuxer.
type Format struct {
	TrackID      uint32
	Type         TrackType
	Codec        string
	MimeType     string
	Width        int
	Height       int
	ChannelCount int
	SampleRate   int
	Duration     time.Duration
	Encrypted    bool
}

func (f Format) String() string {
	switch f.Type {
	case Video:
		return fmt.Sprintf("#%d %s %dx%d", f.TrackID, f.Codec, f.Width, f.Height)
	case Audio:
		return fmt.Sprintf("#%d %s %dch", f.TrackID, f.Codec, f.ChannelCount)
	default:
		return fmt.Sprintf("#%d %s", f.TrackID, f.Codec)
	}
}

// SampleSource is the demuxed stream shared by the renderers of one build.
type SampleSource interface {
	// Locator returns the media locator the source reads.
	Locator() string
	// Formats returns the track formats found while preparing, in container order.
	Formats() []Format
	// Duration returns the media duration, or a negative value when unknown.
	Duration() time.Duration
	// MaxBufferBytes bounds the bytes the engine may hold for this source.
	MaxBufferBytes() int64
	// Transferred records bytes the engine pulled for this source.
	Transferred(bytes int64, elapsed time.Duration)
}

// FormatsOf filters formats down to one track type.
func FormatsOf(src SampleSource, t TrackType) []Format {
	if src == nil {
		return nil
	}

	return lo.Filter(src.Formats(), func(f Format, _ int) bool {
		return f.Type == t
	})
}
