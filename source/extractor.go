package source

import (
	"fmt"
	"io"
	"time"

	mp4 "github.com/abema/go-mp4"
	"github.com/ringplayer/ringplayer/renderer"
)

// Extraction is what a demuxer learns from a stream header.
type Extraction struct {
	Formats   []renderer.Format
	Duration  time.Duration
	FastStart bool
}

// Extractor demuxes a container header into track formats.
type Extractor interface {
	Extract(r io.ReadSeeker) (*Extraction, error)
}

// Mp4Extractor reads ISO BMFF (MP4) movie headers.
type Mp4Extractor struct{}

// Extract implements Extractor.
func (Mp4Extractor) Extract(r io.ReadSeeker) (*Extraction, error) {
	info, err := mp4.Probe(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotMP4, err)
	}
	if len(info.Tracks) == 0 {
		return nil, ErrNotMP4
	}

	out := &Extraction{
		FastStart: info.FastStart,
		Duration:  -1,
	}
	if info.Timescale > 0 {
		out.Duration = scaleDuration(info.Duration, info.Timescale)
	}

	for _, t := range info.Tracks {
		f := renderer.Format{
			TrackID:   t.TrackID,
			Encrypted: t.Encrypted,
			Duration:  -1,
		}
		if t.Timescale > 0 {
			f.Duration = scaleDuration(t.Duration, t.Timescale)
		}

		switch t.Codec {
		case mp4.CodecAVC1:
			f.Type = renderer.Video
			f.Codec = "avc1"
			f.MimeType = "video/avc"
			if t.AVC != nil {
				f.Width = int(t.AVC.Width)
				f.Height = int(t.AVC.Height)
			}
		case mp4.CodecMP4A:
			f.Type = renderer.Audio
			f.Codec = "mp4a"
			f.MimeType = "audio/mp4a-latm"
			// Audio media timescales are the sample rate.
			f.SampleRate = int(t.Timescale)
			if t.MP4A != nil {
				f.ChannelCount = int(t.MP4A.ChannelCount)
			}
		default:
			// Tracks in codecs we cannot classify are left to the engine.
			continue
		}

		out.Formats = append(out.Formats, f)
	}

	return out, nil
}

func scaleDuration(units uint64, timescale uint32) time.Duration {
	ts := uint64(timescale)
	return time.Duration(units/ts)*time.Second + time.Duration(units%ts)*time.Second/time.Duration(ts)
}
