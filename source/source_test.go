package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ringplayer/ringplayer/filesystem"
	"github.com/ringplayer/ringplayer/renderer"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

// headerExtractor reads a fixed number of bytes and reports one video and one audio track.
type headerExtractor struct {
	read int
	err  error
}

func (h *headerExtractor) Extract(r io.ReadSeeker) (*Extraction, error) {
	if h.err != nil {
		return nil, h.err
	}
	buf := make([]byte, h.read)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return &Extraction{
		Duration: 90 * time.Second,
		Formats: []renderer.Format{
			{TrackID: 1, Type: renderer.Video, Codec: "avc1", Width: 1280, Height: 720},
			{TrackID: 2, Type: renderer.Audio, Codec: "mp4a", ChannelCount: 2},
		},
	}, nil
}

type loadRecorder struct {
	started   int
	completed int64
	errs      []*LoadError
}

func (l *loadRecorder) OnLoadStarted(int, int64) { l.started++ }
func (l *loadRecorder) OnLoadCompleted(_ int, bytesLoaded int64, _ time.Duration) {
	l.completed = bytesLoaded
}
func (l *loadRecorder) OnLoadError(err *LoadError) { l.errs = append(l.errs, err) }

type sampleRecorder struct {
	samples   int
	lastBytes int64
}

func (s *sampleRecorder) OnBandwidthSample(_ time.Duration, bytes int64, _ int64) {
	s.samples++
	s.lastBytes = bytes
}

func payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

func TestAllocator(t *testing.T) {
	Convey("Given an allocator of two segments", t, func() {
		a := NewAllocator(16, 2)

		Convey("Capacity should be size times count", func() {
			So(a.Capacity(), ShouldEqual, 32)
		})

		Convey("It should refuse a third segment until one is released", func() {
			s1, ok := a.TryAllocate()
			So(ok, ShouldBeTrue)
			s2, ok := a.TryAllocate()
			So(ok, ShouldBeTrue)
			So(len(s1.Data), ShouldEqual, 16)
			So(a.TotalBytesAllocated(), ShouldEqual, 32)

			_, ok = a.TryAllocate()
			So(ok, ShouldBeFalse)

			a.Release(s1, nil)
			So(a.TotalBytesAllocated(), ShouldEqual, 16)
			_, ok = a.TryAllocate()
			So(ok, ShouldBeTrue)
			a.Release(s2)
		})

		Convey("Releasing a segment twice should not raise the bound", func() {
			s1, _ := a.TryAllocate()
			s2, _ := a.TryAllocate()

			So(func() { a.Release(s1, s1) }, ShouldNotPanic)
			a.Release(s1)
			So(a.TotalBytesAllocated(), ShouldEqual, 16)

			s3, ok := a.TryAllocate()
			So(ok, ShouldBeTrue)
			_, ok = a.TryAllocate()
			So(ok, ShouldBeFalse)

			a.Release(s2, s3)
			So(a.TotalBytesAllocated(), ShouldEqual, 0)
		})

		Convey("Allocate should honour context cancellation", func() {
			a.TryAllocate()
			a.TryAllocate()
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
			defer cancel()
			_, err := a.Allocate(ctx)
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
		})
	})

	Convey("Non-positive geometry falls back to the defaults", t, func() {
		a := NewAllocator(0, -1)
		So(a.SegmentSize(), ShouldEqual, DefaultSegmentSize)
		So(a.Capacity(), ShouldEqual, int64(16*1024*1024))
	})
}

func TestLocators(t *testing.T) {
	Convey("Locator helpers", t, func() {
		Convey("Bare paths and file URLs are local", func() {
			So(IsLocalFile("/media/ring.mp4"), ShouldBeTrue)
			So(IsLocalFile("file:///media/ring.mp4"), ShouldBeTrue)
			So(IsLocalFile("https://example.com/ring.mp4"), ShouldBeFalse)
			So(IsLocalFile("  "), ShouldBeFalse)
		})

		Convey("LastPathSegment ignores query strings", func() {
			So(LastPathSegment("https://example.com/v/ring.mpd?token=1"), ShouldEqual, "ring.mpd")
			So(LastPathSegment("/media/ring.mp4"), ShouldEqual, "ring.mp4")
			So(LastPathSegment("https://example.com/"), ShouldEqual, "")
		})

		Convey("NewURIDataSource picks by scheme", func() {
			ds, err := NewURIDataSource("/media/ring.mp4", "ua", nil)
			So(err, ShouldBeNil)
			So(ds, ShouldHaveSameTypeAs, &FileDataSource{})

			ds, err = NewURIDataSource("https://example.com/ring.mp4", "ua", nil)
			So(err, ShouldBeNil)
			So(ds, ShouldHaveSameTypeAs, &HTTPDataSource{})

			_, err = NewURIDataSource("rtsp://example.com/ring", "ua", nil)
			So(errors.Is(err, ErrUnsupportedScheme), ShouldBeTrue)
		})
	})
}

func TestSegmentedReader(t *testing.T) {
	Convey("Given a file larger than the allocator", t, func() {
		data := payload(1000)
		So(filesystem.API().WriteFile("/segmented.bin", data, 0o644), ShouldBeNil)

		alloc := NewAllocator(64, 3)
		ds := &FileDataSource{Path: "/segmented.bin"}
		stream, err := ds.Open(context.Background())
		So(err, ShouldBeNil)
		defer stream.Close()

		r := newSegmentedReader(stream, alloc)

		Convey("Reading it whole should return identical bytes within the bound", func() {
			got, err := io.ReadAll(r)
			So(err, ShouldBeNil)
			So(bytes.Equal(got, data), ShouldBeTrue)
			So(alloc.TotalBytesAllocated(), ShouldBeLessThanOrEqualTo, alloc.Capacity())

			Convey("And seeking back should re-read correctly", func() {
				_, err := r.Seek(10, io.SeekStart)
				So(err, ShouldBeNil)
				buf := make([]byte, 5)
				_, err = io.ReadFull(r, buf)
				So(err, ShouldBeNil)
				So(buf, ShouldResemble, data[10:15])
			})

			Convey("And Close should return every segment", func() {
				So(r.Close(), ShouldBeNil)
				So(alloc.TotalBytesAllocated(), ShouldEqual, 0)
			})
		})

		Convey("Cached segments should not be loaded twice", func() {
			buf := make([]byte, 32)
			_, _ = io.ReadFull(r, buf)
			_, _ = r.Seek(0, io.SeekStart)
			_, _ = io.ReadFull(r, buf)
			So(r.Loaded(), ShouldEqual, 64)
		})

		Convey("Seeking from the end uses the stream size", func() {
			pos, err := r.Seek(-4, io.SeekEnd)
			So(err, ShouldBeNil)
			So(pos, ShouldEqual, 996)
			_, err = r.Seek(-2000, io.SeekEnd)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestExtractorSampleSource(t *testing.T) {
	Convey("Given a local file and an extractor", t, func() {
		So(filesystem.API().WriteFile("/ring.mp4", payload(300), 0o644), ShouldBeNil)

		alloc := NewAllocator(64, 4)
		meter := NewBandwidthMeterInterval(nil, nil, 0)
		ds := &FileDataSource{Path: "/ring.mp4", Listener: meter}
		events := &loadRecorder{}

		Convey("Prepare should expose formats and report the load", func() {
			src := NewExtractorSampleSource("/ring.mp4", ds, alloc, 0, &headerExtractor{read: 100}, meter)
			src.SetEventListener(7, nil, events)

			So(src.Duration(), ShouldBeLessThan, 0)
			So(src.Prepare(context.Background()), ShouldBeNil)
			So(src.Locator(), ShouldEqual, "/ring.mp4")
			So(src.Duration(), ShouldEqual, 90*time.Second)
			So(len(src.Formats()), ShouldEqual, 2)
			So(renderer.FormatsOf(src, renderer.Video)[0].Width, ShouldEqual, 1280)
			So(events.started, ShouldEqual, 1)
			So(events.completed, ShouldEqual, 128)
			So(meter.TotalBytes(), ShouldEqual, 128)
			So(alloc.TotalBytesAllocated(), ShouldEqual, 0)

			Convey("A second Prepare is a no-op", func() {
				So(src.Prepare(context.Background()), ShouldBeNil)
				So(events.started, ShouldEqual, 1)
			})
		})

		Convey("MaxBufferBytes is capped by the allocator", func() {
			src := NewExtractorSampleSource("/ring.mp4", ds, alloc, 1<<30, &headerExtractor{}, nil)
			So(src.MaxBufferBytes(), ShouldEqual, 256)
			src = NewExtractorSampleSource("/ring.mp4", ds, alloc, 100, &headerExtractor{}, nil)
			So(src.MaxBufferBytes(), ShouldEqual, 100)
		})

		Convey("A missing file should surface a LoadError", func() {
			missing := &FileDataSource{Path: "/missing.mp4"}
			src := NewExtractorSampleSource("/missing.mp4", missing, alloc, 0, &headerExtractor{}, nil)
			src.SetEventListener(3, nil, events)

			err := src.Prepare(context.Background())
			var loadErr *LoadError
			So(errors.As(err, &loadErr), ShouldBeTrue)
			So(loadErr.SourceID, ShouldEqual, 3)
			So(len(events.errs), ShouldEqual, 1)
		})

		Convey("An extractor failure should surface a LoadError", func() {
			src := NewExtractorSampleSource("/ring.mp4", ds, alloc, 0, &headerExtractor{err: ErrNotMP4}, nil)
			err := src.Prepare(context.Background())
			So(errors.Is(err, ErrNotMP4), ShouldBeTrue)
			So(alloc.TotalBytesAllocated(), ShouldEqual, 0)
		})

		Convey("A cancelled context should fail the prepare", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			src := NewExtractorSampleSource("/ring.mp4", ds, alloc, 0, &headerExtractor{read: 10}, nil)
			So(errors.Is(src.Prepare(ctx), context.Canceled), ShouldBeTrue)
		})
	})
}

func TestMp4Extractor(t *testing.T) {
	Convey("Given a progressive mp4 with one video and one audio track", t, func() {
		data, err := os.ReadFile("testdata/sample.mp4")
		So(err, ShouldBeNil)

		extraction, err := Mp4Extractor{}.Extract(bytes.NewReader(data))
		So(err, ShouldBeNil)

		Convey("It should report both formats in container order", func() {
			So(len(extraction.Formats), ShouldEqual, 2)

			video := extraction.Formats[0]
			So(video.Type, ShouldEqual, renderer.Video)
			So(video.MimeType, ShouldEqual, "video/avc")
			So(video.Width, ShouldEqual, 320)
			So(video.Height, ShouldEqual, 180)
			So(video.Duration, ShouldEqual, time.Second)

			audio := extraction.Formats[1]
			So(audio.Type, ShouldEqual, renderer.Audio)
			So(audio.ChannelCount, ShouldEqual, 2)
			So(audio.SampleRate, ShouldEqual, 44100)
		})

		Convey("It should report the movie duration", func() {
			So(extraction.Duration, ShouldEqual, 1024*time.Millisecond)
			So(extraction.FastStart, ShouldBeFalse)
		})

		Convey("It should work through the segmented reader", func() {
			So(filesystem.API().WriteFile("/sample.mp4", data, 0o644), ShouldBeNil)
			alloc := NewAllocator(1024, 4)
			src := NewExtractorSampleSource("/sample.mp4", &FileDataSource{Path: "/sample.mp4"}, alloc, 0, Mp4Extractor{}, nil)
			So(src.Prepare(context.Background()), ShouldBeNil)
			So(len(renderer.FormatsOf(src, renderer.Audio)), ShouldEqual, 1)
			So(alloc.TotalBytesAllocated(), ShouldEqual, 0)
		})
	})

	Convey("Mp4Extractor should reject data without a movie header", t, func() {
		_, err := Mp4Extractor{}.Extract(bytes.NewReader(nil))
		So(errors.Is(err, ErrNotMP4), ShouldBeTrue)

		_, err = Mp4Extractor{}.Extract(strings.NewReader("definitely not a movie"))
		So(errors.Is(err, ErrNotMP4), ShouldBeTrue)
	})
}

func TestHTTPDataSource(t *testing.T) {
	Convey("Given an HTTP server that honours ranges", t, func() {
		data := payload(4096)
		var agents []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			agents = append(agents, r.UserAgent())
			http.ServeContent(w, r, "ring.mp4", time.Time{}, bytes.NewReader(data))
		}))
		defer server.Close()

		meter := NewBandwidthMeterInterval(nil, nil, 0)
		ds := &HTTPDataSource{URL: server.URL + "/ring.mp4", UserAgent: "ringplayer/test", Listener: meter}

		stream, err := ds.Open(context.Background())
		So(err, ShouldBeNil)
		defer stream.Close()

		Convey("Open should learn the size and send the user agent", func() {
			So(stream.Size(), ShouldEqual, 4096)
			So(agents[0], ShouldEqual, "ringplayer/test")
		})

		Convey("Seek should issue a new ranged request", func() {
			_, err := stream.Seek(4000, io.SeekStart)
			So(err, ShouldBeNil)
			got, err := io.ReadAll(stream)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, data[4000:])
			So(len(agents), ShouldEqual, 2)
			So(meter.TotalBytes(), ShouldEqual, 96)
		})
	})

	Convey("A failing server should produce an error", t, func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusNotFound)
		}))
		defer server.Close()

		_, err := (&HTTPDataSource{URL: server.URL}).Open(context.Background())
		So(err, ShouldNotBeNil)
	})

	Convey("Content-Range totals", t, func() {
		total, ok := parseContentRangeTotal("bytes 0-99/1234")
		So(ok, ShouldBeTrue)
		So(total, ShouldEqual, 1234)
		_, ok = parseContentRangeTotal("bytes 0-99/*")
		So(ok, ShouldBeFalse)
	})
}

func TestBandwidthMeter(t *testing.T) {
	Convey("Given a meter sampling on every transfer", t, func() {
		listener := &sampleRecorder{}
		m := NewBandwidthMeterInterval(nil, listener, 0)

		So(m.BitrateEstimate(), ShouldEqual, NoEstimate)

		m.Transferred(1000, time.Second)
		So(listener.samples, ShouldEqual, 1)
		So(m.BitrateEstimate(), ShouldEqual, 8000)

		m.Transferred(2000, time.Second)
		So(m.BitrateEstimate(), ShouldEqual, (8000*7+16000*3)/10)
		So(m.TotalBytes(), ShouldEqual, 3000)

		Convey("Zero-byte transfers are ignored", func() {
			m.Transferred(0, time.Second)
			So(listener.samples, ShouldEqual, 2)
		})
	})

	Convey("Given a throttled meter", t, func() {
		listener := &sampleRecorder{}
		m := NewBandwidthMeterInterval(nil, listener, time.Hour)

		m.Transferred(100, time.Millisecond)
		m.Transferred(100, time.Millisecond)
		m.Transferred(100, time.Millisecond)

		So(listener.samples, ShouldEqual, 1)
		So(m.TotalBytes(), ShouldEqual, 300)
	})
}
