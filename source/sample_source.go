package source

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ringplayer/ringplayer/log"
	"github.com/ringplayer/ringplayer/looper"
	"github.com/ringplayer/ringplayer/renderer"
)

// LoadEventListener receives load progress for a sample source.
type LoadEventListener interface {
	OnLoadStarted(sourceID int, length int64)
	OnLoadCompleted(sourceID int, bytesLoaded int64, loadDuration time.Duration)
	OnLoadError(err *LoadError)
}

// ExtractorSampleSource is a renderer.SampleSource backed by a DataSource and
// an Extractor. Its header is read once, through the allocator, by Prepare.
type ExtractorSampleSource struct {
	locator             string
	dataSource          DataSource
	allocator           *Allocator
	requestedBufferSize int64
	extractor           Extractor
	meter               *BandwidthMeter

	sourceID int
	handler  looper.Poster
	events   LoadEventListener

	mu       sync.RWMutex
	prepared bool
	formats  []renderer.Format
	duration time.Duration
}

// NewExtractorSampleSource wires a sample source. meter may be nil.
func NewExtractorSampleSource(
	locator string,
	dataSource DataSource,
	allocator *Allocator,
	requestedBufferSize int64,
	extractor Extractor,
	meter *BandwidthMeter,
) *ExtractorSampleSource {
	return &ExtractorSampleSource{
		locator:             locator,
		dataSource:          dataSource,
		allocator:           allocator,
		requestedBufferSize: requestedBufferSize,
		extractor:           extractor,
		meter:               meter,
		duration:            -1,
	}
}

// SetEventListener registers load events, delivered through handler.
func (s *ExtractorSampleSource) SetEventListener(sourceID int, handler looper.Poster, events LoadEventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sourceID = sourceID
	s.handler = handler
	s.events = events
}

// Prepare opens the data source and extracts the track formats.
// Calling it again after success is a no-op.
func (s *ExtractorSampleSource) Prepare(ctx context.Context) error {
	s.mu.RLock()
	prepared := s.prepared
	sourceID, handler, events := s.sourceID, s.handler, s.events
	s.mu.RUnlock()

	if prepared {
		return nil
	}

	fail := func(err error) error {
		loadErr := &LoadError{SourceID: sourceID, Locator: s.locator, Err: err}
		log.Errorf("sample source: %s", loadErr)
		if events != nil {
			s.post(handler, func() { events.OnLoadError(loadErr) })
		}
		return loadErr
	}

	start := time.Now()
	stream, err := s.dataSource.Open(ctx)
	if err != nil {
		return fail(err)
	}
	defer stream.Close()

	length := stream.Size()
	if events != nil {
		s.post(handler, func() { events.OnLoadStarted(sourceID, length) })
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	reader := newSegmentedReader(stream, s.allocator)
	defer reader.Close()

	extraction, err := s.extractor.Extract(reader)
	if err != nil {
		return fail(fmt.Errorf("extract: %w", err))
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	loaded, took := reader.Loaded(), time.Since(start)
	log.Debugf("sample source: %s: %d tracks, %d bytes in %s", s.locator, len(extraction.Formats), loaded, took)

	s.mu.Lock()
	s.formats = extraction.Formats
	s.duration = extraction.Duration
	s.prepared = true
	s.mu.Unlock()

	if events != nil {
		s.post(handler, func() { events.OnLoadCompleted(sourceID, loaded, took) })
	}
	return nil
}

// Locator implements renderer.SampleSource.
func (s *ExtractorSampleSource) Locator() string { return s.locator }

// Formats implements renderer.SampleSource.
func (s *ExtractorSampleSource) Formats() []renderer.Format {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]renderer.Format, len(s.formats))
	copy(out, s.formats)
	return out
}

// Duration implements renderer.SampleSource.
func (s *ExtractorSampleSource) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.duration
}

// MaxBufferBytes implements renderer.SampleSource. The requested size is
// capped by what the allocator can hand out.
func (s *ExtractorSampleSource) MaxBufferBytes() int64 {
	limit := s.allocator.Capacity()
	if s.requestedBufferSize > 0 && s.requestedBufferSize < limit {
		return s.requestedBufferSize
	}
	return limit
}

// Transferred implements renderer.SampleSource.
func (s *ExtractorSampleSource) Transferred(bytes int64, elapsed time.Duration) {
	if s.meter != nil {
		s.meter.Transferred(bytes, elapsed)
	}
}

func (s *ExtractorSampleSource) post(h looper.Poster, fn func()) {
	if h == nil {
		fn()
		return
	}
	h.Post(fn)
}
