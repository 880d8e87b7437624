package builder

import (
	"context"
	"sync"

	"github.com/ringplayer/ringplayer/log"
	"github.com/ringplayer/ringplayer/looper"
	"github.com/ringplayer/ringplayer/renderer"
	"github.com/ringplayer/ringplayer/source"
)

// ExtractorBuilder builds renderers for progressive MP4 read straight from
// its data source.
type ExtractorBuilder struct {
	locator   string
	opts      Options
	extractor source.Extractor
	open      func(locator, userAgent string, l source.TransferListener) (source.DataSource, error)

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ Builder = (*ExtractorBuilder)(nil)

// NewExtractorBuilder returns a builder for locator.
func NewExtractorBuilder(locator string, opts Options) *ExtractorBuilder {
	if opts.SegmentSize <= 0 {
		opts.SegmentSize = source.DefaultSegmentSize
	}
	if opts.SegmentCount <= 0 {
		opts.SegmentCount = source.DefaultSegmentCount
	}

	return &ExtractorBuilder{
		locator:   locator,
		opts:      opts,
		extractor: source.Mp4Extractor{},
		open:      source.NewURIDataSource,
	}
}

// Build implements Builder. Building again cancels the previous build.
func (b *ExtractorBuilder) Build(sink Sink) {
	ctx, cancel := context.WithCancel(context.Background())

	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
	}
	b.cancel = cancel
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.build(ctx, sink)
	}()
}

// Cancel implements Builder.
func (b *ExtractorBuilder) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}

func (b *ExtractorBuilder) build(ctx context.Context, sink Sink) {
	// Everything the build posts, load and renderer events included, is
	// dropped once the build is cancelled.
	handler := cancelPoster{ctx: ctx, next: sink.Handler()}

	fail := func(err error) {
		if ctx.Err() != nil {
			return
		}
		log.Errorf("build %s: %v", b.locator, err)
		handler.Post(func() { sink.RenderersFailed(err) })
	}

	alloc := source.NewAllocator(b.opts.SegmentSize, b.opts.SegmentCount)
	meter := source.NewBandwidthMeter(handler, sink.BandwidthEvents())

	ds, err := b.open(b.locator, b.opts.UserAgent, meter)
	if err != nil {
		fail(err)
		return
	}

	src := source.NewExtractorSampleSource(b.locator, ds, alloc, alloc.Capacity(), b.extractor, meter)
	src.SetEventListener(0, handler, sink.LoadEvents())
	if err := src.Prepare(ctx); err != nil {
		fail(err)
		return
	}

	var set renderer.Set
	set[renderer.Video] = renderer.NewVideoRenderer(src, renderer.VideoOptions{
		ScalingMode:              renderer.ScaleToFit,
		AllowedJoiningTime:       AllowedJoiningTime,
		MaxDroppedFramesToNotify: MaxDroppedFramesToNotify,
		HWDec:                    b.opts.HWDec,
	}, handler, sink.VideoEvents())
	set[renderer.Audio] = renderer.NewAudioRenderer(src, handler, sink.AudioEvents())

	log.Debugf("build %s: %d formats", b.locator, len(src.Formats()))
	handler.Post(func() { sink.RenderersReady(set, meter) })
}

// cancelPoster drops posted work that runs after ctx is done.
type cancelPoster struct {
	ctx  context.Context
	next looper.Poster
}

func (p cancelPoster) Post(fn func()) bool {
	return p.next.Post(func() {
		if p.ctx.Err() != nil {
			return
		}
		fn()
	})
}
