package renderer

import (
	"fmt"
	"sync"
	"time"

	"github.com/ringplayer/ringplayer/looper"
)

// ScalingMode controls how decoded frames are fitted to the surface.
type ScalingMode int

const (
	ScaleToFit ScalingMode = iota + 1
	ScaleToFitWithCropping
)

func (m ScalingMode) String() string {
	if m == ScaleToFitWithCropping {
		return "crop"
	}
	return "fit"
}

// VideoOptions tunes a VideoRenderer.
type VideoOptions struct {
	ScalingMode ScalingMode
	// AllowedJoiningTime is how long the renderer may keep rendering after a
	// seek before it must be ready.
	AllowedJoiningTime time.Duration
	// MaxDroppedFramesToNotify batches dropped-frame events. Zero disables them.
	MaxDroppedFramesToNotify int
	// HWDec selects the hardware decoding mode, e.g. "auto".
	HWDec string
}

// VideoRenderer decodes the video track of its sample source onto a Surface.
type VideoRenderer struct {
	codecRenderer
	opts   VideoOptions
	events VideoEventListener

	mu            sync.Mutex
	droppedCount  int
	droppedSince  time.Time
	consecutive   int64
	width, height int
	rotation      int
	pixelRatio    float64
	reportedSize  bool
	surface       *Surface
}

// NewVideoRenderer binds a video renderer to src. Events are posted through handler.
func NewVideoRenderer(src SampleSource, opts VideoOptions, handler looper.Poster, events VideoEventListener) *VideoRenderer {
	if opts.ScalingMode == 0 {
		opts.ScalingMode = ScaleToFit
	}

	var codec CodecEventListener
	if events != nil {
		codec = events
	}

	return &VideoRenderer{
		codecRenderer: newCodecRenderer(src, Video, handler, codec),
		opts:          opts,
		events:        events,
	}
}

func (*VideoRenderer) Kind() Kind { return KindVideo }
func (*VideoRenderer) sealed()    {}

// Options returns the tuning the renderer was built with.
func (v *VideoRenderer) Options() VideoOptions { return v.opts }

// HandleMessage implements Renderer. MsgSetSurface takes a *Surface, a Surface or nil.
func (v *VideoRenderer) HandleMessage(id MessageID, payload any) error {
	if id != MsgSetSurface {
		return nil
	}

	var next *Surface
	switch s := payload.(type) {
	case nil:
	case *Surface:
		if s != nil {
			copied := *s
			next = &copied
		}
	case Surface:
		next = &s
	default:
		return fmt.Errorf("set surface: unexpected payload %T", payload)
	}

	v.mu.Lock()
	v.surface = next
	v.mu.Unlock()
	return nil
}

// Surface returns the surface the renderer currently draws on.
func (v *VideoRenderer) Surface() (Surface, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.surface == nil {
		return Surface{}, false
	}
	return *v.surface, true
}

// ReportRenderedFrames records frames that reached the surface.
func (v *VideoRenderer) ReportRenderedFrames(n int) {
	if n <= 0 {
		return
	}
	v.counters.RenderedOutputBufferCount.Add(int64(n))

	v.mu.Lock()
	v.consecutive = 0
	v.mu.Unlock()
}

// ReportDroppedFrames records frames that were decoded too late to show.
// Listeners are notified once MaxDroppedFramesToNotify frames have accumulated.
func (v *VideoRenderer) ReportDroppedFrames(n int) {
	if n <= 0 {
		return
	}
	v.counters.DroppedOutputBufferCount.Add(int64(n))

	v.mu.Lock()
	if v.droppedCount == 0 {
		v.droppedSince = time.Now()
	}
	v.droppedCount += n
	v.consecutive += int64(n)
	v.counters.raiseMaxConsecutive(v.consecutive)
	flush := v.opts.MaxDroppedFramesToNotify > 0 && v.droppedCount >= v.opts.MaxDroppedFramesToNotify
	v.mu.Unlock()

	if flush {
		v.FlushDroppedFrames()
	}
}

// FlushDroppedFrames notifies any dropped frames not yet reported. Engines call it on stop.
func (v *VideoRenderer) FlushDroppedFrames() {
	v.mu.Lock()
	count, since := v.droppedCount, v.droppedSince
	v.droppedCount = 0
	v.mu.Unlock()

	if count == 0 || v.events == nil {
		return
	}

	elapsed := time.Since(since)
	post(v.handler, func() { v.events.OnDroppedFrames(count, elapsed) })
}

// ReportVideoSize notifies a change of the decoded picture geometry.
// Repeating the current geometry is ignored.
func (v *VideoRenderer) ReportVideoSize(width, height, unappliedRotationDegrees int, pixelWidthHeightRatio float64) {
	v.mu.Lock()
	same := v.reportedSize && v.width == width && v.height == height &&
		v.rotation == unappliedRotationDegrees && v.pixelRatio == pixelWidthHeightRatio
	v.width, v.height, v.rotation, v.pixelRatio = width, height, unappliedRotationDegrees, pixelWidthHeightRatio
	v.reportedSize = true
	v.mu.Unlock()

	if same || v.events == nil {
		return
	}

	post(v.handler, func() {
		v.events.OnVideoSizeChanged(width, height, unappliedRotationDegrees, pixelWidthHeightRatio)
	})
}

// ReportDrawnToSurface notifies the first frame drawn to a newly attached surface.
func (v *VideoRenderer) ReportDrawnToSurface(surface Surface) {
	if v.events == nil {
		return
	}
	post(v.handler, func() { v.events.OnDrawnToSurface(surface) })
}
