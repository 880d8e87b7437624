package renderer

import "sync/atomic"

// CodecCounters accumulates decoder statistics for one renderer.
// Counters are written by the engine worker and read from anywhere.
type CodecCounters struct {
	DecoderInitCount          atomic.Int64
	DecoderReleaseCount       atomic.Int64
	RenderedOutputBufferCount atomic.Int64
	SkippedOutputBufferCount  atomic.Int64
	DroppedOutputBufferCount  atomic.Int64
	MaxConsecutiveDropped     atomic.Int64
}

// CodecStats is a point-in-time copy of CodecCounters.
type CodecStats struct {
	DecoderInitCount          int64
	DecoderReleaseCount       int64
	RenderedOutputBufferCount int64
	SkippedOutputBufferCount  int64
	DroppedOutputBufferCount  int64
	MaxConsecutiveDropped     int64
}

// Snapshot copies the current counter values.
func (c *CodecCounters) Snapshot() CodecStats {
	if c == nil {
		return CodecStats{}
	}
	return CodecStats{
		DecoderInitCount:          c.DecoderInitCount.Load(),
		DecoderReleaseCount:       c.DecoderReleaseCount.Load(),
		RenderedOutputBufferCount: c.RenderedOutputBufferCount.Load(),
		SkippedOutputBufferCount:  c.SkippedOutputBufferCount.Load(),
		DroppedOutputBufferCount:  c.DroppedOutputBufferCount.Load(),
		MaxConsecutiveDropped:     c.MaxConsecutiveDropped.Load(),
	}
}

func (c *CodecCounters) raiseMaxConsecutive(n int64) {
	for {
		cur := c.MaxConsecutiveDropped.Load()
		if n <= cur || c.MaxConsecutiveDropped.CompareAndSwap(cur, n) {
			return
		}
	}
}
