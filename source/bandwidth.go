package source

import (
	"sync"
	"time"

	"github.com/ringplayer/ringplayer/looper"
	"golang.org/x/time/rate"
)

// NoEstimate is returned by BitrateEstimate before the first sample.
const NoEstimate int64 = -1

// DefaultSampleInterval is the minimum time between two bandwidth samples.
const DefaultSampleInterval = 500 * time.Millisecond

// BandwidthListener receives bandwidth samples.
type BandwidthListener interface {
	OnBandwidthSample(elapsed time.Duration, bytes int64, bitrateEstimate int64)
}

// BandwidthMeter aggregates transfers into throttled bandwidth samples and
// keeps a smoothed bitrate estimate in bits per second.
type BandwidthMeter struct {
	handler  looper.Poster
	listener BandwidthListener
	limiter  *rate.Limiter

	mu             sync.Mutex
	pendingBytes   int64
	pendingElapsed time.Duration
	totalBytes     int64
	estimate       int64
}

// NewBandwidthMeter returns a meter that posts samples to listener through
// handler at most once per DefaultSampleInterval. Both may be nil.
func NewBandwidthMeter(handler looper.Poster, listener BandwidthListener) *BandwidthMeter {
	return NewBandwidthMeterInterval(handler, listener, DefaultSampleInterval)
}

// NewBandwidthMeterInterval is NewBandwidthMeter with a custom sample interval.
// A non-positive interval samples on every transfer.
func NewBandwidthMeterInterval(handler looper.Poster, listener BandwidthListener, interval time.Duration) *BandwidthMeter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}

	return &BandwidthMeter{
		handler:  handler,
		listener: listener,
		limiter:  rate.NewLimiter(limit, 1),
		estimate: NoEstimate,
	}
}

// Transferred implements TransferListener.
func (m *BandwidthMeter) Transferred(bytes int64, elapsed time.Duration) {
	if bytes <= 0 {
		return
	}

	m.mu.Lock()
	m.pendingBytes += bytes
	m.pendingElapsed += elapsed
	m.totalBytes += bytes

	if m.pendingElapsed <= 0 || !m.limiter.Allow() {
		m.mu.Unlock()
		return
	}

	sampleBytes, sampleElapsed := m.pendingBytes, m.pendingElapsed
	bitrate := int64(float64(sampleBytes*8) / sampleElapsed.Seconds())
	if m.estimate == NoEstimate {
		m.estimate = bitrate
	} else {
		m.estimate = (m.estimate*7 + bitrate*3) / 10
	}
	estimate := m.estimate
	m.pendingBytes, m.pendingElapsed = 0, 0
	m.mu.Unlock()

	if m.listener == nil {
		return
	}

	if m.handler == nil {
		m.listener.OnBandwidthSample(sampleElapsed, sampleBytes, estimate)
		return
	}
	m.handler.Post(func() {
		m.listener.OnBandwidthSample(sampleElapsed, sampleBytes, estimate)
	})
}

// BitrateEstimate returns the smoothed bitrate, or NoEstimate.
func (m *BandwidthMeter) BitrateEstimate() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.estimate
}

// TotalBytes returns every byte seen by the meter.
func (m *BandwidthMeter) TotalBytes() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalBytes
}
