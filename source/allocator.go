package source

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Default allocator geometry: 256 segments of 64 KiB bound buffering at 16 MiB.
const (
	DefaultSegmentSize  = 64 * 1024
	DefaultSegmentCount = 256
)

// Segment is one fixed-size buffer handed out by an Allocator.
type Segment struct {
	Data []byte
}

// Allocator hands out fixed-size segments and bounds how many are outstanding.
type Allocator struct {
	segmentSize  int
	segmentCount int
	sem          *semaphore.Weighted
	allocated    atomic.Int64
}

// NewAllocator returns an allocator of segmentCount segments of segmentSize bytes.
func NewAllocator(segmentSize, segmentCount int) *Allocator {
	if segmentSize <= 0 {
		segmentSize = DefaultSegmentSize
	}
	if segmentCount <= 0 {
		segmentCount = DefaultSegmentCount
	}

	return &Allocator{
		segmentSize:  segmentSize,
		segmentCount: segmentCount,
		sem:          semaphore.NewWeighted(int64(segmentCount)),
	}
}

// SegmentSize returns the size of every segment.
func (a *Allocator) SegmentSize() int { return a.segmentSize }

// Capacity returns the maximum number of bytes outstanding at once.
func (a *Allocator) Capacity() int64 { return int64(a.segmentSize) * int64(a.segmentCount) }

// TotalBytesAllocated returns the bytes currently handed out.
func (a *Allocator) TotalBytesAllocated() int64 { return a.allocated.Load() * int64(a.segmentSize) }

// Allocate blocks until a segment is free or ctx is done.
func (a *Allocator) Allocate(ctx context.Context) (*Segment, error) {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("allocate segment: %w", err)
	}
	return a.newSegment(), nil
}

// TryAllocate returns a segment if one is free without blocking.
func (a *Allocator) TryAllocate() (*Segment, bool) {
	if !a.sem.TryAcquire(1) {
		return nil, false
	}
	return a.newSegment(), true
}

// Release returns segments to the allocator. Releasing nil or a segment
// that was already released is a no-op.
func (a *Allocator) Release(segments ...*Segment) {
	for _, s := range segments {
		if s == nil || s.Data == nil {
			continue
		}
		s.Data = nil
		a.allocated.Add(-1)
		a.sem.Release(1)
	}
}

func (a *Allocator) newSegment() *Segment {
	a.allocated.Add(1)
	return &Segment{Data: make([]byte, a.segmentSize)}
}
