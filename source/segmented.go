package source

import (
	"errors"
	"fmt"
	"io"
)

// segmentedReader reads a Stream through allocator segments, so repeated reads
// of the same region (demuxers seek back and forth through the header) do not
// hit the data source again. When the allocator is exhausted the oldest cached
// segment is recycled, so buffered bytes never exceed the allocator capacity.
type segmentedReader struct {
	stream  Stream
	alloc   *Allocator
	segSize int64

	cache map[int64]*cachedSegment
	order []int64

	offset    int64
	streamPos int64
	loaded    int64
}

type cachedSegment struct {
	seg *Segment
	n   int
}

func newSegmentedReader(stream Stream, alloc *Allocator) *segmentedReader {
	return &segmentedReader{
		stream:  stream,
		alloc:   alloc,
		segSize: int64(alloc.SegmentSize()),
		cache:   make(map[int64]*cachedSegment),
	}
}

func (r *segmentedReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if size := r.stream.Size(); size >= 0 && r.offset >= size {
		return 0, io.EOF
	}

	idx := r.offset / r.segSize
	cs, err := r.segment(idx)
	if err != nil {
		return 0, err
	}

	within := int(r.offset - idx*r.segSize)
	if within >= cs.n {
		return 0, io.EOF
	}

	n := copy(p, cs.seg.Data[within:cs.n])
	r.offset += int64(n)
	return n, nil
}

func (r *segmentedReader) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = r.offset + offset
	case io.SeekEnd:
		size := r.stream.Size()
		if size < 0 {
			return 0, errors.New("seek from end: size unknown")
		}
		target = size + offset
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	if target < 0 {
		return 0, errors.New("seek: negative position")
	}

	r.offset = target
	return target, nil
}

// Loaded returns the bytes pulled from the underlying stream.
func (r *segmentedReader) Loaded() int64 { return r.loaded }

// Close returns every cached segment to the allocator.
func (r *segmentedReader) Close() error {
	for _, cs := range r.cache {
		r.alloc.Release(cs.seg)
	}
	r.cache = nil
	r.order = nil
	return nil
}

func (r *segmentedReader) segment(idx int64) (*cachedSegment, error) {
	if cs, ok := r.cache[idx]; ok {
		return cs, nil
	}

	seg, ok := r.alloc.TryAllocate()
	if !ok {
		if len(r.order) == 0 {
			return nil, errors.New("allocator exhausted")
		}
		oldest := r.order[0]
		r.order = r.order[1:]
		seg = r.cache[oldest].seg
		delete(r.cache, oldest)
	}

	start := idx * r.segSize
	if r.streamPos != start {
		if _, err := r.stream.Seek(start, io.SeekStart); err != nil {
			r.alloc.Release(seg)
			return nil, fmt.Errorf("seek to segment %d: %w", idx, err)
		}
		r.streamPos = start
	}

	n, err := io.ReadFull(r.stream, seg.Data)
	r.streamPos += int64(n)
	r.loaded += int64(n)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		r.alloc.Release(seg)
		return nil, fmt.Errorf("read segment %d: %w", idx, err)
	}

	cs := &cachedSegment{seg: seg, n: n}
	r.cache[idx] = cs
	r.order = append(r.order, idx)
	return cs, nil
}
