// Package source opens progressive media, demuxes its header and bounds the
// memory spent buffering it.
package source

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// Stream is an open, seekable view of the media bytes.
type Stream interface {
	io.ReadSeekCloser
	// Size returns the stream length in bytes, or -1 when unknown.
	Size() int64
}

// DataSource opens streams for one locator.
type DataSource interface {
	Open(ctx context.Context) (Stream, error)
}

// TransferListener is told about every completed read.
type TransferListener interface {
	Transferred(bytes int64, elapsed time.Duration)
}

// NewURIDataSource picks a data source by the locator's scheme:
// http and https go to the network, file URLs and bare paths to the filesystem.
func NewURIDataSource(locator, userAgent string, listener TransferListener) (DataSource, error) {
	if path, ok := LocalPath(locator); ok {
		return &FileDataSource{Path: path, Listener: listener}, nil
	}

	u, err := url.Parse(locator)
	if err != nil {
		return nil, fmt.Errorf("parse locator: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return &HTTPDataSource{URL: u.String(), UserAgent: userAgent, Listener: listener}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
}

// LocalPath returns the filesystem path of a file URL or bare path.
func LocalPath(locator string) (string, bool) {
	l := strings.TrimSpace(locator)
	if l == "" {
		return "", false
	}

	if !strings.Contains(l, "://") {
		return filepath.Clean(l), true
	}

	u, err := url.Parse(l)
	if err != nil || !strings.EqualFold(u.Scheme, "file") {
		return "", false
	}
	return filepath.FromSlash(u.Path), true
}

// IsLocalFile reports whether locator addresses the local filesystem.
func IsLocalFile(locator string) bool {
	_, ok := LocalPath(locator)
	return ok
}

// LastPathSegment returns the final path element of locator, or "" if it has none.
func LastPathSegment(locator string) string {
	if path, ok := LocalPath(locator); ok {
		return filepath.Base(path)
	}

	u, err := url.Parse(locator)
	if err != nil {
		return ""
	}

	p := strings.TrimRight(u.Path, "/")
	if p == "" {
		return ""
	}
	return p[strings.LastIndex(p, "/")+1:]
}

// meteredStream reports every read to a TransferListener.
type meteredStream struct {
	Stream
	listener TransferListener
}

func metered(s Stream, listener TransferListener) Stream {
	if listener == nil {
		return s
	}
	return &meteredStream{Stream: s, listener: listener}
}

func (m *meteredStream) Read(p []byte) (int, error) {
	start := time.Now()
	n, err := m.Stream.Read(p)
	if n > 0 {
		m.listener.Transferred(int64(n), time.Since(start))
	}
	return n, err
}
