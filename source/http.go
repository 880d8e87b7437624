package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ringplayer/ringplayer/network"
)

// HTTPDataSource reads a remote file with ranged GET requests.
type HTTPDataSource struct {
	URL       string
	UserAgent string
	Listener  TransferListener
	// Client defaults to network.Client.
	Client *http.Client
}

// Open implements DataSource. The first request also discovers the stream size.
func (d *HTTPDataSource) Open(ctx context.Context) (Stream, error) {
	client := d.Client
	if client == nil {
		client = network.Client
	}

	s := &httpStream{ctx: ctx, src: d, client: client, size: -1}
	if err := s.request(0); err != nil {
		return nil, err
	}
	return metered(s, d.Listener), nil
}

type httpStream struct {
	ctx    context.Context
	src    *HTTPDataSource
	client *http.Client
	body   io.ReadCloser
	offset int64
	size   int64
}

func (s *httpStream) Size() int64 { return s.size }

func (s *httpStream) request(offset int64) error {
	req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, s.src.URL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if s.src.UserAgent != "" {
		req.Header.Set("User-Agent", s.src.UserAgent)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", s.src.URL, err)
	}

	switch resp.StatusCode {
	case http.StatusPartialContent:
		if total, ok := parseContentRangeTotal(resp.Header.Get("Content-Range")); ok {
			s.size = total
		}
	case http.StatusOK:
		// Server ignored the range; only usable from the start.
		if offset != 0 {
			resp.Body.Close()
			return fmt.Errorf("get %s: server does not support range requests", s.src.URL)
		}
		s.size = resp.ContentLength
	case http.StatusRequestedRangeNotSatisfiable:
		resp.Body.Close()
		s.body = io.NopCloser(strings.NewReader(""))
		s.offset = offset
		return nil
	default:
		resp.Body.Close()
		return fmt.Errorf("get %s: unexpected status %s", s.src.URL, resp.Status)
	}

	s.body = resp.Body
	s.offset = offset
	return nil
}

func (s *httpStream) Read(p []byte) (int, error) {
	if s.body == nil {
		if err := s.request(s.offset); err != nil {
			return 0, err
		}
	}

	n, err := s.body.Read(p)
	s.offset += int64(n)
	return n, err
}

func (s *httpStream) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = s.offset + offset
	case io.SeekEnd:
		if s.size < 0 {
			return 0, errors.New("seek from end: size unknown")
		}
		target = s.size + offset
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	if target < 0 {
		return 0, errors.New("seek: negative position")
	}

	if target != s.offset && s.body != nil {
		s.body.Close()
		s.body = nil
	}
	s.offset = target
	return target, nil
}

func (s *httpStream) Close() error {
	if s.body == nil {
		return nil
	}
	err := s.body.Close()
	s.body = nil
	return err
}

// parseContentRangeTotal extracts the complete length from "bytes a-b/total".
func parseContentRangeTotal(header string) (int64, bool) {
	i := strings.LastIndexByte(header, '/')
	if i < 0 || header[i+1:] == "*" {
		return 0, false
	}
	total, err := strconv.ParseInt(header[i+1:], 10, 64)
	if err != nil {
		return 0, false
	}
	return total, true
}
