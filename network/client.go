// Package network provides the HTTP client shared by remote data sources.
package network

import (
	"net/http"
	"time"
)

// Client is shared by every HTTP data source. It sets no overall timeout
// because a progressive download may legitimately run for the whole playback.
var Client = &http.Client{
	Transport: newTransport(),
}

func newTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConnsPerHost = 4
	t.IdleConnTimeout = 30 * time.Second
	t.ResponseHeaderTimeout = 15 * time.Second
	t.ExpectContinueTimeout = time.Second
	// Ranged reads of compressed media make no sense.
	t.DisableCompression = true
	return t
}
