package source

import (
	"errors"
	"fmt"
)

// ErrNotMP4 is returned by the MP4 extractor when the stream has no movie header.
var ErrNotMP4 = errors.New("not an mp4 stream")

// ErrUnsupportedScheme is returned for locators no data source can open.
var ErrUnsupportedScheme = errors.New("unsupported locator scheme")

// LoadError reports a failure while loading media data for a source.
type LoadError struct {
	SourceID int
	Locator  string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Locator, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
