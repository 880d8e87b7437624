// Package resume remembers the position each stream was last released at,
// so the next session for the same locator can continue from there.
package resume

import (
	"time"

	"github.com/metafates/gache"
	"github.com/ringplayer/ringplayer/filesystem"
	"github.com/ringplayer/ringplayer/where"
)

// FinishedThreshold is the share of the duration after which a stream
// counts as watched and its entry is dropped.
const FinishedThreshold = 0.95

// Entry is one saved position.
type Entry struct {
	Locator    string        `json:"locator"`
	Position   time.Duration `json:"position"`
	Duration   time.Duration `json:"duration"`
	ReleasedAt time.Time     `json:"released_at"`
}

// Progress returns the watched share of the stream, or 0 with an unknown duration.
func (e *Entry) Progress() float64 {
	if e.Duration <= 0 {
		return 0
	}
	return float64(e.Position) / float64(e.Duration)
}

var cacher = gache.New[map[string]*Entry](
	&gache.Options{
		Path:       where.Resume(),
		FileSystem: &filesystem.GacheFs{},
	},
)

// Get returns every saved entry keyed by locator.
func Get() (map[string]*Entry, error) {
	cached, expired, err := cacher.Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		return make(map[string]*Entry), nil
	}
	return cached, nil
}

// Position returns the saved position of locator.
func Position(locator string) (time.Duration, bool) {
	saved, err := Get()
	if err != nil {
		return 0, false
	}

	entry, ok := saved[locator]
	if !ok {
		return 0, false
	}
	return entry.Position, true
}

// Save records position for locator. A position at the start or past
// FinishedThreshold removes the entry instead.
func Save(locator string, position, duration time.Duration) error {
	saved, err := Get()
	if err != nil {
		return err
	}

	entry := &Entry{
		Locator:    locator,
		Position:   position,
		Duration:   duration,
		ReleasedAt: time.Now(),
	}

	if position <= 0 || entry.Progress() >= FinishedThreshold {
		delete(saved, locator)
	} else {
		saved[locator] = entry
	}

	return cacher.Set(saved)
}

// Remove forgets locator.
func Remove(locator string) error {
	saved, err := Get()
	if err != nil {
		return err
	}

	delete(saved, locator)
	return cacher.Set(saved)
}

// Store exposes the package functions as a position store.
type Store struct{}

func (Store) Position(locator string) (time.Duration, bool) { return Position(locator) }

func (Store) Save(locator string, position, duration time.Duration) error {
	return Save(locator, position, duration)
}
