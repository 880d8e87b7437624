// Package engine defines the narrow contract between a playback session and
// the media engine that demuxes, decodes and renders its renderer set.
//
// The engine owns a worker goroutine. Commands are queued to it and never
// block the caller, except BlockingSendMessage. Listener callbacks are posted
// to the handler the engine was created with, in the order they happened.
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/ringplayer/ringplayer/renderer"
)

// State is the engine's playback state.
type State int

const (
	StateIdle State = iota + 1
	StatePreparing
	StateBuffering
	StateReady
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreparing:
		return "preparing"
	case StateBuffering:
		return "buffering"
	case StateReady:
		return "ready"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

var (
	// ErrReleased is reported for work submitted after Release.
	ErrReleased = errors.New("engine released")
	// ErrNotPrepared is reported when a command needs a prepared renderer set.
	ErrNotPrepared = errors.New("engine not prepared")
	// ErrNoSource is reported when a prepared renderer set has nothing to play.
	ErrNoSource = errors.New("renderer set has no sample source")
)

// PlaybackError is a fatal engine failure. The engine is Idle once it is reported.
type PlaybackError struct {
	Err error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("playback: %v", e.Err)
}

func (e *PlaybackError) Unwrap() error { return e.Err }

// Listener receives engine notifications on the engine's handler.
type Listener interface {
	OnPlayerStateChanged(playWhenReady bool, state State)
	OnPlayWhenReadyCommitted()
	OnPlayerError(err *PlaybackError)
}

// Params are the construction parameters every engine honours.
type Params struct {
	RendererCount int
	// MinBuffer is the media that must be buffered before playback starts.
	MinBuffer time.Duration
	// MinRebuffer is the media that must be buffered to resume after a stall.
	MinRebuffer time.Duration
}

// DefaultParams returns a renderer slot per track type, 1 s of initial
// buffer and 5 s of rebuffer.
func DefaultParams() Params {
	return Params{
		RendererCount: int(renderer.TrackTypeCount),
		MinBuffer:     time.Second,
		MinRebuffer:   5 * time.Second,
	}
}

// Engine plays a renderer set.
type Engine interface {
	AddListener(l Listener)
	RemoveListener(l Listener)

	// Prepare hands the renderer set to the engine. A previous set is stopped first.
	Prepare(renderers renderer.Set)

	PlaybackState() State
	PlayWhenReady() bool
	SetPlayWhenReady(playWhenReady bool)
	SeekTo(position time.Duration)

	CurrentPosition() time.Duration
	// Duration returns the media duration, or a negative value when unknown.
	Duration() time.Duration
	BufferedPercentage() int
	TrackCount(t renderer.TrackType) int
	TrackFormat(t renderer.TrackType, index int) (renderer.Format, bool)

	// SendMessage delivers a renderer message on the worker without waiting.
	SendMessage(target renderer.Renderer, id renderer.MessageID, payload any)
	// BlockingSendMessage returns once the worker has applied the message.
	BlockingSendMessage(target renderer.Renderer, id renderer.MessageID, payload any)

	Stop()
	Release()
}
