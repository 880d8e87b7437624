package session

import (
	"errors"
	"fmt"
)

// ErrorKind classifies session errors.
type ErrorKind int

const (
	KindRendererInit ErrorKind = iota + 1
	KindDecoderInit
	KindCrypto
	KindAudioTrackInit
	KindAudioTrackWrite
	KindAudioTrackUnderrun
	KindDataLoad
	KindPlayback
)

func (k ErrorKind) String() string {
	switch k {
	case KindRendererInit:
		return "renderer initialization"
	case KindDecoderInit:
		return "decoder initialization"
	case KindCrypto:
		return "crypto"
	case KindAudioTrackInit:
		return "audio track initialization"
	case KindAudioTrackWrite:
		return "audio track write"
	case KindAudioTrackUnderrun:
		return "audio track underrun"
	case KindDataLoad:
		return "data load"
	case KindPlayback:
		return "playback"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Fatal reports whether errors of this kind end the session's build.
func (k ErrorKind) Fatal() bool {
	return k == KindRendererInit || k == KindPlayback
}

// Error is what listeners receive through OnError.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of a session error anywhere in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// ErrReleased is logged when a released session is asked to prepare.
var ErrReleased = errors.New("session released")
