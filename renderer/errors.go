package renderer

import "fmt"

// DecoderInitializationError reports a decoder that could not be created or configured.
type DecoderInitializationError struct {
	MimeType    string
	DecoderName string
	Err         error
}

func (e *DecoderInitializationError) Error() string {
	if e.DecoderName == "" {
		return fmt.Sprintf("decoder init failed for %s: %v", e.MimeType, e.Err)
	}
	return fmt.Sprintf("decoder %s init failed for %s: %v", e.DecoderName, e.MimeType, e.Err)
}

func (e *DecoderInitializationError) Unwrap() error { return e.Err }

// CryptoError reports a failure decrypting protected samples.
type CryptoError struct {
	Err error
}

func (e *CryptoError) Error() string { return fmt.Sprintf("crypto: %v", e.Err) }
func (e *CryptoError) Unwrap() error { return e.Err }

// AudioTrackInitializationError reports an audio output that could not be opened.
type AudioTrackInitializationError struct {
	SampleRate   int
	ChannelCount int
	Err          error
}

func (e *AudioTrackInitializationError) Error() string {
	return fmt.Sprintf("audio track init (%d Hz, %d ch): %v", e.SampleRate, e.ChannelCount, e.Err)
}

func (e *AudioTrackInitializationError) Unwrap() error { return e.Err }

// AudioTrackWriteError reports a failed write to an open audio output.
type AudioTrackWriteError struct {
	Err error
}

func (e *AudioTrackWriteError) Error() string { return fmt.Sprintf("audio track write: %v", e.Err) }
func (e *AudioTrackWriteError) Unwrap() error { return e.Err }
