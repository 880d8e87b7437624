// Package renderer models the fixed set of track renderers a playback engine drives.
//
// The set of track types is closed: a Set always has one slot per TrackType, and
// slots without real content hold a Placeholder so the engine can address every
// slot uniformly.
package renderer

import "fmt"

// TrackType indexes a renderer slot.
type TrackType int

const (
	Video TrackType = iota
	Audio
	Text
	Metadata

	// TrackTypeCount is the number of slots in a Set.
	TrackTypeCount
)

// TrackTypes lists every slot in index order.
var TrackTypes = [TrackTypeCount]TrackType{Video, Audio, Text, Metadata}

func (t TrackType) String() string {
	switch t {
	case Video:
		return "video"
	case Audio:
		return "audio"
	case Text:
		return "text"
	case Metadata:
		return "metadata"
	default:
		return fmt.Sprintf("TrackType(%d)", int(t))
	}
}

// Kind identifies the concrete variant behind a Renderer.
type Kind int

const (
	KindNone Kind = iota
	KindVideo
	KindAudio
	KindText
	KindMetadata
)

func (k Kind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	case KindText:
		return "text"
	case KindMetadata:
		return "metadata"
	default:
		return "none"
	}
}

// Renderer is a closed interface: only the variants in this package implement it.
type Renderer interface {
	Kind() Kind
	// Source returns the sample source the renderer reads from, or nil.
	Source() SampleSource
	// HandleMessage applies a command delivered by the engine on its worker.
	HandleMessage(id MessageID, payload any) error
	sealed()
}

// Placeholder stands in for a slot with no content. It renders nothing.
type Placeholder struct{}

func (Placeholder) Kind() Kind           { return KindNone }
func (Placeholder) Source() SampleSource { return nil }
func (Placeholder) sealed()              {}

func (Placeholder) HandleMessage(MessageID, any) error { return nil }

// Set holds one renderer per TrackType.
type Set [TrackTypeCount]Renderer

// FillPlaceholders puts a Placeholder in every unset slot and returns how many it filled.
func (s *Set) FillPlaceholders() int {
	filled := 0
	for i := range s {
		if s[i] == nil {
			s[i] = Placeholder{}
			filled++
		}
	}
	return filled
}

// Video returns the video renderer, if the video slot holds one.
func (s *Set) Video() (*VideoRenderer, bool) {
	v, ok := s[Video].(*VideoRenderer)
	return v, ok && v != nil
}

// Audio returns the audio renderer, if the audio slot holds one.
func (s *Set) Audio() (*AudioRenderer, bool) {
	a, ok := s[Audio].(*AudioRenderer)
	return a, ok && a != nil
}

// PrimarySource returns the first non-nil sample source in slot order.
func (s *Set) PrimarySource() (SampleSource, bool) {
	for _, r := range s {
		if r == nil {
			continue
		}
		if src := r.Source(); src != nil {
			return src, true
		}
	}
	return nil, false
}

// MessageID identifies a command sent to a renderer through the engine.
type MessageID int

const (
	// MsgSetSurface attaches (*Surface) or detaches (nil) the output surface of a video renderer.
	MsgSetSurface MessageID = iota + 1
)

// Surface is a handle to the display the video renderer draws on.
type Surface struct {
	// ID names the surface for logging and for engines that route output by name.
	ID string
	// Title is shown by engines that open their own window for the surface.
	Title string
}
