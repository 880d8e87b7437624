// Package icon renders the status symbols printed by the CLI and the transport bar.
//
// Icons can be displayed as emoji, nerd-font glyphs or plain ASCII
// depending on user preference.
package icon

import (
	"github.com/ringplayer/ringplayer/key"
	"github.com/spf13/viper"
)

const (
	emoji = "emoji"
	nerd  = "nerd"
	plain = "plain"
)

// AvailableVariants returns every supported icons variant.
func AvailableVariants() []string {
	return []string{emoji, nerd, plain}
}

// Icon identifies a symbol.
type Icon int

const (
	Success Icon = iota + 1
	Fail
	Progress
	Question
	Play
	Pause
	Buffering
	Ended
	Forward
	Rewind
	Video
	Audio
)

type iconDef struct {
	emoji string
	nerd  string
	plain string
}

func (d iconDef) get() string {
	switch viper.GetString(key.IconsVariant) {
	case emoji:
		return d.emoji
	case nerd:
		return d.nerd
	case plain:
		return d.plain
	default:
		return ""
	}
}

var icons = map[Icon]iconDef{
	Success:   {emoji: "🎉", nerd: "", plain: "+"},
	Fail:      {emoji: "💀", nerd: "", plain: "X"},
	Progress:  {emoji: "👾", nerd: "", plain: "~"},
	Question:  {emoji: "🤨", nerd: "", plain: "?"},
	Play:      {emoji: "▶️", nerd: "", plain: ">"},
	Pause:     {emoji: "⏸️", nerd: "", plain: "||"},
	Buffering: {emoji: "⏳", nerd: "", plain: "..."},
	Ended:     {emoji: "⏹️", nerd: "", plain: "[]"},
	Forward:   {emoji: "⏩", nerd: "", plain: ">>"},
	Rewind:    {emoji: "⏪", nerd: "", plain: "<<"},
	Video:     {emoji: "🎞️", nerd: "", plain: "V"},
	Audio:     {emoji: "🔊", nerd: "", plain: "A"},
}

// Get renders i in the configured variant. Unknown variants render nothing.
func Get(i Icon) string {
	return icons[i].get()
}
