package version

import (
	"fmt"

	"github.com/ringplayer/ringplayer/color"
	"github.com/ringplayer/ringplayer/constant"
	"github.com/ringplayer/ringplayer/icon"
	"github.com/ringplayer/ringplayer/key"
	"github.com/ringplayer/ringplayer/style"
	"github.com/ringplayer/ringplayer/util"
	"github.com/spf13/viper"
)

// Notify prints a notice when a newer release is available.
func Notify() {
	if !viper.GetBool(key.CliVersionCheck) {
		return
	}

	erase := util.PrintErasable(fmt.Sprintf("%s Checking if new version is available...", icon.Get(icon.Progress)))
	version, err := Latest()
	erase()
	if err != nil {
		return
	}
	if comp, err := Compare(version, constant.Version); err != nil || comp <= 0 {
		return
	}

	fmt.Printf(`
%s New version is available %s %s
%s

`,
		style.Fg(color.Green)("▇▇▇"),
		style.Bold(version),
		style.Faint(fmt.Sprintf("(You're on %s)", constant.Version)),
		style.Faint("https://github.com/ringplayer/ringplayer/releases/tag/v"+version),
	)
}
