// Package main is the entry point for ringplayer.
package main

import (
	"github.com/ringplayer/ringplayer/cmd"
	"github.com/ringplayer/ringplayer/config"
	"github.com/ringplayer/ringplayer/log"
	"github.com/samber/lo"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	cmd.Execute()
}
