package main

import (
	"os"

	"pixelplace/cmd/pixelplace/commands"
)

// preenchidos no build via -ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
