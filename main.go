package main

import "github.com/Kowayz/ytb-story-horro-gen/cmd"

// set with -ldflags at build time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, date)
	cmd.Execute()
}
