package main

import "github.com/teemow/workast-mcp/cmd"

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cmd.SetVersion(version)
	cmd.Execute()
}
