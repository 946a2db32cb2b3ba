// Package main implements the gdecls CLI. It reads a structural model of a
// C or C++ program and writes the declarations Daikon needs to interpret a
// trace of it.
package main

import (
	"os"

	"github.com/l3aro/go-decls/cmd/gdecls/commands"
)

var (
	version   = "dev"
	buildTime = ""
)

func main() {
	commands.RootCmd.Version = version
	if buildTime != "" {
		commands.RootCmd.Version = version + " (" + buildTime + ")"
	}
	commands.RootCmd.SetVersionTemplate(`gdecls version {{.Version}}
`)

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
