// Package main provides the coilopt CLI.
package main

import (
	"fmt"
	"os"

	"github.com/coilopt/coilopt/cmd/coilopt/commands"
)

var version = "v0.1.0-dev"

func main() {
	if err := commands.NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
