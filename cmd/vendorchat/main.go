// Package main is the entry point for the vendorchat CLI.
package main

import (
	"fmt"
	"os"

	"github.com/NahoooMac/wedhabesha-sub006/internal/cli"
)

// Version information (set by goreleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var _ = []string{commit, date}

func main() {
	if err := cli.Execute(version); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
