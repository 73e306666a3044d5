// Package main provides the entry point for the tracksearch CLI.
package main

import (
	"os"

	"github.com/kailas-cloud/tracksearch/cmd/tracksearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
