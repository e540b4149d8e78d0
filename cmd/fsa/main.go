package main

import (
	"os"

	"github.com/wonny/finlab/cmd/fsa/commands"
)

// main is the entry point for the fsa CLI
// ⭐ Unified CLI entry point: go run ./cmd/fsa [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
