// Package main is the entry point for the reportctl CLI.
package main

import (
	"os"

	"ledgerreport/cmd/reportctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
