package main

import (
	"errors"
	"fmt"
	"os"

	"watchparse/cmd"
	"watchparse/pkg/parser"
)

// Version information (injected at build time)
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, date)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		// Exit status 2 marks input that did not parse.
		var perr *parser.ParseError
		if errors.As(err, &perr) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
