// Command summarize sends text to a summarization backend and renders the
// summary as it streams in.
package main

import (
	"os"
)

func main() {
	cmd := newRootCmd(os.Stdin, os.Stdout, os.Stderr, buildDeps)
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
