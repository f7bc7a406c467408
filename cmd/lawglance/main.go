// Command lawglance is the entry point for the LawGlance legal awareness
// assistant. It provides a CLI interface (via Cobra) for one-shot questions,
// corpus ingestion and query history, and an HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/54b3r/lawglance-go/cmd/lawglance/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
