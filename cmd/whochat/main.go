// Command whochat chats with WHO antimicrobial resistance reports (or any
// PDF document) using retrieval-augmented generation with page citations.
// It provides a CLI interface (via Cobra) and an HTTP server for
// session-based use.
package main

import (
	"fmt"
	"os"

	"github.com/melakudessie/WHO-AMR-chat/cmd/whochat/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
