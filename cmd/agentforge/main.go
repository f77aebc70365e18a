// Command agentforge is the CLI entry point for the AgentForge pipeline,
// per spec.md §6. It delegates its entire command tree to pkg/cli and
// exits with the code spec.md §6's exit-code table assigns to the
// command's outcome.
package main

import (
	"os"

	"github.com/agentforge/agentforge/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
