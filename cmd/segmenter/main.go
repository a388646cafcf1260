// Command segmenter is the CLI driver: train, encode and decode over
// line-oriented files.
package main

import (
	"github.com/awee-ai/go-segmenter/internal/cli"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	cli.Version = version
	cli.GitCommit = commit
	cli.Execute()
}
