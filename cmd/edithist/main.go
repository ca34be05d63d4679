// Package main provides edithist, the reviewer CLI for the edit history
// engine: status/show/accept/reject/review/cleanup/doctor over the
// .mcp/edit_history tree a workspace's mutation tool server writes.
package main

import (
	"os"
	"strings"

	"github.com/calvinalkan/edithist/internal/review"
)

func main() {
	environ := os.Environ()
	env := make(map[string]string, len(environ))

	for _, e := range environ {
		if k, v, ok := strings.Cut(e, "="); ok {
			env[k] = v
		}
	}

	exitCode := review.Run(os.Stdin, os.Stdout, os.Stderr, os.Args[1:], env)

	os.Exit(exitCode)
}
