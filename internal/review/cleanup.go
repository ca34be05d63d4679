package review

import (
	"context"

	"github.com/calvinalkan/edithist/internal/lock"

	flag "github.com/spf13/pflag"
)

// CleanupCmd returns the cleanup command (a bulk
// stale-lock GC the reviewer can run by hand instead of waiting for the
// next operation that happens to touch a given lock). forceDefault comes
// from the global --force-cleanup flag; --force on the command itself
// can still turn it on even if the global flag wasn't given.
func CleanupCmd(root string, forceDefault bool) *Command {
	fs := flag.NewFlagSet("cleanup", flag.ContinueOnError)
	force := fs.Bool("force", forceDefault, "remove every lock directory, including ones whose staleness can't be confirmed")

	return &Command{
		Flags: fs,
		Usage: "cleanup [flags]",
		Short: "Remove stale lock directories",
		Long:  "Walk the workspace for stale lock directories left behind by a crashed process and remove them. Without --force, only locks confirmed stale (dead owning process, past the debounce window) are removed.",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			return execCleanup(o, root, *force)
		},
	}
}

func execCleanup(o *IO, root string, force bool) error {
	result, err := lock.Cleanup(root, force)
	if err != nil {
		return err
	}

	for _, p := range result.Removed {
		o.Printf("removed  %s\n", p)
	}

	for _, p := range result.Retained {
		o.Printf("retained %s\n", p)
	}

	if len(result.Removed) == 0 && len(result.Retained) == 0 {
		o.Println("no lock directories found")
	}

	return nil
}
