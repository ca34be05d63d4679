package review

import (
	"context"
	"fmt"

	"github.com/calvinalkan/edithist/internal/histstore"
	"github.com/calvinalkan/edithist/internal/model"

	flag "github.com/spf13/pflag"
)

// StatusCmd returns the status command ("status [--conv ID]
// [--file P] [--status S] [-n LIMIT]" -- one line per matching edit,
// newest first).
func StatusCmd(store *histstore.Store) *Command {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	conv := fs.String("conv", "", "only show edits from this conversation")
	file := fs.String("file", "", "only show edits touching this file")
	status := fs.String("status", "", "only show edits with this status (pending|accepted|rejected)")
	limit := fs.IntP("limit", "n", 0, "show at most N edits (0 means unlimited)")

	return &Command{
		Flags: fs,
		Usage: "status [flags]",
		Short: "List recorded edits",
		Long:  "List recorded edits across all tracked conversations, newest first.",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			return execStatus(o, store, *conv, *file, *status, *limit)
		},
	}
}

func execStatus(o *IO, store *histstore.Store, conv, file, status string, limit int) error {
	if status != "" {
		switch model.Status(status) {
		case model.StatusPending, model.StatusAccepted, model.StatusRejected:
		default:
			return fmt.Errorf("%w: unknown status %q", ErrNoMatch, status)
		}
	}

	entries, err := allEntries(store)
	if err != nil {
		return err
	}

	matched := filterEntries(entries, StatusFilter{
		Conv:   conv,
		File:   file,
		Status: model.Status(status),
		Limit:  limit,
	})

	if len(matched) == 0 {
		o.Println("no matching edits")

		return nil
	}

	for _, le := range matched {
		e := le.Entry

		o.Printf("%-8s %-9s %-7s %s %s\n",
			shortID(string(e.EditID)), e.Status, e.Operation,
			e.Timestamp.Format("2006-01-02T15:04:05"), e.FilePath)
	}

	return nil
}

// shortID truncates an id to the length the reviewer practically types.
// ResolveID itself accepts a prefix of any length.
func shortID(id string) string {
	const shortLen = 8

	if len(id) <= shortLen {
		return id
	}

	return id[:shortLen]
}
