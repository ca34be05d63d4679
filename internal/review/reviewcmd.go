package review

import (
	"context"

	"github.com/calvinalkan/edithist/internal/histstore"
	"github.com/calvinalkan/edithist/pkg/fs"

	flag "github.com/spf13/pflag"
)

// ReviewCmd returns the interactive review command ("review"
// -- walk every pending edit oldest-first, prompting accept/reject/skip).
func ReviewCmd(store *histstore.Store, fsys fs.FS) *Command {
	return &Command{
		Flags: flag.NewFlagSet("review", flag.ContinueOnError),
		Usage: "review",
		Short: "Interactively accept or reject pending edits",
		Long:  "Walk every pending edit oldest-first, showing its diff and prompting accept/reject/skip/quit.",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			return RunReviewLoop(o, store, fsys)
		},
	}
}
