package review

import (
	"context"

	"github.com/calvinalkan/edithist/internal/histstore"
	"github.com/calvinalkan/edithist/internal/model"
	"github.com/calvinalkan/edithist/pkg/fs"

	flag "github.com/spf13/pflag"
)

// RejectCmd returns the reject command. Same shape as accept, just the
// opposite target status.
func RejectCmd(store *histstore.Store, fsys fs.FS) *Command {
	fset := flag.NewFlagSet("reject", flag.ContinueOnError)
	wholeConv := fset.Bool("conv", false, "reject every edit in the matched conversation, not just one")

	return &Command{
		Flags: fset,
		Usage: "reject <id>",
		Short: "Reject an edit (or a whole conversation)",
		Long:  "Flip an edit's status to rejected and re-materialize every file it touches, restoring its pre-edit content. With --conv, the id must resolve to a conversation and every edit in it is rejected.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			return execChangeStatus(o, store, fsys, args, *wholeConv, model.StatusRejected)
		},
	}
}
