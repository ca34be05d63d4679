package review

import (
	"context"
	"fmt"

	"github.com/calvinalkan/edithist/internal/histstore"
	"github.com/calvinalkan/edithist/internal/model"
	"github.com/calvinalkan/edithist/pkg/fs"

	flag "github.com/spf13/pflag"
)

// AcceptCmd returns the accept command ("accept <id>
// [--conv]" -- flips a single edit, or every edit in a conversation, to
// accepted and re-materializes every file it touches).
func AcceptCmd(store *histstore.Store, fsys fs.FS) *Command {
	fset := flag.NewFlagSet("accept", flag.ContinueOnError)
	wholeConv := fset.Bool("conv", false, "accept every edit in the matched conversation, not just one")

	return &Command{
		Flags: fset,
		Usage: "accept <id>",
		Short: "Accept an edit (or a whole conversation)",
		Long:  "Flip an edit's status to accepted and re-materialize every file it touches. With --conv, the id must resolve to a conversation and every edit in it is accepted.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			return execChangeStatus(o, store, fsys, args, *wholeConv, model.StatusAccepted)
		},
	}
}

func execChangeStatus(o *IO, store *histstore.Store, fsys fs.FS, args []string, wholeConv bool, newStatus model.Status) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: an edit or conversation id is required", ErrNoMatch)
	}

	entries, err := allEntries(store)
	if err != nil {
		return err
	}

	editIDs, convIDs := editIDsAndConvIDs(entries)

	res := ResolveID(editIDs, convIDs, args[0])

	kind, n := res.Match()

	switch kind {
	case MatchNone:
		return fmt.Errorf("%w: %s", ErrNoMatch, args[0])
	case MatchAmbiguous:
		amb := res.(Ambiguous)

		return fmt.Errorf("%w: %s matches %d candidates: %v", ErrAmbiguousID, args[0], n, amb.Candidates)
	}

	u := res.(Unique)

	if wholeConv && u.IsEdit {
		return fmt.Errorf("%w: %s is an edit id, not a conversation id", ErrNoMatch, args[0])
	}

	if u.IsEdit {
		id := model.EditID(u.ID)

		conv := convOf(entries, id)

		if conv == "" {
			return fmt.Errorf("%w: %s", ErrNoMatch, args[0])
		}

		if err := ChangeStatus(store, fsys, conv, &id, newStatus); err != nil {
			return err
		}

		o.Printf("%s: %s -> %s\n", shortID(string(id)), conv, newStatus)

		return nil
	}

	if err := ChangeStatus(store, fsys, u.ID, nil, newStatus); err != nil {
		return err
	}

	o.Printf("%s: every edit -> %s\n", u.ID, newStatus)

	return nil
}

func convOf(entries []loadedEntry, id model.EditID) string {
	for _, le := range entries {
		if le.Entry.EditID == id {
			return le.Conv
		}
	}

	return ""
}
