package review

import (
	"context"
	"fmt"

	"github.com/calvinalkan/edithist/internal/histstore"
	"github.com/calvinalkan/edithist/internal/model"

	flag "github.com/spf13/pflag"
)

// ShowCmd returns the show command ("show <id>" -- print one
// edit's full detail plus its stored diff, if it has one).
func ShowCmd(store *histstore.Store) *Command {
	return &Command{
		Flags: flag.NewFlagSet("show", flag.ContinueOnError),
		Usage: "show <id>",
		Short: "Show one edit's detail and diff",
		Long:  "Show a single edit's recorded detail and, if it changed content, its stored unified diff.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			return execShow(o, store, args)
		},
	}
}

func execShow(o *IO, store *histstore.Store, args []string) error {
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

	if u.IsEdit {
		return showEdit(o, store, entries, model.EditID(u.ID))
	}

	return showConversation(o, store, entries, u.ID)
}

func showEdit(o *IO, store *histstore.Store, entries []loadedEntry, id model.EditID) error {
	for _, le := range entries {
		if le.Entry.EditID != id {
			continue
		}

		printEntry(o, le)

		if le.Entry.DiffFile != nil {
			diffBytes, err := store.ReadDiff(*le.Entry.DiffFile)
			if err != nil {
				return err
			}

			o.Println()
			o.Printf("%s", diffBytes)
		}

		return nil
	}

	return fmt.Errorf("%w: %s", ErrNoMatch, id)
}

func showConversation(o *IO, store *histstore.Store, entries []loadedEntry, conv string) error {
	found := false

	for _, le := range entries {
		if le.Conv != conv {
			continue
		}

		found = true

		printEntry(o, le)

		if le.Entry.DiffFile != nil {
			diffBytes, err := store.ReadDiff(*le.Entry.DiffFile)
			if err != nil {
				return err
			}

			o.Println()
			o.Printf("%s", diffBytes)
			o.Println()
		}
	}

	if !found {
		return fmt.Errorf("%w: %s", ErrNoMatch, conv)
	}

	return nil
}

func printEntry(o *IO, le loadedEntry) {
	e := le.Entry

	o.Printf("edit         %s\n", e.EditID)
	o.Printf("conversation %s\n", le.Conv)
	o.Printf("operation    %s\n", e.Operation)
	o.Printf("status       %s\n", e.Status)
	o.Printf("file         %s\n", e.FilePath)

	if e.SourcePath != nil {
		o.Printf("moved from   %s\n", *e.SourcePath)
	}

	o.Printf("tool         %s (call #%d)\n", e.ToolName, e.ToolCallIndex)
	o.Printf("time         %s\n", e.Timestamp.Format("2006-01-02T15:04:05"))
}
