package review_test

import (
	"testing"
	"time"

	"github.com/calvinalkan/edithist/internal/hashdiff"
	"github.com/calvinalkan/edithist/internal/histstore"
	"github.com/calvinalkan/edithist/internal/model"
	"github.com/calvinalkan/edithist/pkg/fs"
)

// seedCreate appends a create entry for path in conv, writing its diff
// the way internal/tracker would (a create of a new file has no
// checkpoint), and leaves path on disk with content after. Returns the
// entry.
func seedCreate(t *testing.T, store *histstore.Store, fsys fs.FS, conv, path string, content []byte) model.Entry {
	t.Helper()

	diffBytes, err := hashdiff.Unified(nil, content, path)
	if err != nil {
		t.Fatalf("Unified: %v", err)
	}

	entry, err := model.NewCreateEntry(model.EntryParams{
		ConversationID: model.ConversationID(conv),
		ToolCallIndex:  0,
		Timestamp:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		ToolName:       "write_file",
		FilePath:       path,
		HashAfter:      hashdiff.HashBytes(content),
	})
	if err != nil {
		t.Fatalf("NewCreateEntry: %v", err)
	}

	if diffBytes != nil {
		rel, writeErr := store.WriteDiff(conv, string(entry.EditID), diffBytes)
		if writeErr != nil {
			t.Fatalf("WriteDiff: %v", writeErr)
		}

		entry.DiffFile = &rel
	}

	if _, err := store.AppendEntry(entry); err != nil {
		t.Fatalf("AppendEntry: %v", err)
	}

	if err := fsys.WriteFile(path, content, 0o640); err != nil {
		t.Fatalf("writing seed content: %v", err)
	}

	return entry
}
