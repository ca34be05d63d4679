package histstore_test

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/calvinalkan/edithist/internal/histstore"
	"github.com/calvinalkan/edithist/internal/model"
	"github.com/calvinalkan/edithist/pkg/fs"
)

func newTestStore(t *testing.T) (*histstore.Store, string) {
	t.Helper()

	root := t.TempDir()

	return histstore.New(fs.NewReal(), root, histstore.Options{}), root
}

func mustEntry(t *testing.T, conv model.ConversationID, idx int, path string) model.Entry {
	t.Helper()

	e, err := model.NewCreateEntry(model.EntryParams{
		ConversationID: conv,
		ToolCallIndex:  idx,
		Timestamp:      time.Unix(1700000000, 0).UTC(),
		ToolName:       "write_file",
		FilePath:       path,
		HashAfter:      "deadbeef",
	})
	if err != nil {
		t.Fatalf("building entry: %v", err)
	}

	return e
}

func TestAppendAndReadEntries_RoundTrip(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	conv := model.ConversationID("01testconv")

	for i := range 5 {
		e := mustEntry(t, conv, i, fmt.Sprintf("/ws/file_%d.go", i))

		if _, err := store.AppendEntry(e); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	entries, err := store.ReadEntries(string(conv))
	if err != nil {
		t.Fatalf("read entries: %v", err)
	}

	if len(entries) != 5 {
		t.Fatalf("got %d entries, want 5", len(entries))
	}

	for i, e := range entries {
		if e.ToolCallIndex != i {
			t.Errorf("entry %d has tool_call_index %d", i, e.ToolCallIndex)
		}

		if e.Status != model.StatusPending {
			t.Errorf("entry %d has status %q, want pending", i, e.Status)
		}
	}
}

func TestReadEntries_NoLogYieldsNilNoError(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)

	entries, err := store.ReadEntries("nonexistent")
	if err != nil {
		t.Fatalf("expected no error for a missing log, got %v", err)
	}

	if entries != nil {
		t.Errorf("expected nil entries, got %v", entries)
	}
}

func TestReadEntries_TolerantOfTrailingPartialLine(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	conv := model.ConversationID("01testconv2")

	e := mustEntry(t, conv, 0, "/ws/a.go")

	if _, err := store.AppendEntry(e); err != nil {
		t.Fatalf("append: %v", err)
	}

	// Simulate a writer that crashed mid-append: a truncated trailing line.
	f, err := fs.NewReal().OpenFile(store.LogPath(string(conv)), os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		t.Fatalf("opening log for append: %v", err)
	}

	if _, err := f.Write([]byte(`{"schema_version":1,"edit_id":"incomple`)); err != nil {
		t.Fatalf("writing partial line: %v", err)
	}

	if err := f.Close(); err != nil {
		t.Fatalf("closing: %v", err)
	}

	entries, err := store.ReadEntries(string(conv))
	if err != nil {
		t.Fatalf("expected trailing partial line to be tolerated, got error: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1 (partial trailing line discarded)", len(entries))
	}
}

func TestNextToolCallIndexLocked_TracksEntryCount(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	conv := string(model.ConversationID("01testconv3"))

	var idx int

	err := store.WithConversationLock(conv, func() error {
		var lockErr error
		idx, lockErr = store.NextToolCallIndexLocked(conv)

		return lockErr
	})
	if err != nil {
		t.Fatalf("NextToolCallIndexLocked: %v", err)
	}

	if idx != 0 {
		t.Fatalf("got index %d on empty log, want 0", idx)
	}

	e := mustEntry(t, model.ConversationID(conv), 0, "/ws/a.go")
	if _, err := store.AppendEntry(e); err != nil {
		t.Fatalf("append: %v", err)
	}

	err = store.WithConversationLock(conv, func() error {
		var lockErr error
		idx, lockErr = store.NextToolCallIndexLocked(conv)

		return lockErr
	})
	if err != nil {
		t.Fatalf("NextToolCallIndexLocked: %v", err)
	}

	if idx != 1 {
		t.Fatalf("got index %d after one append, want 1", idx)
	}
}

func TestUpdateStatuses_FlipsOnlyNamedEntries(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	conv := model.ConversationID("01testconv4")

	e0 := mustEntry(t, conv, 0, "/ws/a.go")
	e1 := mustEntry(t, conv, 1, "/ws/b.go")

	if _, err := store.AppendEntry(e0); err != nil {
		t.Fatalf("append e0: %v", err)
	}

	if _, err := store.AppendEntry(e1); err != nil {
		t.Fatalf("append e1: %v", err)
	}

	err := store.UpdateStatuses(string(conv), map[model.EditID]model.Status{
		e1.EditID: model.StatusAccepted,
	})
	if err != nil {
		t.Fatalf("update statuses: %v", err)
	}

	entries, err := store.ReadEntries(string(conv))
	if err != nil {
		t.Fatalf("read entries: %v", err)
	}

	if entries[0].Status != model.StatusPending {
		t.Errorf("entry 0 status = %q, want pending (untouched)", entries[0].Status)
	}

	if entries[1].Status != model.StatusAccepted {
		t.Errorf("entry 1 status = %q, want accepted", entries[1].Status)
	}
}

func TestListConversations_SortedBySanitizedID(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)

	for _, id := range []string{"01cccc", "01aaaa", "01bbbb"} {
		e := mustEntry(t, model.ConversationID(id), 0, "/ws/a.go")
		if _, err := store.AppendEntry(e); err != nil {
			t.Fatalf("append for %s: %v", id, err)
		}
	}

	got, err := store.ListConversations()
	if err != nil {
		t.Fatalf("list conversations: %v", err)
	}

	want := []string{"01aaaa", "01bbbb", "01cccc"}

	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
