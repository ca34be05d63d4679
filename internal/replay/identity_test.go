package replay

import (
	"testing"

	"github.com/calvinalkan/edithist/internal/model"
)

func mustMoveEntry(t *testing.T, from, to string, idx int) model.Entry {
	t.Helper()

	e, err := model.NewMoveEntry(model.EntryParams{
		ConversationID: "conv",
		ToolCallIndex:  idx,
		ToolName:       "move_file",
		FilePath:       to,
		SourcePath:     from,
		HashBefore:     "h",
		HashAfter:      "h",
	})
	if err != nil {
		t.Fatalf("NewMoveEntry: %v", err)
	}

	return e
}

func mustReplaceEntry(t *testing.T, path string, idx int) model.Entry {
	t.Helper()

	e, err := model.NewReplaceEntry(model.EntryParams{
		ConversationID: "conv",
		ToolCallIndex:  idx,
		ToolName:       "edit_file",
		FilePath:       path,
		HashBefore:     "a",
		HashAfter:      "b",
	})
	if err != nil {
		t.Fatalf("NewReplaceEntry: %v", err)
	}

	return e
}

func TestTraceIdentity_FollowsSingleMoveBackward(t *testing.T) {
	t.Parallel()

	e0 := mustReplaceEntry(t, "/ws/a.txt", 0)
	e1 := mustMoveEntry(t, "/ws/a.txt", "/ws/b.txt", 1)

	names, relevant := traceIdentity([]model.Entry{e0, e1}, "/ws/b.txt")

	if !names["/ws/a.txt"] || !names["/ws/b.txt"] {
		t.Fatalf("names = %v, want both a.txt and b.txt", names)
	}

	if len(relevant) != 2 {
		t.Fatalf("relevant = %d entries, want 2", len(relevant))
	}

	if originalName(relevant) != "/ws/a.txt" {
		t.Errorf("originalName = %q, want /ws/a.txt", originalName(relevant))
	}
}

func TestTraceIdentity_UnrelatedEntriesExcluded(t *testing.T) {
	t.Parallel()

	e0 := mustReplaceEntry(t, "/ws/a.txt", 0)
	e1 := mustReplaceEntry(t, "/ws/unrelated.txt", 1)

	_, relevant := traceIdentity([]model.Entry{e0, e1}, "/ws/a.txt")

	if len(relevant) != 1 || relevant[0].FilePath != "/ws/a.txt" {
		t.Fatalf("relevant = %v, want only the a.txt entry", relevant)
	}
}

func TestTraceIdentity_ChainOfTwoMoves(t *testing.T) {
	t.Parallel()

	e0 := mustReplaceEntry(t, "/ws/a.txt", 0)
	e1 := mustMoveEntry(t, "/ws/a.txt", "/ws/b.txt", 1)
	e2 := mustMoveEntry(t, "/ws/b.txt", "/ws/c.txt", 2)

	names, relevant := traceIdentity([]model.Entry{e0, e1, e2}, "/ws/c.txt")

	for _, want := range []string{"/ws/a.txt", "/ws/b.txt", "/ws/c.txt"} {
		if !names[want] {
			t.Errorf("names missing %q: %v", want, names)
		}
	}

	if len(relevant) != 3 {
		t.Fatalf("relevant = %d entries, want 3", len(relevant))
	}

	if originalName(relevant) != "/ws/a.txt" {
		t.Errorf("originalName = %q, want /ws/a.txt", originalName(relevant))
	}
}
