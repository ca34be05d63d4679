package model_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/calvinalkan/edithist/internal/model"
)

func baseParams() model.EntryParams {
	return model.EntryParams{
		ConversationID: model.ConversationID("conv-1"),
		ToolCallIndex:  0,
		Timestamp:      time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC),
		ToolName:       "write_file",
		FilePath:       "/workspace/a.txt",
	}
}

func TestNewCreateEntry_RequiresHashAfter(t *testing.T) {
	t.Parallel()

	p := baseParams()

	if _, err := model.NewCreateEntry(p); !errors.Is(err, model.ErrInvalidEntry) {
		t.Fatalf("NewCreateEntry with no hash_after: err = %v, want ErrInvalidEntry", err)
	}

	p.HashAfter = "deadbeef"

	e, err := model.NewCreateEntry(p)
	if err != nil {
		t.Fatalf("NewCreateEntry: %v", err)
	}

	if e.Operation != model.OpCreate {
		t.Errorf("Operation = %q, want %q", e.Operation, model.OpCreate)
	}

	if e.Status != model.StatusPending {
		t.Errorf("Status = %q, want %q", e.Status, model.StatusPending)
	}

	if e.HashBefore != nil {
		t.Errorf("HashBefore = %v, want nil", *e.HashBefore)
	}

	if e.HashAfter == nil || *e.HashAfter != "deadbeef" {
		t.Errorf("HashAfter = %v, want deadbeef", e.HashAfter)
	}

	if e.EditID == "" {
		t.Error("EditID is empty, want a generated id")
	}
}

func TestNewReplaceEntry_RequiresBothHashes(t *testing.T) {
	t.Parallel()

	cases := []model.EntryParams{
		baseParams(),
		mergeParams(baseParams(), func(p *model.EntryParams) { p.HashBefore = "a" }),
		mergeParams(baseParams(), func(p *model.EntryParams) { p.HashAfter = "b" }),
	}

	for _, p := range cases {
		if _, err := model.NewReplaceEntry(p); !errors.Is(err, model.ErrInvalidEntry) {
			t.Errorf("NewReplaceEntry(%+v): err = %v, want ErrInvalidEntry", p, err)
		}
	}

	p := mergeParams(baseParams(), func(p *model.EntryParams) {
		p.HashBefore = "a"
		p.HashAfter = "b"
	})

	e, err := model.NewReplaceEntry(p)
	if err != nil {
		t.Fatalf("NewReplaceEntry: %v", err)
	}

	if e.Operation != model.OpReplace {
		t.Errorf("Operation = %q, want %q", e.Operation, model.OpReplace)
	}
}

func TestNewEditEntry_RequiresBothHashes(t *testing.T) {
	t.Parallel()

	p := baseParams()
	if _, err := model.NewEditEntry(p); !errors.Is(err, model.ErrInvalidEntry) {
		t.Fatalf("NewEditEntry with no hashes: err = %v, want ErrInvalidEntry", err)
	}

	p.HashBefore = "a"
	p.HashAfter = "b"

	e, err := model.NewEditEntry(p)
	if err != nil {
		t.Fatalf("NewEditEntry: %v", err)
	}

	if e.Operation != model.OpEdit {
		t.Errorf("Operation = %q, want %q", e.Operation, model.OpEdit)
	}
}

func TestNewDeleteEntry_RequiresHashBeforeAndForbidsHashAfter(t *testing.T) {
	t.Parallel()

	p := baseParams()
	if _, err := model.NewDeleteEntry(p); !errors.Is(err, model.ErrInvalidEntry) {
		t.Fatalf("NewDeleteEntry with no hash_before: err = %v, want ErrInvalidEntry", err)
	}

	p.HashBefore = "a"

	e, err := model.NewDeleteEntry(p)
	if err != nil {
		t.Fatalf("NewDeleteEntry: %v", err)
	}

	if e.Operation != model.OpDelete {
		t.Errorf("Operation = %q, want %q", e.Operation, model.OpDelete)
	}

	if e.HashAfter != nil {
		t.Errorf("HashAfter = %v, want nil", *e.HashAfter)
	}

	if e.DiffFile != nil {
		t.Errorf("DiffFile = %v, want nil", *e.DiffFile)
	}
}

func TestNewMoveEntry_RequiresSourcePathAndBothHashes(t *testing.T) {
	t.Parallel()

	cases := []model.EntryParams{
		baseParams(),
		mergeParams(baseParams(), func(p *model.EntryParams) { p.SourcePath = "/workspace/old.txt" }),
		mergeParams(baseParams(), func(p *model.EntryParams) {
			p.SourcePath = "/workspace/old.txt"
			p.HashBefore = "a"
		}),
	}

	for _, p := range cases {
		if _, err := model.NewMoveEntry(p); !errors.Is(err, model.ErrInvalidEntry) {
			t.Errorf("NewMoveEntry(%+v): err = %v, want ErrInvalidEntry", p, err)
		}
	}

	p := mergeParams(baseParams(), func(p *model.EntryParams) {
		p.SourcePath = "/workspace/old.txt"
		p.HashBefore = "a"
		p.HashAfter = "a"
	})

	e, err := model.NewMoveEntry(p)
	if err != nil {
		t.Fatalf("NewMoveEntry: %v", err)
	}

	if e.SourcePath == nil || *e.SourcePath != "/workspace/old.txt" {
		t.Errorf("SourcePath = %v, want /workspace/old.txt", e.SourcePath)
	}
}

func TestNewBase_RejectsMissingConversationIDAndFilePath(t *testing.T) {
	t.Parallel()

	p := baseParams()
	p.ConversationID = ""

	if _, err := model.NewCreateEntry(p); !errors.Is(err, model.ErrInvalidEntry) {
		t.Errorf("missing conversation id: err = %v, want ErrInvalidEntry", err)
	}

	p = baseParams()
	p.FilePath = ""

	if _, err := model.NewCreateEntry(p); !errors.Is(err, model.ErrInvalidEntry) {
		t.Errorf("missing file path: err = %v, want ErrInvalidEntry", err)
	}
}

func TestEntry_MarshalUnmarshalJSON_RoundTrips(t *testing.T) {
	t.Parallel()

	p := mergeParams(baseParams(), func(p *model.EntryParams) {
		p.HashBefore = "a"
		p.HashAfter = "b"
		p.DiffFile = "diffs/conv-1/abc.diff"
	})

	want, err := model.NewReplaceEntry(p)
	if err != nil {
		t.Fatalf("NewReplaceEntry: %v", err)
	}

	data, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got model.Entry
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if got.EditID != want.EditID {
		t.Errorf("EditID = %q, want %q", got.EditID, want.EditID)
	}

	if got.Operation != want.Operation {
		t.Errorf("Operation = %q, want %q", got.Operation, want.Operation)
	}

	if got.HashBefore == nil || *got.HashBefore != "a" {
		t.Errorf("HashBefore = %v, want a", got.HashBefore)
	}

	if got.HashAfter == nil || *got.HashAfter != "b" {
		t.Errorf("HashAfter = %v, want b", got.HashAfter)
	}

	if !got.Timestamp.Equal(want.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, want.Timestamp)
	}
}

func TestEntry_UnmarshalJSON_RejectsUnknownOperation(t *testing.T) {
	t.Parallel()

	raw := `{"schema_version":1,"edit_id":"e1","conversation_id":"c1","tool_call_index":0,
"timestamp":"2026-07-30T12:00:00Z","operation":"truncate","file_path":"/a.txt",
"source_path":null,"tool_name":"x","status":"pending","diff_file":null,
"checkpoint_file":null,"hash_before":null,"hash_after":"x"}`

	var e model.Entry
	if err := json.Unmarshal([]byte(raw), &e); !errors.Is(err, model.ErrInvalidEntry) {
		t.Fatalf("err = %v, want ErrInvalidEntry", err)
	}
}

func TestEntry_UnmarshalJSON_RejectsUnknownStatus(t *testing.T) {
	t.Parallel()

	raw := `{"schema_version":1,"edit_id":"e1","conversation_id":"c1","tool_call_index":0,
"timestamp":"2026-07-30T12:00:00Z","operation":"create","file_path":"/a.txt",
"source_path":null,"tool_name":"x","status":"merged","diff_file":null,
"checkpoint_file":null,"hash_before":null,"hash_after":"x"}`

	var e model.Entry
	if err := json.Unmarshal([]byte(raw), &e); !errors.Is(err, model.ErrInvalidEntry) {
		t.Fatalf("err = %v, want ErrInvalidEntry", err)
	}
}

func TestEntry_UnmarshalJSON_RejectsMoveWithoutSourcePath(t *testing.T) {
	t.Parallel()

	raw := `{"schema_version":1,"edit_id":"e1","conversation_id":"c1","tool_call_index":0,
"timestamp":"2026-07-30T12:00:00Z","operation":"move","file_path":"/a.txt",
"source_path":null,"tool_name":"x","status":"pending","diff_file":null,
"checkpoint_file":null,"hash_before":"a","hash_after":"a"}`

	var e model.Entry
	if err := json.Unmarshal([]byte(raw), &e); !errors.Is(err, model.ErrInvalidEntry) {
		t.Fatalf("err = %v, want ErrInvalidEntry", err)
	}
}

func TestEntry_UnmarshalJSON_RejectsSourcePathOnNonMove(t *testing.T) {
	t.Parallel()

	raw := `{"schema_version":1,"edit_id":"e1","conversation_id":"c1","tool_call_index":0,
"timestamp":"2026-07-30T12:00:00Z","operation":"create","file_path":"/a.txt",
"source_path":"/old.txt","tool_name":"x","status":"pending","diff_file":null,
"checkpoint_file":null,"hash_before":null,"hash_after":"a"}`

	var e model.Entry
	if err := json.Unmarshal([]byte(raw), &e); !errors.Is(err, model.ErrInvalidEntry) {
		t.Fatalf("err = %v, want ErrInvalidEntry", err)
	}
}

func TestEntry_UnmarshalJSON_RejectsDeleteWithHashAfter(t *testing.T) {
	t.Parallel()

	raw := `{"schema_version":1,"edit_id":"e1","conversation_id":"c1","tool_call_index":0,
"timestamp":"2026-07-30T12:00:00Z","operation":"delete","file_path":"/a.txt",
"source_path":null,"tool_name":"x","status":"pending","diff_file":null,
"checkpoint_file":null,"hash_before":"a","hash_after":"b"}`

	var e model.Entry
	if err := json.Unmarshal([]byte(raw), &e); !errors.Is(err, model.ErrInvalidEntry) {
		t.Fatalf("err = %v, want ErrInvalidEntry", err)
	}
}

func TestEntry_AffectsPath(t *testing.T) {
	t.Parallel()

	p := mergeParams(baseParams(), func(p *model.EntryParams) {
		p.FilePath = "/workspace/new.txt"
		p.SourcePath = "/workspace/old.txt"
		p.HashBefore = "a"
		p.HashAfter = "a"
	})

	e, err := model.NewMoveEntry(p)
	if err != nil {
		t.Fatalf("NewMoveEntry: %v", err)
	}

	if !e.AffectsPath("/workspace/new.txt") {
		t.Error("AffectsPath(new path) = false, want true")
	}

	if !e.AffectsPath("/workspace/old.txt") {
		t.Error("AffectsPath(source path) = false, want true")
	}

	if e.AffectsPath("/workspace/other.txt") {
		t.Error("AffectsPath(unrelated path) = true, want false")
	}
}

func mergeParams(p model.EntryParams, fn func(*model.EntryParams)) model.EntryParams {
	fn(&p)
	return p
}
