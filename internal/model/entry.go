package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Operation identifies the kind of mutation an [Entry] records.
type Operation string

// The five operation shapes the tracker wraps.
const (
	OpCreate  Operation = "create"
	OpReplace Operation = "replace"
	OpEdit    Operation = "edit"
	OpDelete  Operation = "delete"
	OpMove    Operation = "move"
)

// Status is an edit's current review disposition. Edits never leave this
// three-state machine: pending <-> accepted, pending <-> rejected, and
// accepted <-> rejected are all reachable at any time (there is no
// terminal state).
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// CurrentSchemaVersion is written into every new Entry. Readers keep the
// value they find but do not interpret it (there is only one version
// today).
const CurrentSchemaVersion = 1

// ErrInvalidEntry is wrapped by every entry-construction validation failure.
var ErrInvalidEntry = errors.New("invalid edit entry")

// Entry is one recorded mutation. It is a tagged sum over [Operation]:
// which of SourcePath, DiffFile, CheckpointFile, HashBefore, and HashAfter
// may be non-nil is fully determined by Operation, and the New*Entry
// constructors are the only supported way to build one, so a caller can
// never assemble an invalid combination (e.g. a non-move entry with a
// SourcePath, or a create entry with a DiffFile but no content change).
type Entry struct {
	SchemaVersion  int
	EditID         EditID
	ConversationID ConversationID
	ToolCallIndex  int
	Timestamp      time.Time
	Operation      Operation
	ToolName       string
	Status         Status
	FilePath       string
	SourcePath     *string
	DiffFile       *string
	CheckpointFile *string
	HashBefore     *string
	HashAfter      *string
}

// EntryParams bundles the pre/post state a New*Entry constructor needs.
// Not every field is meaningful for every operation; the constructors
// enforce which ones are.
type EntryParams struct {
	ConversationID ConversationID
	ToolCallIndex  int
	Timestamp      time.Time
	ToolName       string
	FilePath       string
	SourcePath     string // only for NewMoveEntry
	DiffFile       string // relative path, only when content changed
	CheckpointFile string // relative path, only when a checkpoint was taken
	HashBefore     string // empty means null (file did not exist)
	HashAfter      string // empty means null (file does not exist after)
	HadHashBefore  bool   // distinguishes empty-string hash from "no hash" -- never true in practice but kept explicit for clarity at call sites
	HadHashAfter   bool
}

func newEditID() (EditID, error) { return NewEditID() }

func optionalString(s string, present bool) *string {
	if !present || s == "" {
		return nil
	}

	return &s
}

// newBase constructs the fields common to every operation, assigning a
// fresh edit ID.
func newBase(p EntryParams, op Operation) (Entry, error) {
	id, err := newEditID()
	if err != nil {
		return Entry{}, err
	}

	if p.ConversationID == "" {
		return Entry{}, fmt.Errorf("%w: conversation id required", ErrInvalidEntry)
	}

	if p.FilePath == "" {
		return Entry{}, fmt.Errorf("%w: file path required", ErrInvalidEntry)
	}

	if p.ToolCallIndex < 0 {
		return Entry{}, fmt.Errorf("%w: tool_call_index must be >= 0", ErrInvalidEntry)
	}

	return Entry{
		SchemaVersion:  CurrentSchemaVersion,
		EditID:         id,
		ConversationID: p.ConversationID,
		ToolCallIndex:  p.ToolCallIndex,
		Timestamp:      p.Timestamp,
		Operation:      op,
		ToolName:       p.ToolName,
		Status:         StatusPending,
		FilePath:       p.FilePath,
	}, nil
}

// NewCreateEntry builds an entry for a create op: a file that did not
// exist before this mutation. hash_before is therefore always null;
// hash_after is required. A diff file is recorded when given; the
// constructor does not require one.
func NewCreateEntry(p EntryParams) (Entry, error) {
	e, err := newBase(p, OpCreate)
	if err != nil {
		return Entry{}, err
	}

	if p.HashAfter == "" {
		return Entry{}, fmt.Errorf("%w: create requires hash_after", ErrInvalidEntry)
	}

	e.HashAfter = optionalString(p.HashAfter, true)
	e.DiffFile = optionalString(p.DiffFile, true)
	e.CheckpointFile = optionalString(p.CheckpointFile, true)

	return e, nil
}

// NewReplaceEntry builds an entry for a whole-file overwrite of an
// existing file. Both hashes are required (the file existed before and
// exists after); a diff file is present unless the content didn't
// actually change.
func NewReplaceEntry(p EntryParams) (Entry, error) {
	e, err := newBase(p, OpReplace)
	if err != nil {
		return Entry{}, err
	}

	if p.HashBefore == "" || p.HashAfter == "" {
		return Entry{}, fmt.Errorf("%w: replace requires hash_before and hash_after", ErrInvalidEntry)
	}

	e.HashBefore = optionalString(p.HashBefore, true)
	e.HashAfter = optionalString(p.HashAfter, true)
	e.DiffFile = optionalString(p.DiffFile, true)
	e.CheckpointFile = optionalString(p.CheckpointFile, true)

	return e, nil
}

// NewEditEntry builds an entry for a line-specified or content-anchored
// in-place edit. Same hash requirements as replace.
func NewEditEntry(p EntryParams) (Entry, error) {
	e, err := newBase(p, OpEdit)
	if err != nil {
		return Entry{}, err
	}

	if p.HashBefore == "" || p.HashAfter == "" {
		return Entry{}, fmt.Errorf("%w: edit requires hash_before and hash_after", ErrInvalidEntry)
	}

	e.HashBefore = optionalString(p.HashBefore, true)
	e.HashAfter = optionalString(p.HashAfter, true)
	e.DiffFile = optionalString(p.DiffFile, true)
	e.CheckpointFile = optionalString(p.CheckpointFile, true)

	return e, nil
}

// NewDeleteEntry builds an entry for an unlink. hash_after is always
// null (the file no longer exists); there is never a diff file.
func NewDeleteEntry(p EntryParams) (Entry, error) {
	e, err := newBase(p, OpDelete)
	if err != nil {
		return Entry{}, err
	}

	if p.HashBefore == "" {
		return Entry{}, fmt.Errorf("%w: delete requires hash_before", ErrInvalidEntry)
	}

	e.HashBefore = optionalString(p.HashBefore, true)
	e.CheckpointFile = optionalString(p.CheckpointFile, true)

	return e, nil
}

// NewMoveEntry builds an entry for a rename. SourcePath is required (and
// only valid here); content doesn't change, so there is never a diff
// file, but the hashes of the (unchanged) bytes are still recorded so
// the hash chain stays unbroken across the rename.
func NewMoveEntry(p EntryParams) (Entry, error) {
	e, err := newBase(p, OpMove)
	if err != nil {
		return Entry{}, err
	}

	if p.SourcePath == "" {
		return Entry{}, fmt.Errorf("%w: move requires source_path", ErrInvalidEntry)
	}

	if p.HashBefore == "" || p.HashAfter == "" {
		return Entry{}, fmt.Errorf("%w: move requires hash_before and hash_after", ErrInvalidEntry)
	}

	e.SourcePath = optionalString(p.SourcePath, true)
	e.HashBefore = optionalString(p.HashBefore, true)
	e.HashAfter = optionalString(p.HashAfter, true)
	e.CheckpointFile = optionalString(p.CheckpointFile, true)

	return e, nil
}

// wireEntry is the explicit, flat JSON representation written to the
// log. Keeping it separate from Entry (rather than tagging Entry's own
// fields with `json:"..."`) means the set of keys on the wire is a
// closed list reviewed here, not whatever Go fields happen to exist.
type wireEntry struct {
	SchemaVersion  int       `json:"schema_version"`
	EditID         string    `json:"edit_id"`
	ConversationID string    `json:"conversation_id"`
	ToolCallIndex  int       `json:"tool_call_index"`
	Timestamp      time.Time `json:"timestamp"`
	Operation      string    `json:"operation"`
	FilePath       string    `json:"file_path"`
	SourcePath     *string   `json:"source_path"`
	ToolName       string    `json:"tool_name"`
	Status         string    `json:"status"`
	DiffFile       *string   `json:"diff_file"`
	CheckpointFile *string   `json:"checkpoint_file"`
	HashBefore     *string   `json:"hash_before"`
	HashAfter      *string   `json:"hash_after"`
}

// MarshalJSON implements [json.Marshaler] with the explicit wire shape.
func (e Entry) MarshalJSON() ([]byte, error) {
	w := wireEntry{
		SchemaVersion:  e.SchemaVersion,
		EditID:         string(e.EditID),
		ConversationID: string(e.ConversationID),
		ToolCallIndex:  e.ToolCallIndex,
		Timestamp:      e.Timestamp,
		Operation:      string(e.Operation),
		FilePath:       e.FilePath,
		SourcePath:     e.SourcePath,
		ToolName:       e.ToolName,
		Status:         string(e.Status),
		DiffFile:       e.DiffFile,
		CheckpointFile: e.CheckpointFile,
		HashBefore:     e.HashBefore,
		HashAfter:      e.HashAfter,
	}

	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("marshal entry: %w", err)
	}

	return data, nil
}

// UnmarshalJSON implements [json.Unmarshaler], re-validating the
// operation-specific invariants on the way in so a hand-edited or
// corrupted log line is rejected at parse time rather than silently
// accepted.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var w wireEntry

	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("unmarshal entry: %w", err)
	}

	op := Operation(w.Operation)

	switch op {
	case OpCreate, OpReplace, OpEdit, OpDelete, OpMove:
	default:
		return fmt.Errorf("%w: unknown operation %q", ErrInvalidEntry, w.Operation)
	}

	if op == OpMove && w.SourcePath == nil {
		return fmt.Errorf("%w: move entry missing source_path", ErrInvalidEntry)
	}

	if op != OpMove && w.SourcePath != nil {
		return fmt.Errorf("%w: source_path set on non-move entry", ErrInvalidEntry)
	}

	if op == OpDelete && w.HashAfter != nil {
		return fmt.Errorf("%w: delete entry has non-null hash_after", ErrInvalidEntry)
	}

	status := Status(w.Status)

	switch status {
	case StatusPending, StatusAccepted, StatusRejected:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidEntry, w.Status)
	}

	*e = Entry{
		SchemaVersion:  w.SchemaVersion,
		EditID:         EditID(w.EditID),
		ConversationID: ConversationID(w.ConversationID),
		ToolCallIndex:  w.ToolCallIndex,
		Timestamp:      w.Timestamp,
		Operation:      op,
		FilePath:       w.FilePath,
		SourcePath:     w.SourcePath,
		ToolName:       w.ToolName,
		Status:         status,
		DiffFile:       w.DiffFile,
		CheckpointFile: w.CheckpointFile,
		HashBefore:     w.HashBefore,
		HashAfter:      w.HashAfter,
	}

	return nil
}

// AffectsPath reports whether the entry's file_path or (for moves)
// source_path equals path. internal/tracker uses it to find a
// conversation's earlier entries for a file; internal/replay's
// traceIdentity applies the same test inline.
func (e Entry) AffectsPath(path string) bool {
	if e.FilePath == path {
		return true
	}

	return e.SourcePath != nil && *e.SourcePath == path
}
