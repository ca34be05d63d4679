// Package tracker implements the engine's mutation wrapper:
// every filesystem-mutating tool call is bracketed by [Tracker.Track],
// which validates the target path, resolves and indexes the call within
// its conversation, captures pre/post hashes and a checkpoint, executes
// one of the five mutation shapes, and appends a log
// entry -- all under the conversation's log lock plus a per-path lock
// held in global order, so the on-disk state and the log entry describing
// it are never observed out of sync by a concurrent reader.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/calvinalkan/edithist/internal/hashdiff"
	"github.com/calvinalkan/edithist/internal/histstore"
	"github.com/calvinalkan/edithist/internal/lock"
	"github.com/calvinalkan/edithist/internal/model"
	"github.com/calvinalkan/edithist/pkg/fs"
)

// Kind names one of the five mutation tool contracts.
type Kind string

const (
	KindWrite      Kind = "write_file"
	KindLineEdit   Kind = "line_edit"
	KindAnchorEdit Kind = "anchor_edit"
	KindMove       Kind = "move_file"
	KindDelete     Kind = "delete_file"
)

// PathValidator is the workspace allowlist contract: an
// external collaborator the tracker consults before every mutation.
// internal/workspace.Allowlist is the concrete implementation; Track
// depends only on this interface so it can be unit-tested without a real
// filesystem boundary.
type PathValidator interface {
	Validate(path string) (string, error)
}

// Request bundles one mutation tool invocation's inputs. Which fields
// are meaningful is determined by Kind, mirroring how [model.Entry] is a
// tagged sum keyed by Operation.
type Request struct {
	Kind           Kind
	ConversationID string // optional; empty starts a new conversation
	ToolName       string
	Path           string
	SourcePath     string            // KindMove only
	Content        []byte            // KindWrite only
	LineEdits      map[string]string // KindLineEdit only
	Replacements   map[string]string // KindAnchorEdit only
	Inserts        map[string]string // KindAnchorEdit only
	ReplaceAll     bool              // KindAnchorEdit only
	DryRun         bool              // KindAnchorEdit only
}

// Result is returned from a successful Track call.
type Result struct {
	ConversationID       string
	ConversationStarting bool
	EditID               string
	Diff                 []byte // populated only for a dry-run edit
}

// Tracker wraps a history store and workspace allowlist into a single
// track(op, args) operation.
type Tracker struct {
	fsys        fs.FS
	store       *histstore.Store
	allowlist   PathValidator
	lockTimeout time.Duration
}

// New builds a Tracker. lockTimeout <= 0 uses lock.DefaultTimeout.
func New(fsys fs.FS, store *histstore.Store, allowlist PathValidator, lockTimeout time.Duration) *Tracker {
	if lockTimeout <= 0 {
		lockTimeout = lock.DefaultTimeout
	}

	return &Tracker{fsys: fsys, store: store, allowlist: allowlist, lockTimeout: lockTimeout}
}

// Track implements the engine's ten-step mutation-tracking algorithm:
// validate, lock, index, hash before, apply, hash after, diff, append.
func (t *Tracker) Track(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	// Step 1: allowlist validation.
	path, err := t.allowlist.Validate(req.Path)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %w", ErrPathOutsideWorkspace, req.Path, err)
	}

	req.Path = path

	if req.Kind == KindMove {
		src, err := t.allowlist.Validate(req.SourcePath)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %s: %w", ErrPathOutsideWorkspace, req.SourcePath, err)
		}

		req.SourcePath = src

		if exists, existsErr := t.fsys.Exists(req.Path); existsErr != nil {
			return Result{}, fmt.Errorf("checking move destination: %w", existsErr)
		} else if exists {
			return Result{}, fmt.Errorf("%w: %s", ErrMoveDestinationExists, req.Path)
		}
	}

	// Step 2: resolve conversation.
	conv := req.ConversationID
	starting := false

	if conv == "" {
		newConv, convErr := model.NewConversationID()
		if convErr != nil {
			return Result{}, fmt.Errorf("generating conversation id: %w", convErr)
		}

		conv = string(newConv)
		starting = true
	}

	var result Result

	// Steps 3-9 run as one critical section under the conversation's log
	// lock, so tool_call_index assignment (step 3) and the log append
	// (step 8) can never race against a concurrent Track call on the same
	// conversation -- a race that would break the dense, strictly
	// ascending tool_call_index sequence readers rely on.
	lockErr := t.store.WithConversationLock(conv, func() error {
		r, trackErr := t.trackLocked(ctx, conv, req)
		result = r

		return trackErr
	})
	if lockErr != nil {
		return Result{}, lockErr
	}

	result.ConversationID = conv
	result.ConversationStarting = starting

	return result, nil
}

// trackLocked runs steps 3-9 assuming the caller holds the conversation
// log lock.
func (t *Tracker) trackLocked(ctx context.Context, conv string, req Request) (Result, error) {
	// Step 3: assign tool_call_index.
	idx, idxErr := t.store.NextToolCallIndexLocked(conv)
	if idxErr != nil {
		return Result{}, fmt.Errorf("assigning tool_call_index: %w", idxErr)
	}

	affected := []string{req.Path}
	if req.Kind == KindMove {
		affected = append(affected, req.SourcePath)
	}

	sort.Strings(affected)

	var result Result

	// Step 4: acquire file locks in global (alphabetic) order.
	lockErr := lock.WithLocks(affected, t.lockTimeout, func() error {
		r, err := t.execute(ctx, conv, idx, req)
		result = r

		return err
	})

	return result, lockErr
}

// execute runs steps 5-8 (pre-capture, the mutation itself, post-capture,
// and the log append) while the caller holds locks on every affected path.
func (t *Tracker) execute(_ context.Context, conv string, idx int, req Request) (Result, error) {
	identityPath := req.Path
	if req.Kind == KindMove {
		identityPath = req.SourcePath
	}

	oldBytes, oldExists, err := t.readIfExists(identityPath)
	if err != nil {
		return Result{}, fmt.Errorf("reading %s: %w", identityPath, err)
	}

	if requiresExisting(req.Kind) && !oldExists {
		return Result{}, fmt.Errorf("%w: %s", ErrFileNotFound, identityPath)
	}

	// Step 5: pre-capture.
	var hashBefore string
	if oldExists {
		hashBefore = hashdiff.HashBytes(oldBytes)
	}

	checkpointRel, err := t.maybeCheckpoint(conv, identityPath, oldBytes, oldExists)
	if err != nil {
		return Result{}, err
	}

	newBytes, dryRunDiff, err := t.computeMutation(req, oldBytes)
	if err != nil {
		return Result{}, err
	}

	if req.Kind == KindAnchorEdit && req.DryRun {
		return Result{Diff: dryRunDiff}, nil
	}

	// Step 6: execute the underlying filesystem operation.
	if execErr := t.writeToDisk(req, newBytes); execErr != nil {
		return Result{}, execErr
	}

	// Step 7: post-capture.
	var hashAfter string

	newExists := req.Kind != KindDelete
	if newExists {
		hashAfter = hashdiff.HashBytes(newBytes)
	}

	entry, entryErr := t.buildEntry(req, conv, idx, hashBefore, hashAfter, checkpointRel, oldExists)
	if entryErr != nil {
		return Result{}, entryErr
	}

	if contentChangingOp(req.Kind) {
		diffBytes, diffErr := hashdiff.Unified(oldBytes, newBytes, req.Path)
		if diffErr != nil {
			return Result{}, fmt.Errorf("generating diff: %w", diffErr)
		}

		if len(diffBytes) > 0 {
			rel, writeErr := t.store.WriteDiff(conv, string(entry.EditID), diffBytes)
			if writeErr != nil {
				return Result{}, fmt.Errorf("writing diff: %w", writeErr)
			}

			entry.DiffFile = &rel
		}
	}

	// Step 8: append log entry.
	if _, appendErr := t.store.AppendEntryLocked(entry); appendErr != nil {
		return Result{}, fmt.Errorf("appending log entry: %w", appendErr)
	}

	return Result{EditID: string(entry.EditID)}, nil
}

func (t *Tracker) readIfExists(path string) (data []byte, exists bool, err error) {
	ok, err := t.fsys.Exists(path)
	if err != nil {
		return nil, false, err
	}

	if !ok {
		return nil, false, nil
	}

	data, err = t.fsys.ReadFile(path)
	if err != nil {
		return nil, false, err
	}

	return data, true, nil
}

// maybeCheckpoint writes a revert checkpoint the first time this
// conversation touches the logical file, unless the first touch is a
// create of a file that didn't exist.
func (t *Tracker) maybeCheckpoint(conv, identityPath string, oldBytes []byte, oldExists bool) (string, error) {
	entries, err := t.store.ReadEntries(conv)
	if err != nil {
		return "", fmt.Errorf("reading prior entries: %w", err)
	}

	touchedBefore := false

	for _, e := range entries {
		if e.AffectsPath(identityPath) {
			touchedBefore = true

			break
		}
	}

	if touchedBefore {
		// The first touch already decided whether a checkpoint exists for
		// this logical file; a later touch never writes one, even if the
		// file now exists and didn't before. Checkpoint writing is a
		// one-time, first-touch decision.
		has, hasErr := t.store.HasCheckpointForConversation(conv, identityPath)
		if hasErr != nil {
			return "", hasErr
		}

		if !has {
			return "", nil
		}

		rel, relErr := t.store.RelToHistoryRoot(t.store.CheckpointPath(conv, histstore.Sanitize(identityPath)))
		if relErr != nil {
			return "", relErr
		}

		return rel, nil
	}

	if !oldExists {
		return "", nil
	}

	rel, err := t.store.WriteCheckpoint(conv, identityPath, oldBytes)
	if err != nil {
		return "", fmt.Errorf("writing checkpoint: %w", err)
	}

	return rel, nil
}

// computeMutation produces the new bytes (or, for a dry-run anchor edit,
// the diff only) for every non-structural operation (write/line-edit/
// anchor-edit). Move and delete have no "new bytes" and are handled
// directly by writeToDisk.
func (t *Tracker) computeMutation(req Request, oldBytes []byte) (newBytes []byte, dryRunDiff []byte, err error) {
	switch req.Kind {
	case KindWrite:
		return req.Content, nil, nil
	case KindLineEdit:
		nb, editErr := applyLineEdits(oldBytes, req.LineEdits)
		return nb, nil, editErr
	case KindAnchorEdit:
		nb, editErr := applyAnchorEdit(oldBytes, anchorEditArgs{
			Replacements: req.Replacements,
			Inserts:      req.Inserts,
			ReplaceAll:   req.ReplaceAll,
		})
		if editErr != nil {
			return nil, nil, editErr
		}

		if req.DryRun {
			diff, diffErr := hashdiff.Unified(oldBytes, nb, req.Path)
			if diffErr != nil {
				return nil, nil, fmt.Errorf("generating dry-run diff: %w", diffErr)
			}

			if diff == nil {
				diff = []byte{}
			}

			return nb, diff, nil
		}

		return nb, nil, nil
	case KindMove, KindDelete:
		return oldBytes, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown mutation kind %q", req.Kind)
	}
}

func (t *Tracker) writeToDisk(req Request, newBytes []byte) error {
	switch req.Kind {
	case KindWrite, KindLineEdit, KindAnchorEdit:
		return t.fsys.WriteFile(req.Path, newBytes, 0o640)
	case KindDelete:
		if err := t.fsys.Remove(req.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("deleting %s: %w", req.Path, err)
		}

		return nil
	case KindMove:
		return t.fsys.Rename(req.SourcePath, req.Path)
	default:
		return fmt.Errorf("unknown mutation kind %q", req.Kind)
	}
}

func (t *Tracker) buildEntry(req Request, conv string, idx int, hashBefore, hashAfter, checkpointRel string, oldExists bool) (model.Entry, error) {
	convID := model.ConversationID(conv)

	params := model.EntryParams{
		ConversationID: convID,
		ToolCallIndex:  idx,
		Timestamp:      model.Now(),
		ToolName:       req.ToolName,
		FilePath:       req.Path,
		SourcePath:     req.SourcePath,
		CheckpointFile: checkpointRel,
		HashBefore:     hashBefore,
		HashAfter:      hashAfter,
	}

	switch req.Kind {
	case KindWrite:
		if oldExists {
			return model.NewReplaceEntry(params)
		}

		return model.NewCreateEntry(params)
	case KindLineEdit, KindAnchorEdit:
		return model.NewEditEntry(params)
	case KindDelete:
		return model.NewDeleteEntry(params)
	case KindMove:
		return model.NewMoveEntry(params)
	default:
		return model.Entry{}, fmt.Errorf("unknown mutation kind %q", req.Kind)
	}
}

func requiresExisting(k Kind) bool {
	switch k {
	case KindLineEdit, KindAnchorEdit, KindDelete:
		return true
	case KindMove:
		return true
	default:
		return false
	}
}

func contentChangingOp(k Kind) bool {
	switch k {
	case KindWrite, KindLineEdit, KindAnchorEdit:
		return true
	default:
		return false
	}
}

