// Package replay implements the nine-step reconstruction algorithm that
// turns a conversation's recorded entries plus their current accept/
// reject statuses into a single on-disk file state: checkpoint forward,
// applying every accepted or still-pending edit and skipping every
// rejected one, in tool_call_index order.
//
// State is always recomputed from the event log, never mutated in
// place. It depends on internal/histstore for checkpoints, diffs and
// the revert-snapshot rollback mechanism, and internal/hashdiff for
// hashing and patch application.
package replay

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/calvinalkan/edithist/internal/hashdiff"
	"github.com/calvinalkan/edithist/internal/histstore"
	"github.com/calvinalkan/edithist/internal/lock"
	"github.com/calvinalkan/edithist/internal/model"
	"github.com/calvinalkan/edithist/pkg/fs"
)

// Options tunes one Replay call.
type Options struct {
	// StatusOverrides supplies hypothetical statuses for specific edits,
	// used without ever being persisted to the log. internal/review's
	// accept/reject commands run Replay once with the prospective new
	// status before committing it, so a patch failure is discovered
	// before the log is rewritten (the "replay-first, flip-on-success"
	// rule; see DESIGN.md).
	StatusOverrides map[model.EditID]model.Status

	// ForceDiscardExternal skips the hash-integrity preflight (step 5).
	// Callers set this after a reviewer has interactively confirmed they
	// want to discard an externally made change detected on a previous
	// attempt.
	ForceDiscardExternal bool

	// LockTimeout bounds how long Replay waits for the file lock.
	// Zero means lock.DefaultTimeout.
	LockTimeout time.Duration
}

func (o Options) statusOf(e model.Entry) model.Status {
	if o.StatusOverrides != nil {
		if s, ok := o.StatusOverrides[e.EditID]; ok {
			return s
		}
	}

	return e.Status
}

// Result reports what Replay actually did, for the reviewer CLI to
// surface to the user.
type Result struct {
	FinalHash        string // "" means the file does not exist after replay
	Applied          int
	Skipped          int
	VerificationWarn bool // final on-disk hash didn't match bookkeeping (step 8); not fatal
}

// Replay reconstructs filePath's on-disk content from conv's checkpoint
// forward, applying entries whose effective status (after Options'
// overrides) is pending or accepted, and skipping rejected ones. It
// acquires its own lock on filePath for the duration (step 4).
func Replay(store *histstore.Store, fsys fs.FS, conv, filePath string, opts Options) (Result, error) {
	timeout := opts.LockTimeout
	if timeout <= 0 {
		timeout = lock.DefaultTimeout
	}

	var result Result

	err := lock.WithLock(filePath, timeout, func() error {
		r, innerErr := replayLocked(store, fsys, conv, filePath, opts)
		result = r

		return innerErr
	})
	if err != nil {
		return Result{}, err
	}

	return result, nil
}

// replayLocked is Replay's body, assuming the caller already holds
// filePath's lock.
func replayLocked(store *histstore.Store, fsys fs.FS, conv, filePath string, opts Options) (Result, error) {
	entries, err := store.ReadEntries(conv)
	if err != nil {
		return Result{}, fmt.Errorf("reading log for %s: %w", conv, err)
	}

	_, relevant := traceIdentity(entries, filePath)
	if len(relevant) == 0 {
		return Result{}, fmt.Errorf("replay: no entries in %s touch %s", conv, filePath)
	}

	first := relevant[0]
	base := originalName(relevant)

	// Step 3: locate the checkpoint, unless the file was born inside
	// this conversation (first relevant op is a create of a previously
	// non-existent file, in which case there is deliberately none).
	hasCheckpoint, err := store.HasCheckpointForConversation(conv, base)
	if err != nil {
		return Result{}, fmt.Errorf("checking checkpoint: %w", err)
	}

	if !hasCheckpoint && first.Operation != model.OpCreate {
		return Result{}, fmt.Errorf("%w: conversation %s, file %s", ErrMissingCheckpoint, conv, base)
	}

	// Step 5: hash-integrity preflight. Compare the file's current
	// on-disk hash against the most recently recorded hash_after for
	// filePath anywhere in the history store (not just this
	// conversation): if they disagree, something outside the engine
	// wrote to the file since the engine last touched it.
	if !opts.ForceDiscardExternal {
		if mismatchErr := checkExternalTamper(store, fsys, filePath); mismatchErr != nil {
			return Result{}, mismatchErr
		}
	}

	// Step 6: restore base state, on disk as well as in the in-memory
	// buffer. A conversation whose effective statuses replay to "nothing
	// applied" (every relevant entry rejected) must leave the checkpoint
	// bytes in place rather than whatever content a previous replay
	// attempt wrote; so the checkpoint (or the file's prior nonexistence,
	// when there is none) is materialized here, before the loop decides
	// what else to apply.
	var (
		virtual        []byte
		virtualPresent bool
		expectedHash   string
	)

	if hasCheckpoint && first.Operation != model.OpCreate {
		cp, readErr := store.ReadCheckpoint(conv, base)
		if readErr != nil {
			return Result{}, fmt.Errorf("reading checkpoint: %w", readErr)
		}

		virtual = cp
		virtualPresent = true
		expectedHash = hashdiff.HashBytes(cp)

		if writeErr := fsys.WriteFile(base, cp, 0o640); writeErr != nil {
			return Result{}, fmt.Errorf("restoring checkpoint for %s: %w", base, writeErr)
		}
	} else {
		if rmErr := fsys.Remove(base); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return Result{}, fmt.Errorf("clearing %s before replay: %w", base, rmErr)
		}
	}

	diskPath := base

	var result Result

	// Step 7: replay loop.
	for _, e := range relevant {
		currentHash := ""
		if virtualPresent {
			currentHash = hashdiff.HashBytes(virtual)
		}

		if currentHash != expectedHash {
			return Result{}, fmt.Errorf("%w: entry %s expected %s, bookkeeping has %s",
				ErrInternalHashDrift, e.EditID, expectedHash, currentHash)
		}

		apply := opts.statusOf(e) != model.StatusRejected

		switch e.Operation {
		case model.OpCreate, model.OpReplace, model.OpEdit:
			if !apply {
				// A rejected entry's diff is never applied to the replay
				// state: later entries' diffs were recorded against the
				// content this one would have produced, so patching them
				// onto content that skips this one must surface as a
				// context mismatch rather than silently succeed against
				// the wrong base.
				result.Skipped++
				continue
			}

			newVirtual, patchErr := applyDiffEntry(store, e, virtual)
			if patchErr != nil {
				return Result{}, patchErr
			}

			virtual = newVirtual
			virtualPresent = true

			if writeErr := fsys.WriteFile(diskPath, virtual, 0o640); writeErr != nil {
				return Result{}, fmt.Errorf("writing %s during replay: %w", diskPath, writeErr)
			}

			result.Applied++

			if e.HashAfter != nil {
				expectedHash = *e.HashAfter
			} else {
				expectedHash = ""
			}

		case model.OpDelete:
			if !apply {
				result.Skipped++
				continue
			}

			virtual = nil
			virtualPresent = false

			if rmErr := fsys.Remove(diskPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				return Result{}, fmt.Errorf("removing %s during replay: %w", diskPath, rmErr)
			}

			result.Applied++
			expectedHash = ""

		case model.OpMove:
			// A move changes location, never content: its hash_before
			// always equals hash_after. The rename always executes
			// regardless of this entry's status so later
			// entries, whose recorded file_path already assumes the
			// rename happened, resolve against the right on-disk location.
			if present, statErr := fsys.Exists(diskPath); statErr == nil && present {
				if renameErr := fsys.Rename(diskPath, e.FilePath); renameErr != nil {
					return Result{}, fmt.Errorf("renaming %s to %s during replay: %w", diskPath, e.FilePath, renameErr)
				}
			}

			diskPath = e.FilePath
			result.Applied++

			if e.HashAfter != nil {
				expectedHash = *e.HashAfter
			} else {
				expectedHash = ""
			}
		}
	}

	// Step 8: final, non-fatal verification.
	finalHash, statErr := hashOnDisk(fsys, diskPath)
	if statErr != nil {
		return Result{}, fmt.Errorf("hashing final state of %s: %w", diskPath, statErr)
	}

	result.FinalHash = finalHash
	if finalHash != expectedHash {
		result.VerificationWarn = true
	}

	return result, nil
}

// applyDiffEntry reads e's diff file (if any; a no-op edit that didn't
// change bytes has none) and patches it onto cur.
func applyDiffEntry(store *histstore.Store, e model.Entry, cur []byte) ([]byte, error) {
	if e.DiffFile == nil {
		return append([]byte(nil), cur...), nil
	}

	diffBytes, err := store.ReadDiff(*e.DiffFile)
	if err != nil {
		return nil, fmt.Errorf("reading diff for %s: %w", e.EditID, err)
	}

	patched, err := hashdiff.Patch(cur, diffBytes)
	if err != nil {
		return nil, fmt.Errorf("applying diff for %s: %w", e.EditID, err)
	}

	return patched, nil
}

func hashOnDisk(fsys fs.FS, path string) (string, error) {
	present, err := fsys.Exists(path)
	if err != nil {
		return "", err
	}

	if !present {
		return "", nil
	}

	data, err := fsys.ReadFile(path)
	if err != nil {
		return "", err
	}

	return hashdiff.HashBytes(data), nil
}

// checkExternalTamper implements step 5: it finds the most recently
// recorded hash_after for filePath across every conversation in the
// store and compares it to the file's actual current on-disk hash.
func checkExternalTamper(store *histstore.Store, fsys fs.FS, filePath string) error {
	recorded, found, err := latestRecordedHash(store, filePath)
	if err != nil {
		return fmt.Errorf("checking recorded hash history: %w", err)
	}

	if !found {
		return nil // the engine has never recorded this path; nothing to compare against
	}

	actual, err := hashOnDisk(fsys, filePath)
	if err != nil {
		return fmt.Errorf("hashing %s: %w", filePath, err)
	}

	if actual != recorded {
		return fmt.Errorf("%w: %s", ErrHashMismatchExternal, filePath)
	}

	return nil
}

// latestRecordedHash scans every conversation's log for entries whose
// file_path is path, returning the hash_after of the one with the
// latest timestamp. Across conversations there is no tool_call_index
// ordering, only wall-clock time.
func latestRecordedHash(store *histstore.Store, path string) (hash string, found bool, err error) {
	convs, err := store.ListConversations()
	if err != nil {
		return "", false, err
	}

	var latest time.Time

	for _, conv := range convs {
		entries, readErr := store.ReadEntries(conv)
		if readErr != nil {
			return "", false, readErr
		}

		for _, e := range entries {
			if e.FilePath != path || e.HashAfter == nil {
				continue
			}

			if !found || e.Timestamp.After(latest) {
				latest = e.Timestamp
				hash = *e.HashAfter
				found = true
			}
		}
	}

	return hash, found, nil
}
