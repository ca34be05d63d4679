package review

import (
	"fmt"
	"sort"

	"github.com/calvinalkan/edithist/internal/histstore"
	"github.com/calvinalkan/edithist/internal/model"
	"github.com/calvinalkan/edithist/internal/replay"
	"github.com/calvinalkan/edithist/pkg/fs"
)

// ChangeStatus implements accept and reject identically (they differ
// only in the target status): flip the named edit, or every edit in a
// conversation, to newStatus, then re-materialize every file any of the
// flipped edits touch.
//
// This is replay-first, flip-on-success: Replay runs once per affected
// file with the prospective status supplied only as a hypothetical
// override (never written to the log), and the log is rewritten with
// the real flip only after every affected file's replay has succeeded.
// If any file's replay fails, a pre-replay snapshot restores every file
// this call already materialized, and the log is left completely
// untouched, applied uniformly to both accept and reject since both can
// fail a patch in the same way.
func ChangeStatus(store *histstore.Store, fsys fs.FS, conv string, editID *model.EditID, newStatus model.Status) error {
	var finalErr error

	lockErr := store.WithConversationLock(conv, func() error {
		finalErr = changeStatusLocked(store, fsys, conv, editID, newStatus)

		return nil // errors from changeStatusLocked are reported via finalErr, not as a lock-retry condition
	})
	if lockErr != nil {
		return lockErr
	}

	return finalErr
}

func changeStatusLocked(store *histstore.Store, fsys fs.FS, conv string, editID *model.EditID, newStatus model.Status) error {
	entries, err := store.ReadEntries(conv)
	if err != nil {
		return fmt.Errorf("reading log %s: %w", conv, err)
	}

	overrides := make(map[model.EditID]model.Status)

	for _, e := range entries {
		if editID != nil && e.EditID != *editID {
			continue
		}

		overrides[e.EditID] = newStatus
	}

	if len(overrides) == 0 {
		return fmt.Errorf("%w: %s", ErrNoMatch, conv)
	}

	affected := affectedPaths(entries, overrides)

	snapshots := make(map[string]string) // file path -> revert snapshot path, for rollback on failure

	rollback := func() {
		for path, snap := range snapshots {
			_ = store.RestoreRevertSnapshot(snap, path)
		}
	}

	for _, path := range affected {
		present, existsErr := fsys.Exists(path)
		if existsErr != nil {
			rollback()

			return fmt.Errorf("checking %s before replay: %w", path, existsErr)
		}

		var content []byte

		if present {
			content, err = fsys.ReadFile(path)
			if err != nil {
				rollback()

				return fmt.Errorf("reading %s before replay: %w", path, err)
			}
		}

		snap, snapErr := store.WriteRevertSnapshot(conv, path, content, present)
		if snapErr != nil {
			rollback()

			return fmt.Errorf("snapshotting %s before replay: %w", path, snapErr)
		}

		snapshots[path] = snap

		if _, replayErr := replay.Replay(store, fsys, conv, path, replay.Options{StatusOverrides: overrides}); replayErr != nil {
			rollback()

			return fmt.Errorf("replaying %s: %w", path, replayErr)
		}
	}

	// Every affected file replayed successfully with the hypothetical
	// statuses: commit them for real.
	if updateErr := store.UpdateStatusesLocked(conv, overrides); updateErr != nil {
		rollback()

		return fmt.Errorf("updating statuses in %s: %w", conv, updateErr)
	}

	for _, snap := range snapshots {
		_ = store.DiscardRevertSnapshot(snap)
	}

	return nil
}

// affectedPaths returns, in a stable deterministic order, the current
// (final, post-every-move) name of every file touched by an edit in
// overrides. [replay.Replay] traces a file's identity backward from the
// name it's given, so it must always be handed a file's *current* name
// within the conversation -- an earlier name would miss every entry
// recorded after the move that renamed it away.
func affectedPaths(entries []model.Entry, overrides map[model.EditID]model.Status) []string {
	rename := make(map[string]string)

	for _, e := range entries {
		if e.Operation == model.OpMove && e.SourcePath != nil {
			rename[*e.SourcePath] = e.FilePath
		}
	}

	set := make(map[string]bool)

	for _, e := range entries {
		if _, ok := overrides[e.EditID]; !ok {
			continue
		}

		set[resolveFinalName(rename, e.FilePath)] = true
	}

	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}

	sort.Strings(paths)

	return paths
}

// resolveFinalName follows a chain of move source->dest mappings
// forward to the name a file currently holds, guarding against a
// pathological cycle in corrupted log data.
func resolveFinalName(rename map[string]string, name string) string {
	seen := make(map[string]bool)

	for {
		next, ok := rename[name]
		if !ok || seen[next] {
			return name
		}

		seen[name] = true
		name = next
	}
}
