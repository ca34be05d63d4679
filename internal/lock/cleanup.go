package lock

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CleanupResult summarizes a Cleanup pass over a directory tree.
type CleanupResult struct {
	Removed []string // lock directory paths that were removed
	Retained []string // lock directory paths that exist but are not (yet) stale
}

// Cleanup walks root looking for "*.lockdir" entries and removes the
// ones that are confirmed stale (dead owning PID, old enough to clear
// the debounce window), backing the reviewer's cleanup command. It does
// not touch lock
// directories whose owner is still alive or whose staleness can't yet
// be confirmed; those are reported in Retained rather than forced,
// unless force is true.
func Cleanup(root string, force bool) (CleanupResult, error) {
	var result CleanupResult

	walkErr := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}

			return err
		}

		if !d.IsDir() || !strings.HasSuffix(path, ".lockdir") {
			return nil
		}

		if force {
			if removeErr := os.RemoveAll(path); removeErr == nil {
				result.Removed = append(result.Removed, path)
			}

			return filepath.SkipDir
		}

		if stealStale(path) {
			result.Removed = append(result.Removed, path)
		} else {
			result.Retained = append(result.Retained, path)
		}

		return filepath.SkipDir
	})
	if walkErr != nil {
		return CleanupResult{}, walkErr
	}

	return result, nil
}

// debounced reports whether enough time has passed since mod for a lock
// to be eligible for staleness consideration: the same minStaleAge window
// stealStale applies to a PID file's modification time.
func debounced(mod time.Time) bool {
	return time.Since(mod) >= minStaleAge
}
