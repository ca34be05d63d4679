package review

import (
	"errors"

	"github.com/calvinalkan/edithist/internal/hashdiff"
	"github.com/calvinalkan/edithist/internal/lock"
	"github.com/calvinalkan/edithist/internal/replay"
	"github.com/calvinalkan/edithist/internal/tracker"
	"github.com/calvinalkan/edithist/internal/workspace"
)

// Exit codes: "distinct codes per category" -- the exact
// numbers are this package's own choice, recorded in DESIGN.md.
const (
	ExitSuccess   = 0
	ExitArgs      = 2
	ExitLock      = 3
	ExitHashDrift = 4
	ExitPatch     = 5
	ExitInternal  = 70
)

// ErrNoMatch and ErrAmbiguousID are returned by commands that take an
// id when ResolveID doesn't come back Unique.
var (
	ErrNoMatch     = errors.New("no edit or conversation matches that id")
	ErrAmbiguousID = errors.New("id prefix matches more than one edit or conversation")
)

// ExitCodeFor maps an error produced anywhere in the engine to the
// reviewer CLI's process exit code, by walking the sentinel
// error chains each package exports.
func ExitCodeFor(err error) int {
	switch {
	case errors.Is(err, ErrNoMatch), errors.Is(err, ErrAmbiguousID),
		errors.Is(err, tracker.ErrInvalidSelector), errors.Is(err, workspace.ErrPathOutsideWorkspace):
		return ExitArgs
	case errors.Is(err, lock.ErrLockTimeout), errors.Is(err, lock.ErrStaleLockRetained):
		return ExitLock
	case errors.Is(err, replay.ErrHashMismatchExternal), errors.Is(err, replay.ErrInternalHashDrift):
		return ExitHashDrift
	case errors.Is(err, replay.ErrMissingCheckpoint):
		return ExitHashDrift
	case errors.Is(err, hashdiff.ErrPatchContextMismatch):
		return ExitPatch
	default:
		return ExitInternal
	}
}
