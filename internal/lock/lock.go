// Package lock implements the engine's advisory exclusive locking
// primitive: a directory-based lock with a PID-bearing marker file, bounded
// retry, and stale-holder detection. A directory+PID marker is used
// instead of a bare flock(2) call because flock alone can't answer "is
// the holder still alive", which stale-lock cleanup needs.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// DefaultTimeout is the default bound on lock acquisition (10s).
const DefaultTimeout = 10 * time.Second

// minStaleAge is how long a PID file must be unchanged before a contender
// is allowed to treat it as abandoned, even if the recorded process is
// dead -- it debounces the race against a holder that is mid-acquisition
// (wrote the PID file, hasn't finished its work yet).
const minStaleAge = 5 * time.Second

const (
	dirPerm  = 0o755
	filePerm = 0o644
	pidFile  = "owner.pid"
)

var (
	// ErrLockTimeout is returned when a lock could not be acquired within
	// the requested timeout.
	ErrLockTimeout = errors.New("lock timeout")

	// ErrStaleLockRetained is returned by Cleanup-adjacent callers when a
	// lock directory exists but is not (yet) provably stale.
	ErrStaleLockRetained = errors.New("stale lock retained")
)

// lockDirFor returns the lock directory path for a governed path: a
// sibling "<base>.lockdir" next to it
func lockDirFor(path string) string {
	return path + ".lockdir"
}

// Lock represents a held lock. Release it with Release, typically via
// defer immediately after a successful Acquire.
type Lock struct {
	dir      string
	released bool
}

// Acquire acquires an exclusive lock on path, retrying with bounded
// backoff until timeout elapses. It is not reentrant: acquiring the same
// path twice from the same process will time out against itself, by
// design -- callers that need several locks must take them in a fixed
// global order (alphabetic by absolute path) rather than
// re-entering.
func Acquire(path string, timeout time.Duration) (*Lock, error) {
	dir := lockDirFor(path)
	deadline := time.Now().Add(timeout)
	backoff := time.Millisecond

	for {
		ok, err := tryCreate(dir)
		if err != nil {
			return nil, fmt.Errorf("acquiring lock %s: %w", path, err)
		}

		if ok {
			return &Lock{dir: dir}, nil
		}

		if stealStale(dir) {
			continue // retry immediately, the dir is now gone (or about to be)
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, path)
		}

		sleep := backoff
		if sleep > remaining {
			sleep = remaining
		}

		time.Sleep(sleep)

		if backoff < 50*time.Millisecond {
			backoff *= 2
		}
	}
}

// WithLock acquires a lock on path for the duration of fn, releasing it
// unconditionally -- including when fn panics -- before returning. This
// is the primary entry point callers use for a scoped with_lock(path,
// timeout) critical section.
func WithLock(path string, timeout time.Duration, fn func() error) error {
	l, err := Acquire(path, timeout)
	if err != nil {
		return err
	}

	defer l.Release()

	return fn()
}

// WithLocks acquires locks on every path in paths, in the caller's given
// order, and runs fn while holding all of them, releasing them in
// reverse acquisition order on the way out -- including on panic or
// partial-acquisition failure. Callers are responsible for passing paths
// already sorted global lock ordering; WithLocks does
// not sort them itself so that a caller which intentionally needs a
// different deadlock-free order (there is only one in this engine) isn't
// silently overridden.
func WithLocks(paths []string, timeout time.Duration, fn func() error) error {
	held := make([]*Lock, 0, len(paths))

	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Release()
		}
	}()

	for _, p := range paths {
		l, err := Acquire(p, timeout)
		if err != nil {
			return err
		}

		held = append(held, l)
	}

	return fn()
}

// Release releases the lock. Idempotent: calling it more than once, or
// on a nil *Lock, is a safe no-op.
func (l *Lock) Release() {
	if l == nil || l.released {
		return
	}

	l.released = true
	_ = os.Remove(filepath.Join(l.dir, pidFile))
	_ = os.Remove(l.dir)
}

// tryCreate attempts to atomically create the lock directory and, on
// success, write the owner's PID and acquisition time inside it. Mkdir
// on an existing path is the mutual-exclusion primitive: exactly one
// caller's Mkdir succeeds.
func tryCreate(dir string) (bool, error) {
	err := os.Mkdir(dir, dirPerm)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}

		if errors.Is(err, os.ErrNotExist) {
			// Parent directory doesn't exist yet; create it and retry once.
			if mkErr := os.MkdirAll(filepath.Dir(dir), dirPerm); mkErr != nil {
				return false, fmt.Errorf("creating parent of lock dir: %w", mkErr)
			}

			return tryCreate(dir)
		}

		return false, fmt.Errorf("creating lock dir: %w", err)
	}

	content := fmt.Sprintf("%d\n%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339Nano))

	writeErr := os.WriteFile(filepath.Join(dir, pidFile), []byte(content), filePerm)
	if writeErr != nil {
		// We created the dir but couldn't mark it; tear it back down so we
		// don't leave an unmarked (and therefore un-stale-detectable) lock.
		_ = os.Remove(filepath.Join(dir, pidFile))
		_ = os.Remove(dir)

		return false, fmt.Errorf("writing pid file: %w", writeErr)
	}

	return true, nil
}

// stealStale inspects an existing lock directory and, if it is
// confirmed stale (old enough, and its recorded process is no longer
// live), removes it so the caller's next tryCreate can succeed. Returns
// true if it removed anything.
func stealStale(dir string) bool {
	pidPath := filepath.Join(dir, pidFile)

	info, statErr := os.Stat(pidPath)
	if statErr != nil {
		// No PID file: either a contender is mid-acquisition (between
		// Mkdir and WriteFile) or a previous tryCreate's cleanup raced
		// with us. Either way, it's not safely stale yet.
		return false
	}

	if time.Since(info.ModTime()) < minStaleAge {
		return false
	}

	pid, ok := readOwnerPID(pidPath)
	if !ok {
		return false
	}

	if processAlive(pid) {
		return false
	}

	_ = os.Remove(pidPath)

	return os.Remove(dir) == nil
}

func readOwnerPID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}

	line, _, _ := strings.Cut(string(data), "\n")

	pid, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, false
	}

	return pid, true
}

// processAlive reports whether pid refers to a still-running process on
// this host, using the POSIX convention that signal 0 performs existence
// and permission checks without actually sending a signal.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// os.FindProcess never fails to "find" a process on Unix (it always
	// succeeds and defers the check to Signal); Signal(0) is the actual
	// liveness probe.
	err = proc.Signal(syscall.Signal(0))

	return err == nil
}
