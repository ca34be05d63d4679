// Package histstore implements the on-disk layout of the
// .mcp/edit_history/{logs,diffs,checkpoints} tree: its
// append-only and atomic-rewrite JSON-lines log files, and write-once
// diff/checkpoint files, using a read-modify-write idiom over N
// JSON-lines entries in one log file and pkg/fs.AtomicWriter for the
// write-once diff/checkpoint paths.
package histstore

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/calvinalkan/edithist/internal/lock"
	"github.com/calvinalkan/edithist/pkg/fs"
)

const (
	historyDirName      = ".mcp"
	editHistoryDirName  = "edit_history"
	logsDirName         = "logs"
	diffsDirName        = "diffs"
	checkpointsDirName  = "checkpoints"
	logExt              = ".log"
	diffExt             = ".diff"
	checkpointExt       = ".chkpt"
	dirPerm             = 0o750
	filePerm            = 0o640

	// DefaultLogWarnBytes is the log-size warning threshold
	DefaultLogWarnBytes int64 = 50 << 20
)

// Store owns the on-disk history tree rooted under a single workspace.
type Store struct {
	fsys fs.FS
	aw   *fs.AtomicWriter
	root string // absolute workspace root

	lockTimeout  time.Duration
	logWarnBytes int64

	mu     sync.Mutex
	warned map[string]bool // conversation id -> already warned this process
}

// Options configures a Store beyond its required filesystem and root.
type Options struct {
	LockTimeout  time.Duration
	LogWarnBytes int64
}

// New creates a Store rooted at workspaceRoot (must already be an
// absolute, validated path -- Store does not itself consult the
// workspace allowlist; callers validate paths before handing them to
// histstore).
func New(fsys fs.FS, workspaceRoot string, opts Options) *Store {
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = lock.DefaultTimeout
	}

	if opts.LogWarnBytes <= 0 {
		opts.LogWarnBytes = DefaultLogWarnBytes
	}

	return &Store{
		fsys:         fsys,
		aw:           fs.NewAtomicWriter(fsys),
		root:         workspaceRoot,
		lockTimeout:  opts.LockTimeout,
		logWarnBytes: opts.LogWarnBytes,
		warned:       make(map[string]bool),
	}
}

// HistoryRoot returns the absolute path to .mcp/edit_history.
func (s *Store) HistoryRoot() string {
	return filepath.Join(s.root, historyDirName, editHistoryDirName)
}

// LogsDir, DiffsDir and CheckpointsDir return the absolute paths to the
// three history subtrees (DiffsDir and CheckpointsDir are per-conversation).
func (s *Store) LogsDir() string { return filepath.Join(s.HistoryRoot(), logsDirName) }

func (s *Store) DiffsDir(conv string) string {
	return filepath.Join(s.HistoryRoot(), diffsDirName, conv)
}

func (s *Store) CheckpointsDir(conv string) string {
	return filepath.Join(s.HistoryRoot(), checkpointsDirName, conv)
}

// LogPath returns the absolute path of a conversation's log file. This
// path doubles as the lock key for that conversation ("Log
// append: acquire the conversation-log lock").
func (s *Store) LogPath(conv string) string {
	return filepath.Join(s.LogsDir(), conv+logExt)
}

// DiffPath returns the absolute path of one edit's diff file.
func (s *Store) DiffPath(conv, editID string) string {
	return filepath.Join(s.DiffsDir(conv), editID+diffExt)
}

// CheckpointPath returns the absolute path of a checkpoint file, keyed
// by the sanitized form of the file's original path (see Sanitize).
func (s *Store) CheckpointPath(conv, sanitizedPath string) string {
	return filepath.Join(s.CheckpointsDir(conv), sanitizedPath+checkpointExt)
}

// RelToHistoryRoot returns absPath relative to the history root, for
// storing in an Entry's DiffFile/CheckpointFile fields as a relative
// path under the history root.
func (s *Store) RelToHistoryRoot(absPath string) (string, error) {
	return filepath.Rel(s.HistoryRoot(), absPath)
}

// AbsFromHistoryRoot resolves a relative diff/checkpoint path (as stored
// in an Entry) back to an absolute one.
func (s *Store) AbsFromHistoryRoot(relPath string) string {
	return filepath.Join(s.HistoryRoot(), relPath)
}

// WithConversationLock acquires the given conversation's log lock and
// runs fn while holding it. All the store's *Locked methods assume the
// caller already holds this lock; WithConversationLock is how both
// internal/tracker (which bundles several operations into one critical
// section) and this package's own unlocked public wrappers obtain it.
func (s *Store) WithConversationLock(conv string, fn func() error) error {
	return lock.WithLock(s.LogPath(conv), s.lockTimeout, fn)
}

// ensureDirs creates the three history subtrees (and their
// per-conversation children) if they don't already exist.
func (s *Store) ensureDirs(conv string) error {
	for _, dir := range []string{s.LogsDir(), s.DiffsDir(conv), s.CheckpointsDir(conv)} {
		if err := s.fsys.MkdirAll(dir, dirPerm); err != nil {
			return err
		}
	}

	return nil
}

// checkLogSize emits at most one warning per (process, conversation) when
// a log crosses the configured size threshold.
func (s *Store) checkLogSize(conv string) (warn bool) {
	info, err := s.fsys.Stat(s.LogPath(conv))
	if err != nil {
		return false
	}

	if info.Size() < s.logWarnBytes {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.warned[conv] {
		return false
	}

	s.warned[conv] = true

	return true
}
