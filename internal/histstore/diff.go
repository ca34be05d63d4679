package histstore

import (
	"bytes"
	"fmt"

	"github.com/calvinalkan/edithist/pkg/fs"
)

// WriteDiff writes the unified-diff bytes for one content-changing edit
// and returns its path relative to the history root, for the entry's
// DiffFile field. Diff files are written once per edit; this method does
// not check for an existing file, and a second write for the same edit
// id replaces it.
func (s *Store) WriteDiff(conv, editID string, diffBytes []byte) (relPath string, err error) {
	absPath := s.DiffPath(conv, editID)

	if mkErr := s.fsys.MkdirAll(s.DiffsDir(conv), dirPerm); mkErr != nil {
		return "", fmt.Errorf("creating diffs dir: %w", mkErr)
	}

	writeErr := s.aw.Write(absPath, bytes.NewReader(diffBytes), fs.AtomicWriteOptions{
		SyncDir: true,
		Perm:    filePerm,
	})
	if writeErr != nil {
		return "", fmt.Errorf("writing diff %s: %w", absPath, writeErr)
	}

	return s.RelToHistoryRoot(absPath)
}

// ReadDiff reads a diff file given its path relative to the history root.
func (s *Store) ReadDiff(relPath string) ([]byte, error) {
	data, err := s.fsys.ReadFile(s.AbsFromHistoryRoot(relPath))
	if err != nil {
		return nil, fmt.Errorf("reading diff %s: %w", relPath, err)
	}

	return data, nil
}
