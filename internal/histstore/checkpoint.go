package histstore

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/calvinalkan/edithist/pkg/fs"
)

// WriteCheckpoint writes the pre-mutation bytes of a file the first time
// a conversation touches it. Idempotent: if a checkpoint for (conv,
// sanitizedPath) already exists, this is a no-op, since the
// first touch is definitionally the only time its pre-state is ever
// captured.
//
// Returns the path (relative to the history root) to record in the
// entry's CheckpointFile field.
func (s *Store) WriteCheckpoint(conv, originalPath string, content []byte) (relPath string, err error) {
	sanitized := Sanitize(originalPath)

	absPath := s.CheckpointPath(conv, sanitized)

	exists, existsErr := s.fsys.Exists(absPath)
	if existsErr != nil {
		return "", fmt.Errorf("checking checkpoint %s: %w", absPath, existsErr)
	}

	rel, relErr := s.RelToHistoryRoot(absPath)
	if relErr != nil {
		return "", fmt.Errorf("relativizing checkpoint path: %w", relErr)
	}

	if exists {
		return rel, nil
	}

	if mkErr := s.fsys.MkdirAll(s.CheckpointsDir(conv), dirPerm); mkErr != nil {
		return "", fmt.Errorf("creating checkpoints dir: %w", mkErr)
	}

	writeErr := s.aw.Write(absPath, bytes.NewReader(content), fs.AtomicWriteOptions{
		SyncDir: true,
		Perm:    filePerm,
	})
	if writeErr != nil {
		return "", fmt.Errorf("writing checkpoint %s: %w", absPath, writeErr)
	}

	return rel, nil
}

// HasCheckpointForConversation reports whether any checkpoint has been
// recorded for a conversation's touch of originalPath already, without
// writing one.
func (s *Store) HasCheckpointForConversation(conv, originalPath string) (bool, error) {
	absPath := s.CheckpointPath(conv, Sanitize(originalPath))

	exists, err := s.fsys.Exists(absPath)
	if err != nil {
		return false, fmt.Errorf("checking checkpoint %s: %w", absPath, err)
	}

	return exists, nil
}

// ReadCheckpoint reads the checkpoint bytes for (conv, originalPath).
func (s *Store) ReadCheckpoint(conv, originalPath string) ([]byte, error) {
	absPath := s.CheckpointPath(conv, Sanitize(originalPath))

	data, err := s.fsys.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint %s: %w", absPath, err)
	}

	return data, nil
}

// revertSuffix names the pre-replay snapshot a status change writes
// before attempting a replay, so a mid-replay failure can be rolled back.
const revertSuffix = ".chkpt.revert"

// WriteRevertSnapshot writes a temporary pre-replay snapshot of path's
// current on-disk bytes (or records its absence), used to restore state
// if a replay fails partway through. present is false when the file did
// not exist.
func (s *Store) WriteRevertSnapshot(conv, originalPath string, content []byte, present bool) (string, error) {
	absPath := s.CheckpointPath(conv, Sanitize(originalPath)+"."+revertMarker(present)) + revertSuffix

	if mkErr := s.fsys.MkdirAll(s.CheckpointsDir(conv), dirPerm); mkErr != nil {
		return "", fmt.Errorf("creating checkpoints dir: %w", mkErr)
	}

	if !present {
		return absPath, nil
	}

	writeErr := s.aw.Write(absPath, bytes.NewReader(content), fs.AtomicWriteOptions{
		SyncDir: true,
		Perm:    filePerm,
	})
	if writeErr != nil {
		return "", fmt.Errorf("writing revert snapshot %s: %w", absPath, writeErr)
	}

	return absPath, nil
}

func revertMarker(present bool) string {
	if present {
		return "present"
	}

	return "absent"
}

// RestoreRevertSnapshot restores path from a previously written revert
// snapshot and removes the snapshot file. If the snapshot recorded
// "absent", path is removed instead.
func (s *Store) RestoreRevertSnapshot(snapshotPath, targetPath string) error {
	present := !bytesHasSuffix(snapshotPath, "absent"+checkpointExt+revertSuffix)

	if !present {
		removeErr := s.fsys.Remove(targetPath)
		if removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			return fmt.Errorf("removing %s during revert: %w", targetPath, removeErr)
		}

		return s.removeSnapshotFile(snapshotPath)
	}

	data, readErr := s.fsys.ReadFile(snapshotPath)
	if readErr != nil {
		return fmt.Errorf("reading revert snapshot %s: %w", snapshotPath, readErr)
	}

	writeErr := s.aw.Write(targetPath, bytes.NewReader(data), fs.AtomicWriteOptions{
		SyncDir: true,
		Perm:    filePerm,
	})
	if writeErr != nil {
		return fmt.Errorf("restoring %s from revert snapshot: %w", targetPath, writeErr)
	}

	return s.removeSnapshotFile(snapshotPath)
}

// DiscardRevertSnapshot removes a revert snapshot written by
// WriteRevertSnapshot once the replay it was guarding against has
// succeeded and the snapshot is no longer needed.
func (s *Store) DiscardRevertSnapshot(snapshotPath string) error {
	return s.removeSnapshotFile(snapshotPath)
}

func (s *Store) removeSnapshotFile(path string) error {
	err := s.fsys.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing revert snapshot %s: %w", path, err)
	}

	return nil
}

func bytesHasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}
