package histstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/calvinalkan/edithist/internal/model"
	"github.com/calvinalkan/edithist/pkg/fs"
)

// AppendEntry appends one entry to its conversation's log, acquiring the
// conversation lock itself. Returns warn=true at most once per process
// per conversation when the resulting log crosses LogWarnBytes; callers
// surface that through their own warning channel (the reviewer CLI's
// IO.WarnReviewer, or a server-side log line).
func (s *Store) AppendEntry(entry model.Entry) (warn bool, err error) {
	conv := string(entry.ConversationID)

	lockErr := s.WithConversationLock(conv, func() error {
		w, appendErr := s.AppendEntryLocked(entry)
		warn = w

		return appendErr
	})

	return warn, lockErr
}

// AppendEntryLocked appends one entry, assuming the caller already holds
// the conversation's log lock (internal/tracker bundles this with index
// assignment and checkpoint capture into one critical section).
func (s *Store) AppendEntryLocked(entry model.Entry) (warn bool, err error) {
	conv := string(entry.ConversationID)

	if mkErr := s.ensureDirs(conv); mkErr != nil {
		return false, fmt.Errorf("ensuring history dirs for %s: %w", conv, mkErr)
	}

	data, marshalErr := json.Marshal(entry)
	if marshalErr != nil {
		return false, fmt.Errorf("marshaling entry %s: %w", entry.EditID, marshalErr)
	}

	f, openErr := s.fsys.OpenFile(s.LogPath(conv), os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if openErr != nil {
		return false, fmt.Errorf("opening log %s: %w", conv, openErr)
	}

	_, writeErr := f.Write(append(data, '\n'))
	if writeErr != nil {
		_ = f.Close()

		return false, fmt.Errorf("appending to log %s: %w", conv, writeErr)
	}

	if syncErr := f.Sync(); syncErr != nil {
		_ = f.Close()

		return false, fmt.Errorf("syncing log %s: %w", conv, syncErr)
	}

	if closeErr := f.Close(); closeErr != nil {
		return false, fmt.Errorf("closing log %s: %w", conv, closeErr)
	}

	return s.checkLogSize(conv), nil
}

// NextToolCallIndexLocked returns the index the next entry in conv
// should receive: the current count of entries in its log, computed
// while the caller holds the conversation lock.
func (s *Store) NextToolCallIndexLocked(conv string) (int, error) {
	entries, err := s.ReadEntries(conv)
	if err != nil {
		return 0, err
	}

	return len(entries), nil
}

// ReadEntries reads every complete entry from a conversation's log, in
// file (== tool_call_index) order. A trailing line that fails to parse
// as a complete JSON object -- the signature of a concurrent writer
// mid-append -- is discarded rather than treated as an error; any
// non-trailing line that fails to parse is real corruption and is
// reported. A log that doesn't exist yet yields (nil, nil).
func (s *Store) ReadEntries(conv string) ([]model.Entry, error) {
	data, err := s.fsys.ReadFile(s.LogPath(conv))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("reading log %s: %w", conv, err)
	}

	lines := strings.Split(string(data), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	entries := make([]model.Entry, 0, len(lines))

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		var entry model.Entry

		if unmarshalErr := json.Unmarshal([]byte(line), &entry); unmarshalErr != nil {
			if i == len(lines)-1 {
				break // tolerate an in-flight trailing line
			}

			return nil, fmt.Errorf("corrupt log %s at line %d: %w", conv, i+1, unmarshalErr)
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// UpdateStatuses flips the status of the entries identified by updates
// (edit id -> new status) and atomically rewrites the log, acquiring
// the conversation lock itself. Entries not present in updates are
// written back unchanged.
func (s *Store) UpdateStatuses(conv string, updates map[model.EditID]model.Status) error {
	return s.WithConversationLock(conv, func() error {
		return s.UpdateStatusesLocked(conv, updates)
	})
}

// UpdateStatusesLocked is UpdateStatuses assuming the caller already
// holds the conversation lock (used when a status flip must be bundled
// with a replay in the same critical section, e.g. accept/reject).
func (s *Store) UpdateStatusesLocked(conv string, updates map[model.EditID]model.Status) error {
	entries, err := s.ReadEntries(conv)
	if err != nil {
		return err
	}

	for i := range entries {
		if ns, ok := updates[entries[i].EditID]; ok {
			entries[i].Status = ns
		}
	}

	return s.RewriteEntriesLocked(conv, entries)
}

// RewriteEntries atomically replaces conv's entire log with entries,
// acquiring the conversation lock itself. Used by doctor's --fix-index
// repair, which renumbers tool_call_index across the whole log rather
// than flipping individual statuses.
func (s *Store) RewriteEntries(conv string, entries []model.Entry) error {
	return s.WithConversationLock(conv, func() error {
		return s.RewriteEntriesLocked(conv, entries)
	})
}

// RewriteEntriesLocked is RewriteEntries assuming the caller already
// holds the conversation lock.
func (s *Store) RewriteEntriesLocked(conv string, entries []model.Entry) error {
	var buf bytes.Buffer

	for i := range entries {
		data, marshalErr := json.Marshal(entries[i])
		if marshalErr != nil {
			return fmt.Errorf("marshaling entry %s: %w", entries[i].EditID, marshalErr)
		}

		buf.Write(data)
		buf.WriteByte('\n')
	}

	writeErr := s.aw.Write(s.LogPath(conv), bytes.NewReader(buf.Bytes()), fs.AtomicWriteOptions{
		SyncDir: true,
		Perm:    filePerm,
	})
	if writeErr != nil {
		return fmt.Errorf("rewriting log %s: %w", conv, writeErr)
	}

	return nil
}

// ListConversations returns every conversation id with a log file, sorted.
func (s *Store) ListConversations() ([]string, error) {
	entries, err := s.fsys.ReadDir(s.LogsDir())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("listing logs dir: %w", err)
	}

	ids := make([]string, 0, len(entries))

	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), logExt); ok {
			ids = append(ids, name)
		}
	}

	sort.Strings(ids)

	return ids, nil
}
