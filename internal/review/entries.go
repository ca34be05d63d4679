package review

import (
	"sort"

	"github.com/calvinalkan/edithist/internal/histstore"
	"github.com/calvinalkan/edithist/internal/model"
)

// loadedEntry pairs an entry with the conversation it came from, since
// model.Entry itself already carries ConversationID but callers
// filtering/sorting across many conversations find it convenient to
// have both close at hand without re-deriving anything.
type loadedEntry struct {
	Conv  string
	Entry model.Entry
}

// allEntries reads every entry from every conversation in the store,
// used by status/show/ResolveID's candidate lists. Conversations with
// no entries (shouldn't happen, but ReadEntries tolerates it) contribute
// nothing.
func allEntries(store *histstore.Store) ([]loadedEntry, error) {
	convs, err := store.ListConversations()
	if err != nil {
		return nil, err
	}

	var out []loadedEntry

	for _, conv := range convs {
		entries, readErr := store.ReadEntries(conv)
		if readErr != nil {
			return nil, readErr
		}

		for _, e := range entries {
			out = append(out, loadedEntry{Conv: conv, Entry: e})
		}
	}

	return out, nil
}

// StatusFilter narrows the entries status returns
// (`status [--conv ID] [--file P] [--status S] [-n LIMIT]`). There is no
// filter by time.
type StatusFilter struct {
	Conv   string
	File   string
	Status model.Status // "" means any
	Limit  int          // 0 means unlimited; negative is treated as 0
}

// filterEntries applies f and returns entries newest-first (// "default newest-first"), bounded by Limit when positive.
func filterEntries(entries []loadedEntry, f StatusFilter) []loadedEntry {
	var matched []loadedEntry

	for _, le := range entries {
		if f.Conv != "" && le.Conv != f.Conv {
			continue
		}

		if f.File != "" && le.Entry.FilePath != f.File {
			continue
		}

		if f.Status != "" && le.Entry.Status != f.Status {
			continue
		}

		matched = append(matched, le)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Entry.Timestamp.After(matched[j].Entry.Timestamp)
	})

	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}

	return matched
}

// editIDsAndConvIDs extracts the raw id strings ResolveID needs as its
// candidate pools.
func editIDsAndConvIDs(entries []loadedEntry) (editIDs, convIDs []string) {
	seenConv := make(map[string]bool)

	for _, le := range entries {
		editIDs = append(editIDs, string(le.Entry.EditID))

		if !seenConv[le.Conv] {
			seenConv[le.Conv] = true

			convIDs = append(convIDs, le.Conv)
		}
	}

	return editIDs, convIDs
}
