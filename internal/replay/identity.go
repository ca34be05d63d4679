package replay

import "github.com/calvinalkan/edithist/internal/model"

// traceIdentity finds every name a file held inside one conversation's
// log and returns the subset of entries that touched any of them, in
// ascending tool_call_index order (the log is already append-ordered,
// so filtering preserves order).
//
// It starts from the name the caller asked about and walks move entries
// backward: if some entry moved name -> currentName, name is added to
// the set and the walk repeats until a fixed point, so a file renamed
// several times within the same conversation is still found under every
// name it held.
func traceIdentity(entries []model.Entry, targetPath string) (names map[string]bool, relevant []model.Entry) {
	names = map[string]bool{targetPath: true}

	for {
		added := false

		for _, e := range entries {
			if e.Operation != model.OpMove || e.SourcePath == nil {
				continue
			}

			if names[e.FilePath] && !names[*e.SourcePath] {
				names[*e.SourcePath] = true
				added = true
			}
		}

		if !added {
			break
		}
	}

	for _, e := range entries {
		if names[e.FilePath] || (e.SourcePath != nil && names[*e.SourcePath]) {
			relevant = append(relevant, e)
		}
	}

	return names, relevant
}

// originalName returns the name relevant's earliest entry used to
// identify the file before any mutation in this conversation touched
// it: the source path of a move, or the file path for every other
// operation.
func originalName(relevant []model.Entry) string {
	first := relevant[0]

	if first.Operation == model.OpMove && first.SourcePath != nil {
		return *first.SourcePath
	}

	return first.FilePath
}
