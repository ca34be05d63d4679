package review

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/calvinalkan/edithist/internal/histstore"
	"github.com/calvinalkan/edithist/internal/model"
	"github.com/calvinalkan/edithist/pkg/fs"

	"github.com/peterh/liner"
)

// reviewHistoryFile returns the path to the interactive review loop's
// persisted prompt history, grounded on cmd/sloty's REPL's
// ~/.sloty_history, generalized to XDG_STATE_HOME the way
// internal/workspace.getGlobalConfigPath generalizes HOME for config.
func reviewHistoryFile() string {
	if state := os.Getenv("XDG_STATE_HOME"); state != "" {
		return filepath.Join(state, "edithist", "review_history")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".local", "state", "edithist", "review_history")
}

// RunReviewLoop drives the interactive `review` command:
// one prompt per pending edit, oldest first, diff shown before each
// prompt. Keys: a=accept, r=reject, s/Enter=skip, q=quit early.
func RunReviewLoop(o *IO, store *histstore.Store, fsys fs.FS) error {
	entries, err := allEntries(store)
	if err != nil {
		return err
	}

	pending := filterEntries(entries, StatusFilter{Status: model.StatusPending})

	// filterEntries sorts newest-first; the review loop works through
	// pending edits oldest-first so earlier edits in a conversation are
	// always decided before later ones that may depend on them.
	for i, j := 0, len(pending)-1; i < j; i, j = i+1, j-1 {
		pending[i], pending[j] = pending[j], pending[i]
	}

	if len(pending) == 0 {
		o.Println("no pending edits")

		return nil
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	histPath := reviewHistoryFile()

	if histPath != "" {
		if f, openErr := os.Open(histPath); openErr == nil {
			_, _ = line.ReadHistory(f)
			_ = f.Close()
		}
	}

	defer saveReviewHistory(line, histPath)

	for _, le := range pending {
		if err := reviewOne(o, store, fsys, line, le); err != nil {
			if err == errReviewQuit {
				return nil
			}

			o.ErrPrintln("error:", err)
		}
	}

	return nil
}

var errReviewQuit = fmt.Errorf("review loop quit")

func reviewOne(o *IO, store *histstore.Store, fsys fs.FS, line *liner.State, le loadedEntry) error {
	printEntry(o, le)

	if le.Entry.DiffFile != nil {
		diffBytes, readErr := store.ReadDiff(*le.Entry.DiffFile)
		if readErr != nil {
			return readErr
		}

		o.Println()
		o.Printf("%s", colorizeDiff(string(diffBytes)))
	}

	o.Println()

	for {
		answer, err := line.Prompt("[a]ccept / [r]eject / [s]kip / [q]uit> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				return errReviewQuit
			}

			return fmt.Errorf("reading prompt: %w", err)
		}

		answer = strings.ToLower(strings.TrimSpace(answer))

		if answer != "" {
			line.AppendHistory(answer)
		}

		switch answer {
		case "a", "accept":
			id := le.Entry.EditID

			return ChangeStatus(store, fsys, le.Conv, &id, model.StatusAccepted)
		case "r", "reject":
			id := le.Entry.EditID

			return ChangeStatus(store, fsys, le.Conv, &id, model.StatusRejected)
		case "s", "skip", "":
			return nil
		case "q", "quit":
			return errReviewQuit
		default:
			o.ErrPrintln("unrecognized answer:", answer)
		}
	}
}

func saveReviewHistory(line *liner.State, path string) {
	if path == "" {
		return
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return
	}

	f, err := os.Create(path)
	if err != nil {
		return
	}

	defer f.Close()

	_, _ = line.WriteHistory(f)
}

const (
	ansiGreen = "\033[32m"
	ansiRed   = "\033[31m"
	ansiReset = "\033[0m"
)

// colorizeDiff applies the conventional unified-diff coloring (green
// additions, red removals) line by line.
func colorizeDiff(diff string) string {
	lines := strings.Split(diff, "\n")

	for i, l := range lines {
		switch {
		case strings.HasPrefix(l, "+") && !strings.HasPrefix(l, "+++"):
			lines[i] = ansiGreen + l + ansiReset
		case strings.HasPrefix(l, "-") && !strings.HasPrefix(l, "---"):
			lines[i] = ansiRed + l + ansiReset
		}
	}

	return strings.Join(lines, "\n")
}
