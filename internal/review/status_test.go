package review_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/calvinalkan/edithist/internal/histstore"
	"github.com/calvinalkan/edithist/internal/review"
	"github.com/calvinalkan/edithist/pkg/fs"
)

func TestStatusCommand_EmptyWorkspace(t *testing.T) {
	t.Parallel()

	c := review.NewCLI(t)

	out := c.MustRun("status")
	if out != "no matching edits" {
		t.Errorf("status on empty workspace = %q", out)
	}
}

func TestStatusCommand_ListsSeededEdits(t *testing.T) {
	t.Parallel()

	c := review.NewCLI(t)

	fsys := fs.NewReal()
	store := histstore.New(fsys, c.Dir, histstore.Options{})

	a := filepath.Join(c.Dir, "a.txt")
	seedCreate(t, store, fsys, "conv-1", a, []byte("hello\n"))

	out := c.MustRun("status")

	if !strings.Contains(out, "pending") || !strings.Contains(out, a) {
		t.Errorf("status output = %q, want it to mention the seeded pending edit", out)
	}
}

func TestStatusCommand_FiltersByStatus(t *testing.T) {
	t.Parallel()

	c := review.NewCLI(t)

	fsys := fs.NewReal()
	store := histstore.New(fsys, c.Dir, histstore.Options{})

	a := filepath.Join(c.Dir, "a.txt")
	seedCreate(t, store, fsys, "conv-1", a, []byte("hello\n"))

	out := c.MustRun("status", "--status", "accepted")
	if out != "no matching edits" {
		t.Errorf("status --status accepted = %q, want no matches yet", out)
	}
}
