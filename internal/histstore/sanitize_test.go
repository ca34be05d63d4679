package histstore_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/calvinalkan/edithist/internal/histstore"
)

func TestSanitize_ReplacesSeparators(t *testing.T) {
	t.Parallel()

	got := histstore.Sanitize("/workspace/src/main.go")
	if strings.ContainsAny(got, "/\\") {
		t.Errorf("sanitized path still contains a separator: %q", got)
	}
}

func TestSanitize_CollisionFreeWithinConversation(t *testing.T) {
	t.Parallel()

	var paths []string

	// Short, ordinary paths.
	for i := range 50 {
		paths = append(paths, fmt.Sprintf("/workspace/pkg/file_%d.go", i))
	}

	// Long paths sharing a common overlong prefix, to exercise the
	// truncate-plus-hash-suffix path.
	longPrefix := "/workspace/" + strings.Repeat("a", 300) + "/"
	for i := range 20 {
		paths = append(paths, fmt.Sprintf("%sfile_%d.go", longPrefix, i))
	}

	seen := make(map[string]string, len(paths))

	for _, p := range paths {
		s := histstore.Sanitize(p)
		if prev, ok := seen[s]; ok && prev != p {
			t.Fatalf("collision: %q and %q both sanitize to %q", prev, p, s)
		}

		seen[s] = p
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	t.Parallel()

	p := "/workspace/a/b/c.txt"
	if histstore.Sanitize(p) != histstore.Sanitize(p) {
		t.Error("Sanitize should be a pure function of its input")
	}
}
