package histstore_test

import (
	"bytes"
	"os"
	"testing"

	"github.com/calvinalkan/edithist/internal/model"
)

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o640)
}

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func TestWriteAndReadDiff_RoundTrip(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	conv := string(model.ConversationID("01diff1"))

	diff := []byte("--- a/file.go\n+++ b/file.go\n@@ -1 +1 @@\n-old\n+new\n")

	rel, err := store.WriteDiff(conv, "edit-1", diff)
	if err != nil {
		t.Fatalf("writing diff: %v", err)
	}

	got, err := store.ReadDiff(rel)
	if err != nil {
		t.Fatalf("reading diff: %v", err)
	}

	if !bytes.Equal(got, diff) {
		t.Errorf("got %q, want %q", got, diff)
	}
}
