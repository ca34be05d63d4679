// Package hashdiff provides the engine's content-hashing and unified-diff
// utilities: SHA-256 hashing, unified-diff generation via
// github.com/pmezard/go-difflib, and a hand-rolled unified-diff applier
// (patch). See Patch's doc comment for why the applier is stdlib-only.
package hashdiff

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// HashBytes returns the lowercase hex SHA-256 digest of b.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)

	return hex.EncodeToString(sum[:])
}

// Hash streams r through SHA-256, for files too large to want fully
// buffered ("undefined-length files are streamed").
func Hash(r io.Reader) (string, error) {
	h := sha256.New()

	_, err := io.Copy(h, r)
	if err != nil {
		return "", fmt.Errorf("hashing stream: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
