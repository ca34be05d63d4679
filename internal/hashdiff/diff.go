package hashdiff

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// unifiedContextLines is the number of context lines surrounding each
// hunk
const unifiedContextLines = 3

// Unified returns the unified-diff bytes between oldBytes and newBytes,
// labeling the two sides "a/<label>" and "b/<label>".
// Byte-identical inputs yield an empty slice.
//
// Generation is delegated to github.com/pmezard/go-difflib; applying a
// diff back onto bytes is a separate concern handled by [Patch].
func Unified(oldBytes, newBytes []byte, label string) ([]byte, error) {
	if string(oldBytes) == string(newBytes) {
		return nil, nil
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(oldBytes)),
		B:        difflib.SplitLines(string(newBytes)),
		FromFile: "a/" + label,
		ToFile:   "b/" + label,
		Context:  unifiedContextLines,
	}

	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return nil, fmt.Errorf("generating unified diff for %s: %w", label, err)
	}

	return []byte(text), nil
}
