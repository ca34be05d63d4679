package tracker

import (
	"fmt"
	"sort"
	"strings"
)

// anchorEditArgs bundles one content-anchored edit call's inputs:
// literal substring replacements, anchor-relative insertions, and
// the replace_all flag governing how many occurrences each substring
// operation touches.
type anchorEditArgs struct {
	Replacements map[string]string
	Inserts      map[string]string
	ReplaceAll   bool
}

// applyAnchorEdit applies replacements and inserts to content in a
// deterministic order (sorted by anchor text, since map iteration order
// is not), failing the whole call with ErrAnchorNotFound if any named
// anchor is absent -- a missing anchor aborts before anything is
// applied, so the edit is atomic.
func applyAnchorEdit(content []byte, args anchorEditArgs) ([]byte, error) {
	text := string(content)

	for _, anchor := range sortedKeys(args.Replacements) {
		if !strings.Contains(text, anchor) {
			return nil, fmt.Errorf("%w: replacement anchor %q", ErrAnchorNotFound, anchor)
		}
	}

	for _, anchor := range sortedKeys(args.Inserts) {
		if !strings.Contains(text, anchor) {
			return nil, fmt.Errorf("%w: insert anchor %q", ErrAnchorNotFound, anchor)
		}
	}

	count := 1
	if args.ReplaceAll {
		count = -1
	}

	for _, anchor := range sortedKeys(args.Replacements) {
		text = strings.Replace(text, anchor, args.Replacements[anchor], count)
	}

	for _, anchor := range sortedKeys(args.Inserts) {
		inserted := args.Inserts[anchor]
		text = strings.Replace(text, anchor, anchor+inserted, count)
	}

	return []byte(text), nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))

	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
