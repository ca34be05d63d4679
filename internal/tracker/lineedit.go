package tracker

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// lineSelector is one parsed entry of a line-specified edit call: a line
// or inclusive range to replace, a point to insert after, or the special
// append selector.
type lineSelector struct {
	raw         string
	isInsert    bool
	isAppend    bool
	start       int // 1-based; for insert, the line to insert after (0 = before line 1)
	end         int // 1-based inclusive; == start for a single-line replace
	replacement string
}

// parseLineSelector classifies one selector key:
//
//	"N"    replace line N
//	"N-M"  replace inclusive range N..M
//	"Ni"   insert after line N ("0i" inserts before line 1)
//	"a"    append to end of file
func parseLineSelector(key, replacement string) (lineSelector, error) {
	if key == "a" {
		return lineSelector{raw: key, isAppend: true, replacement: replacement}, nil
	}

	if after, ok := strings.CutSuffix(key, "i"); ok {
		n, err := strconv.Atoi(after)
		if err != nil || n < 0 {
			return lineSelector{}, fmt.Errorf("%w: %q", ErrInvalidSelector, key)
		}

		return lineSelector{raw: key, isInsert: true, start: n, end: n, replacement: replacement}, nil
	}

	if before, after, ok := strings.Cut(key, "-"); ok {
		n, err1 := strconv.Atoi(before)
		m, err2 := strconv.Atoi(after)

		if err1 != nil || err2 != nil || n < 1 || m < n {
			return lineSelector{}, fmt.Errorf("%w: %q", ErrInvalidSelector, key)
		}

		return lineSelector{raw: key, start: n, end: m, replacement: replacement}, nil
	}

	n, err := strconv.Atoi(key)
	if err != nil || n < 1 {
		return lineSelector{}, fmt.Errorf("%w: %q", ErrInvalidSelector, key)
	}

	return lineSelector{raw: key, start: n, end: n, replacement: replacement}, nil
}

// applyLineEdits applies a set of line selectors to content, all resolved
// against the original (pre-edit) line numbering -- selectors are never
// renumbered relative to each other
func applyLineEdits(content []byte, edits map[string]string) ([]byte, error) {
	lines := splitLinesKeepEnds(content)

	selectors := make([]lineSelector, 0, len(edits))

	for key, replacement := range edits {
		sel, err := parseLineSelector(key, replacement)
		if err != nil {
			return nil, err
		}

		if !sel.isInsert && !sel.isAppend && sel.end > len(lines) {
			return nil, fmt.Errorf("%w: selector %q exceeds file length %d", ErrInvalidSelector, key, len(lines))
		}

		if sel.isInsert && sel.start > len(lines) {
			return nil, fmt.Errorf("%w: insert selector %q exceeds file length %d", ErrInvalidSelector, key, len(lines))
		}

		selectors = append(selectors, sel)
	}

	if err := checkOverlaps(selectors); err != nil {
		return nil, err
	}

	sort.Slice(selectors, func(i, j int) bool { return selectors[i].start < selectors[j].start })

	insertsAt := make(map[int][]string) // insert after line N (0 = before line 1)
	replaceRange := make(map[int]lineSelector)
	var appendText []string

	for _, sel := range selectors {
		switch {
		case sel.isAppend:
			appendText = append(appendText, sel.replacement)
		case sel.isInsert:
			insertsAt[sel.start] = append(insertsAt[sel.start], sel.replacement)
		default:
			replaceRange[sel.start] = sel
		}
	}

	var out strings.Builder

	out.WriteString(strings.Join(insertsAt[0], ""))

	for i := 1; i <= len(lines); {
		if sel, ok := replaceRange[i]; ok {
			out.WriteString(sel.replacement)

			i = sel.end + 1
		} else {
			out.WriteString(lines[i-1])

			i++
		}

		out.WriteString(strings.Join(insertsAt[i-1], ""))
	}

	for _, t := range appendText {
		out.WriteString(t)
	}

	return []byte(out.String()), nil
}

// checkOverlaps rejects any two replace/range selectors that share a
// line, and any two insert selectors at the same point
// "conflicts (overlapping ranges) are rejected with ConflictingEdit".
func checkOverlaps(selectors []lineSelector) error {
	claimed := make(map[int]string)
	insertPoints := make(map[int]string)

	for _, sel := range selectors {
		if sel.isAppend {
			continue
		}

		if sel.isInsert {
			if prev, ok := insertPoints[sel.start]; ok {
				return fmt.Errorf("%w: %q and %q both insert after line %d", ErrConflictingEdit, prev, sel.raw, sel.start)
			}

			insertPoints[sel.start] = sel.raw

			continue
		}

		for n := sel.start; n <= sel.end; n++ {
			if prev, ok := claimed[n]; ok {
				return fmt.Errorf("%w: %q and %q both address line %d", ErrConflictingEdit, prev, sel.raw, n)
			}

			claimed[n] = sel.raw
		}
	}

	return nil
}

// splitLinesKeepEnds splits content into lines, each retaining its
// trailing "\n" except possibly the last, mirroring
// internal/hashdiff's line representation so replacement text supplied
// by callers (expected to include its own trailing newline) composes
// cleanly.
func splitLinesKeepEnds(b []byte) []string {
	if len(b) == 0 {
		return nil
	}

	var lines []string

	start := 0

	for i, c := range b {
		if c == '\n' {
			lines = append(lines, string(b[start:i+1]))
			start = i + 1
		}
	}

	if start < len(b) {
		lines = append(lines, string(b[start:]))
	}

	return lines
}
