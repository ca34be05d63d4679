// Package workspace provides the concrete workspace allowlist and
// configuration collaborators the engine treats as external to itself.
// It exists so cmd/edithist-fsd and cmd/edithist have
// something runnable to validate paths and load settings against,
// without pulling in the full command-execution or web-fetch tool
// servers (out of scope).
package workspace

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrPathOutsideWorkspace is returned by [Allowlist.Validate] when a
// path, once resolved, does not lie under any configured root.
var ErrPathOutsideWorkspace = errors.New("path outside workspace")

// Allowlist validates candidate paths against one or more configured
// root directories, resolving symlinks so a root escape hidden behind a
// symlink is still caught. Checks N candidate paths against M roots.
type Allowlist struct {
	// roots holds each configured root as both its raw absolute form
	// and (if resolvable) its symlink-evaluated form, since a path being
	// validated may or may not itself contain a symlink component.
	roots []resolvedRoot
}

type resolvedRoot struct {
	abs      string
	resolved string // symlink-evaluated; equals abs if EvalSymlinks failed (e.g. root doesn't exist yet)
}

// NewAllowlist builds an Allowlist from one or more root directories.
// Roots need not exist yet (a workspace root created after the server
// starts is still honored); each Validate call re-resolves symlinks
// against the current filesystem state.
func NewAllowlist(roots ...string) (*Allowlist, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("workspace: at least one root is required")
	}

	resolved := make([]resolvedRoot, 0, len(roots))

	for _, r := range roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("resolving root %s: %w", r, err)
		}

		rr := resolvedRoot{abs: abs, resolved: abs}

		if ev, evErr := filepath.EvalSymlinks(abs); evErr == nil {
			rr.resolved = ev
		}

		resolved = append(resolved, rr)
	}

	return &Allowlist{roots: resolved}, nil
}

// Validate resolves path to a canonical absolute form (symlinks
// followed where possible) and confirms it lies under one of the
// configured roots. Paths that don't yet exist are
// resolved component-by-component by walking up to the nearest existing
// ancestor, so a not-yet-created file inside an allowed root still
// validates (the common case for `create`).
func (a *Allowlist) Validate(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrPathOutsideWorkspace, path, err)
	}

	resolved := resolveExistingPrefix(abs)

	for _, r := range a.roots {
		if withinRoot(resolveExistingPrefix(r.abs), resolved) {
			return resolved, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrPathOutsideWorkspace, path)
}

// resolveExistingPrefix evaluates symlinks on the longest existing
// ancestor of path and rejoins the remaining (not-yet-existing)
// components unchanged.
func resolveExistingPrefix(path string) string {
	dir := path
	var tail []string

	for {
		if ev, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(append([]string{ev}, tail...)...)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return path // reached filesystem root without finding an existing ancestor
		}

		tail = append([]string{filepath.Base(dir)}, tail...)
		dir = parent
	}
}

// withinRoot reports whether candidate is root itself or a descendant
// of it, using filepath.Rel's "contains a leading .. segment" test for
// containment.
func withinRoot(root, candidate string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}

	return rel == "." || !strings.HasPrefix(rel, "..")
}
