package review

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

// CLI drives the reviewer CLI end to end against a temp workspace.
type CLI struct {
	t   *testing.T
	Dir string
	Env map[string]string
}

// NewCLI creates a test CLI with a fresh temp workspace.
func NewCLI(t *testing.T) *CLI {
	t.Helper()

	return &CLI{t: t, Dir: t.TempDir(), Env: map[string]string{}}
}

// Run executes the reviewer CLI with args and returns stdout, stderr,
// and the exit code. Args should not include "--workspace"; it is added
// automatically, pointed at the harness's temp directory.
func (c *CLI) Run(args ...string) (string, string, int) {
	var outBuf, errBuf bytes.Buffer

	fullArgs := append([]string{"--workspace", c.Dir}, args...)
	code := Run(nil, &outBuf, &errBuf, fullArgs, c.Env)

	return outBuf.String(), errBuf.String(), code
}

// MustRun executes the CLI and fails the test on a non-zero exit code.
// Returns trimmed stdout.
func (c *CLI) MustRun(args ...string) string {
	c.t.Helper()

	stdout, stderr, code := c.Run(args...)
	if code != 0 {
		c.t.Fatalf("command %v failed with exit code %d\nstderr: %s", args, code, stderr)
	}

	return strings.TrimSpace(stdout)
}

// MustFail executes the CLI and fails the test if it succeeds. Returns
// trimmed stderr.
func (c *CLI) MustFail(args ...string) string {
	c.t.Helper()

	stdout, stderr, code := c.Run(args...)
	if code == 0 {
		c.t.Fatalf("command %v should have failed but succeeded\nstdout: %s", args, stdout)
	}

	return strings.TrimSpace(stderr)
}

// HistoryDir returns the path to this workspace's edit history tree.
func (c *CLI) HistoryDir() string {
	return filepath.Join(c.Dir, ".mcp", "edit_history")
}
