// Package main provides edithist-fsd, a minimal stdio filesystem tool
// server: it decodes line-delimited JSON requests naming one of the
// mutation tool contracts (write_file, line_edit, edit_file,
// move_file, delete_file) plus a read-only read_file convenience tool,
// calls into internal/tracker, and writes back one JSON response per
// line. It owns a concrete internal/workspace.Allowlist so the server is
// runnable standalone, without the command-execution or web-fetch
// servers this repo leaves out of scope.
//
// Flag/env plumbing follows the same shape as the reviewer CLI's own
// entrypoint; the request schema mirrors internal/tracker.Request.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/calvinalkan/edithist/internal/histstore"
	"github.com/calvinalkan/edithist/internal/tracker"
	"github.com/calvinalkan/edithist/internal/workspace"
	"github.com/calvinalkan/edithist/pkg/fs"

	flag "github.com/spf13/pflag"
)

func main() {
	fset := flag.NewFlagSet("edithist-fsd", flag.ExitOnError)
	flagWorkspace := fset.StringP("workspace", "w", "", "workspace root (defaults to the current directory)")
	flagConfig := fset.StringP("config", "c", "", "config file to load")

	if err := fset.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}

	environ := os.Environ()
	env := make(map[string]string, len(environ))

	for _, e := range environ {
		if k, v, ok := strings.Cut(e, "="); ok {
			env[k] = v
		}
	}

	cfg, err := workspace.LoadConfig(workspace.LoadConfigInput{
		WorkDirOverride: *flagWorkspace,
		ConfigPath:      *flagConfig,
		Env:             env,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}

	debug := log.New(io.Discard, "", 0)
	if env["MCP_DEBUG"] == "1" || cfg.Debug {
		debug = log.New(os.Stderr, "edithist-fsd: ", log.LstdFlags)
	}

	allowlist, err := workspace.NewAllowlist(cfg.RootsAbs...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}

	fsys := fs.NewReal()
	store := histstore.New(fsys, cfg.RootsAbs[0], histstore.Options{
		LockTimeout:  time.Duration(cfg.LockTimeout),
		LogWarnBytes: cfg.LogWarnBytes,
	})
	trk := tracker.New(fsys, store, allowlist, time.Duration(cfg.LockTimeout))

	debug.Printf("serving workspace root %s", cfg.RootsAbs[0])

	if err := serve(os.Stdin, os.Stdout, fsys, trk, allowlist, debug); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// serve reads one line-delimited JSON request per line from in and
// writes one JSON response per line to out, until in reaches EOF.
func serve(in io.Reader, out io.Writer, fsys fs.FS, trk *tracker.Tracker, allowlist *workspace.Allowlist, debug *log.Logger) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	enc := json.NewEncoder(out)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		resp := handleLine(fsys, trk, allowlist, line, debug)

		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("encoding response: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading request: %w", err)
	}

	return nil
}
