package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/calvinalkan/edithist/internal/tracker"
	"github.com/calvinalkan/edithist/internal/workspace"
	"github.com/calvinalkan/edithist/pkg/fs"
)

// request is the wire shape of one line-delimited JSON tool invocation.
// Which fields are meaningful is determined by Tool, mirroring
// tracker.Request's own Kind-keyed shape.
type request struct {
	ID             string            `json:"id"`
	Tool           string            `json:"tool"`
	ConversationID string            `json:"conversation_id,omitempty"`
	Path           string            `json:"path,omitempty"`
	SourcePath     string            `json:"source_path,omitempty"`
	Content        string            `json:"content,omitempty"`
	LineEdits      map[string]string `json:"line_edits,omitempty"`
	Replacements   map[string]string `json:"replacements,omitempty"`
	Inserts        map[string]string `json:"inserts,omitempty"`
	ReplaceAll     bool              `json:"replace_all,omitempty"`
	DryRun         bool              `json:"dry_run,omitempty"`
}

// response is the wire shape of one reply. Exactly one of Error or the
// success fields is populated.
type response struct {
	ID                   string `json:"id"`
	Error                string `json:"error,omitempty"`
	ConversationID       string `json:"conversation_id,omitempty"`
	ConversationStarting bool   `json:"conversation_starting,omitempty"`
	EditID               string `json:"edit_id,omitempty"`
	Diff                 string `json:"diff,omitempty"`
	Content              string `json:"content,omitempty"`
}

// toolKinds maps the wire "tool" field to the tracker.Kind it wraps.
// Tool names are lowercase and underscore-separated.
var toolKinds = map[string]tracker.Kind{
	"write_file":  tracker.KindWrite,
	"line_edit":   tracker.KindLineEdit,
	"edit_file":   tracker.KindAnchorEdit,
	"move_file":   tracker.KindMove,
	"delete_file": tracker.KindDelete,
}

const toolReadFile = "read_file"

func handleLine(fsys fs.FS, trk *tracker.Tracker, allowlist *workspace.Allowlist, line []byte, debug *log.Logger) response {
	var req request

	if err := json.Unmarshal(line, &req); err != nil {
		return response{Error: fmt.Sprintf("malformed request: %v", err)}
	}

	debug.Printf("request id=%s tool=%s path=%s", req.ID, req.Tool, req.Path)

	resp := handleRequest(fsys, trk, allowlist, req)
	resp.ID = req.ID

	return resp
}

func handleRequest(fsys fs.FS, trk *tracker.Tracker, allowlist *workspace.Allowlist, req request) response {
	if req.Tool == toolReadFile {
		return handleReadFile(fsys, allowlist, req)
	}

	kind, ok := toolKinds[req.Tool]
	if !ok {
		return response{Error: fmt.Sprintf("unknown tool %q", req.Tool)}
	}

	result, err := trk.Track(context.Background(), tracker.Request{
		Kind:           kind,
		ConversationID: req.ConversationID,
		ToolName:       req.Tool,
		Path:           req.Path,
		SourcePath:     req.SourcePath,
		Content:        []byte(req.Content),
		LineEdits:      req.LineEdits,
		Replacements:   req.Replacements,
		Inserts:        req.Inserts,
		ReplaceAll:     req.ReplaceAll,
		DryRun:         req.DryRun,
	})
	if err != nil {
		return response{Error: err.Error()}
	}

	return response{
		ConversationID:       result.ConversationID,
		ConversationStarting: result.ConversationStarting,
		EditID:               result.EditID,
		Diff:                 string(result.Diff),
	}
}

func handleReadFile(fsys fs.FS, allowlist *workspace.Allowlist, req request) response {
	if req.Path == "" {
		return response{Error: "read_file requires a path"}
	}

	path, err := allowlist.Validate(req.Path)
	if err != nil {
		return response{Error: err.Error()}
	}

	data, err := fsys.ReadFile(path)
	if err != nil {
		if errors.Is(err, workspace.ErrPathOutsideWorkspace) {
			return response{Error: err.Error()}
		}

		return response{Error: fmt.Sprintf("reading %s: %v", req.Path, err)}
	}

	return response{Content: string(data)}
}
