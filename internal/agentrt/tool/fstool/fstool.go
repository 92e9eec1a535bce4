// Package fstool implements workspace-bounded filesystem operations
// as a tool: every path is resolved through pathguard against the
// ToolContext's workspace, and a missing workspace is a security
// violation rather than a fallback to the process's own view of the
// filesystem.
package fstool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/relaycore/agentrt/internal/agentrt/errtype"
	"github.com/relaycore/agentrt/internal/agentrt/model"
	"github.com/relaycore/agentrt/internal/agentrt/pathguard"
)

// MaxReadBytes caps a single read so one tool call cannot drag an
// arbitrarily large file into the model's context.
const MaxReadBytes = 1 << 20 // 1MB

// Params is the fs tool's input shape.
type Params struct {
	Action  string `json:"action"`
	Path    string `json:"path"`
	Content string `json:"content,omitempty"`
}

// Tool performs read/write/list/delete within the call's workspace.
type Tool struct{}

// NewTool creates the fs tool.
func NewTool() *Tool { return &Tool{} }

func (t *Tool) Name() string { return "fs" }

func (t *Tool) Description() string {
	return "Read, write, list, or delete files inside the session workspace. Actions: read (path), write (path, content), list (path), delete (path). Paths outside the workspace are refused."
}

func (t *Tool) CompactDescription() string { return "Workspace-bounded file operations" }

func (t *Tool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"action": {"type": "string", "enum": ["read", "write", "list", "delete"]},
			"path": {"type": "string"},
			"content": {"type": "string"}
		},
		"required": ["action", "path"]
	}`)
}

func (t *Tool) Category() model.ToolCategory { return model.CategoryFilesystemWrite }

func (t *Tool) Execute(ctx context.Context, tc model.ToolContext, params json.RawMessage) (*model.ToolOutput, error) {
	var p Params
	if err := json.Unmarshal(params, &p); err != nil {
		return &model.ToolOutput{ForLLM: "invalid fs parameters: " + err.Error(), IsError: true}, nil
	}
	if tc.Workspace == "" {
		return nil, errtype.ErrWorkspaceMissing
	}
	resolver, err := pathguard.NewResolver(tc.Workspace)
	if err != nil {
		return nil, errtype.Wrap(errtype.KindIO, err, "resolve workspace")
	}
	abs, err := resolver.Resolve(p.Path)
	if err != nil {
		return nil, errtype.Wrap(errtype.KindSecurityViolation, err, "path refused")
	}

	switch p.Action {
	case "read":
		data, err := os.ReadFile(abs)
		if err != nil {
			return &model.ToolOutput{ForLLM: "read failed: " + err.Error(), IsError: true}, nil
		}
		if len(data) > MaxReadBytes {
			data = data[:MaxReadBytes]
		}
		return &model.ToolOutput{ForLLM: string(data)}, nil

	case "write":
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return &model.ToolOutput{ForLLM: "write failed: " + err.Error(), IsError: true}, nil
		}
		if err := os.WriteFile(abs, []byte(p.Content), 0o644); err != nil {
			return &model.ToolOutput{ForLLM: "write failed: " + err.Error(), IsError: true}, nil
		}
		return &model.ToolOutput{ForLLM: fmt.Sprintf("wrote %d bytes to %s", len(p.Content), p.Path)}, nil

	case "list":
		entries, err := os.ReadDir(abs)
		if err != nil {
			return &model.ToolOutput{ForLLM: "list failed: " + err.Error(), IsError: true}, nil
		}
		var b strings.Builder
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() {
				name += "/"
			}
			b.WriteString(name)
			b.WriteByte('\n')
		}
		if b.Len() == 0 {
			return &model.ToolOutput{ForLLM: "(empty directory)"}, nil
		}
		return &model.ToolOutput{ForLLM: strings.TrimRight(b.String(), "\n")}, nil

	case "delete":
		if err := os.Remove(abs); err != nil {
			return &model.ToolOutput{ForLLM: "delete failed: " + err.Error(), IsError: true}, nil
		}
		return &model.ToolOutput{ForLLM: "deleted " + p.Path}, nil

	default:
		return &model.ToolOutput{ForLLM: "unknown fs action: " + p.Action, IsError: true}, nil
	}
}
