package memorytool

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/relaycore/agentrt/internal/agentrt/memory"
	"github.com/relaycore/agentrt/internal/agentrt/memory/substring"
	"github.com/relaycore/agentrt/internal/agentrt/model"
)

func newTestTool(t *testing.T) *Tool {
	t.Helper()
	store, err := memory.New(filepath.Join(t.TempDir(), "longterm.json"), substring.New())
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}
	return NewTool(store)
}

func run(t *testing.T, tool *Tool, p Params) *model.ToolOutput {
	t.Helper()
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	out, err := tool.Execute(context.Background(), model.ToolContext{}, raw)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	return out
}

func TestSetGetRoundTrip(t *testing.T) {
	tool := newTestTool(t)
	out := run(t, tool, Params{Action: "set", Key: "user.name", Value: "Ada", Category: "profile"})
	if out.IsError {
		t.Fatalf("set failed: %s", out.ForLLM)
	}
	out = run(t, tool, Params{Action: "get", Key: "user.name"})
	if out.IsError || !strings.Contains(out.ForLLM, "Ada") {
		t.Fatalf("get: %+v", out)
	}
}

func TestGetMissingKeyIsError(t *testing.T) {
	tool := newTestTool(t)
	out := run(t, tool, Params{Action: "get", Key: "absent"})
	if !out.IsError {
		t.Fatalf("expected error for missing key, got %q", out.ForLLM)
	}
}

func TestSearchRanksMatches(t *testing.T) {
	tool := newTestTool(t)
	run(t, tool, Params{Action: "set", Key: "a", Value: "the capital of France is Paris"})
	run(t, tool, Params{Action: "set", Key: "b", Value: "grocery list: eggs and milk"})
	out := run(t, tool, Params{Action: "search", Query: "capital France"})
	if out.IsError {
		t.Fatalf("search: %s", out.ForLLM)
	}
	if !strings.Contains(out.ForLLM, "Paris") || strings.Contains(out.ForLLM, "grocery") {
		t.Fatalf("unexpected search results: %s", out.ForLLM)
	}
}

func TestListByCategory(t *testing.T) {
	tool := newTestTool(t)
	run(t, tool, Params{Action: "set", Key: "a", Value: "v1", Category: "work"})
	run(t, tool, Params{Action: "set", Key: "b", Value: "v2", Category: "home"})
	out := run(t, tool, Params{Action: "list", Category: "work"})
	if !strings.Contains(out.ForLLM, "v1") || strings.Contains(out.ForLLM, "v2") {
		t.Fatalf("unexpected list output: %s", out.ForLLM)
	}
}

func TestUnknownActionIsError(t *testing.T) {
	tool := newTestTool(t)
	out := run(t, tool, Params{Action: "explode"})
	if !out.IsError {
		t.Fatal("expected unknown action to error")
	}
}
