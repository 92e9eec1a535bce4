package tool

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/relaycore/agentrt/internal/agentrt/model"
)

type stubTool struct {
	name     string
	category model.ToolCategory
	output   string
}

func (s *stubTool) Name() string               { return s.name }
func (s *stubTool) Description() string        { return "stub" }
func (s *stubTool) CompactDescription() string { return "stub" }
func (s *stubTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{}}`)
}
func (s *stubTool) Category() model.ToolCategory { return s.category }
func (s *stubTool) Execute(ctx context.Context, tc model.ToolContext, params json.RawMessage) (*model.ToolOutput, error) {
	return &model.ToolOutput{ForLLM: s.output}, nil
}

func TestRegisterReplacesSilently(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "echo", category: model.CategoryMemory, output: "first"})
	r.Register(&stubTool{name: "echo", category: model.CategoryMemory, output: "second"})
	out, err := r.Execute(context.Background(), model.ToolContext{}, "echo", json.RawMessage(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	if out.ForLLM != "second" {
		t.Fatalf("expected later registration to win, got %q", out.ForLLM)
	}
}

func TestExecuteUnknownToolIsNotFound(t *testing.T) {
	r := NewRegistry()
	out, err := r.Execute(context.Background(), model.ToolContext{}, "missing", json.RawMessage(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	if !out.IsError || !strings.Contains(out.ForLLM, "not found") {
		t.Fatalf("expected not-found tool error, got %+v", out)
	}
}

func TestDegradedRegistryRefusesDangerousCategories(t *testing.T) {
	r := NewRegistry()
	r.SetDegraded(true)
	if r.Register(&stubTool{name: "sh", category: model.CategoryShell}) {
		t.Fatal("expected shell tool registration to be refused in degraded mode")
	}
	if _, ok := r.Get("sh"); ok {
		t.Fatal("shell tool should not be present")
	}
	if !r.Register(&stubTool{name: "mem", category: model.CategoryMemory}) {
		t.Fatal("expected memory tool registration to succeed in degraded mode")
	}
}

func TestOversizedParamsRejected(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "echo", category: model.CategoryMemory})
	big := json.RawMessage(strings.Repeat("x", MaxParamsSize+1))
	out, err := r.Execute(context.Background(), model.ToolContext{}, "echo", big)
	if err != nil {
		t.Fatal(err)
	}
	if !out.IsError {
		t.Fatal("expected oversized params to be rejected")
	}
}
