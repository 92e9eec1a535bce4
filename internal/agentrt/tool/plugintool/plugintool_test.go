package plugintool

import (
	"context"
	"encoding/json"
	"runtime"
	"testing"

	"github.com/relaycore/agentrt/internal/agentrt/model"
)

func TestExecuteHappyPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	tool := New(Config{
		Name:        "echoplugin",
		Description: "echoes back a fixed string",
		Command:     "sh",
		Args:        []string{"-c", `read _; printf '{"jsonrpc":"2.0","result":{"output":"hello world"},"id":1}\n'`},
	})

	out, err := tool.Execute(context.Background(), model.ToolContext{}, json.RawMessage(`{"x":"test"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.IsError {
		t.Fatalf("unexpected error output: %s", out.ForLLM)
	}
	if out.ForLLM != "hello world" {
		t.Fatalf("got %q, want %q", out.ForLLM, "hello world")
	}
}

func TestExecuteErrorResponse(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	tool := New(Config{
		Name:    "failplugin",
		Command: "sh",
		Args:    []string{"-c", `read _; printf '{"jsonrpc":"2.0","error":{"code":1,"message":"boom"},"id":1}\n'`},
	})

	out, err := tool.Execute(context.Background(), model.ToolContext{}, json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !out.IsError {
		t.Fatal("expected an error tool output")
	}
}

func TestExecuteNonZeroExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	tool := New(Config{
		Name:    "exitplugin",
		Command: "sh",
		Args:    []string{"-c", `read _; echo "boom" 1>&2; exit 1`},
	})

	out, err := tool.Execute(context.Background(), model.ToolContext{}, json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !out.IsError {
		t.Fatal("expected a non-zero exit to surface as a tool error")
	}
}
