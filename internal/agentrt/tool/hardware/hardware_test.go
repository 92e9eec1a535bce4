package hardware

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/relaycore/agentrt/internal/agentrt/model"
)

func TestWriteThenReadRoundTrip(t *testing.T) {
	tool := NewTool(NewFakeBus())
	ctx := context.Background()

	writeParams, _ := json.Marshal(Params{Action: "write_bytes", Address: 0x42, HexBytes: "deadbeef"})
	out, err := tool.Execute(ctx, model.ToolContext{}, writeParams)
	if err != nil || out.IsError {
		t.Fatalf("write_bytes: err=%v out=%+v", err, out)
	}

	readParams, _ := json.Marshal(Params{Action: "read_bytes", Address: 0x42, Length: 4})
	out, err = tool.Execute(ctx, model.ToolContext{}, readParams)
	if err != nil || out.IsError {
		t.Fatalf("read_bytes: err=%v out=%+v", err, out)
	}
	if out.ForLLM != "deadbeef" {
		t.Fatalf("got %q, want %q", out.ForLLM, "deadbeef")
	}
}

func TestWriteRejectsInvalidHex(t *testing.T) {
	tool := NewTool(NewFakeBus())
	params, _ := json.Marshal(Params{Action: "write_bytes", Address: 1, HexBytes: "xyz"})
	out, err := tool.Execute(context.Background(), model.ToolContext{}, params)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !out.IsError {
		t.Fatal("expected odd-length/non-hex input to be rejected")
	}
}

func TestAddressOutOfRange(t *testing.T) {
	tool := NewTool(NewFakeBus())
	params, _ := json.Marshal(Params{Action: "read_bytes", Address: 999, Length: 1})
	out, err := tool.Execute(context.Background(), model.ToolContext{}, params)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !out.IsError {
		t.Fatal("expected out-of-range address to be rejected")
	}
}
