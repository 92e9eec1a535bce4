// Package hardware implements a minimal I2C-shaped hardware tool
// (write_bytes/read_bytes over a hex string) with hex validation on
// every payload.
package hardware

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/relaycore/agentrt/internal/agentrt/hexguard"
	"github.com/relaycore/agentrt/internal/agentrt/model"
)

// Bus is the wire-level contract a concrete board driver implements.
// This package ships an in-memory fake suited to tests; a real driver
// would shell out to i2c-tools or a cgo binding.
type Bus interface {
	Write(address byte, data []byte) error
	Read(address byte, length int) ([]byte, error)
}

// FakeBus is an in-memory Bus for tests and demos: writes accumulate
// in a per-address buffer, and reads return (and consume) the front
// of that buffer.
type FakeBus struct {
	buffers map[byte][]byte
}

// NewFakeBus creates an empty FakeBus.
func NewFakeBus() *FakeBus {
	return &FakeBus{buffers: make(map[byte][]byte)}
}

func (b *FakeBus) Write(address byte, data []byte) error {
	b.buffers[address] = append(b.buffers[address], data...)
	return nil
}

func (b *FakeBus) Read(address byte, length int) ([]byte, error) {
	buf := b.buffers[address]
	if length > len(buf) {
		length = len(buf)
	}
	out := buf[:length]
	b.buffers[address] = buf[length:]
	return out, nil
}

// Params is the hardware tool's input shape.
type Params struct {
	Action    string `json:"action"` // "write_bytes" | "read_bytes"
	Address   int    `json:"address"`
	HexBytes  string `json:"hex_bytes,omitempty"`
	Length    int    `json:"length,omitempty"`
}

// Tool adapts a Bus to the tool.Tool trait.
type Tool struct {
	bus Bus
}

// NewTool creates the hardware tool over bus.
func NewTool(bus Bus) *Tool {
	return &Tool{bus: bus}
}

func (t *Tool) Name() string { return "hardware" }

func (t *Tool) Description() string {
	return "Write or read raw bytes to/from a hardware bus address. write_bytes takes a hex_bytes string; read_bytes takes a length."
}

func (t *Tool) CompactDescription() string { return "Raw hardware bus read/write" }

func (t *Tool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"action": {"type": "string", "enum": ["write_bytes", "read_bytes"]},
			"address": {"type": "integer"},
			"hex_bytes": {"type": "string"},
			"length": {"type": "integer"}
		},
		"required": ["action", "address"]
	}`)
}

func (t *Tool) Category() model.ToolCategory { return model.CategoryHardware }

func (t *Tool) Execute(ctx context.Context, tc model.ToolContext, params json.RawMessage) (*model.ToolOutput, error) {
	var p Params
	if err := json.Unmarshal(params, &p); err != nil {
		return &model.ToolOutput{ForLLM: "invalid hardware parameters: " + err.Error(), IsError: true}, nil
	}
	if p.Address < 0 || p.Address > 0xff {
		return &model.ToolOutput{ForLLM: "address out of range", IsError: true}, nil
	}
	addr := byte(p.Address)

	switch p.Action {
	case "write_bytes":
		data, err := hexguard.Decode(p.HexBytes)
		if err != nil {
			return &model.ToolOutput{ForLLM: err.Error(), IsError: true}, nil
		}
		if err := t.bus.Write(addr, data); err != nil {
			return &model.ToolOutput{ForLLM: "write failed: " + err.Error(), IsError: true}, nil
		}
		return &model.ToolOutput{ForLLM: fmt.Sprintf("wrote %d bytes", len(data)), UserVisible: "ok"}, nil

	case "read_bytes":
		data, err := t.bus.Read(addr, p.Length)
		if err != nil {
			return &model.ToolOutput{ForLLM: "read failed: " + err.Error(), IsError: true}, nil
		}
		hexOut := fmt.Sprintf("%x", data)
		return &model.ToolOutput{ForLLM: hexOut, UserVisible: hexOut}, nil

	default:
		return &model.ToolOutput{ForLLM: "unknown hardware action: " + p.Action, IsError: true}, nil
	}
}
