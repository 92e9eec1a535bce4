// Package memorytool exposes the long-term memory store as a
// memory-category tool so the model can remember, recall, and forget
// facts across sessions.
package memorytool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/relaycore/agentrt/internal/agentrt/memory"
	"github.com/relaycore/agentrt/internal/agentrt/model"
)

// MaxSearchResults bounds how many ranked hits a search action returns
// to the model.
const MaxSearchResults = 10

// Params is the memory tool's input shape.
type Params struct {
	Action     string   `json:"action"`
	Key        string   `json:"key,omitempty"`
	Value      string   `json:"value,omitempty"`
	Category   string   `json:"category,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Importance float64  `json:"importance,omitempty"`
	Query      string   `json:"query,omitempty"`
}

// Tool adapts a memory.Store to the tool.Tool trait.
type Tool struct {
	store *memory.Store
}

// NewTool creates the memory tool over store.
func NewTool(store *memory.Store) *Tool {
	return &Tool{store: store}
}

func (t *Tool) Name() string { return "memory" }

func (t *Tool) Description() string {
	return "Store and retrieve long-term memories. Actions: set (key, value, optional category/tags/importance), get (key), delete (key), search (query), list (optional category), categories, summary."
}

func (t *Tool) CompactDescription() string { return "Long-term key/value memory with ranked search" }

func (t *Tool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"action": {"type": "string", "enum": ["set", "get", "delete", "search", "list", "categories", "summary"]},
			"key": {"type": "string"},
			"value": {"type": "string"},
			"category": {"type": "string"},
			"tags": {"type": "array", "items": {"type": "string"}},
			"importance": {"type": "number"},
			"query": {"type": "string"}
		},
		"required": ["action"]
	}`)
}

func (t *Tool) Category() model.ToolCategory { return model.CategoryMemory }

func (t *Tool) Execute(ctx context.Context, tc model.ToolContext, params json.RawMessage) (*model.ToolOutput, error) {
	var p Params
	if err := json.Unmarshal(params, &p); err != nil {
		return &model.ToolOutput{ForLLM: "invalid memory parameters: " + err.Error(), IsError: true}, nil
	}

	switch p.Action {
	case "set":
		if p.Key == "" {
			return &model.ToolOutput{ForLLM: "set requires a key", IsError: true}, nil
		}
		if err := t.store.Set(p.Key, p.Value, p.Category, p.Tags, p.Importance); err != nil {
			return &model.ToolOutput{ForLLM: err.Error(), IsError: true}, nil
		}
		return &model.ToolOutput{ForLLM: "stored memory under key " + p.Key}, nil

	case "get":
		entry, ok := t.store.Get(p.Key)
		if !ok {
			return &model.ToolOutput{ForLLM: "no memory under key " + p.Key, IsError: true}, nil
		}
		return &model.ToolOutput{ForLLM: renderEntry(entry)}, nil

	case "delete":
		if err := t.store.Delete(p.Key); err != nil {
			return &model.ToolOutput{ForLLM: err.Error(), IsError: true}, nil
		}
		return &model.ToolOutput{ForLLM: "deleted memory under key " + p.Key}, nil

	case "search":
		if strings.TrimSpace(p.Query) == "" {
			return &model.ToolOutput{ForLLM: "search requires a query", IsError: true}, nil
		}
		results := t.store.Search(p.Query)
		if len(results) > MaxSearchResults {
			results = results[:MaxSearchResults]
		}
		var b strings.Builder
		for _, r := range results {
			if r.Score <= 0 {
				continue
			}
			fmt.Fprintf(&b, "[%.2f] %s\n", r.Score, renderEntry(r.Entry))
		}
		if b.Len() == 0 {
			return &model.ToolOutput{ForLLM: "no matching memories"}, nil
		}
		return &model.ToolOutput{ForLLM: strings.TrimRight(b.String(), "\n")}, nil

	case "list":
		var entries []model.MemoryEntry
		if p.Category != "" {
			entries = t.store.ListByCategory(p.Category)
		} else {
			entries = t.store.ListAll()
		}
		if len(entries) == 0 {
			return &model.ToolOutput{ForLLM: "no memories stored"}, nil
		}
		var b strings.Builder
		for _, e := range entries {
			b.WriteString(renderEntry(e))
			b.WriteByte('\n')
		}
		return &model.ToolOutput{ForLLM: strings.TrimRight(b.String(), "\n")}, nil

	case "categories":
		cats := t.store.Categories()
		if len(cats) == 0 {
			return &model.ToolOutput{ForLLM: "no categories"}, nil
		}
		return &model.ToolOutput{ForLLM: strings.Join(cats, ", ")}, nil

	case "summary":
		sum := t.store.Summary()
		return &model.ToolOutput{ForLLM: fmt.Sprintf(
			"%d entries across %d categories, average importance %.2f",
			sum.EntryCount, sum.CategoryCount, sum.AverageImportance)}, nil

	default:
		return &model.ToolOutput{ForLLM: "unknown memory action: " + p.Action, IsError: true}, nil
	}
}

func renderEntry(e model.MemoryEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Key, e.Value)
	if e.Category != "" {
		fmt.Fprintf(&b, " (category: %s)", e.Category)
	}
	if len(e.Tags) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.Tags, ", "))
	}
	return b.String()
}
