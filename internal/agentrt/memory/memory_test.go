package memory

import (
	"path/filepath"
	"testing"

	"github.com/relaycore/agentrt/internal/agentrt/memory/substring"
	"github.com/relaycore/agentrt/internal/agentrt/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "memory.json"), substring.New())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestSetGetDelete(t *testing.T) {
	s := newTestStore(t)
	if err := s.Set("k1", "hello world", "general", nil, 0.5); err != nil {
		t.Fatalf("Set: %v", err)
	}
	entry, ok := s.Get("k1")
	if !ok || entry.Value != "hello world" {
		t.Fatalf("expected entry to round trip, got %+v ok=%v", entry, ok)
	}
	if err := s.Delete("k1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := s.Get("k1"); ok {
		t.Fatal("expected entry to be gone after delete")
	}
}

func TestImportSkipsExistingWithoutOverwrite(t *testing.T) {
	s := newTestStore(t)
	if err := s.Set("k1", "original", "", nil, 0); err != nil {
		t.Fatal(err)
	}
	err := s.Import([]model.MemoryEntry{{Key: "k1", Value: "replacement"}}, false)
	if err != nil {
		t.Fatal(err)
	}
	entry, _ := s.Get("k1")
	if entry.Value != "original" {
		t.Fatalf("expected import without overwrite to skip existing key, got %q", entry.Value)
	}
}

func TestImportOverwritesExisting(t *testing.T) {
	s := newTestStore(t)
	if err := s.Set("k1", "original", "", nil, 0); err != nil {
		t.Fatal(err)
	}
	err := s.Import([]model.MemoryEntry{{Key: "k1", Value: "replacement"}}, true)
	if err != nil {
		t.Fatal(err)
	}
	entry, _ := s.Get("k1")
	if entry.Value != "replacement" {
		t.Fatalf("expected import with overwrite to replace, got %q", entry.Value)
	}
}

func TestSearchRanksRelevantHigher(t *testing.T) {
	s := newTestStore(t)
	_ = s.Set("k1", "the quick brown fox", "", nil, 0)
	_ = s.Set("k2", "completely unrelated", "", nil, 0)
	results := s.Search("quick fox")
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Entry.Key != "k1" {
		t.Fatalf("expected k1 ranked first, got %s", results[0].Entry.Key)
	}
}
