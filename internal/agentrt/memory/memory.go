// Package memory implements the agent's long-term keyed memory store:
// a JSON file-backed record set searched through a pluggable Scorer
// trait, persisted with an atomic tmp-file-then-rename write and a
// tool-shaped access surface for memory lookups.
package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/relaycore/agentrt/internal/agentrt/model"
)

// Scorer is the trait pluggable search ranking algorithms implement.
type Scorer interface {
	Name() string
	// Score returns a relevance score in [0, 1] of chunk against query.
	Score(chunk, query string) float64
	// ScoreBatch scores query against many chunks in one call.
	ScoreBatch(chunks []string, query string) []float64
	// Index informs the scorer of (or re-indexes) a document under key.
	Index(key, text string)
	// Remove drops a document's contribution from the scorer's state.
	Remove(key string)
}

// Result is one ranked search hit.
type Result struct {
	Entry model.MemoryEntry
	Score float64
}

// Store is the keyed long-term memory record set.
type Store struct {
	mu      sync.RWMutex
	path    string
	entries map[string]model.MemoryEntry
	scorer  Scorer
}

// New creates a Store backed by path, using scorer for Search. If the
// file does not yet exist, the store starts empty.
func New(path string, scorer Scorer) (*Store, error) {
	s := &Store{path: path, entries: make(map[string]model.MemoryEntry), scorer: scorer}
	if err := s.load(); err != nil {
		return nil, err
	}
	for key, entry := range s.entries {
		scorer.Index(key, entry.Value)
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("memory: read store: %w", err)
	}
	var entries []model.MemoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		// Tolerate a malformed snapshot rather than failing startup.
		return nil
	}
	for _, e := range entries {
		s.entries[e.Key] = e
	}
	return nil
}

func (s *Store) persist() error {
	entries := s.Export()
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("memory: marshal snapshot: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("memory: write temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("memory: rename into place: %w", err)
	}
	return nil
}

// Set creates or replaces the entry at key and re-indexes it.
func (s *Store) Set(key, value, category string, tags []string, importance float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	existing, ok := s.entries[key]
	entry := model.MemoryEntry{
		Key:        key,
		Value:      value,
		Category:   category,
		Tags:       tags,
		Importance: importance,
		UpdatedAt:  now,
	}
	if ok {
		entry.CreatedAt = existing.CreatedAt
	} else {
		entry.CreatedAt = now
	}
	s.entries[key] = entry
	s.scorer.Index(key, value)
	return s.persist()
}

// Get returns the entry at key.
func (s *Store) Get(key string) (model.MemoryEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	return entry, ok
}

// GetReadonly is an alias of Get kept distinct for callers that want
// to express intent not to mutate afterward.
func (s *Store) GetReadonly(key string) (model.MemoryEntry, bool) {
	return s.Get(key)
}

// Delete removes the entry at key and drops its scorer contribution.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		return nil
	}
	delete(s.entries, key)
	s.scorer.Remove(key)
	return s.persist()
}

// Search ranks all entries against query using the configured scorer,
// highest score first.
func (s *Store) Search(query string) []Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]Result, 0, len(s.entries))
	for _, entry := range s.entries {
		score := s.scorer.Score(entry.Value, query)
		results = append(results, Result{Entry: entry, Score: score})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// ListAll returns every entry, unordered.
func (s *Store) ListAll() []model.MemoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.MemoryEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out
}

// ListByCategory returns every entry whose Category matches.
func (s *Store) ListByCategory(category string) []model.MemoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.MemoryEntry
	for _, e := range s.entries {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

// Categories returns the distinct set of categories present.
func (s *Store) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, e := range s.entries {
		if e.Category == "" || seen[e.Category] {
			continue
		}
		seen[e.Category] = true
		out = append(out, e.Category)
	}
	sort.Strings(out)
	return out
}

// Summary is a coarse snapshot of the store's size.
type Summary struct {
	EntryCount      int
	CategoryCount   int
	AverageImportance float64
}

// Summary computes aggregate statistics over the current entries.
func (s *Store) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total float64
	categories := make(map[string]bool)
	for _, e := range s.entries {
		total += e.Importance
		if e.Category != "" {
			categories[e.Category] = true
		}
	}
	sum := Summary{EntryCount: len(s.entries), CategoryCount: len(categories)}
	if len(s.entries) > 0 {
		sum.AverageImportance = total / float64(len(s.entries))
	}
	return sum
}

// Export serializes every entry to a snapshot slice, sorted by key for
// deterministic output.
func (s *Store) Export() []model.MemoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.MemoryEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Import loads entries into the store. When overwrite is false,
// entries whose key already exists are skipped.
func (s *Store) Import(entries []model.MemoryEntry, overwrite bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if _, exists := s.entries[e.Key]; exists && !overwrite {
			continue
		}
		s.entries[e.Key] = e
		s.scorer.Index(e.Key, e.Value)
	}
	return s.persist()
}
