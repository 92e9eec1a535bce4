package session

import (
	"context"
	"sync"
	"time"

	"github.com/relaycore/agentrt/internal/agentrt/model"
)

// MemoryStore is a process-local Store backed by a RWMutex-guarded
// map. Sessions do not survive a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*model.Session)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*model.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[key]
	s.mu.RUnlock()
	if ok {
		return sess.Clone(), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok = s.sessions[key]; ok {
		return sess.Clone(), nil
	}
	sess = newSession(key)
	s.sessions[key] = sess
	return sess.Clone(), nil
}

func (s *MemoryStore) Append(_ context.Context, key string, msg model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[key]
	if !ok {
		sess = newSession(key)
		s.sessions[key] = sess
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	sess.Messages = append(sess.Messages, msg)
	sess.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) Trim(_ context.Context, key string, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[key]
	if !ok {
		return nil
	}
	sess.Messages = trimKeep(sess.Messages, keep)
	sess.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
	return nil
}
