// Package session provides pluggable session history storage: an
// in-memory map for tests and ephemeral deployments, and an
// atomically-persisted file-backed store for durability across
// restarts.
package session

import (
	"context"
	"time"

	"github.com/relaycore/agentrt/internal/agentrt/model"
)

// Store is the trait every session backend implements.
type Store interface {
	// Get returns the session for key, creating an empty one if it
	// does not yet exist.
	Get(ctx context.Context, key string) (*model.Session, error)
	// Append adds msg to the session's history and persists the
	// update.
	Append(ctx context.Context, key string, msg model.Message) error
	// Trim keeps only the last keep messages in the session,
	// preserving a leading system message if present.
	Trim(ctx context.Context, key string, keep int) error
	// Delete removes a session entirely.
	Delete(ctx context.Context, key string) error
}

func newSession(key string) *model.Session {
	now := time.Now()
	return &model.Session{
		Key:       key,
		Messages:  nil,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// trimKeep returns the trimmed message slice for Trim, keeping a
// leading system message pinned regardless of keep count.
func trimKeep(messages []model.Message, keep int) []model.Message {
	if keep < 0 {
		keep = 0
	}
	if len(messages) <= keep {
		return messages
	}
	var pinned *model.Message
	if len(messages) > 0 && messages[0].Role == model.RoleSystem {
		m := messages[0]
		pinned = &m
	}
	tail := messages[len(messages)-keep:]
	if pinned == nil {
		out := make([]model.Message, len(tail))
		copy(out, tail)
		return out
	}
	out := make([]model.Message, 0, len(tail)+1)
	out = append(out, *pinned)
	for _, m := range tail {
		if &m == pinned {
			continue
		}
		out = append(out, m)
	}
	return out
}
