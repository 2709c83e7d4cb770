package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/filecheck/internal/core"
)

// Memory keeps verdicts in process memory. Used for dry runs and tests;
// nothing survives a restart.
type Memory struct {
	mu      sync.RWMutex
	entries []Entry
	now     func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

// Record appends one verdict.
func (m *Memory) Record(ctx context.Context, rec core.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, newEntry(ctx, rec, uuid.NewString(), m.now().UTC()))
	return nil
}

// List returns matching verdicts, newest first.
func (m *Memory) List(_ context.Context, f Filter) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit := f.limit()
	var out []Entry
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if f.matches(m.entries[i]) {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

// Entries returns every verdict in insertion order.
func (m *Memory) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }

// Close is a no-op.
func (m *Memory) Close() error { return nil }
