package store

import (
	"context"
	"sync"
)

// Persisted entry names. The four entries are written and cleared as a group.
const (
	KeyAccessToken  = "auth_token"
	KeyRefreshToken = "auth_refresh_token"
	KeyExpiresAt    = "auth_expires_at"
	KeyUser         = "auth_user"
)

// Keys lists every entry a session owns.
var Keys = []string{KeyAccessToken, KeyRefreshToken, KeyExpiresAt, KeyUser}

// Entries holds persisted values by key. Absent keys are not stored.
type Entries map[string]string

// Clone returns a copy that is safe to hand to another goroutine.
func (e Entries) Clone() Entries {
	out := make(Entries, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Store is durable client-side storage for the session entries. Only the
// session manager writes to it.
//
// Save replaces the whole group: keys missing from entries are removed.
// Load returns an empty, non-nil map when nothing is stored.
type Store interface {
	Load(ctx context.Context) (Entries, error)
	Save(ctx context.Context, entries Entries) error
	Clear(ctx context.Context) error
	Close() error
}

var _ Store = (*Memory)(nil)

// Memory keeps entries in process memory. Nothing survives a restart.
type Memory struct {
	mu      sync.RWMutex
	entries Entries
}

func NewMemory() *Memory {
	return &Memory{entries: Entries{}}
}

func (m *Memory) Load(_ context.Context) (Entries, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries.Clone(), nil
}

func (m *Memory) Save(_ context.Context, entries Entries) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = entries.Clone()
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = Entries{}
	return nil
}

func (m *Memory) Close() error {
	return nil
}
