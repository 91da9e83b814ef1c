package room

import (
	"context"
	"sync"
)

// Store holds the authoritative session per room id. Get returns nil with
// no error when the room is absent. List exists for the disconnect sweep.
type Store interface {
	Get(ctx context.Context, roomID string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, roomID string) error
	List(ctx context.Context) ([]*Session, error)
}

// memstore is the default in-process store.
type memstore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemoryStore() Store {
	return &memstore{sessions: make(map[string]*Session)}
}

func (m *memstore) Get(ctx context.Context, roomID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[roomID].Clone(), nil
}

func (m *memstore) Save(ctx context.Context, s *Session) error {
	if s == nil {
		return nil
	}
	m.mu.Lock()
	m.sessions[s.RoomID] = s.Clone()
	m.mu.Unlock()
	return nil
}

func (m *memstore) Delete(ctx context.Context, roomID string) error {
	m.mu.Lock()
	delete(m.sessions, roomID)
	m.mu.Unlock()
	return nil
}

func (m *memstore) List(ctx context.Context) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Clone())
	}
	return out, nil
}
