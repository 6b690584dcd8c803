package journal

import (
	"context"

	"github.com/google/uuid"
	"github.com/pyropy/bufwriter/core/model"
	concurrentMap "github.com/pyropy/bufwriter/lib/concurrent_map"
)

// MemoryStore keeps sessions for the lifetime of the process
type MemoryStore struct {
	Sessions *concurrentMap.Map[uuid.UUID, model.Session]
}

var _ Journal = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Sessions: concurrentMap.NewMap[uuid.UUID, model.Session](),
	}
}

func (m *MemoryStore) Put(_ context.Context, session model.Session) error {
	m.Sessions.Set(session.ID, session)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (*model.Session, error) {
	session, exists := m.Sessions.Get(id)
	if !exists {
		return nil, ErrSessionNotFound
	}

	return session, nil
}

func (m *MemoryStore) All(_ context.Context) ([]*model.Session, error) {
	sessions := make([]*model.Session, 0, m.Sessions.Len())
	m.Sessions.Range(func(_ uuid.UUID, v model.Session) bool {
		session := v
		sessions = append(sessions, &session)
		return true
	})

	sortSessions(sessions)
	return sessions, nil
}
