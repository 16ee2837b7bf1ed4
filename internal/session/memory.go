package session

import (
	"context"
	"sync"

	"github.com/ACHamster/travel-diary-mobile/internal/apperrors"
	"github.com/ACHamster/travel-diary-mobile/internal/models"
)

// MemoryStore keeps the session in process memory only
type MemoryStore struct {
	mu      sync.RWMutex
	session models.Session
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Save(_ context.Context, s models.Session) error {
	if !s.Valid() {
		return apperrors.ErrPartialSession
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = s
	return nil
}

func (m *MemoryStore) Load(_ context.Context) (models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session, nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = models.Session{}
	return nil
}

func (m *MemoryStore) MergeProfile(_ context.Context, patch models.UserProfile) (models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.IsZero() {
		return models.UserProfile{}, apperrors.ErrNotLoggedIn
	}
	m.session.Profile = m.session.Profile.Merge(patch)
	return m.session.Profile, nil
}
