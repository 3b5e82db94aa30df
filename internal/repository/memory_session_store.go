package repository

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"docfill/internal/model"
)

// MemorySessionStore holds copies of sessions, so callers never share state
// with the store.
type MemorySessionStore struct {
	cache *cache.Cache
}

// NewMemorySessionStore keeps sessions in process memory for ttl after their
// last write and purges expired ones every cleanup interval.
func NewMemorySessionStore(ttl, cleanup time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}
	return &MemorySessionStore{cache: cache.New(ttl, cleanup)}
}

func (s *MemorySessionStore) Get(_ context.Context, id string) (*model.Session, error) {
	if x, found := s.cache.Get(id); found {
		return x.(*model.Session).Clone(), nil
	}
	return nil, nil
}

func (s *MemorySessionStore) Put(_ context.Context, session *model.Session) error {
	s.cache.Set(session.ID, session.Clone(), cache.DefaultExpiration)
	return nil
}

func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.cache.Delete(id)
	return nil
}

func (s *MemorySessionStore) Count() int {
	return s.cache.ItemCount()
}
