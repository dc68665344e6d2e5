package auth

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/carpool/internal/client/models"
)

// MemoryStore keeps tokens for the lifetime of the process only.
type MemoryStore struct {
	mu sync.Mutex
	t  models.Tokens
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(context.Context) (models.Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t, nil
}

func (s *MemoryStore) Save(_ context.Context, t models.Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t = t
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t = models.Tokens{}
	return nil
}
