// Package memory keeps sessions in process memory. Data is lost on restart;
// it is meant for local development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"secretsanta/internal/domain"
)

type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: make(map[string]*domain.Session)}
}

func (r *SessionRepository) Save(ctx context.Context, s *domain.Session) error {
	c := *s
	c.Pairings = append([]domain.Pairing(nil), s.Pairings...)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; ok {
		return fmt.Errorf("session %s already exists", s.ID)
	}
	r.sessions[s.ID] = &c
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *s
	c.Pairings = append([]domain.Pairing(nil), s.Pairings...)
	return &c, nil
}

// PurgeExpired deletes sessions whose expiry is before now.
func (r *SessionRepository) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.sessions {
		if s.ExpiresAt.Before(now) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}
