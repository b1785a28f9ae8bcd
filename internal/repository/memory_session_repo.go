package repository

import (
	"context"
	"sync"
	"time"

	"tictactoe_relay/internal/domain"
)

// хранит сессии в памяти процесса; годится для одного экземпляра relay
type MemorySessionRepository struct {
	registryClock
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func NewMemorySessionRepository(ttl time.Duration) *MemorySessionRepository {
	return &MemorySessionRepository{
		registryClock: newRegistryClock(ttl),
		sessions:      make(map[string]*domain.Session),
	}
}

func (r *MemorySessionRepository) CreateSession(ctx context.Context, connID string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := r.newID()
		if existing, ok := r.sessions[id]; ok && !existing.Expired(now) {
			continue
		}
		s := domain.NewSession(id, connID, now, r.ttl)
		r.sessions[id] = s
		return copySession(s), nil
	}
	return nil, ErrIDExhausted
}

func (r *MemorySessionRepository) JoinSession(ctx context.Context, gameID, connID string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.liveLocked(gameID)
	if err != nil {
		return nil, err
	}

	switch {
	case s.Player1 == connID:
		return nil, domain.ErrSelfJoin
	case s.Player2 == "":
		s.Player2 = connID
	case s.Player2 == connID:
		// повторный join тем же соединением ничего не меняет
	default:
		return nil, domain.ErrSessionFull
	}
	return copySession(s), nil
}

func (r *MemorySessionRepository) LookupSession(ctx context.Context, gameID string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.liveLocked(gameID)
	if err != nil {
		return nil, err
	}
	return copySession(s), nil
}

// PurgeExpired удаляет все просроченные записи
func (r *MemorySessionRepository) PurgeExpired(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for id, s := range r.sessions {
		if s.Expired(now) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Len возвращает число хранимых записей, включая еще не удаленные просроченные
func (r *MemorySessionRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *MemorySessionRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = make(map[string]*domain.Session)
	return nil
}

// вызывающий должен удерживать r.mu
func (r *MemorySessionRepository) liveLocked(gameID string) (*domain.Session, error) {
	s, ok := r.sessions[gameID]
	if !ok || s.Expired(r.now()) {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

// наружу отдаем только копии: запись принадлежит реестру
func copySession(s *domain.Session) *domain.Session {
	cp := *s
	return &cp
}
