package domain

import (
	"errors"
	"time"
)

// Сессия живет фиксированное время независимо от того, закончилась ли партия.
// Так ограничивается рост хранилища из-за брошенных игр.
const SessionTTL = 6 * time.Hour

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionFull       = errors.New("session already has two participants")
	ErrIncompleteSession = errors.New("session has fewer than two participants")
	ErrNotParticipant    = errors.New("connection is not a participant of the session")
	ErrSelfJoin          = errors.New("connection already owns the session")
)

// SessionState - состояние сессии с точки зрения relay.
// Завершение партии relay не отслеживает, его выводят клиенты.
type SessionState string

const (
	StateAwaitingParticipant2 SessionState = "awaiting_participant2"
	StateActive               SessionState = "active"
)

// Session - запись реестра: идентификатор игры и соединения участников
type Session struct {
	GameID    string    `db:"game_id" json:"game_id"`
	Player1   string    `db:"player1" json:"player1"`
	Player2   string    `db:"player2" json:"player2,omitempty"` // пусто до join
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
}

// создает запись для первого участника
func NewSession(gameID, player1 string, now time.Time, ttl time.Duration) *Session {
	return &Session{
		GameID:    gameID,
		Player1:   player1,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func (s *Session) State() SessionState {
	if s.Player2 == "" {
		return StateAwaitingParticipant2
	}
	return StateActive
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// HasParticipant сообщает, принадлежит ли соединение сессии
func (s *Session) HasParticipant(connID string) bool {
	return connID != "" && (connID == s.Player1 || connID == s.Player2)
}

// Other возвращает соединение второго участника относительно sender
func (s *Session) Other(sender string) (string, error) {
	if s.Player2 == "" {
		return "", ErrIncompleteSession
	}
	switch sender {
	case s.Player1:
		return s.Player2, nil
	case s.Player2:
		return s.Player1, nil
	default:
		return "", ErrNotParticipant
	}
}

// Participants возвращает оба соединения; второе может отсутствовать
func (s *Session) Participants() []string {
	if s.Player2 == "" {
		return []string{s.Player1}
	}
	return []string{s.Player1, s.Player2}
}
