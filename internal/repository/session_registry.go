package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tictactoe_relay/internal/domain"

	"github.com/google/uuid"
)

// сколько раз пытаемся сгенерировать свободный идентификатор игры
const maxIDAttempts = 8

var ErrIDExhausted = errors.New("could not allocate a unique game id")

// SessionRegistry сопоставляет идентификатор игры с соединениями участников.
// JoinSession обязан быть линеаризуемым для одного идентификатора:
// из двух одновременных join занять второй слот может только один.
type SessionRegistry interface {
	CreateSession(ctx context.Context, connID string) (*domain.Session, error)
	JoinSession(ctx context.Context, gameID, connID string) (*domain.Session, error)
	LookupSession(ctx context.Context, gameID string) (*domain.Session, error)
	Close() error
}

// Purger реализуют хранилища без встроенного TTL
type Purger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// общие настройки для всех реализаций реестра
type registryClock struct {
	ttl   time.Duration
	now   func() time.Time
	newID func() string
}

func newRegistryClock(ttl time.Duration) registryClock {
	if ttl <= 0 {
		ttl = domain.SessionTTL
	}
	return registryClock{
		ttl:   ttl,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// RunJanitor периодически удаляет просроченные сессии до отмены ctx
func RunJanitor(ctx context.Context, p Purger, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purgeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			removed, err := p.PurgeExpired(purgeCtx)
			cancel()
			if err != nil {
				log.Error("session janitor failed", "error", err)
				continue
			}
			if removed > 0 {
				log.Info("expired sessions purged", "count", removed)
			}
		}
	}
}
