package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"tictactoe_relay/internal/domain"

	"github.com/redis/go-redis/v9"
)

// статусы, которые возвращают lua-скрипты
const (
	scriptOK        = 1
	scriptCollision = 0
	scriptNotFound  = -1
	scriptFull      = -2
	scriptSelfJoin  = -3
)

// создает хэш сессии, только если ключ свободен; срок жизни ставится атомарно
var createSessionScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], 'game_id', ARGV[1], 'player1', ARGV[2], 'player2', '', 'created_at', ARGV[3], 'expires_at', ARGV[4])
redis.call('PEXPIREAT', KEYS[1], ARGV[4])
return 1
`)

// занимает второй слот; проверка и запись выполняются одним скриптом
var joinSessionScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
local p1 = redis.call('HGET', KEYS[1], 'player1')
if p1 == ARGV[1] then
	return -3
end
local p2 = redis.call('HGET', KEYS[1], 'player2')
if p2 and p2 ~= '' then
	if p2 == ARGV[1] then
		return 1
	end
	return -2
end
redis.call('HSET', KEYS[1], 'player2', ARGV[1])
return 1
`)

// хранит сессии в redis; истечение обеспечивает сам redis через PEXPIREAT
type RedisSessionRepository struct {
	registryClock
	rdb    *redis.Client
	prefix string
}

func NewRedisSessionRepository(rdb *redis.Client, prefix string, ttl time.Duration) *RedisSessionRepository {
	if prefix == "" {
		prefix = "ttt"
	}
	return &RedisSessionRepository{
		registryClock: newRegistryClock(ttl),
		rdb:           rdb,
		prefix:        prefix,
	}
}

func (r *RedisSessionRepository) key(gameID string) string {
	return r.prefix + ":session:" + gameID
}

func (r *RedisSessionRepository) CreateSession(ctx context.Context, connID string) (*domain.Session, error) {
	now := r.now()
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		s := domain.NewSession(r.newID(), connID, now, r.ttl)

		status, err := createSessionScript.Run(ctx, r.rdb, []string{r.key(s.GameID)},
			s.GameID, s.Player1, s.CreatedAt.UnixMilli(), s.ExpiresAt.UnixMilli(),
		).Int()
		if err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		if status == scriptCollision {
			continue
		}
		return s, nil
	}
	return nil, ErrIDExhausted
}

func (r *RedisSessionRepository) JoinSession(ctx context.Context, gameID, connID string) (*domain.Session, error) {
	status, err := joinSessionScript.Run(ctx, r.rdb, []string{r.key(gameID)}, connID).Int()
	if err != nil {
		return nil, fmt.Errorf("join session: %w", err)
	}

	switch status {
	case scriptOK:
		return r.LookupSession(ctx, gameID)
	case scriptNotFound:
		return nil, domain.ErrSessionNotFound
	case scriptFull:
		return nil, domain.ErrSessionFull
	case scriptSelfJoin:
		return nil, domain.ErrSelfJoin
	default:
		return nil, fmt.Errorf("join session: unexpected script status %d", status)
	}
}

func (r *RedisSessionRepository) LookupSession(ctx context.Context, gameID string) (*domain.Session, error) {
	fields, err := r.rdb.HGetAll(ctx, r.key(gameID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrSessionNotFound
	}

	s, err := sessionFromHash(fields)
	if err != nil {
		return nil, err
	}
	// ключ мог еще не исчезнуть, если часы redis отстают
	if s.Expired(r.now()) {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

func (r *RedisSessionRepository) Close() error {
	return r.rdb.Close()
}

func sessionFromHash(fields map[string]string) (*domain.Session, error) {
	createdMs, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode session created_at: %w", err)
	}
	expiresMs, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode session expires_at: %w", err)
	}
	return &domain.Session{
		GameID:    fields["game_id"],
		Player1:   fields["player1"],
		Player2:   fields["player2"],
		CreatedAt: time.UnixMilli(createdMs).UTC(),
		ExpiresAt: time.UnixMilli(expiresMs).UTC(),
	}, nil
}
