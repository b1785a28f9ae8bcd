package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tictactoe_relay/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// отвечает за хранение сессий в postgres
type PostgresSessionRepository struct {
	registryClock
	db *pgxpool.Pool
}

func NewPostgresSessionRepository(db *pgxpool.Pool, ttl time.Duration) *PostgresSessionRepository {
	return &PostgresSessionRepository{
		registryClock: newRegistryClock(ttl),
		db:            db,
	}
}

// создает сессию; просроченная запись с тем же id перезаписывается
func (r *PostgresSessionRepository) CreateSession(ctx context.Context, connID string) (*domain.Session, error) {
	now := r.now()
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		s := domain.NewSession(r.newID(), connID, now, r.ttl)

		tag, err := r.db.Exec(ctx, `
			INSERT INTO game_sessions (game_id, player1, player2, created_at, expires_at)
			VALUES ($1, $2, NULL, $3, $4)
			ON CONFLICT (game_id) DO UPDATE
			SET player1 = EXCLUDED.player1,
			    player2 = NULL,
			    created_at = EXCLUDED.created_at,
			    expires_at = EXCLUDED.expires_at
			WHERE game_sessions.expires_at <= EXCLUDED.created_at
		`, s.GameID, s.Player1, s.CreatedAt, s.ExpiresAt)
		if err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		if tag.RowsAffected() == 0 {
			continue
		}
		return s, nil
	}
	return nil, ErrIDExhausted
}

// занимает второй слот одним условным UPDATE; блокировка строки упорядочивает гонку
func (r *PostgresSessionRepository) JoinSession(ctx context.Context, gameID, connID string) (*domain.Session, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE game_sessions
		SET player2 = $2
		WHERE game_id = $1
		  AND expires_at > $3
		  AND player1 <> $2
		  AND (player2 IS NULL OR player2 = $2)
		RETURNING game_id, player1, player2, created_at, expires_at
	`, gameID, connID, r.now())

	s, err := scanSession(row)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("join session: %w", err)
	}

	// ничего не обновилось: выясняем причину
	existing, err := r.LookupSession(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if existing.Player1 == connID {
		return nil, domain.ErrSelfJoin
	}
	return nil, domain.ErrSessionFull
}

func (r *PostgresSessionRepository) LookupSession(ctx context.Context, gameID string) (*domain.Session, error) {
	row := r.db.QueryRow(ctx, `
		SELECT game_id, player1, player2, created_at, expires_at
		FROM game_sessions
		WHERE game_id = $1 AND expires_at > $2
	`, gameID, r.now())

	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	return s, nil
}

// удаляет просроченные сессии, вызывается janitor'ом
func (r *PostgresSessionRepository) PurgeExpired(ctx context.Context) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM game_sessions WHERE expires_at <= $1`, r.now())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *PostgresSessionRepository) Close() error {
	r.db.Close()
	return nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var (
		s       domain.Session
		player2 *string
	)
	if err := row.Scan(&s.GameID, &s.Player1, &player2, &s.CreatedAt, &s.ExpiresAt); err != nil {
		return nil, err
	}
	if player2 != nil {
		s.Player2 = *player2
	}
	return &s, nil
}
