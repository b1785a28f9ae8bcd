package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"tictactoe_relay/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// общий набор проверок для всех реализаций SessionRegistry
func runRegistryContract(t *testing.T, r SessionRegistry) {
	t.Helper()
	ctx := context.Background()

	t.Run("create then join", func(t *testing.T) {
		s, err := r.CreateSession(ctx, "conn-a")
		require.NoError(t, err)
		require.NotEmpty(t, s.GameID)
		assert.Equal(t, "conn-a", s.Player1)
		assert.Equal(t, domain.StateAwaitingParticipant2, s.State())

		joined, err := r.JoinSession(ctx, s.GameID, "conn-b")
		require.NoError(t, err)
		assert.Equal(t, s.GameID, joined.GameID)
		assert.Equal(t, "conn-a", joined.Player1)
		assert.Equal(t, "conn-b", joined.Player2)
		assert.Equal(t, domain.StateActive, joined.State())

		got, err := r.LookupSession(ctx, s.GameID)
		require.NoError(t, err)
		assert.Equal(t, "conn-b", got.Player2)
	})

	t.Run("distinct ids", func(t *testing.T) {
		a, err := r.CreateSession(ctx, "conn-a")
		require.NoError(t, err)
		b, err := r.CreateSession(ctx, "conn-a")
		require.NoError(t, err)
		assert.NotEqual(t, a.GameID, b.GameID)
	})

	t.Run("third participant is rejected", func(t *testing.T) {
		s, err := r.CreateSession(ctx, "conn-a")
		require.NoError(t, err)
		_, err = r.JoinSession(ctx, s.GameID, "conn-b")
		require.NoError(t, err)

		_, err = r.JoinSession(ctx, s.GameID, "conn-c")
		require.ErrorIs(t, err, domain.ErrSessionFull)

		got, err := r.LookupSession(ctx, s.GameID)
		require.NoError(t, err)
		assert.Equal(t, "conn-b", got.Player2)
	})

	t.Run("rejoin by same connection is a no-op", func(t *testing.T) {
		s, err := r.CreateSession(ctx, "conn-a")
		require.NoError(t, err)
		_, err = r.JoinSession(ctx, s.GameID, "conn-b")
		require.NoError(t, err)

		again, err := r.JoinSession(ctx, s.GameID, "conn-b")
		require.NoError(t, err)
		assert.Equal(t, "conn-a", again.Player1)
		assert.Equal(t, "conn-b", again.Player2)
	})

	t.Run("creator cannot join own session", func(t *testing.T) {
		s, err := r.CreateSession(ctx, "conn-a")
		require.NoError(t, err)

		_, err = r.JoinSession(ctx, s.GameID, "conn-a")
		require.ErrorIs(t, err, domain.ErrSelfJoin)

		got, err := r.LookupSession(ctx, s.GameID)
		require.NoError(t, err)
		assert.Empty(t, got.Player2)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := r.JoinSession(ctx, "no-such-game", "conn-b")
		require.ErrorIs(t, err, domain.ErrSessionNotFound)

		_, err = r.LookupSession(ctx, "no-such-game")
		require.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("concurrent joins have exactly one winner", func(t *testing.T) {
		s, err := r.CreateSession(ctx, "conn-a")
		require.NoError(t, err)

		const contenders = 16
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			winners []string
			full    int
		)
		for i := 0; i < contenders; i++ {
			wg.Add(1)
			go func(connID string) {
				defer wg.Done()
				_, err := r.JoinSession(ctx, s.GameID, connID)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					winners = append(winners, connID)
				case assert.ErrorIs(t, err, domain.ErrSessionFull):
					full++
				}
			}(fmt.Sprintf("contender-%d", i))
		}
		wg.Wait()

		require.Len(t, winners, 1)
		assert.Equal(t, contenders-1, full)

		got, err := r.LookupSession(ctx, s.GameID)
		require.NoError(t, err)
		assert.Equal(t, winners[0], got.Player2)
	})
}
