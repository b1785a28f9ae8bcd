package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"tictactoe_relay/internal/domain"
	"tictactoe_relay/internal/repository"

	"github.com/gin-gonic/gin"
)

// зависимости http-ручек relay
type Handler struct {
	Registry repository.SessionRegistry
	Version  string
	// проверка готовности хранилища; nil - всегда готово
	Ping func(ctx context.Context) error
}

func NewHandler(registry repository.SessionRegistry, version string) *Handler {
	return &Handler{Registry: registry, Version: version}
}

// живость процесса и доступность реестра
func (h *Handler) Health(c *gin.Context) {
	if h.Ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unavailable",
				"version": h.Version,
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": h.Version,
	})
}

// состояние сессии без идентификаторов соединений
func (h *Handler) GetSession(c *gin.Context) {
	gameID := c.Param("id")

	sess, err := h.Registry.LookupSession(c.Request.Context(), gameID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registry error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":           sess.GameID,
		"state":        sess.State(),
		"participants": len(sess.Participants()),
		"created_at":   sess.CreatedAt,
		"expires_at":   sess.ExpiresAt,
	})
}
