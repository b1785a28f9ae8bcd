package ws

import (
	"context"
	"net/http"

	"tictactoe_relay/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// содержит зависимости для обработки WebSocket
type WSHandler struct {
	Hub           *Hub
	Auth          *service.TokenAuth // nil - авторизация выключена
	AllowedOrigin string
	// контекст жизни соединений; отменяется при остановке сервера
	BaseContext context.Context
}

func NewWSHandler(hub *Hub, auth *service.TokenAuth, allowedOrigin string) *WSHandler {
	return &WSHandler{
		Hub:           hub,
		Auth:          auth,
		AllowedOrigin: allowedOrigin,
		BaseContext:   context.Background(),
	}
}

func (h *WSHandler) HandleWS() gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if h.AllowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == h.AllowedOrigin
		},
	}

	return func(c *gin.Context) {
		player := ""
		if h.Auth != nil {
			token := c.Query("token")
			if token == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "token is required"})
				return
			}
			var err error
			player, err = h.Auth.ParseJWT(token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.Hub.log.Warn("websocket upgrade failed", "error", err)
			return
		}

		log := h.Hub.log
		if player != "" {
			log = log.With("player", player)
		}
		client := NewClient(uuid.NewString(), conn, h.Hub, log)
		go client.Run(h.BaseContext)
	}
}
