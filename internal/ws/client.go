package ws

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 256
)

// Client - одно websocket-соединение с relay
type Client struct {
	ID   string
	Conn *websocket.Conn
	Hub  *Hub

	send   chan []byte
	log    *slog.Logger
	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func NewClient(id string, conn *websocket.Conn, hub *Hub, log *slog.Logger) *Client {
	return &Client{
		ID:   id,
		Conn: conn,
		Hub:  hub,
		send: make(chan []byte, sendBuffer),
		log:  log.With("conn_id", id),
		done: make(chan struct{}),
	}
}

// Run регистрирует соединение и блокируется до его закрытия
func (c *Client) Run(ctx context.Context) {
	if !c.Hub.register(c) {
		_ = c.Conn.Close()
		return
	}
	go c.writePump()
	c.readPump(ctx)
}

// Enqueue ставит кадр в очередь записи; false, если соединение закрыто или не успевает читать
func (c *Client) Enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		c.log.Warn("send buffer full, dropping frame")
		return false
	}
}

// read
func (c *Client) readPump(ctx context.Context) {
	defer c.disconnect()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, msg, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("read failed", "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		c.Hub.handle(ctx, c, msg)
	}
}

// write
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
		close(c.done)
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Debug("write failed", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// закрывает очередь записи; writePump допишет остаток и закроет соединение
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// disconnect
func (c *Client) disconnect() {
	c.Hub.unregister(c)
	c.closeSend()
	_ = c.Conn.Close()
}
