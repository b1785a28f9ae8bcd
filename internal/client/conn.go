package client

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"tictactoe_relay/internal/protocol"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

type inbound struct {
	msg protocol.Message
	err error
}

// WSConn - Conn поверх gorilla/websocket с одним читающим горутином
type WSConn struct {
	ws       *websocket.Conn
	incoming chan inbound
	readErr  error

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Dial подключается к relay; token добавляется в query, если задан
func Dial(ctx context.Context, rawURL, token string) (*WSConn, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse relay url: %w", err)
	}
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}

	c := &WSConn{
		ws:       ws,
		incoming: make(chan inbound, 16),
	}
	go c.readLoop()
	return c, nil
}

func (c *WSConn) readLoop() {
	defer close(c.incoming)
	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			c.readErr = fmt.Errorf("%w: %v", ErrConnectionClosed, err)
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		msg, err := protocol.Decode(data)
		c.incoming <- inbound{msg: msg, err: err}
	}
}

func (c *WSConn) Send(ctx context.Context, msg protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.ws.SetWriteDeadline(deadline)
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *WSConn) Receive(ctx context.Context) (protocol.Message, error) {
	select {
	case in, ok := <-c.incoming:
		if !ok {
			return protocol.Message{}, c.readErr
		}
		return in.msg, in.err
	case <-ctx.Done():
		return protocol.Message{}, ctx.Err()
	}
}

// Close отправляет close-фрейм и закрывает соединение
func (c *WSConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}
