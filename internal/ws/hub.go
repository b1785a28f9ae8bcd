package ws

import (
	"context"
	"log/slog"
	"sync"

	"tictactoe_relay/internal/logger"
	"tictactoe_relay/internal/metrics"
	"tictactoe_relay/internal/service"
)

// Bridge доставляет кадры соединениям других экземпляров relay
type Bridge interface {
	Publish(ctx context.Context, connID string, frame []byte) error
}

// Hub держит соединения этого экземпляра и доставляет им кадры
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	closed  bool

	relay   *service.RelayService
	metrics *metrics.Relay
	bridge  Bridge
	log     *slog.Logger
}

func NewHub(relay *service.RelayService, m *metrics.Relay, log *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		relay:   relay,
		metrics: m,
		log:     log,
	}
}

// SetBridge подключает межинстансовую доставку; вызывать до приема соединений
func (h *Hub) SetBridge(b Bridge) {
	h.bridge = b
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.clients[c.ID] = c
	h.metrics.ConnectionsActive.Inc()
	c.log.Debug("connection registered")
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cur, ok := h.clients[c.ID]; ok && cur == c {
		delete(h.clients, c.ID)
		h.metrics.ConnectionsActive.Dec()
		c.log.Debug("connection unregistered")
	}
}

// Len возвращает число локальных соединений
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) handle(ctx context.Context, c *Client, frame []byte) {
	ctx = logger.IntoContext(ctx, c.log)
	for _, out := range h.relay.Handle(ctx, c.log, c.ID, frame) {
		h.Deliver(ctx, out.ConnID, out.Frame)
	}
}

// Deliver отправляет кадр соединению: локально, через bridge или никак
func (h *Hub) Deliver(ctx context.Context, connID string, frame []byte) {
	if h.DeliverLocal(connID, frame) {
		return
	}

	if h.bridge != nil {
		err := h.bridge.Publish(ctx, connID, frame)
		if err == nil {
			return
		}
		logger.FromContext(ctx).Warn("bridge publish failed", "target", connID, "error", err)
	}

	h.metrics.Undeliverable.Inc()
	logger.FromContext(ctx).Warn("target connection is gone", "target", connID)
}

// DeliverLocal пишет кадр соединению, если оно принадлежит этому экземпляру
func (h *Hub) DeliverLocal(connID string, frame []byte) bool {
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return c.Enqueue(frame)
}

// Shutdown закрывает все соединения и ждет завершения их writePump
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.closeSend()
	}
	for _, c := range clients {
		select {
		case <-c.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	h.log.Info("hub stopped", "connections", len(clients))
	return nil
}
