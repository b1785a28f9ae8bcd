package fanout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

var ErrBadSubject = errors.New("fanout subject must be a non-empty dot-separated prefix")

// DeliverFunc пишет кадр локальному соединению; false - соединения здесь нет
type DeliverFunc func(connID string, frame []byte) bool

// Bridge пересылает кадры между экземплярами relay через NATS.
// Кадр для соединения connID публикуется в <subject>.<connID>.
type Bridge struct {
	nc      *nats.Conn
	subject string
	sub     *nats.Subscription
	log     *slog.Logger
}

func Connect(url, subject string, log *slog.Logger) (*Bridge, error) {
	subject = strings.Trim(subject, ". ")
	if subject == "" || strings.ContainsAny(subject, "*> ") {
		return nil, ErrBadSubject
	}

	nc, err := nats.Connect(
		url,
		nats.Name("tictactoe-relay"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.PingInterval(20*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	return &Bridge{nc: nc, subject: subject, log: log}, nil
}

// SubjectFor - адрес соединения в шине
func (b *Bridge) SubjectFor(connID string) string {
	return b.subject + "." + connID
}

func (b *Bridge) connIDFrom(subject string) (string, bool) {
	connID, ok := strings.CutPrefix(subject, b.subject+".")
	if !ok || connID == "" || strings.Contains(connID, ".") {
		return "", false
	}
	return connID, true
}

// Publish отправляет кадр экземпляру, который держит connID
func (b *Bridge) Publish(ctx context.Context, connID string, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.nc.Publish(b.SubjectFor(connID), frame); err != nil {
		return fmt.Errorf("publish to %s: %w", connID, err)
	}
	return nil
}

// Start подписывается на кадры для всех соединений; чужие соединения молча пропускаются
func (b *Bridge) Start(deliver DeliverFunc) error {
	sub, err := b.nc.Subscribe(b.subject+".*", func(m *nats.Msg) {
		connID, ok := b.connIDFrom(m.Subject)
		if !ok {
			b.log.Debug("fanout: unexpected subject", "subject", m.Subject)
			return
		}
		if deliver(connID, m.Data) {
			b.log.Debug("fanout: delivered", "target", connID)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s.*: %w", b.subject, err)
	}
	b.sub = sub
	return b.nc.Flush()
}

// Close отписывается и дожидается отправки буфера
func (b *Bridge) Close() error {
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
	}
	return b.nc.Drain()
}
