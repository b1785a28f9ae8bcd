package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tictactoe_relay/internal/domain"
	"tictactoe_relay/internal/metrics"
	"tictactoe_relay/internal/protocol"
	"tictactoe_relay/internal/repository"
)

// время на один вызов реестра
const DefaultRegistryTimeout = 5 * time.Second

// Outbound - кадр, который нужно доставить конкретному соединению
type Outbound struct {
	ConnID string
	Frame  []byte
}

// RelayService маршрутизирует сообщения протокола по реестру сессий.
// Сам не хранит состояния партий и не знает о транспорте.
type RelayService struct {
	registry repository.SessionRegistry
	metrics  *metrics.Relay
	timeout  time.Duration
}

func NewRelayService(registry repository.SessionRegistry, m *metrics.Relay) *RelayService {
	return &RelayService{
		registry: registry,
		metrics:  m,
		timeout:  DefaultRegistryTimeout,
	}
}

// Handle обрабатывает один входящий кадр от connID и возвращает исходящие кадры
func (s *RelayService) Handle(ctx context.Context, log *slog.Logger, connID string, frame []byte) []Outbound {
	msg, err := protocol.Decode(frame)
	if err != nil {
		s.metrics.Message("")
		log.Debug("undecodable frame", "error", err)
		return s.reject(connID, "", err)
	}
	s.metrics.Message(string(msg.Type))

	if !msg.Known() {
		log.Debug("ignoring unknown message type", "type", msg.Type)
		return nil
	}
	if err := msg.Validate(); err != nil {
		return s.reject(connID, msg.ID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	switch msg.Type {
	case protocol.TypeStart:
		return s.start(ctx, log, connID)
	case protocol.TypeJoin:
		return s.join(ctx, log, connID, msg.ID)
	case protocol.TypePlay:
		return s.play(ctx, log, connID, msg.ID, frame)
	default:
		// init и error отправляет только relay
		err := fmt.Errorf("%w: %s is not accepted from clients", protocol.ErrProtocolViolation, msg.Type)
		return s.reject(connID, msg.ID, err)
	}
}

func (s *RelayService) start(ctx context.Context, log *slog.Logger, connID string) []Outbound {
	sess, err := s.registry.CreateSession(ctx, connID)
	if err != nil {
		log.Error("create session failed", "error", err)
		return s.reject(connID, "", err)
	}
	s.metrics.SessionsCreated.Inc()
	log.Info("session created", "game_id", sess.GameID)

	return []Outbound{{ConnID: connID, Frame: protocol.MustEncode(protocol.Init(sess.GameID))}}
}

func (s *RelayService) join(ctx context.Context, log *slog.Logger, connID, gameID string) []Outbound {
	sess, err := s.registry.JoinSession(ctx, gameID, connID)
	if err != nil {
		s.metrics.Join(string(protocol.CodeOf(err)))
		s.logRegistryError(log, "join rejected", gameID, err)
		return s.reject(connID, gameID, err)
	}
	s.metrics.Join("ok")
	log.Info("session joined", "game_id", gameID, "state", sess.State())

	frame := protocol.MustEncode(protocol.Join(sess.GameID))
	out := make([]Outbound, 0, 2)
	for _, id := range sess.Participants() {
		out = append(out, Outbound{ConnID: id, Frame: frame})
	}
	return out
}

// play пересылает исходный кадр второму участнику без изменений
func (s *RelayService) play(ctx context.Context, log *slog.Logger, connID, gameID string, frame []byte) []Outbound {
	sess, err := s.registry.LookupSession(ctx, gameID)
	if err != nil {
		s.logRegistryError(log, "play rejected", gameID, err)
		return s.reject(connID, gameID, err)
	}

	if !sess.HasParticipant(connID) {
		log.Warn("play from a non-participant", "game_id", gameID)
		return s.reject(connID, gameID, domain.ErrNotParticipant)
	}
	other, err := sess.Other(connID)
	if err != nil {
		log.Info("play rejected", "game_id", gameID, "reason", err)
		return s.reject(connID, gameID, err)
	}
	s.metrics.PlaysForwarded.Inc()

	return []Outbound{{ConnID: other, Frame: frame}}
}

func (s *RelayService) reject(connID, gameID string, err error) []Outbound {
	msg := protocol.Reject(gameID, err)
	s.metrics.Rejection(string(msg.Code))
	return []Outbound{{ConnID: connID, Frame: protocol.MustEncode(msg)}}
}

func (s *RelayService) logRegistryError(log *slog.Logger, msg, gameID string, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrSessionFull),
		errors.Is(err, domain.ErrSelfJoin):
		log.Info(msg, "game_id", gameID, "reason", err)
	default:
		log.Error(msg, "game_id", gameID, "error", err)
	}
}
