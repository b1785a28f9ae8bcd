package protocol

import (
	"errors"
	"fmt"

	"tictactoe_relay/internal/domain"
)

// Code - машиночитаемая причина отказа в сообщении error
type Code string

const (
	CodeSessionNotFound   Code = "session_not_found"
	CodeSessionFull       Code = "session_full"
	CodeIncompleteSession Code = "incomplete_session"
	CodeProtocolViolation Code = "protocol_violation"
	CodeInternal          Code = "internal_error"
)

var ErrRelayInternal = errors.New("relay internal error")

// CodeOf сопоставляет ошибку реестра или протокола коду на проводе
func CodeOf(err error) Code {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return CodeSessionNotFound
	case errors.Is(err, domain.ErrSessionFull):
		return CodeSessionFull
	case errors.Is(err, domain.ErrIncompleteSession):
		return CodeIncompleteSession
	case errors.Is(err, domain.ErrNotParticipant),
		errors.Is(err, domain.ErrSelfJoin),
		errors.Is(err, ErrProtocolViolation):
		return CodeProtocolViolation
	default:
		return CodeInternal
	}
}

// Reject собирает отказ для отправителя; внутренние детали наружу не уходят
func Reject(gameID string, err error) Message {
	code := CodeOf(err)
	text := err.Error()
	if code == CodeInternal {
		text = ErrRelayInternal.Error()
	}
	return Message{Type: TypeError, ID: gameID, Code: code, Error: text}
}

// Err превращает сообщение error обратно в ошибку с errors.Is на sentinel
func (m Message) Err() error {
	if m.Type != TypeError {
		return nil
	}

	var kind error
	switch m.Code {
	case CodeSessionNotFound:
		kind = domain.ErrSessionNotFound
	case CodeSessionFull:
		kind = domain.ErrSessionFull
	case CodeIncompleteSession:
		kind = domain.ErrIncompleteSession
	case CodeProtocolViolation:
		kind = ErrProtocolViolation
	default:
		kind = ErrRelayInternal
	}

	if m.Error == "" || m.Error == kind.Error() {
		return kind
	}
	return fmt.Errorf("%w: %s", kind, m.Error)
}
