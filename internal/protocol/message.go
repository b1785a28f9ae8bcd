package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Type - тег сообщения в поле "type"
type Type string

const (
	TypeStart Type = "start"
	TypeInit  Type = "init"
	TypeJoin  Type = "join"
	TypePlay  Type = "play"
	TypeError Type = "error"
)

var ErrProtocolViolation = errors.New("protocol violation")

// Message - один json-объект в текстовом фрейме websocket
type Message struct {
	Type  Type   `json:"type"`
	ID    string `json:"id,omitempty"`
	Tile  string `json:"tile,omitempty"`
	Code  Code   `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

func Start() Message {
	return Message{Type: TypeStart}
}

func Init(gameID string) Message {
	return Message{Type: TypeInit, ID: gameID}
}

func Join(gameID string) Message {
	return Message{Type: TypeJoin, ID: gameID}
}

func Play(gameID, tile string) Message {
	return Message{Type: TypePlay, ID: gameID, Tile: tile}
}

// Known сообщает, знает ли протокол этот тип; неизвестные типы игнорируются
func (m Message) Known() bool {
	switch m.Type {
	case TypeStart, TypeInit, TypeJoin, TypePlay, TypeError:
		return true
	}
	return false
}

// Validate проверяет обязательные поля
func (m Message) Validate() error {
	switch m.Type {
	case TypeInit, TypeJoin:
		if m.ID == "" {
			return fmt.Errorf("%w: %s without id", ErrProtocolViolation, m.Type)
		}
	case TypePlay:
		if m.ID == "" {
			return fmt.Errorf("%w: play without id", ErrProtocolViolation)
		}
		if m.Tile == "" {
			return fmt.Errorf("%w: play without tile", ErrProtocolViolation)
		}
	case TypeError:
		if m.Code == "" {
			return fmt.Errorf("%w: error without code", ErrProtocolViolation)
		}
	}
	return nil
}

// Decode разбирает фрейм; битый json и пустой type считаются нарушением протокола
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrProtocolViolation, err)
	}
	if m.Type == "" {
		return Message{}, fmt.Errorf("%w: missing type", ErrProtocolViolation)
	}
	return m, nil
}

func Encode(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// MustEncode для сообщений, собранных конструкторами пакета
func MustEncode(m Message) []byte {
	b, err := Encode(m)
	if err != nil {
		panic(err)
	}
	return b
}
