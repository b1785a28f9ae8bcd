package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tictactoe_relay/internal/game"
	"tictactoe_relay/internal/protocol"
)

var (
	ErrInvalidInput     = errors.New("invalid move input")
	ErrConnectionClosed = errors.New("relay connection closed")
)

// Conn - канал к relay; Receive блокируется до следующего сообщения
type Conn interface {
	Send(ctx context.Context, msg protocol.Message) error
	Receive(ctx context.Context) (protocol.Message, error)
	Close() error
}

// MoveSource выдает ход локального игрока.
// retry=true, если предыдущий ввод был отвергнут.
type MoveSource interface {
	NextMove(ctx context.Context, ts game.TurnState, retry bool) (game.Move, error)
}

// Phase - этап жизненного цикла клиента
type Phase int

const (
	PhaseConnecting Phase = iota
	PhaseWaitingForOpponent
	PhaseJoiningGame
	PhaseInTurn
	PhaseWaitingForTurn
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseConnecting:
		return "connecting"
	case PhaseWaitingForOpponent:
		return "waiting_for_opponent"
	case PhaseJoiningGame:
		return "joining_game"
	case PhaseInTurn:
		return "in_turn"
	case PhaseWaitingForTurn:
		return "waiting_for_turn"
	case PhaseFinished:
		return "finished"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Event сообщает о смене этапа или хода
type Event struct {
	Phase  Phase
	GameID string
	Self   game.Mark
	Board  game.Board
	// последний примененный ход; nil, если событие не о ходе
	Move *game.Move
	By   game.Mark
}

// Result - итог партии с точки зрения этого клиента
type Result struct {
	game.Result
	GameID string
	Self   game.Mark
}

func (r Result) Won() bool {
	return r.Outcome == game.Win && r.Winner == r.Self
}

// Orchestrator ведет одну партию от подключения до конца.
// Не потокобезопасен: один Run на экземпляр.
type Orchestrator struct {
	conn  Conn
	moves MoveSource
	log   *slog.Logger

	// OnEvent вызывается синхронно из Run
	OnEvent func(Event)

	gameID string
	self   game.Mark
	phase  Phase
	ts     game.TurnState
}

func NewOrchestrator(conn Conn, moves MoveSource, log *slog.Logger) *Orchestrator {
	return &Orchestrator{conn: conn, moves: moves, log: log}
}

// Run играет партию. Пустой gameID - создать новую игру (ходит первым),
// иначе присоединиться к существующей.
func (o *Orchestrator) Run(ctx context.Context, gameID string) (Result, error) {
	o.setPhase(PhaseConnecting)

	var err error
	if gameID == "" {
		err = o.initiate(ctx)
	} else {
		err = o.join(ctx, gameID)
	}
	if err != nil {
		return Result{}, err
	}

	o.ts = game.NewTurnState(o.self)
	outcome := game.Ongoing
	var lastMover game.Mark

	for outcome == game.Ongoing {
		if o.ts.MyTurn() {
			o.setPhase(PhaseInTurn)
			if err := o.playOwnTurn(ctx); err != nil {
				return Result{}, err
			}
			lastMover = o.self
		} else {
			o.setPhase(PhaseWaitingForTurn)
			if err := o.awaitOpponentTurn(ctx); err != nil {
				return Result{}, err
			}
			lastMover = o.self.Opponent()
		}
		outcome = game.IsTerminal(o.ts.Board, lastMover)
	}

	o.setPhase(PhaseFinished)
	res := Result{
		Result: game.Result{Outcome: outcome, Board: o.ts.Board},
		GameID: o.gameID,
		Self:   o.self,
	}
	if outcome == game.Win {
		res.Winner = lastMover
	}
	o.log.Info("game finished", "game_id", o.gameID, "outcome", outcome, "winner", res.Winner)
	return res, nil
}

func (o *Orchestrator) initiate(ctx context.Context) error {
	o.self = game.MarkX
	if err := o.conn.Send(ctx, protocol.Start()); err != nil {
		return fmt.Errorf("send start: %w", err)
	}

	msg, err := o.await(ctx, func(m protocol.Message) bool {
		return m.Type == protocol.TypeInit
	})
	if err != nil {
		return fmt.Errorf("await init: %w", err)
	}
	o.gameID = msg.ID
	o.log.Info("game created", "game_id", o.gameID)
	o.setPhase(PhaseWaitingForOpponent)

	if _, err := o.await(ctx, o.isJoin); err != nil {
		return fmt.Errorf("await opponent: %w", err)
	}
	return nil
}

func (o *Orchestrator) join(ctx context.Context, gameID string) error {
	o.self = game.MarkO
	o.gameID = gameID
	o.setPhase(PhaseJoiningGame)

	if err := o.conn.Send(ctx, protocol.Join(gameID)); err != nil {
		return fmt.Errorf("send join: %w", err)
	}
	if _, err := o.await(ctx, o.isJoin); err != nil {
		return fmt.Errorf("join %s: %w", gameID, err)
	}
	o.log.Info("joined game", "game_id", gameID)
	return nil
}

func (o *Orchestrator) playOwnTurn(ctx context.Context) error {
	retry := false
	for {
		mv, err := o.moves.NextMove(ctx, o.ts, retry)
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				retry = true
				continue
			}
			return fmt.Errorf("next move: %w", err)
		}

		next, err := game.ApplyMove(o.ts.State, mv)
		if err != nil {
			if errors.Is(err, game.ErrOutOfBounds) || errors.Is(err, game.ErrCellOccupied) {
				o.log.Debug("move rejected locally", "tile", mv.Tile(), "error", err)
				retry = true
				continue
			}
			return err
		}

		if err := o.conn.Send(ctx, protocol.Play(o.gameID, mv.Tile())); err != nil {
			return fmt.Errorf("send play: %w", err)
		}
		o.ts.State = next
		o.emitMove(mv, o.self)
		return nil
	}
}

func (o *Orchestrator) awaitOpponentTurn(ctx context.Context) error {
	msg, err := o.await(ctx, func(m protocol.Message) bool {
		return m.Type == protocol.TypePlay && m.ID == o.gameID
	})
	if err != nil {
		return fmt.Errorf("await opponent move: %w", err)
	}

	mv, err := game.ParseTile(msg.Tile)
	if err != nil {
		return fmt.Errorf("%w: opponent tile %q: %v", protocol.ErrProtocolViolation, msg.Tile, err)
	}
	next, err := game.ApplyMove(o.ts.State, mv)
	if err != nil {
		return fmt.Errorf("%w: opponent move %s: %v", protocol.ErrProtocolViolation, mv.Tile(), err)
	}

	o.ts.State = next
	o.emitMove(mv, o.self.Opponent())
	return nil
}

func (o *Orchestrator) isJoin(m protocol.Message) bool {
	return m.Type == protocol.TypeJoin && m.ID == o.gameID
}

// await читает сообщения, пока want не вернет true.
// Сообщение error от relay завершает ожидание ошибкой.
func (o *Orchestrator) await(ctx context.Context, want func(protocol.Message) bool) (protocol.Message, error) {
	for {
		msg, err := o.conn.Receive(ctx)
		if err != nil {
			return protocol.Message{}, err
		}
		if msg.Type == protocol.TypeError {
			return protocol.Message{}, msg.Err()
		}
		if !msg.Known() {
			o.log.Debug("skipping unknown message", "type", msg.Type)
			continue
		}
		if err := msg.Validate(); err != nil {
			return protocol.Message{}, err
		}
		if want(msg) {
			return msg, nil
		}
		o.log.Debug("skipping message", "type", msg.Type, "game_id", msg.ID, "phase", o.phase)
	}
}

func (o *Orchestrator) setPhase(p Phase) {
	o.phase = p
	o.emit(Event{Phase: p, GameID: o.gameID, Self: o.self, Board: o.ts.Board})
}

func (o *Orchestrator) emitMove(mv game.Move, by game.Mark) {
	o.emit(Event{Phase: o.phase, GameID: o.gameID, Self: o.self, Board: o.ts.Board, Move: &mv, By: by})
}

func (o *Orchestrator) emit(ev Event) {
	if o.OnEvent != nil {
		o.OnEvent(ev)
	}
}
