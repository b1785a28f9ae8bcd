package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"tictactoe_relay/internal/game"
)

const (
	promptTurn  = "Enter turn: "
	promptRetry = "Invalid turn, try again: "
)

// TextMoveSource читает ходы вида "row,col" построчно
type TextMoveSource struct {
	in  io.Reader
	out io.Writer
	// печатать доску перед запросом хода
	ShowBoard bool

	once      sync.Once
	closeOnce sync.Once
	lines     chan string
	err       error
	// закрывается в Close; читатель перестает ждать получателя строки
	done chan struct{}
	// закрывается, когда читатель вышел
	exited chan struct{}
}

func NewTextMoveSource(in io.Reader, out io.Writer) *TextMoveSource {
	return &TextMoveSource{
		in:        in,
		out:       out,
		ShowBoard: true,
		lines:     make(chan string),
		done:      make(chan struct{}),
		exited:    make(chan struct{}),
	}
}

func (s *TextMoveSource) start() {
	go func() {
		defer close(s.exited)
		defer close(s.lines)
		sc := bufio.NewScanner(s.in)
		for sc.Scan() {
			select {
			case s.lines <- sc.Text():
			case <-s.done:
				s.err = io.EOF
				return
			}
		}
		s.err = sc.Err()
		if s.err == nil {
			s.err = io.EOF
		}
	}()
}

func (s *TextMoveSource) NextMove(ctx context.Context, ts game.TurnState, retry bool) (game.Move, error) {
	s.once.Do(s.start)

	if s.ShowBoard && !retry {
		fmt.Fprintf(s.out, "%s\n", ts.Board)
	}
	if retry {
		fmt.Fprint(s.out, promptRetry)
	} else {
		fmt.Fprint(s.out, promptTurn)
	}

	select {
	case line, ok := <-s.lines:
		if !ok {
			return game.Move{}, s.err
		}
		mv, err := game.ParseTile(line)
		if err != nil {
			return game.Move{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return mv, nil
	case <-ctx.Done():
		return game.Move{}, ctx.Err()
	}
}

// Close останавливает чтение ходов. Уже начатое чтение из in
// не прерывается: читатель выйдет после следующей строки или EOF.
func (s *TextMoveSource) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}
