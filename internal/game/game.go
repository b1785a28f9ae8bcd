package game

import "errors"

// размер стороны доски
const BoardSize = 3

// Mark - содержимое клетки и одновременно метка игрока
type Mark uint8

const (
	Empty Mark = iota
	MarkX      // инициатор партии, ходит первым
	MarkO      // присоединившийся игрок
)

func (m Mark) String() string {
	switch m {
	case MarkX:
		return "x"
	case MarkO:
		return "o"
	default:
		return " "
	}
}

// возвращает метку соперника; для Empty возвращает Empty
func (m Mark) Opponent() Mark {
	switch m {
	case MarkX:
		return MarkO
	case MarkO:
		return MarkX
	default:
		return Empty
	}
}

// Outcome - результат проверки доски после хода
type Outcome int

const (
	Ongoing Outcome = iota
	Win
	Draw
)

func (o Outcome) String() string {
	switch o {
	case Win:
		return "win"
	case Draw:
		return "draw"
	default:
		return "ongoing"
	}
}

var (
	ErrOutOfBounds   = errors.New("move is outside the board")
	ErrCellOccupied  = errors.New("cell is already occupied")
	ErrMalformedTile = errors.New("malformed tile")
	ErrGameOver      = errors.New("game is already over")
)

// Result - итог завершенной партии
type Result struct {
	Outcome Outcome
	// Winner заполнен только при Outcome == Win
	Winner Mark
	Board  Board
}
