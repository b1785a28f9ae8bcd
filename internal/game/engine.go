package game

// State - доска и метка игрока, чей сейчас ход
type State struct {
	Board Board `json:"board"`
	Turn  Mark  `json:"turn"`
}

// создает начальное состояние: пустая доска, первым ходит X
func NewState() State {
	return State{Turn: MarkX}
}

// TurnState - то, что хранит каждый клиент: общее состояние партии
// плюс собственная метка
type TurnState struct {
	State
	Self Mark `json:"self"`
}

func NewTurnState(self Mark) TurnState {
	return TurnState{State: NewState(), Self: self}
}

// MyTurn сообщает, что следующий ход за локальным игроком
func (t TurnState) MyTurn() bool {
	return t.Turn == t.Self
}

// все выигрышные линии: 3 строки, 3 столбца, 2 диагонали
var lines = [8][BoardSize][2]int{
	{{0, 0}, {0, 1}, {0, 2}},
	{{1, 0}, {1, 1}, {1, 2}},
	{{2, 0}, {2, 1}, {2, 2}},
	{{0, 0}, {1, 0}, {2, 0}},
	{{0, 1}, {1, 1}, {2, 1}},
	{{0, 2}, {1, 2}, {2, 2}},
	{{0, 0}, {1, 1}, {2, 2}},
	{{0, 2}, {1, 1}, {2, 0}},
}

// ApplyMove ставит метку текущего игрока в клетку и передает ход.
// Исходное состояние не изменяется.
func ApplyMove(s State, mv Move) (State, error) {
	if !mv.inBounds() {
		return s, ErrOutOfBounds
	}
	if s.Board[mv.Row][mv.Col] != Empty {
		return s, ErrCellOccupied
	}
	next := s
	next.Board[mv.Row][mv.Col] = s.Turn
	next.Turn = s.Turn.Opponent()
	return next, nil
}

// IsTerminal проверяет доску после хода lastMover. Победа засчитывается
// только тому, кто только что сходил.
func IsTerminal(b Board, lastMover Mark) Outcome {
	if lastMover != Empty {
		for _, line := range lines {
			won := true
			for _, cell := range line {
				if b[cell[0]][cell[1]] != lastMover {
					won = false
					break
				}
			}
			if won {
				return Win
			}
		}
	}
	if b.Full() {
		return Draw
	}
	return Ongoing
}

// Replay проигрывает последовательность ходов с начального состояния.
// Ход после завершения партии - ErrGameOver.
func Replay(moves []Move) (State, Outcome, error) {
	s := NewState()
	outcome := Ongoing
	for _, mv := range moves {
		if outcome != Ongoing {
			return s, outcome, ErrGameOver
		}
		mover := s.Turn
		next, err := ApplyMove(s, mv)
		if err != nil {
			return s, outcome, err
		}
		s = next
		outcome = IsTerminal(s.Board, mover)
	}
	return s, outcome, nil
}
