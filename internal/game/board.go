package game

import (
	"fmt"
	"strconv"
	"strings"
)

// Board - поле 3x3, индексируется [row][col]
type Board [BoardSize][BoardSize]Mark

// Full сообщает, что на доске не осталось пустых клеток
func (b Board) Full() bool {
	for _, row := range b {
		for _, cell := range row {
			if cell == Empty {
				return false
			}
		}
	}
	return true
}

// плоское текстовое представление для логов: "x|o| /...".
func (b Board) String() string {
	var sb strings.Builder
	for r, row := range b {
		if r > 0 {
			sb.WriteByte('/')
		}
		for c, cell := range row {
			if c > 0 {
				sb.WriteByte('|')
			}
			sb.WriteString(cell.String())
		}
	}
	return sb.String()
}

// Move - ход в клетку (Row, Col)
type Move struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (m Move) inBounds() bool {
	return m.Row >= 0 && m.Row < BoardSize && m.Col >= 0 && m.Col < BoardSize
}

// Tile кодирует ход в строку "row,col", как он передается в сообщении play
func (m Move) Tile() string {
	return strconv.Itoa(m.Row) + "," + strconv.Itoa(m.Col)
}

// ParseTile разбирает строку "row,col": каждая координата - ровно одна цифра,
// пробелы вокруг допустимы. Диапазон не проверяется, это делает ApplyMove.
func ParseTile(tile string) (Move, error) {
	rowStr, colStr, ok := strings.Cut(tile, ",")
	if !ok {
		return Move{}, fmt.Errorf("%w: %q", ErrMalformedTile, tile)
	}
	row, ok := parseCoord(rowStr)
	if !ok {
		return Move{}, fmt.Errorf("%w: %q", ErrMalformedTile, tile)
	}
	col, ok := parseCoord(colStr)
	if !ok {
		return Move{}, fmt.Errorf("%w: %q", ErrMalformedTile, tile)
	}
	return Move{Row: row, Col: col}, nil
}

// знаки, ведущие нули и многозначные числа не принимаются
func parseCoord(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if len(s) != 1 || s[0] < '0' || s[0] > '9' {
		return 0, false
	}
	return int(s[0] - '0'), true
}
