package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Cell represents a board cell state.
type Cell uint8

const (
	Empty Cell = iota
	X
	O
)

// Opponent returns the other mark. Empty has no opponent.
func (c Cell) Opponent() Cell {
	switch c {
	case X:
		return O
	case O:
		return X
	default:
		return Empty
	}
}

func (c Cell) String() string {
	switch c {
	case X:
		return "X"
	case O:
		return "O"
	default:
		return "_"
	}
}

// ParseCell accepts "X" or "O" in either case.
func ParseCell(s string) (Cell, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "X":
		return X, nil
	case "O":
		return O, nil
	}
	return Empty, fmt.Errorf("unknown mark %q", s)
}

// Board is a fixed 3x3 board stored row-major.
type Board [9]Cell

// Move is a 0-indexed (row, column) pair.
type Move struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Index returns the row-major board index of the move.
func (m Move) Index() int { return m.Row*3 + m.Col }

func (m Move) String() string { return fmt.Sprintf("(%d,%d)", m.Row, m.Col) }

// MoveFromIndex converts a row-major index back into a Move.
func MoveFromIndex(i int) Move { return Move{Row: i / 3, Col: i % 3} }

// Lines lists the 8 winning triples: rows, columns, diagonals.
var Lines = [8][3]int{
	// rows
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	// cols
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	// diags
	{0, 4, 8}, {2, 4, 6},
}

// Outcome of a board from the detector's point of view.
type Outcome uint8

const (
	Ongoing Outcome = iota
	XWins
	OWins
	Draw
)

func (o Outcome) String() string {
	switch o {
	case XWins:
		return "X wins"
	case OWins:
		return "O wins"
	case Draw:
		return "draw"
	default:
		return "ongoing"
	}
}

// Game holds the current state of a Tic-Tac-Toe match.
type Game struct {
	Board  Board
	Turn   Cell
	Winner Cell
	Over   bool
	Moves  int
}

// Errors returned by domain operations.
var (
	ErrIllegalMove = errors.New("illegal move")
	ErrOutOfBounds = fmt.Errorf("%w: out of bounds", ErrIllegalMove)
	ErrOccupied    = fmt.Errorf("%w: cell occupied", ErrIllegalMove)
	ErrGameOver    = errors.New("game over")
)

// New returns a new game with X to move.
func New() Game {
	return Game{Turn: X}
}

// NewWithFirst returns a new game where first moves first.
func NewWithFirst(first Cell) Game {
	if first != O {
		first = X
	}
	return Game{Turn: first}
}

// Play attempts to play the current turn at row r, column c (0..2).
func (g *Game) Play(r, c int) error {
	if g.Over {
		return ErrGameOver
	}
	if err := g.Board.Legal(r, c); err != nil {
		return err
	}

	g.Board.Set(r, c, g.Turn)
	g.Moves++

	if IsWinner(g.Board, g.Turn) {
		g.Winner = g.Turn
		g.Over = true
		return nil
	}

	if IsFull(g.Board) {
		g.Winner = Empty
		g.Over = true
		return nil
	}

	g.Turn = g.Turn.Opponent()
	return nil
}

// At returns the cell at row r, column c.
func (b *Board) At(r, c int) Cell { return b[r*3+c] }

// Set places p at row r, column c without any legality check.
func (b *Board) Set(r, c int, p Cell) { b[r*3+c] = p }

// Clear empties row r, column c.
func (b *Board) Clear(r, c int) { b[r*3+c] = Empty }

// Legal reports why a move at (r, c) cannot be played, or nil if it can.
func (b *Board) Legal(r, c int) error {
	if r < 0 || r >= 3 || c < 0 || c >= 3 {
		return ErrOutOfBounds
	}
	if b[r*3+c] != Empty {
		return ErrOccupied
	}
	return nil
}

// LegalMoves lists the empty cells in row-major order.
func (b *Board) LegalMoves() []Move {
	moves := make([]Move, 0, 9)
	for i, c := range b {
		if c == Empty {
			moves = append(moves, MoveFromIndex(i))
		}
	}
	return moves
}

// Count returns how many cells hold p.
func (b *Board) Count(p Cell) int {
	n := 0
	for _, c := range b {
		if c == p {
			n++
		}
	}
	return n
}

// Outcome checks X before O, then fullness.
func (b *Board) Outcome() Outcome {
	switch {
	case IsWinner(*b, X):
		return XWins
	case IsWinner(*b, O):
		return OWins
	case IsFull(*b):
		return Draw
	}
	return Ongoing
}

// String renders the board as three slash-separated rows, e.g. "X__/_X_/__O".
func (b Board) String() string {
	var sb strings.Builder
	for i, c := range b {
		if i > 0 && i%3 == 0 {
			sb.WriteByte('/')
		}
		sb.WriteString(c.String())
	}
	return sb.String()
}

// ParseBoard reads the String form. Slashes and whitespace are ignored;
// '_', '.' and '-' denote empty cells.
func ParseBoard(s string) (Board, error) {
	var b Board
	i := 0
	for _, r := range s {
		var c Cell
		switch r {
		case '/', ' ', '\t', '\n', '|':
			continue
		case '_', '.', '-':
			c = Empty
		case 'x', 'X':
			c = X
		case 'o', 'O':
			c = O
		default:
			return Board{}, fmt.Errorf("invalid board character %q", r)
		}
		if i >= len(b) {
			return Board{}, fmt.Errorf("board %q has more than 9 cells", s)
		}
		b[i] = c
		i++
	}
	if i != len(b) {
		return Board{}, fmt.Errorf("board %q has %d cells, want 9", s, i)
	}
	return b, nil
}

// IsWinner reports whether side holds any complete line.
func IsWinner(b Board, side Cell) bool {
	if side == Empty {
		return false
	}
	for _, ln := range Lines {
		if b[ln[0]] == side && b[ln[1]] == side && b[ln[2]] == side {
			return true
		}
	}
	return false
}

// IsFull reports whether no empty cell remains.
func IsFull(b Board) bool {
	for _, c := range b {
		if c == Empty {
			return false
		}
	}
	return true
}
