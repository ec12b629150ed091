package engine

import "github.com/jaminalder/tictactoe-engine/internal/domain"

// LineCounts holds the evaluator's five line statistics. An n-line has
// exactly n marks of one side, 3-n empty cells and no opposing mark.
type LineCounts struct {
	C3 int // X's complete lines
	N2 int // O's 2-lines
	C2 int // X's 2-lines
	N1 int // O's 1-lines
	C1 int // X's 1-lines
}

// CountLines scans the 8 lines once.
func CountLines(b domain.Board) LineCounts {
	var lc LineCounts
	for _, ln := range domain.Lines {
		var x, o, empty int
		for _, idx := range ln {
			switch b[idx] {
			case domain.X:
				x++
			case domain.O:
				o++
			default:
				empty++
			}
		}
		switch {
		case x == 3:
			lc.C3++
		case x == 2 && empty == 1:
			lc.C2++
		case x == 1 && empty == 2:
			lc.C1++
		case o == 2 && empty == 1:
			lc.N2++
		case o == 1 && empty == 2:
			lc.N1++
		}
	}
	return lc
}

// Score combines the counts linearly.
func (w Weights) Score(lc LineCounts) int {
	return w.C3*lc.C3 + w.N2*lc.N2 + w.C2*lc.C2 + w.N1*lc.N1 + w.C1*lc.C1
}

// Evaluate scores b from X's perspective regardless of whose turn it is.
func Evaluate(b domain.Board, w Weights) int {
	return w.Score(CountLines(b))
}

// Terminal returns the exact value of a finished position: X wins, then
// O wins, then a full board, checked in that order.
func Terminal(b domain.Board, scale Scale) (int, bool) {
	if domain.IsWinner(b, domain.X) {
		return int(scale), true
	}
	if domain.IsWinner(b, domain.O) {
		return -int(scale), true
	}
	if domain.IsFull(b) {
		return 0, true
	}
	return 0, false
}
