package engine

import (
	"slices"

	"github.com/jaminalder/tictactoe-engine/internal/domain"
)

// Stats counts the work done by one search.
type Stats struct {
	Nodes   int // positions visited, the root included
	Leaves  int // terminal or frontier positions scored without recursion
	Cutoffs int // alpha-beta prunes
}

func (s *Stats) add(o Stats) {
	s.Nodes += o.Nodes
	s.Leaves += o.Leaves
	s.Cutoffs += o.Cutoffs
}

// searcher walks the tree over one board, placing and removing a mark in
// each frame. The board is back in its original state whenever a call
// to search returns.
type searcher struct {
	cfg     Config
	board   *domain.Board
	history *[9]int // nil disables the history bonus
	stats   Stats
}

func (s *searcher) search(side domain.Cell, depth, alpha, beta int) int {
	s.stats.Nodes++
	if v, done := Terminal(*s.board, s.cfg.Scale); done {
		s.stats.Leaves++
		return v
	}
	switch s.cfg.Mode {
	case AlphaBeta:
		return s.alphaBeta(side, depth, alpha, beta)
	case DepthLimited:
		if depth >= s.cfg.MaxDepth {
			s.stats.Leaves++
			return Evaluate(*s.board, s.cfg.Weights)
		}
	}
	return s.minimax(side, depth)
}

func (s *searcher) minimax(side domain.Cell, depth int) int {
	maximizing := side == domain.X
	best := ScoreHigh
	if maximizing {
		best = ScoreLow
	}
	moved := false
	for i := range s.board {
		if s.board[i] != domain.Empty {
			continue
		}
		moved = true
		s.board[i] = side
		v := s.search(side.Opponent(), depth+1, ScoreLow, ScoreHigh)
		s.board[i] = domain.Empty
		if maximizing && v > best || !maximizing && v < best {
			best = v
		}
	}
	if !moved {
		return 0
	}
	return best
}

func (s *searcher) alphaBeta(side domain.Cell, depth, alpha, beta int) int {
	var buf [9]int
	moves := s.order(buf[:0], side)
	if len(moves) == 0 {
		return 0
	}
	maximizing := side == domain.X
	value := ScoreHigh
	if maximizing {
		value = ScoreLow
	}
	for _, i := range moves {
		s.board[i] = side
		v := s.search(side.Opponent(), depth+1, alpha, beta)
		s.board[i] = domain.Empty
		if maximizing {
			if v > value {
				value = v
			}
			if value > alpha {
				alpha = value
			}
		} else {
			if v < value {
				value = v
			}
			if value < beta {
				beta = value
			}
		}
		if alpha >= beta {
			s.stats.Cutoffs++
			if s.history != nil {
				s.history[i] += len(moves) * len(moves)
			}
			break
		}
	}
	return value
}

// order appends the empty cells to dst. Without ordering they stay in
// row-major order; with it they are sorted by descending pre-score, ties
// kept row-major.
func (s *searcher) order(dst []int, side domain.Cell) []int {
	for i := range s.board {
		if s.board[i] == domain.Empty {
			dst = append(dst, i)
		}
	}
	if !s.cfg.Ordering || len(dst) < 2 {
		return dst
	}
	var keys [9]int
	for _, i := range dst {
		s.board[i] = side
		k := Evaluate(*s.board, UnitWeights)
		s.board[i] = domain.Empty
		if side == domain.O {
			k = -k
		}
		if s.history != nil {
			k += s.history[i]
		}
		keys[i] = k
	}
	slices.SortStableFunc(dst, func(a, b int) int { return keys[b] - keys[a] })
	return dst
}
