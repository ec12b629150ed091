package engine

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/jaminalder/tictactoe-engine/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoLegalMove = errors.New("no legal move")
	ErrInvalidSide = errors.New("side must be X or O")
)

// Session carries the state one engine keeps between moves of a game:
// its configuration, the history table fed by alpha-beta cutoffs and the
// statistics of the last search. A Session is safe for concurrent use,
// but searches on it are serialized.
type Session struct {
	mu      sync.Mutex
	cfg     Config
	history [9]int
	stats   Stats
	log     zerolog.Logger
}

type Option func(*Session)

// WithLogger sets the logger used for per-move debug output.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// NewSession validates cfg and returns a fresh session.
func NewSession(cfg Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Session{cfg: cfg, log: zerolog.Nop()}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func (s *Session) Config() Config { return s.cfg }

// Stats returns the counters of the most recent Search or ChooseMove.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Reset forgets the history table, e.g. between games.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = [9]int{}
	s.stats = Stats{}
}

func (s *Session) searcher(b *domain.Board) *searcher {
	sr := &searcher{cfg: s.cfg, board: b}
	if s.cfg.Ordering {
		sr.history = &s.history
	}
	return sr
}

// Search returns the value of b with side to move, from X's perspective.
// b is used as scratch space and restored before Search returns.
func (s *Session) Search(b *domain.Board, side domain.Cell) (int, error) {
	if side != domain.X && side != domain.O {
		return 0, ErrInvalidSide
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sr := s.searcher(b)
	v := sr.search(side, 0, ScoreLow, ScoreHigh)
	s.stats = sr.stats
	return v, nil
}

// ChooseMove picks the best move for side on b: the highest child score
// for X, the lowest for O. Children are tried in row-major order and only
// a strictly better score replaces the current choice, so the first such
// move wins ties. b is unchanged when ChooseMove returns.
func (s *Session) ChooseMove(b *domain.Board, side domain.Cell) (domain.Move, error) {
	if side != domain.X && side != domain.O {
		return domain.Move{}, ErrInvalidSide
	}
	if b.Outcome() != domain.Ongoing {
		return domain.Move{}, ErrNoLegalMove
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		idx   []int
		score []int
		err   error
	)
	if s.cfg.Parallel {
		idx, score, err = s.scoreParallel(b, side)
	} else {
		idx, score = s.scoreSequential(b, side)
	}
	if err != nil {
		return domain.Move{}, err
	}

	maximizing := side == domain.X
	best, bestScore := -1, ScoreHigh
	if maximizing {
		bestScore = ScoreLow
	}
	for k, i := range idx {
		v := score[k]
		if maximizing && v > bestScore || !maximizing && v < bestScore {
			best, bestScore = i, v
		}
	}
	if best < 0 {
		return domain.Move{}, ErrNoLegalMove
	}
	m := domain.MoveFromIndex(best)
	s.log.Debug().
		Stringer("mode", s.cfg.Mode).
		Stringer("side", side).
		Stringer("move", m).
		Int("score", bestScore).
		Int("nodes", s.stats.Nodes).
		Int("leaves", s.stats.Leaves).
		Int("cutoffs", s.stats.Cutoffs).
		Msg("move-chosen")
	return m, nil
}

func (s *Session) scoreSequential(b *domain.Board, side domain.Cell) ([]int, []int) {
	sr := s.searcher(b)
	sr.stats.Nodes++ // root
	var idx, score []int
	for i := range b {
		if b[i] != domain.Empty {
			continue
		}
		b[i] = side
		v := sr.search(side.Opponent(), 0, ScoreLow, ScoreHigh)
		b[i] = domain.Empty
		idx = append(idx, i)
		score = append(score, v)
	}
	s.stats = sr.stats
	return idx, score
}

// scoreParallel searches every root child in its own goroutine on a copy
// of the board. Each branch starts from a snapshot of the history table;
// what the branches learn is not merged back.
func (s *Session) scoreParallel(b *domain.Board, side domain.Cell) ([]int, []int, error) {
	moves := b.LegalMoves()
	idx := make([]int, len(moves))
	score := make([]int, len(moves))
	stats := make([]Stats, len(moves))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for k, m := range moves {
		idx[k] = m.Index()
		child := *b
		child[m.Index()] = side
		want := child
		hist := s.history
		g.Go(func() error {
			sr := &searcher{cfg: s.cfg, board: &child}
			if s.cfg.Ordering {
				sr.history = &hist
			}
			score[k] = sr.search(side.Opponent(), 0, ScoreLow, ScoreHigh)
			stats[k] = sr.stats
			if child != want {
				return fmt.Errorf("branch %v left board %v, want %v", m, child, want)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	s.stats = Stats{Nodes: 1}
	for _, st := range stats {
		s.stats.add(st)
	}
	return idx, score, nil
}

// ChooseMove runs a one-shot session.
func ChooseMove(b *domain.Board, side domain.Cell, cfg Config) (domain.Move, error) {
	s, err := NewSession(cfg)
	if err != nil {
		return domain.Move{}, err
	}
	return s.ChooseMove(b, side)
}

// Search runs a one-shot session.
func Search(b *domain.Board, side domain.Cell, cfg Config) (int, error) {
	s, err := NewSession(cfg)
	if err != nil {
		return 0, err
	}
	return s.Search(b, side)
}
