// Package arena plays series of games between two players and tallies
// the results.
package arena

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/jaminalder/tictactoe-engine/internal/domain"
	"github.com/jaminalder/tictactoe-engine/internal/engine"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"lukechampine.com/frand"
)

// Player picks a move for side. b may be modified during the call but
// must hold the same position when Move returns.
type Player interface {
	Name() string
	Move(b *domain.Board, side domain.Cell) (domain.Move, error)
	// Clone returns a player safe to use from another goroutine.
	Clone() Player
}

// EnginePlayer moves with an engine session.
type EnginePlayer struct {
	sess *engine.Session
	opts []engine.Option
}

func NewEnginePlayer(cfg engine.Config, opts ...engine.Option) (*EnginePlayer, error) {
	sess, err := engine.NewSession(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &EnginePlayer{sess: sess, opts: opts}, nil
}

func (p *EnginePlayer) Name() string { return p.sess.Config().String() }

func (p *EnginePlayer) Move(b *domain.Board, side domain.Cell) (domain.Move, error) {
	return p.sess.ChooseMove(b, side)
}

func (p *EnginePlayer) Clone() Player {
	sess, err := engine.NewSession(p.sess.Config(), p.opts...)
	if err != nil {
		// the config was validated when p was built
		panic(err)
	}
	return &EnginePlayer{sess: sess, opts: p.opts}
}

// RandomPlayer picks uniformly among the legal moves.
type RandomPlayer struct{}

func (RandomPlayer) Name() string { return "random" }

func (RandomPlayer) Move(b *domain.Board, side domain.Cell) (domain.Move, error) {
	moves := b.LegalMoves()
	if len(moves) == 0 || b.Outcome() != domain.Ongoing {
		return domain.Move{}, engine.ErrNoLegalMove
	}
	return moves[frand.Intn(len(moves))], nil
}

func (r RandomPlayer) Clone() Player { return r }

// Summary counts finished games. It is updated atomically while an
// arena runs.
type Summary struct {
	p1Wins    atomic.Uint32
	p2Wins    atomic.Uint32
	draws     atomic.Uint32
	firstWins atomic.Uint32
}

func (s *Summary) P1Wins() int { return int(s.p1Wins.Load()) }
func (s *Summary) P2Wins() int { return int(s.p2Wins.Load()) }
func (s *Summary) Draws() int  { return int(s.draws.Load()) }

// FirstMoverWins counts decisive games won by the player who opened.
func (s *Summary) FirstMoverWins() int { return int(s.firstWins.Load()) }

func (s *Summary) Total() int { return s.P1Wins() + s.P2Wins() + s.Draws() }

func (s *Summary) String() string {
	return fmt.Sprintf("games=%d p1=%d p2=%d draws=%d first-mover-wins=%d",
		s.Total(), s.P1Wins(), s.P2Wins(), s.Draws(), s.FirstMoverWins())
}

// Arena plays Games games between P1 and P2 on Workers goroutines. The
// opener plays X and alternates between games, P1 opening the even ones.
type Arena struct {
	P1, P2  Player
	Games   int
	Workers int
	log     zerolog.Logger
}

func New(p1, p2 Player) *Arena {
	return &Arena{P1: p1, P2: p2, Games: 100, Workers: runtime.NumCPU(), log: zerolog.Nop()}
}

func (a *Arena) SetLogger(l zerolog.Logger) { a.log = l }

// Run plays all games and returns the tally. It stops at the first
// player error or when ctx is done; the summary then holds the games
// finished so far.
func (a *Arena) Run(ctx context.Context) (*Summary, error) {
	sum := &Summary{}
	workers := max(1, min(a.Workers, a.Games))
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		p1, p2 := a.P1.Clone(), a.P2.Clone()
		g.Go(func() error {
			for i := w; i < a.Games; i += workers {
				if err := ctx.Err(); err != nil {
					return err
				}
				x, o := p1, p2
				if i%2 == 1 {
					x, o = p2, p1
				}
				game, err := playGame(x, o)
				if err != nil {
					return fmt.Errorf("game %d: %w", i, err)
				}
				sum.record(game.Winner, i%2 == 0)
				a.log.Debug().Int("worker", w).Int("game", i).Str("x", x.Name()).Str("o", o.Name()).
					Stringer("board", game.Board).Stringer("outcome", game.Board.Outcome()).Msg("game-finished")
			}
			return nil
		})
	}
	err := g.Wait()
	a.log.Info().Stringer("summary", sum).Msg("arena-finished")
	return sum, err
}

func (s *Summary) record(winner domain.Cell, p1IsX bool) {
	switch {
	case winner == domain.Empty:
		s.draws.Add(1)
		return
	case (winner == domain.X) == p1IsX:
		s.p1Wins.Add(1)
	default:
		s.p2Wins.Add(1)
	}
	if winner == domain.X {
		s.firstWins.Add(1)
	}
}

// playGame plays x against o from the empty board, X moving first.
func playGame(x, o Player) (domain.Game, error) {
	g := domain.New()
	for !g.Over {
		p := x
		if g.Turn == domain.O {
			p = o
		}
		b := g.Board
		m, err := p.Move(&b, g.Turn)
		if err != nil {
			return g, fmt.Errorf("%s: %w", p.Name(), err)
		}
		if b != g.Board {
			return g, fmt.Errorf("%s changed the board while choosing a move", p.Name())
		}
		if err := g.Play(m.Row, m.Col); err != nil {
			return g, fmt.Errorf("%s played %v: %w", p.Name(), m, err)
		}
	}
	return g, nil
}
