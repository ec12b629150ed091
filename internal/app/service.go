package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jaminalder/tictactoe-engine/internal/domain"
	"github.com/jaminalder/tictactoe-engine/internal/engine"
	"github.com/rs/zerolog"
)

// Errors exposed by the service layer.
var (
	ErrNotFound        = errors.New("game not found")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrNotAPlayer      = errors.New("not a player")
	ErrInvalidSettings = errors.New("invalid game settings")
)

// Settings fix who plays what in a human-vs-computer game.
type Settings struct {
	Engine   engine.Config
	Computer domain.Cell // mark the computer plays
	First    domain.Cell // mark that opens the game
}

// DefaultSettings has the computer open as X with alpha-beta search.
func DefaultSettings() Settings {
	return Settings{Engine: engine.DefaultConfig(engine.AlphaBeta), Computer: domain.X, First: domain.X}
}

// Human is the mark left to the human seat.
func (s Settings) Human() domain.Cell { return s.Computer.Opponent() }

func (s Settings) validate() error {
	if s.Computer != domain.X && s.Computer != domain.O {
		return fmt.Errorf("%w: computer must play X or O", ErrInvalidSettings)
	}
	if s.First != domain.X && s.First != domain.O {
		return fmt.Errorf("%w: first mover must be X or O", ErrInvalidSettings)
	}
	return s.Engine.Validate()
}

// GameState is the in-memory state tracked per game.
type GameState struct {
	ID       string
	Game     domain.Game
	Human    string // player id holding the human seat
	Settings Settings
	Last     *domain.Move // the computer's latest move
	Stats    engine.Stats // search counters behind Last
	Created  time.Time
	Updated  time.Time
}

// Outcome of the game so far.
func (gs GameState) Outcome() domain.Outcome { return gs.Game.Board.Outcome() }

// Status describes the game from the human seat's point of view.
func (gs GameState) Status() string {
	if gs.Game.Over {
		return ResultMessage(gs.Game.Winner, gs.Settings.Computer)
	}
	if gs.Game.Turn == gs.Settings.Human() {
		return fmt.Sprintf("Your move (%s)", gs.Settings.Human())
	}
	return "The computer is thinking"
}

// ResultMessage announces a finished game; winner is Empty for a draw.
func ResultMessage(winner, computer domain.Cell) string {
	switch winner {
	case domain.Empty:
		return "IT'S A DRAW!"
	case computer:
		return "THE COMPUTER WON!"
	default:
		return "YOU WON!"
	}
}

type subscriber struct {
	mu     sync.Mutex
	ch     chan []byte
	closed bool
}

// send delivers p without blocking and reports false if the buffer is full.
func (s *subscriber) send(p []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- p:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Service manages games, their engine sessions and subscribers.
type Service struct {
	mu       sync.Mutex
	games    map[string]*GameState
	sessions map[string]*engine.Session
	subs     map[string]map[*subscriber]struct{}
	render   func(GameState) []byte
	log      zerolog.Logger
}

// NewService creates a service with a default renderer (encodes nothing useful).
func NewService() *Service { return NewServiceWithRenderer(nil) }

// NewServiceWithRenderer allows injecting a renderer for broadcast payloads.
func NewServiceWithRenderer(renderer func(GameState) []byte) *Service {
	if renderer == nil {
		renderer = func(gs GameState) []byte { return nil }
	}
	return &Service{
		games:    make(map[string]*GameState),
		sessions: make(map[string]*engine.Session),
		subs:     make(map[string]map[*subscriber]struct{}),
		render:   renderer,
		log:      zerolog.Nop(),
	}
}

// SetRenderer replaces the broadcast renderer function.
func (s *Service) SetRenderer(renderer func(GameState) []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if renderer == nil {
		s.render = func(gs GameState) []byte { return nil }
		return
	}
	s.render = renderer
}

// SetLogger replaces the service logger. Engine sessions created after
// the call log through it as well.
func (s *Service) SetLogger(l zerolog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = l
}

// CreateGame registers a new game. When the computer opens, its first
// move is already on the board.
func (s *Service) CreateGame(settings Settings) (*GameState, error) {
	if err := settings.validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	sess, err := engine.NewSession(settings.Engine,
		engine.WithLogger(s.log.With().Str("game", id).Logger()))
	if err != nil {
		return nil, err
	}
	now := time.Now()
	gs := &GameState{
		ID:       id,
		Game:     domain.NewWithFirst(settings.First),
		Settings: settings,
		Created:  now,
		Updated:  now,
	}
	s.games[id] = gs
	s.sessions[id] = sess
	s.log.Info().
		Str("game", id).
		Stringer("engine", settings.Engine).
		Stringer("computer", settings.Computer).
		Stringer("first", settings.First).
		Msg("game-created")

	if gs.Game.Turn == settings.Computer {
		if err := s.computerMoveLocked(gs); err != nil {
			delete(s.games, id)
			delete(s.sessions, id)
			return nil, err
		}
	}
	cp := *gs
	return &cp, nil
}

// Get returns a copy of the game state if present.
func (s *Service) Get(id string) (*GameState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.games[id]
	if !ok {
		return nil, false
	}
	cp := *gs
	return &cp, true
}

// Join gives the human seat to the first player to ask and to nobody
// else; everyone else spectates and gets Empty.
func (s *Service) Join(id, playerID string) (domain.Cell, *GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.games[id]
	if !ok {
		return domain.Empty, nil, ErrNotFound
	}
	side := domain.Empty
	if gs.Human == "" || gs.Human == playerID {
		gs.Human = playerID
		side = gs.Settings.Human()
	}
	gs.Updated = time.Now()
	cp := *gs
	return side, &cp, nil
}

// Seat reports the mark playerID holds in the game, Empty for spectators.
func (s *Service) Seat(id, playerID string) domain.Cell {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gs, ok := s.games[id]; ok && gs.Human != "" && gs.Human == playerID {
		return gs.Settings.Human()
	}
	return domain.Empty
}

// Play validates seat and turn, applies the human move, lets the
// computer answer unless the game ended, and broadcasts the result.
func (s *Service) Play(id, playerID string, r, c int) (*GameState, error) {
	s.mu.Lock()
	gs, ok := s.games[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	// Validate player is seated
	if gs.Human == "" || gs.Human != playerID {
		s.mu.Unlock()
		return nil, ErrNotAPlayer
	}
	// Validate turn
	if !gs.Game.Over && gs.Settings.Human() != gs.Game.Turn {
		s.mu.Unlock()
		return nil, ErrNotYourTurn
	}
	// Apply move
	if err := gs.Game.Play(r, c); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	gs.Updated = time.Now()
	if !gs.Game.Over {
		if err := s.computerMoveLocked(gs); err != nil {
			s.mu.Unlock()
			return nil, err
		}
	}
	if gs.Game.Over {
		s.log.Info().Str("game", id).Stringer("outcome", gs.Outcome()).Int("moves", gs.Game.Moves).Msg("game-over")
	}

	// Snapshot state and subscribers
	cp := *gs
	subs := s.copySubsLocked(id)
	payload := s.render(cp)
	s.mu.Unlock()

	s.publish(id, subs, payload)
	return &cp, nil
}

func (s *Service) computerMoveLocked(gs *GameState) error {
	sess := s.sessions[gs.ID]
	m, err := sess.ChooseMove(&gs.Game.Board, gs.Game.Turn)
	if err != nil {
		return err
	}
	if err := gs.Game.Play(m.Row, m.Col); err != nil {
		return err
	}
	gs.Last = &m
	gs.Stats = sess.Stats()
	gs.Updated = time.Now()
	return nil
}

// publish fans out a payload; slow subscribers are closed and dropped.
func (s *Service) publish(id string, subs map[*subscriber]struct{}, payload []byte) {
	var toDrop []*subscriber
	for sub := range subs {
		if !sub.send(payload) {
			sub.close()
			toDrop = append(toDrop, sub)
		}
	}
	if len(toDrop) > 0 {
		s.mu.Lock()
		for _, sub := range toDrop {
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
			}
		}
		s.mu.Unlock()
		s.log.Debug().Str("game", id).Int("dropped", len(toDrop)).Msg("slow-subscribers")
	}
}

// Subscribe registers a subscriber for a game. Returns a channel and an
// unsubscribe func; cancelling ctx unsubscribes as well.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan []byte, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[id]; !ok {
		return nil, nil, ErrNotFound
	}
	set := s.subs[id]
	if set == nil {
		set = make(map[*subscriber]struct{})
		s.subs[id] = set
	}
	sub := &subscriber{ch: make(chan []byte, 1)}
	set[sub] = struct{}{}

	unsubOnce := &sync.Once{}
	unsub := func() {
		unsubOnce.Do(func() {
			s.mu.Lock()
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
			}
			s.mu.Unlock()
			sub.close()
		})
	}
	go func() {
		<-ctx.Done()
		unsub()
	}()
	return sub.ch, unsub, nil
}

func (s *Service) copySubsLocked(id string) map[*subscriber]struct{} {
	out := make(map[*subscriber]struct{})
	if set, ok := s.subs[id]; ok {
		for k := range set {
			out[k] = struct{}{}
		}
	}
	return out
}
