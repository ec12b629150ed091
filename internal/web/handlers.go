package web

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jaminalder/tictactoe-engine/internal/app"
	"github.com/jaminalder/tictactoe-engine/internal/domain"
	"github.com/jaminalder/tictactoe-engine/internal/engine"
	"github.com/jaminalder/tictactoe-engine/internal/logger"
	"github.com/rs/zerolog"
)

type handlers struct {
	svc       *app.Service
	tpl       *templates
	heartbeat time.Duration
	log       zerolog.Logger
	defaults  app.Settings
}

type boardView struct {
	ID     string
	Board  domain.Board
	Status string
	Error  string
	Over   bool
}

func newBoardView(gs app.GameState, errMsg string) boardView {
	return boardView{ID: gs.ID, Board: gs.Game.Board, Status: gs.Status(), Error: errMsg, Over: gs.Game.Over}
}

func (h *handlers) renderBoard(gs app.GameState, errMsg string) []byte {
	return renderTemplate(h.tpl.board, "", newBoardView(gs, errMsg))
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Mode          string
		Depth         int
		Computer      string
		ComputerFirst bool
	}{
		Mode:          h.defaults.Engine.Mode.String(),
		Depth:         h.defaults.Engine.MaxDepth,
		Computer:      h.defaults.Computer.String(),
		ComputerFirst: h.defaults.First == h.defaults.Computer,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(renderTemplate(h.tpl.index, "", data))
}

// settingsFromForm overlays the submitted fields on the server defaults.
func (h *handlers) settingsFromForm(r *http.Request) (app.Settings, error) {
	st := h.defaults
	if err := r.ParseForm(); err != nil {
		return st, err
	}
	if v := r.Form.Get("mode"); v != "" {
		mode, err := engine.ParseMode(v)
		if err != nil {
			return st, err
		}
		if mode != st.Engine.Mode {
			st.Engine = engine.DefaultConfig(mode)
		}
	}
	if v := r.Form.Get("depth"); v != "" && st.Engine.Mode == engine.DepthLimited {
		d, err := strconv.Atoi(v)
		if err != nil {
			return st, fmt.Errorf("depth: %w", err)
		}
		st.Engine.MaxDepth = d
	}
	if v := r.Form.Get("computer"); v != "" {
		c, err := domain.ParseCell(v)
		if err != nil {
			return st, err
		}
		computerFirst := st.First == st.Computer
		st.Computer = c
		if computerFirst {
			st.First = c
		} else {
			st.First = c.Opponent()
		}
	}
	switch r.Form.Get("first") {
	case "":
	case "computer":
		st.First = st.Computer
	case "human":
		st.First = st.Human()
	default:
		return st, fmt.Errorf("first: unknown mover %q", r.Form.Get("first"))
	}
	return st, nil
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingsFromForm(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	gs, err := h.svc.CreateGame(settings)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidConfig) || errors.Is(err, app.ErrInvalidSettings) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.FromContext(r.Context()).Error().Err(err).Msg("create-game")
		http.Error(w, "failed to create", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/game/"+gs.ID, http.StatusSeeOther)
}

func (h *handlers) view(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	// ensure cookie and auto-claim seat
	pid := ensurePlayerCookie(w, r)
	_, _, _ = h.svc.Join(id, pid)

	gs, ok := h.svc.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	data := struct {
		ID       string
		Computer string
		Engine   string
		Board    boardView
	}{
		ID:       gs.ID,
		Computer: gs.Settings.Computer.String(),
		Engine:   gs.Settings.Engine.String(),
		Board:    newBoardView(*gs, ""),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	// Render page with embedded board container
	_, _ = w.Write(renderTemplate(h.tpl.game, "", data))
}

func (h *handlers) join(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pid := ensurePlayerCookie(w, r)
	_, gs, err := h.svc.Join(id, pid)
	if err != nil || gs == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(h.renderBoard(*gs, ""))
}

// errorMessage turns a move error into the text shown above the board.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, app.ErrNotYourTurn):
		return "Not your turn"
	case errors.Is(err, app.ErrNotAPlayer):
		return "You are a spectator"
	case errors.Is(err, domain.ErrOccupied):
		return "Cell is occupied"
	case errors.Is(err, domain.ErrOutOfBounds):
		return "Out of bounds"
	case errors.Is(err, domain.ErrGameOver):
		return "Game is over"
	default:
		return "Invalid move"
	}
}

func (h *handlers) play(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pid := ensurePlayerCookie(w, r)
	_ = r.ParseForm()
	ri, errR := strconv.Atoi(r.Form.Get("r"))
	ci, errC := strconv.Atoi(r.Form.Get("c"))
	var (
		gs  *app.GameState
		err error
	)
	if errR != nil || errC != nil {
		err = domain.ErrOutOfBounds
	} else {
		gs, err = h.svc.Play(id, pid, ri, ci)
	}
	var errMsg string
	if err != nil {
		if gs == nil {
			if g, ok := h.svc.Get(id); ok {
				gs = g
			}
		}
		errMsg = errorMessage(err)
	}
	if gs == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(h.renderBoard(*gs, errMsg))
}

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	// In tests or non-EventSource requests, just acknowledge headers and return
	if r.Header.Get("Accept") != "text/event-stream" {
		w.WriteHeader(http.StatusOK)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}
	ctx := r.Context()
	ch, unsub, err := h.svc.Subscribe(ctx, id)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer unsub()
	// heartbeat ticker
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	// Initial flush of headers
	flusher.Flush()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = io.WriteString(w, ": ping\n\n")
			flusher.Flush()
		case _, ok := <-ch:
			if !ok {
				return
			}
			// broadcasts carry JSON; SSE clients swap in rendered HTML
			gs, found := h.svc.Get(id)
			if !found {
				return
			}
			_, _ = fmt.Fprintf(w, "event: board\n")
			_, _ = fmt.Fprintf(w, "data: %s\n\n", sseData(h.renderBoard(*gs, "")))
			flusher.Flush()
		}
	}
}

// sseData folds a fragment onto one line; a raw newline would end the
// SSE data field.
func sseData(b []byte) []byte {
	b = bytes.ReplaceAll(b, []byte("\r"), nil)
	return bytes.ReplaceAll(b, []byte("\n"), nil)
}
