package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/jaminalder/tictactoe-engine/internal/app"
	"github.com/jaminalder/tictactoe-engine/internal/domain"
	"github.com/jaminalder/tictactoe-engine/internal/logger"
)

// wsMessage is every frame the server sends on /game/{id}/ws.
type wsMessage struct {
	Type  string    `json:"type"` // "state", "error" or "ping"
	State *snapshot `json:"state,omitempty"`
	Error string    `json:"error,omitempty"`
}

type snapshot struct {
	ID      string       `json:"id"`
	Board   string       `json:"board"`
	Turn    string       `json:"turn"`
	Over    bool         `json:"over"`
	Outcome string       `json:"outcome"`
	Status  string       `json:"status"`
	Last    *domain.Move `json:"last,omitempty"`
	Nodes   int          `json:"nodes"`
}

// wsMove is what clients send to play.
type wsMove struct {
	R int `json:"r"`
	C int `json:"c"`
}

func newSnapshot(gs app.GameState) *snapshot {
	return &snapshot{
		ID:      gs.ID,
		Board:   gs.Game.Board.String(),
		Turn:    gs.Game.Turn.String(),
		Over:    gs.Game.Over,
		Outcome: gs.Outcome().String(),
		Status:  gs.Status(),
		Last:    gs.Last,
		Nodes:   gs.Stats.Nodes,
	}
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// renderSnapshot is the service's broadcast renderer.
func renderSnapshot(gs app.GameState) []byte {
	return mustMarshal(wsMessage{Type: "state", State: newSnapshot(gs)})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func (h *handlers) ws(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	log := logger.FromContext(r.Context())
	gs, ok := h.svc.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	pid := playerID(r)

	// upgrade to websocket or bail out
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("ws-upgrade")
		return
	}
	defer conn.Close()

	ctx := r.Context()
	updates, unsub, err := h.svc.Subscribe(ctx, id)
	if err != nil {
		return
	}
	defer unsub()
	if latest, ok := h.svc.Get(id); ok {
		gs = latest
	}

	// replies to this client's own moves; only the writer loop touches conn
	replies := make(chan []byte, 4)
	done := make(chan struct{})
	quit := make(chan struct{})
	defer close(quit)
	reply := func(msg string) bool {
		select {
		case replies <- mustMarshal(wsMessage{Type: "error", Error: msg}):
			return true
		case <-quit:
			return false
		}
	}
	go func() {
		defer close(done)
		for {
			var m wsMove
			if err := conn.ReadJSON(&m); err != nil {
				var syntaxErr *json.SyntaxError
				var typeErr *json.UnmarshalTypeError
				if (errors.As(err, &syntaxErr) || errors.As(err, &typeErr)) && reply("malformed move") {
					continue
				}
				return
			}
			if _, err := h.svc.Play(id, pid, m.R, m.C); err != nil && !reply(errorMessage(err)) {
				return
			}
		}
	}()

	if err := conn.WriteMessage(websocket.TextMessage, renderSnapshot(*gs)); err != nil {
		return
	}
	if err := h.writeWS(conn, updates, replies, done); err != nil {
		log.Debug().Err(err).Str("game", id).Msg("ws-closed")
	}
}

// writeWS forwards broadcasts and replies, sending a ping frame whenever
// the connection has been idle for a heartbeat interval.
func (h *handlers) writeWS(conn *websocket.Conn, updates <-chan []byte, replies <-chan []byte, done <-chan struct{}) error {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	lastWrite := time.Now()
	pingPayload := mustMarshal(wsMessage{Type: "ping"})

	write := func(msg []byte) error {
		lastWrite = time.Now()
		return conn.WriteMessage(websocket.TextMessage, msg)
	}
	for {
		select {
		case <-done:
			return nil
		case msg, ok := <-updates:
			if !ok {
				return nil
			}
			if err := write(msg); err != nil {
				return err
			}
		case msg := <-replies:
			if err := write(msg); err != nil {
				return err
			}
		case <-ticker.C:
			if time.Since(lastWrite) < h.heartbeat {
				continue
			}
			if err := write(pingPayload); err != nil {
				return err
			}
		}
	}
}
