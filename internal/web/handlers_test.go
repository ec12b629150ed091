package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jaminalder/tictactoe-engine/internal/app"
	"github.com/jaminalder/tictactoe-engine/internal/domain"
	"github.com/jaminalder/tictactoe-engine/internal/engine"
)

func newTestServer(t *testing.T) (*app.Service, http.Handler) {
	t.Helper()
	s := app.NewService()
	h := NewServer(s, WithHeartbeat(time.Minute))
	return s, h
}

// humanFirst has the human open as X against an alpha-beta O.
func humanFirst() app.Settings {
	return app.Settings{Engine: engine.DefaultConfig(engine.AlphaBeta), Computer: domain.O, First: domain.X}
}

func postForm(h http.Handler, path string, form url.Values, player string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if player != "" {
		req.AddCookie(&http.Cookie{Name: "player_id", Value: player})
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestIndexPage(t *testing.T) {
	_, h := newTestServer(t)
	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "<form") || !strings.Contains(body, "action=\"/game\"") {
		t.Fatalf("index should contain create form; got body: %q", body)
	}
	for _, field := range []string{`name="mode"`, `name="depth"`, `name="first"`, `name="computer"`} {
		if !strings.Contains(body, field) {
			t.Fatalf("index form missing %s", field)
		}
	}
}

func TestCreateRedirectsToGame(t *testing.T) {
	_, h := newTestServer(t)
	req := httptest.NewRequest("POST", "/game", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusSeeOther && rr.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", rr.Code)
	}
	loc := rr.Result().Header.Get("Location")
	if !strings.HasPrefix(loc, "/game/") {
		t.Fatalf("expected redirect to /game/{id}, got %q", loc)
	}
}

func TestCreateUsesFormSettings(t *testing.T) {
	svc, h := newTestServer(t)
	form := url.Values{"mode": {"depth"}, "depth": {"3"}, "computer": {"O"}, "first": {"human"}}
	rr := postForm(h, "/game", form, "")
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d: %s", rr.Code, rr.Body.String())
	}
	id := strings.TrimPrefix(rr.Result().Header.Get("Location"), "/game/")
	gs, ok := svc.Get(id)
	if !ok {
		t.Fatalf("created game %q not found", id)
	}
	st := gs.Settings
	if st.Engine.Mode != engine.DepthLimited || st.Engine.MaxDepth != 3 || st.Computer != domain.O || st.First != domain.X {
		t.Fatalf("unexpected settings %+v", st)
	}
	if gs.Game.Moves != 0 {
		t.Fatalf("human opens, but %d moves were played", gs.Game.Moves)
	}
}

func TestCreateRejectsBadForm(t *testing.T) {
	_, h := newTestServer(t)
	for _, form := range []url.Values{
		{"mode": {"negamax"}},
		{"mode": {"depth"}, "depth": {"-1"}},
		{"mode": {"depth"}, "depth": {"deep"}},
		{"computer": {"Z"}},
		{"first": {"nobody"}},
	} {
		if rr := postForm(h, "/game", form, ""); rr.Code != http.StatusBadRequest {
			t.Errorf("form %v: expected 400, got %d", form, rr.Code)
		}
	}
}

func TestGamePageSetsCookieAndAutoClaims(t *testing.T) {
	svc, h := newTestServer(t)
	// Create a game via service to know ID
	gs, _ := svc.CreateGame(app.DefaultSettings())

	req := httptest.NewRequest("GET", "/game/"+url.PathEscape(gs.ID), nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	// Cookie set
	var playerID string
	for _, c := range rr.Result().Cookies() {
		if c.Name == "player_id" {
			playerID = c.Value
			break
		}
	}
	if playerID == "" {
		t.Fatalf("expected player_id cookie to be set")
	}
	// Auto-claimed seat
	latest, ok := svc.Get(gs.ID)
	if !ok || latest.Human != playerID {
		t.Fatalf("expected auto-claim of the human seat; have %q pid=%q", latest.Human, playerID)
	}
	// SSE wiring present
	body := rr.Body.String()
	if !strings.Contains(body, "hx-ext=\"sse\"") || !strings.Contains(body, "/game/"+gs.ID+"/events") {
		t.Fatalf("expected SSE wiring in page; got body: %q", body)
	}
	if !strings.Contains(body, "Your move (O)") {
		t.Fatalf("expected status line; got body: %q", body)
	}
}

func TestGamePageNotFound(t *testing.T) {
	_, h := newTestServer(t)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/game/missing", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestJoinEndpointReturnsBoardFragment(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame(app.DefaultSettings())
	svc.Join(gs.ID, "p1")

	rr := postForm(h, "/game/"+gs.ID+"/join", url.Values{}, "p2")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "id=\"board\"") {
		t.Fatalf("expected board fragment, got %q", rr.Body.String())
	}
	latest, _ := svc.Get(gs.ID)
	if latest.Human != "p1" {
		t.Fatalf("p2 should only spectate, human seat is %q", latest.Human)
	}
}

func TestPlayEndpointUpdatesStateAndReturnsFragment(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame(humanFirst())
	svc.Join(gs.ID, "p1")

	rr := postForm(h, "/game/"+gs.ID+"/play", url.Values{"r": {"0"}, "c": {"0"}}, "p1")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "id=\"board\"") {
		t.Fatalf("expected board fragment, got %q", rr.Body.String())
	}
	latest, _ := svc.Get(gs.ID)
	if latest.Game.Moves != 2 {
		t.Fatalf("expected human move and computer reply, moves=%d", latest.Game.Moves)
	}
}

func TestPlayEndpointErrors(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame(humanFirst())
	svc.Join(gs.ID, "p1")

	for _, test := range []struct {
		form   url.Values
		player string
		want   string
	}{
		{url.Values{"r": {"0"}, "c": {"0"}}, "p2", "You are a spectator"},
		{url.Values{"r": {"x"}, "c": {"0"}}, "p1", "Out of bounds"},
		{url.Values{"r": {"0"}, "c": {"3"}}, "p1", "Out of bounds"},
	} {
		rr := postForm(h, "/game/"+gs.ID+"/play", test.form, test.player)
		if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), test.want) {
			t.Fatalf("play %v as %s: got %d %q, want message %q", test.form, test.player, rr.Code, rr.Body.String(), test.want)
		}
	}
	if latest, _ := svc.Get(gs.ID); latest.Game.Moves != 0 {
		t.Fatalf("rejected moves changed the game: moves=%d", latest.Game.Moves)
	}
	if rr := postForm(h, "/game/missing/play", url.Values{"r": {"0"}, "c": {"0"}}, "p1"); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestEventsEndpointSSEHeaders(t *testing.T) {
	_, h := newTestServer(t)
	// create a game via POST
	reqCreate := httptest.NewRequest("POST", "/game", nil)
	rrCreate := httptest.NewRecorder()
	h.ServeHTTP(rrCreate, reqCreate)
	loc := rrCreate.Result().Header.Get("Location")
	if loc == "" {
		t.Fatalf("missing redirect location")
	}
	// Request SSE
	req := httptest.NewRequest("GET", loc+"/events", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	ct := rr.Result().Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/event-stream") {
		io.Copy(io.Discard, rr.Result().Body)
		t.Fatalf("expected text/event-stream, got %q", ct)
	}
}

func readWS(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var m wsMessage
	if err := conn.ReadJSON(&m); err != nil {
		t.Fatalf("read: %v", err)
	}
	return m
}

func TestWebsocketPlay(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame(humanFirst())
	svc.Join(gs.ID, "p1")

	srv := httptest.NewServer(h)
	defer srv.Close()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/game/" + gs.ID + "/ws"
	hdr := http.Header{}
	hdr.Add("Cookie", "player_id=p1")
	conn, _, err := websocket.DefaultDialer.Dial(u, hdr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	m := readWS(t, conn)
	if m.Type != "state" || m.State == nil || m.State.Board != "___/___/___" {
		t.Fatalf("initial message = %+v", m)
	}

	if err := conn.WriteJSON(wsMove{R: 1, C: 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	m = readWS(t, conn)
	if m.Type != "state" || m.State.Board[5] != 'X' || m.State.Last == nil || m.State.Turn != "X" {
		t.Fatalf("state after move = %+v", m.State)
	}

	if err := conn.WriteJSON(wsMove{R: 1, C: 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if m = readWS(t, conn); m.Type != "error" || m.Error != "Cell is occupied" {
		t.Fatalf("occupied move reply = %+v", m)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("nonsense")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if m = readWS(t, conn); m.Type != "error" || m.Error != "malformed move" {
		t.Fatalf("malformed move reply = %+v", m)
	}
}

func TestWebsocketUnknownGame(t *testing.T) {
	_, h := newTestServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/game/missing/ws"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("dial to a missing game succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 response, got %v", resp)
	}
}

func TestSnapshotJSON(t *testing.T) {
	svc := app.NewService()
	gs, _ := svc.CreateGame(app.DefaultSettings())
	var m wsMessage
	if err := json.Unmarshal(renderSnapshot(*gs), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.State.Board != "X__/___/___" || m.State.Last == nil || *m.State.Last != (domain.Move{}) {
		t.Fatalf("snapshot = %+v", m.State)
	}
	if m.State.Outcome != "ongoing" || m.State.Over {
		t.Fatalf("snapshot outcome = %q over=%v", m.State.Outcome, m.State.Over)
	}
}
