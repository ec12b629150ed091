package web

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/google/uuid"
	"github.com/jaminalder/tictactoe-engine/internal/domain"
)

type templates struct {
	base  *template.Template
	game  *template.Template
	board *template.Template
	index *template.Template
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"iter": func(n int) []int {
			a := make([]int, n)
			for i := range a {
				a[i] = i
			}
			return a
		},
		"cellSymbol": func(c domain.Cell) string {
			if c == domain.Empty {
				return ""
			}
			return c.String()
		},
		"add": func(a, b int) int { return a + b },
		"mul": func(a, b int) int { return a * b },
	}
}

func loadTemplates() *templates {
	base := template.Must(template.New("base").Funcs(funcs()).Parse(`<!doctype html><html><head>
<meta charset="utf-8"/>
<title>TicTacToe</title>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<script src="https://unpkg.com/htmx.org/dist/ext/sse.js"></script>
</head><body>{{template "content" .}}</body></html>`))
	// Define the board template within the same set so game can include it
	template.Must(base.New("board").Funcs(funcs()).Parse(boardTemplate))
	index := template.Must(template.Must(base.Clone()).New("content").Parse(indexTemplate))
	game := template.Must(template.Must(base.Clone()).New("content").Parse(`
<h1>TicTacToe</h1>
<p class="engine">Computer plays {{.Computer}} using {{.Engine}}</p>
<div hx-ext="sse" hx-sse="connect:/game/{{.ID}}/events">
  <div id="board" hx-sse="swap:board">{{template "board" .Board}}</div>
</div>
<p><a href="/">New game</a></p>`))
	// Standalone board template used for fragment rendering
	board := template.Must(template.New("board_only").Funcs(funcs()).Parse(boardTemplate))
	return &templates{base: base, game: game, board: board, index: index}
}

func renderTemplate(t *template.Template, name string, data any) []byte {
	var buf bytes.Buffer
	if name == "" {
		_ = t.Execute(&buf, data)
	} else {
		_ = t.ExecuteTemplate(&buf, name, data)
	}
	return buf.Bytes()
}

const indexTemplate = `<h1>TicTacToe</h1>
<form action="/game" method="post">
  <label>Search
    <select name="mode">
      <option value="minimax" {{if eq .Mode "minimax"}}selected{{end}}>Exhaustive minimax</option>
      <option value="alphabeta" {{if eq .Mode "alphabeta"}}selected{{end}}>Alpha-beta</option>
      <option value="depth" {{if eq .Mode "depth"}}selected{{end}}>Depth-limited heuristic</option>
    </select>
  </label>
  <label>Depth <input type="number" name="depth" min="0" max="9" value="{{.Depth}}"></label>
  <label>Computer plays
    <select name="computer">
      <option value="X" {{if eq .Computer "X"}}selected{{end}}>X</option>
      <option value="O" {{if eq .Computer "O"}}selected{{end}}>O</option>
    </select>
  </label>
  <label>First move
    <select name="first">
      <option value="computer" {{if .ComputerFirst}}selected{{end}}>Computer</option>
      <option value="human" {{if not .ComputerFirst}}selected{{end}}>Human</option>
    </select>
  </label>
  <button>Create</button>
</form>`

const boardTemplate = `
<div id="board">
  <p class="status">{{.Status}}</p>
  {{if .Error}}
  <div class="alert">{{.Error}}</div>
  {{end}}
  {{/* 3x3 grid */}}
  {{range $r := iter 3}}
  <div class="row">
    {{range $c := iter 3}}
      {{$cell := index $.Board (add (mul $r 3) $c)}}
      <form hx-post="/game/{{$.ID}}/play" hx-target="#board" hx-swap="outerHTML" method="post">
        <input type="hidden" name="r" value="{{$r}}">
        <input type="hidden" name="c" value="{{$c}}">
        <button type="submit"{{if or $.Over $cell}} disabled{{end}}>{{cellSymbol $cell}}</button>
      </form>
    {{end}}
  </div>
  {{end}}
</div>
`

// Helper to set cookie
func ensurePlayerCookie(w http.ResponseWriter, r *http.Request) string {
	if id := playerID(r); id != "" {
		return id
	}
	// Generate UUIDv4 for player ID
	v := uuid.NewString()
	http.SetCookie(w, &http.Cookie{Name: "player_id", Value: v, Path: "/"})
	return v
}

// playerID reads the identity cookie without minting one.
func playerID(r *http.Request) string {
	if c, err := r.Cookie("player_id"); err == nil {
		return c.Value
	}
	return ""
}
