package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jaminalder/tictactoe-engine/internal/app"
	"github.com/jaminalder/tictactoe-engine/internal/logger"
	"github.com/rs/zerolog"
)

type Option func(*handlers)

// WithHeartbeat sets the interval between SSE comments and websocket pings.
func WithHeartbeat(d time.Duration) Option {
	return func(h *handlers) {
		if d > 0 {
			h.heartbeat = d
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(h *handlers) { h.log = l }
}

// WithDefaults sets the settings used for fields the new-game form leaves out.
func WithDefaults(s app.Settings) Option {
	return func(h *handlers) { h.defaults = s }
}

// NewServer wires routes and returns an http.Handler. It also installs
// the JSON snapshot renderer on s, so broadcasts carry board snapshots.
func NewServer(s *app.Service, opts ...Option) http.Handler {
	h := &handlers{
		svc:       s,
		tpl:       loadTemplates(),
		heartbeat: 15 * time.Second,
		log:       zerolog.Nop(),
		defaults:  app.DefaultSettings(),
	}
	for _, o := range opts {
		o(h)
	}
	s.SetRenderer(renderSnapshot)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logger.NewMiddleware(h.log))
	r.Use(middleware.Recoverer)

	r.Get("/", h.index)
	r.Post("/game", h.create)
	r.Route("/game/{id}", func(r chi.Router) {
		r.Get("/", h.view)
		r.Post("/join", h.join)
		r.Post("/play", h.play)
		r.Get("/events", h.events)
		r.Get("/ws", h.ws)
	})
	return r
}
