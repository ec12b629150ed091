package logger

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

func TestNewLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New("warn", false, &buf)
	l.Info().Msg("hidden")
	l.Warn().Msg("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("output %q", out)
	}

	buf.Reset()
	l = New("bogus", false, &buf)
	if l.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("level = %s, want info", l.GetLevel())
	}
}

func TestFromContext(t *testing.T) {
	if l := FromContext(context.Background()); l.GetLevel() != zerolog.Disabled {
		t.Fatalf("empty context logger level = %s, want disabled", l.GetLevel())
	}
	var buf bytes.Buffer
	ctx := NewContext(context.Background(), New("debug", false, &buf))
	FromContext(ctx).Debug().Msg("from-ctx")
	if !strings.Contains(buf.String(), "from-ctx") {
		t.Fatalf("output %q", buf.String())
	}
}

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	l := New("info", false, &buf)
	h := middleware.RequestID(NewMiddleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info().Msg("inside")
		w.WriteHeader(http.StatusTeapot)
	})))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/game/abc", nil))

	out := buf.String()
	for _, want := range []string{`"message":"inside"`, `"status":418`, `"path":"/game/abc"`, `"request_id":`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log %q missing %s", out, want)
		}
	}
}
