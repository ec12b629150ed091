package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jaminalder/tictactoe-engine/internal/domain"
	"github.com/jaminalder/tictactoe-engine/internal/engine"
)

func TestLoadEmptyKeepsDefaults(t *testing.T) {
	c, err := Load(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *c != *Default() {
		t.Fatalf("empty config = %+v, want %+v", *c, *Default())
	}
	if c.First() != domain.X {
		t.Fatalf("First = %s, want X", c.First())
	}
}

func TestLoadOverrides(t *testing.T) {
	const file = `
debug = true
[log]
level = "debug"
pretty = false
[server]
addr = "127.0.0.1:9000"
heartbeat = 500
[engine]
mode = "depth"
weights = "simplified"
ordering = true
[game]
first = "human"
computer = "o"
`
	c, err := Load(strings.NewReader(file))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !c.Debug || c.LogLevel != "debug" || c.LogPretty {
		t.Fatalf("log settings = %+v", c)
	}
	if c.Addr != "127.0.0.1:9000" || c.Heartbeat != 500*time.Millisecond {
		t.Fatalf("server settings = %q %v", c.Addr, c.Heartbeat)
	}
	want := engine.Config{
		Mode:     engine.DepthLimited,
		Scale:    engine.WideScale,
		Weights:  engine.SimplifiedWeights,
		MaxDepth: 2,
		Ordering: true,
	}
	if c.Engine != want {
		t.Fatalf("engine = %+v, want %+v", c.Engine, want)
	}
	if c.Computer != domain.O || c.ComputerFirst || c.First() != domain.X {
		t.Fatalf("game settings: computer %s first %s", c.Computer, c.First())
	}
}

func TestLoadCustomWeights(t *testing.T) {
	const file = `
[engine]
mode = "depth"
max_depth = 4
scale = 5000
[engine.custom]
c3 = 500
n2 = -40
c2 = 20
`
	c, err := Load(strings.NewReader(file))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Engine.Weights != (engine.Weights{C3: 500, N2: -40, C2: 20}) {
		t.Fatalf("weights = %+v", c.Engine.Weights)
	}
	if c.Engine.MaxDepth != 4 || c.Engine.Scale != 5000 {
		t.Fatalf("engine = %+v", c.Engine)
	}
}

func TestLoadRejects(t *testing.T) {
	for i, test := range []struct {
		file string
		err  error
	}{
		{"[engine]\nmode = \"negamax\"", engine.ErrInvalidConfig},
		{"[engine]\nweights = \"lucky\"", engine.ErrInvalidConfig},
		{"[engine]\nmode = \"depth\"\nscale = 10", engine.ErrInvalidConfig},
		{"[engine]\nmode = \"alphabeta\"\nscale = 0", engine.ErrInvalidConfig},
		{"[game]\nfirst = \"nobody\"", nil},
		{"[game]\ncomputer = \"Z\"", nil},
		{"[engine\n", nil},
	} {
		_, err := Load(strings.NewReader(test.file))
		if err == nil {
			t.Errorf("%d: Load(%q) succeeded", i, test.file)
			continue
		}
		if test.err != nil && !errors.Is(err, test.err) {
			t.Errorf("%d: Load(%q) = %v, want %v", i, test.file, err, test.err)
		}
	}
}

func TestDumpRoundTrip(t *testing.T) {
	c := Default()
	c.Engine = engine.Config{
		Mode:     engine.DepthLimited,
		Scale:    engine.WideScale,
		Weights:  engine.Weights{C3: 900, N2: -50},
		MaxDepth: 3,
		Parallel: true,
	}
	c.Computer = domain.O
	c.ComputerFirst = false
	c.Heartbeat = 2 * time.Second

	var buf bytes.Buffer
	if err := c.Dump(&buf); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	back, err := Load(&buf)
	if err != nil {
		t.Fatalf("Load(Dump): %v\n%s", err, buf.String())
	}
	if *back != *c {
		t.Fatalf("round trip = %+v, want %+v", *back, *c)
	}
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tictactoe.toml")
	if err := os.WriteFile(path, []byte("[server]\naddr = \":9999\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if c.Addr != ":9999" {
		t.Fatalf("Addr = %q", c.Addr)
	}
	if _, err := Open(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Open(missing) = %v", err)
	}
}
