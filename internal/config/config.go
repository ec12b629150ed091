// Package config loads and dumps the TOML configuration shared by the
// console game, the web server and the arena.
package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jaminalder/tictactoe-engine/internal/domain"
	"github.com/jaminalder/tictactoe-engine/internal/engine"
)

// File representation
type conf struct {
	Debug bool `toml:"debug"`
	Log   struct {
		Level  string `toml:"level"`
		Pretty bool   `toml:"pretty"`
	} `toml:"log"`
	Server struct {
		Addr      string `toml:"addr"`
		Heartbeat uint   `toml:"heartbeat"`
	} `toml:"server"`
	Engine struct {
		Mode     string          `toml:"mode"`
		Scale    int             `toml:"scale"`
		Weights  string          `toml:"weights"`
		Custom   *engine.Weights `toml:"custom,omitempty"`
		MaxDepth int             `toml:"max_depth"`
		Ordering bool            `toml:"ordering"`
		Parallel bool            `toml:"parallel"`
	} `toml:"engine"`
	Game struct {
		First    string `toml:"first"`
		Computer string `toml:"computer"`
	} `toml:"game"`
}

// Conf is the parsed configuration.
type Conf struct {
	Debug bool

	LogLevel  string
	LogPretty bool

	Addr      string        // HTTP listen address
	Heartbeat time.Duration // interval between SSE and websocket pings

	Engine engine.Config

	Computer      domain.Cell // mark the computer plays
	ComputerFirst bool
}

var defaultConfig = Conf{
	LogLevel:      "info",
	LogPretty:     true,
	Addr:          ":8080",
	Heartbeat:     15 * time.Second,
	Engine:        engine.DefaultConfig(engine.AlphaBeta),
	Computer:      domain.X,
	ComputerFirst: true,
}

// Default returns a copy of the built-in configuration.
func Default() *Conf {
	c := defaultConfig
	return &c
}

// First is the mark that opens the game.
func (c *Conf) First() domain.Cell {
	if c.ComputerFirst {
		return c.Computer
	}
	return c.Computer.Opponent()
}

// Load parses a configuration from r. Keys missing from r keep their
// default values; an engine scale or depth left out follows the mode's
// defaults rather than the default mode's.
func Load(r io.Reader) (*Conf, error) {
	data := Default().encode()
	md, err := toml.NewDecoder(r).Decode(&data)
	if err != nil {
		return nil, err
	}
	if !md.IsDefined("engine", "scale") || !md.IsDefined("engine", "max_depth") {
		mode, err := engine.ParseMode(data.Engine.Mode)
		if err != nil {
			return nil, err
		}
		def := engine.DefaultConfig(mode)
		if !md.IsDefined("engine", "scale") {
			data.Engine.Scale = int(def.Scale)
		}
		if !md.IsDefined("engine", "max_depth") {
			data.Engine.MaxDepth = def.MaxDepth
		}
	}
	return data.decode()
}

// Open a configuration file and return it
func Open(name string) (*Conf, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	c, err := Load(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return c, nil
}

// Dump serialises the configuration into wr.
func (c *Conf) Dump(wr io.Writer) error {
	return toml.NewEncoder(wr).Encode(c.encode())
}

func (c *Conf) encode() conf {
	var data conf
	data.Debug = c.Debug
	data.Log.Level = c.LogLevel
	data.Log.Pretty = c.LogPretty
	data.Server.Addr = c.Addr
	data.Server.Heartbeat = uint(c.Heartbeat / time.Millisecond)

	data.Engine.Mode = c.Engine.Mode.String()
	data.Engine.Scale = int(c.Engine.Scale)
	if _, err := engine.ParseWeights(c.Engine.Weights.String()); err == nil {
		data.Engine.Weights = c.Engine.Weights.String()
	} else {
		w := c.Engine.Weights
		data.Engine.Custom = &w
	}
	data.Engine.MaxDepth = c.Engine.MaxDepth
	data.Engine.Ordering = c.Engine.Ordering
	data.Engine.Parallel = c.Engine.Parallel

	data.Game.Computer = c.Computer.String()
	data.Game.First = "human"
	if c.ComputerFirst {
		data.Game.First = "computer"
	}
	return data
}

func (data conf) decode() (*Conf, error) {
	c := Default()
	c.Debug = data.Debug
	c.LogLevel = data.Log.Level
	c.LogPretty = data.Log.Pretty
	c.Addr = data.Server.Addr
	c.Heartbeat = time.Duration(data.Server.Heartbeat) * time.Millisecond

	mode, err := engine.ParseMode(data.Engine.Mode)
	if err != nil {
		return nil, err
	}
	c.Engine = engine.Config{
		Mode:     mode,
		Scale:    engine.Scale(data.Engine.Scale),
		MaxDepth: data.Engine.MaxDepth,
		Ordering: data.Engine.Ordering,
		Parallel: data.Engine.Parallel,
	}
	if data.Engine.Custom != nil {
		c.Engine.Weights = *data.Engine.Custom
	} else if c.Engine.Weights, err = engine.ParseWeights(data.Engine.Weights); err != nil {
		return nil, err
	}
	if err := c.Engine.Validate(); err != nil {
		return nil, err
	}

	if c.Computer, err = domain.ParseCell(data.Game.Computer); err != nil {
		return nil, fmt.Errorf("game.computer: %w", err)
	}
	switch data.Game.First {
	case "computer":
		c.ComputerFirst = true
	case "human":
		c.ComputerFirst = false
	default:
		return nil, fmt.Errorf("game.first: want \"computer\" or \"human\", got %q", data.Game.First)
	}
	return c, nil
}
