// Command tictactoe plays a game against the engine on the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/jaminalder/tictactoe-engine/internal/app"
	"github.com/jaminalder/tictactoe-engine/internal/config"
	"github.com/jaminalder/tictactoe-engine/internal/console"
	"github.com/jaminalder/tictactoe-engine/internal/domain"
	"github.com/jaminalder/tictactoe-engine/internal/engine"
	"github.com/jaminalder/tictactoe-engine/internal/logger"
)

func main() {
	var (
		confFile string
		mode     string
		depth    int
		computer string
		human    bool
		debug    bool
	)
	flag.StringVar(&confFile, "config", "", "Path to a TOML configuration file")
	flag.StringVar(&mode, "mode", "", "Search mode: minimax, alphabeta or depth")
	flag.IntVar(&depth, "depth", -1, "Horizon of the depth-limited search")
	flag.StringVar(&computer, "computer", "", "Mark the computer plays (x or o)")
	flag.BoolVar(&human, "human-first", false, "Let the human open the game")
	flag.BoolVar(&debug, "debug", false, "Log search statistics to stderr")
	flag.Parse()

	conf := config.Default()
	if confFile != "" {
		var err error
		if conf, err = config.Open(confFile); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}
	if mode != "" {
		m, err := engine.ParseMode(mode)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		conf.Engine = engine.DefaultConfig(m)
	}
	if depth >= 0 {
		conf.Engine.MaxDepth = depth
	}
	if computer != "" {
		c, err := domain.ParseCell(computer)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		conf.Computer = c
	}
	if human {
		conf.ComputerFirst = false
	}
	level := conf.LogLevel
	if debug || conf.Debug {
		level = "debug"
	}
	log := logger.New(level, conf.LogPretty, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := console.New(os.Stdin, os.Stdout)
	c.SetLogger(log)
	_, err := c.Play(ctx, app.Settings{Engine: conf.Engine, Computer: conf.Computer, First: conf.First()})
	switch {
	case err == nil, errors.Is(err, io.EOF), errors.Is(err, context.Canceled):
	default:
		log.Error().Err(err).Msg("game-aborted")
		os.Exit(1)
	}
}
