// Command arena pits the engine against another player and prints the
// tally.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"

	"github.com/jaminalder/tictactoe-engine/internal/arena"
	"github.com/jaminalder/tictactoe-engine/internal/config"
	"github.com/jaminalder/tictactoe-engine/internal/engine"
	"github.com/jaminalder/tictactoe-engine/internal/logger"
)

func player(name string, def engine.Config) (arena.Player, error) {
	switch name {
	case "random":
		return arena.RandomPlayer{}, nil
	case "", "config":
		return arena.NewEnginePlayer(def)
	}
	mode, err := engine.ParseMode(name)
	if err != nil {
		return nil, err
	}
	return arena.NewEnginePlayer(engine.DefaultConfig(mode))
}

func main() {
	var (
		confFile string
		p1, p2   string
		games    int
		workers  int
		debug    bool
	)
	flag.StringVar(&confFile, "config", "", "Path to a TOML configuration file")
	flag.StringVar(&p1, "p1", "config", "First player: config, random or a search mode")
	flag.StringVar(&p2, "p2", "random", "Second player: config, random or a search mode")
	flag.IntVar(&games, "games", 100, "Number of games to play")
	flag.IntVar(&workers, "workers", runtime.NumCPU(), "Number of games played at once")
	flag.BoolVar(&debug, "debug", false, "Log every finished game")
	flag.Parse()

	conf := config.Default()
	if confFile != "" {
		var err error
		if conf, err = config.Open(confFile); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}
	level := conf.LogLevel
	if debug || conf.Debug {
		level = "debug"
	}
	log := logger.New(level, conf.LogPretty, os.Stderr)

	first, err := player(p1, conf.Engine)
	if err != nil {
		log.Fatal().Err(err).Str("player", p1).Msg("p1")
	}
	second, err := player(p2, conf.Engine)
	if err != nil {
		log.Fatal().Err(err).Str("player", p2).Msg("p2")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := arena.New(first, second)
	a.Games, a.Workers = games, workers
	a.SetLogger(log)
	sum, err := a.Run(ctx)
	fmt.Printf("%s vs %s: %s\n", first.Name(), second.Name(), sum)
	if err != nil {
		log.Error().Err(err).Msg("arena-stopped")
		os.Exit(1)
	}
}
