// Command server serves games against the engine over HTTP, server-sent
// events and websockets.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/jaminalder/tictactoe-engine/internal/app"
	"github.com/jaminalder/tictactoe-engine/internal/config"
	"github.com/jaminalder/tictactoe-engine/internal/logger"
	"github.com/jaminalder/tictactoe-engine/internal/web"
)

func main() {
	var (
		confFile string
		addr     string
		dump     bool
	)
	flag.StringVar(&confFile, "config", "", "Path to a TOML configuration file")
	flag.StringVar(&addr, "addr", "", "Listen address, overrides the configuration")
	flag.BoolVar(&dump, "dump", false, "Print the effective configuration and exit")
	flag.Parse()

	conf := config.Default()
	if confFile != "" {
		var err error
		if conf, err = config.Open(confFile); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}
	if addr != "" {
		conf.Addr = addr
	}
	if dump {
		if err := conf.Dump(os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	level := conf.LogLevel
	if conf.Debug {
		level = "debug"
	}
	log := logger.New(level, conf.LogPretty, os.Stderr)

	svc := app.NewService()
	svc.SetLogger(log)
	h := web.NewServer(svc,
		web.WithHeartbeat(conf.Heartbeat),
		web.WithLogger(log),
		web.WithDefaults(app.Settings{Engine: conf.Engine, Computer: conf.Computer, First: conf.First()}),
	)
	srv := &http.Server{Addr: conf.Addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()

	log.Info().Str("addr", conf.Addr).Stringer("engine", conf.Engine).Msg("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server")
	}
}
