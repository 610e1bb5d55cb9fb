package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kiliankoe/duelhost/internal/combat"
	"github.com/kiliankoe/duelhost/internal/config"
	"github.com/kiliankoe/duelhost/internal/game"
	"github.com/kiliankoe/duelhost/internal/httpapi"
	"github.com/kiliankoe/duelhost/internal/ws"
	staticserver "github.com/kiliankoe/duelhost/static"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var version = "dev" // Set at build time via -ldflags

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`duelhost - real-time two-player duel server

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT                Port to listen on (default: 8080)
  TURN_DURATION_MS    Turn window after the first action (default: 10000)
  ENERGY_REGEN        Energy regained per player per turn (default: 10)
  ADMIN_USER          Admin username for basic auth
  ADMIN_PASS          Admin password for basic auth
  SESSION_IDLE_TTL    Remove sessions idle this long, e.g. 30m (default: off)
  EXPORT_ENABLED      Append turn results to a file (default: false)
  EXPORT_FILE         Path to export turn results (default: ./duel-results.txt)
  LOG_LEVEL           debug, info, warn or error (default: info)

Examples:
  %s                  Start server with default settings
  %s --port 3000      Start server on port 3000

Visit http://localhost:8080/play/<session> to play in the browser.
`, os.Args[0], os.Args[0], os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("duelhost %s\n", version)
		return
	}

	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	log.Logger = log.Output(cw)

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if *portFlag != "" {
		cfg.Port = *portFlag
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rules := combat.DefaultRules()
	rules.Regen = cfg.EnergyRegen

	sock := ws.New(cfg)
	reg := game.NewRegistry(game.Options{
		TurnDuration: cfg.TurnDuration(),
		Rules:        rules,
		Notifier:     sock,
	})
	sock.SetRegistry(reg)
	defer sock.Close()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpapi.RequestLogger())
	io := sock.Mount(r)
	httpapi.Register(r, reg, sock, cfg)
	httpapi.Frontend(r, staticserver.Handler())

	httpSrv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Serve returns an error once Close is called during shutdown
		if err := io.Serve(); err != nil && gctx.Err() == nil {
			return fmt.Errorf("socket.io serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Dur("turnDuration", cfg.TurnDuration()).Msg("listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if cfg.SessionIdleTTL > 0 {
		g.Go(func() error {
			reapIdle(gctx, reg, sock, cfg.SessionIdleTTL)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := httpSrv.Shutdown(shutdownCtx)
		if cerr := io.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("socket.io close")
		}
		return err
	})
	return g.Wait()
}

// reapIdle drops sessions nobody has touched for ttl.
func reapIdle(ctx context.Context, reg *game.Registry, sock *ws.Server, ttl time.Duration) {
	interval := ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, id := range reg.Reap(now, ttl) {
				sock.Forget(id)
			}
		}
	}
}
