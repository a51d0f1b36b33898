package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"interview-relay/internal/bootstrap"
	"interview-relay/internal/shared/config"
	"interview-relay/internal/shared/server"
	"interview-relay/internal/shared/telemetry"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()

	flags := pflag.NewFlagSet("api", pflag.ExitOnError)
	flags.StringVar(&cfg.Port, "port", cfg.Port, "listen port")
	flags.StringVar(&cfg.Host, "host", cfg.Host, "listen host")
	flags.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for the profile and sessions")
	flags.StringVar(&cfg.ModelsFile, "models-file", cfg.ModelsFile, "YAML model registry override")
	_ = flags.Parse(os.Args[1:])

	telemetry.Configure(os.Stdout, cfg.LogLevel, cfg.LogPretty)

	app, err := bootstrap.Build(cfg)
	if err != nil {
		telemetry.Error("startup.failed", map[string]any{"err": err.Error()})
		os.Exit(1)
	}
	defer app.Close()

	// No WriteTimeout: completion streams and realtime sockets are long-lived.
	srv := &http.Server{
		Addr:              server.Addr(cfg.Host, cfg.Port),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		telemetry.Info("server.listening", map[string]any{"addr": srv.Addr, "env": cfg.Env})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			telemetry.Error("server.failed", map[string]any{"err": err.Error()})
			stop()
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		telemetry.Error("server.shutdown_forced", map[string]any{"err": err.Error()})
		return
	}
	telemetry.Info("server.stopped", nil)
}
