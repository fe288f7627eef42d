package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/loykin/wpe"
	"github.com/loykin/wpe/internal/config"
	"github.com/loykin/wpe/internal/history/sqlite"
	"github.com/loykin/wpe/internal/metrics"
	"github.com/loykin/wpe/internal/server"
)

func createServeCommand(global *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run as a daemon with an HTTP API and crash detection",
		Long: `Apply the current config and stay up: expose the control API and
Prometheus metrics on [server].listen, watch renderers for crashes,
and reconcile again on every POST /api/apply. On shutdown all tracked
renderers are stopped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(global)
		},
	}
}

func runServe(global *GlobalFlags) error {
	path, err := resolveConfigPath(global)
	if err != nil {
		return err
	}
	fc, created, err := config.Seed(path, enumerateMonitorIDs())
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("Created default config at %s; serving with no wallpapers until it is edited.\n", path)
	}

	eng := wpe.NewWithOptions(wpe.Options{Log: fc.Log})
	defer eng.Close()

	if fc.History.Enabled {
		dsn := fc.History.Path
		if dsn == "" {
			dsn = filepath.Join(filepath.Dir(path), "history.db")
		}
		sink, err := sqlite.New(dsn)
		if err != nil {
			slog.Warn("history disabled", "dsn", dsn, "error", err)
		} else {
			eng.SetHistorySinks(sink)
			defer func() { _ = sink.Close() }()
		}
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	col, entryErrs := config.Validate(fc.Wallpapers)
	reportEntryErrors(entryErrs)
	printReport(eng.Apply(col))

	srv := server.NewServer(fc.Server.Listen, path, eng.Supervisor())
	slog.Info("wpe daemon up", "listen", fc.Server.Listen, "config", path)

	// Keep the supervisor's event buffer drained; crashes are already
	// logged and counted by the time they arrive here.
	go func() {
		for range eng.Events() {
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig.String())

	for _, f := range eng.StopAll() {
		slog.Warn("renderer did not stop cleanly", "monitor", f.Monitor, "error", f.Err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	return nil
}
