package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"deltawatch/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Poll delta-scope continuously and serve the REST API and websocket feed",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	prefs := a.watcher.Preferences()
	slog.Info("deltawatch config loaded",
		"addr", a.cfg.Addr(),
		"base_url", a.cfg.API.BaseURL,
		"poll_interval", a.cfg.API.PollInterval,
		"heartbeat_interval", a.cfg.API.HeartbeatInterval,
		"filter", prefs.Filter,
		"notify", prefs.Notify,
		"device_id", prefs.DeviceID,
		"settings_db", a.store.Path(),
	)

	srv := &http.Server{Addr: a.cfg.Addr(), Handler: api.NewServer(a.watcher, a.hub)}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.watcher.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		slog.Info("deltawatch listening", "addr", a.cfg.Addr(), "docs", "http://localhost"+a.cfg.Addr()+"/docs")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
		return nil
	})
	return g.Wait()
}
