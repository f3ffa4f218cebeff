// File: main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"deltawatch/internal/config"
	"deltawatch/internal/hub"
	"deltawatch/internal/notify"
	"deltawatch/internal/scope"
	"deltawatch/internal/settings"
	"deltawatch/internal/watcher"
)

var (
	configPath   string
	portOverride int
)

var rootCmd = &cobra.Command{
	Use:           "deltawatch",
	Short:         "Watch delta-scope anomaly lists and alert on membership changes",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config.yaml")
	rootCmd.PersistentFlags().IntVar(&portOverride, "port", 0, "override server_port")
	rootCmd.AddCommand(serveCmd, checkCmd, pingCmd, settingsCmd, notifyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

/* ====================
   App wiring
   ==================== */

type app struct {
	cfg        *config.AppConfig
	store      *settings.Store
	client     *scope.Client
	hub        *hub.Hub
	dispatcher *notify.Dispatcher
	watcher    *watcher.Watcher
}

// newApp loads config, sets up logging and opens the settings store. The
// license key from the environment seeds the store only when none is saved.
func newApp(ctx context.Context, withHub bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if portOverride != 0 {
		cfg.ServerPort = portOverride
	}
	if err := setupLogger(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return nil, fmt.Errorf("logger setup: %w", err)
	}

	store, err := settings.Open(cfg.Persistence.SettingsDB)
	if err != nil {
		return nil, err
	}
	if cfg.LicenseKey != "" {
		if v, ok, err := store.Get(ctx, settings.KeyLicenseKey); err == nil && (!ok || v == "") {
			if err := store.Set(ctx, settings.KeyLicenseKey, cfg.LicenseKey); err != nil {
				slog.Warn("seed license key failed", "error", err)
			}
		}
	}
	if _, err := store.DeviceID(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	a := &app{
		cfg:        cfg,
		store:      store,
		client:     scope.NewClient(cfg.API.BaseURL, &http.Client{Timeout: cfg.API.Timeout}),
		dispatcher: notify.NewDispatcher(cfg.Cooldown(), notify.LogSink),
	}
	if strings.TrimSpace(cfg.NTFY.Endpoint) != "" {
		a.dispatcher.AddSink(&notify.NTFY{Client: &http.Client{Timeout: cfg.API.Timeout}, Endpoint: cfg.NTFY.Endpoint, Topic: cfg.NTFY.Topic})
	}
	var feed watcher.Feed
	if withHub {
		a.hub = hub.New(cfg.Alert.HistoryLimit)
		a.dispatcher.AddSink(a.hub)
		feed = a.hub
	}
	a.watcher = watcher.New(a.client, store, a.dispatcher, feed, watcher.Options{
		PollInterval:      cfg.API.PollInterval,
		HeartbeatInterval: cfg.API.HeartbeatInterval,
		NotifyRemovals:    cfg.Alert.NotifyRemovals,
		CSVDir:            cfg.Alert.CSVDir,
	})
	if _, err := a.watcher.LoadPreferences(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Warn("settings store close failed", "error", err)
	}
}
