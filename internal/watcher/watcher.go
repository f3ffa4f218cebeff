// Package watcher polls delta-scope, diffs the tracked lists and raises
// notifications for membership changes.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"deltawatch/internal/alerts"
	"deltawatch/internal/board"
	"deltawatch/internal/hub"
	"deltawatch/internal/notify"
	"deltawatch/internal/scope"
	"deltawatch/internal/settings"
)

type Fetcher interface {
	Fetch(ctx context.Context, key, deviceID string) (scope.Result, error)
	Ping(ctx context.Context, key, deviceID string) error
}

type PrefStore interface {
	Load(ctx context.Context) (settings.Preferences, error)
	Apply(ctx context.Context, key, value string) (string, error)
}

// Feed receives everything the watcher produces. *hub.Hub implements it.
type Feed interface {
	SetBoard(b board.Board)
	SetStatus(s hub.StatusMsg)
	Publish(c board.Change, at time.Time)
}

type Options struct {
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
	NotifyRemovals    bool
	CSVDir            string // empty disables the CSV log
}

// Status is a point-in-time view of the poller.
type Status struct {
	Connected bool            `json:"connected"`
	LastPoll  time.Time       `json:"last_poll,omitempty"`
	LastError string          `json:"last_error,omitempty"`
	Key       scope.KeyStatus `json:"key"`
	Polls     int             `json:"polls"`
}

type Watcher struct {
	client     Fetcher
	store      PrefStore
	dispatcher *notify.Dispatcher
	feed       Feed
	tracker    *board.Tracker
	opts       Options

	mu     sync.RWMutex
	prefs  settings.Preferences
	status Status
	board  board.Board

	refresh chan struct{}
}

func New(client Fetcher, store PrefStore, dispatcher *notify.Dispatcher, feed Feed, opts Options) *Watcher {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = time.Minute
	}
	return &Watcher{
		client:     client,
		store:      store,
		dispatcher: dispatcher,
		feed:       feed,
		tracker:    board.NewTracker(),
		opts:       opts,
		refresh:    make(chan struct{}, 1),
	}
}

// LoadPreferences reads the stored preferences and applies them.
func (w *Watcher) LoadPreferences(ctx context.Context) (settings.Preferences, error) {
	p, err := w.store.Load(ctx)
	if err != nil {
		return settings.Preferences{}, fmt.Errorf("load preferences: %w", err)
	}
	w.mu.Lock()
	w.prefs = p
	w.mu.Unlock()
	if w.dispatcher != nil {
		w.dispatcher.Configure(p.Notify, p.Sound, p.Volume)
	}
	return p, nil
}

func (w *Watcher) Preferences() settings.Preferences {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.prefs
}

// ApplySetting validates and persists one setting, then reloads. Changing
// the filter or license key triggers an immediate poll.
func (w *Watcher) ApplySetting(ctx context.Context, key, value string) (settings.Preferences, error) {
	if _, err := w.store.Apply(ctx, key, value); err != nil {
		return settings.Preferences{}, err
	}
	p, err := w.LoadPreferences(ctx)
	if err != nil {
		return settings.Preferences{}, err
	}
	slog.Info("setting updated", "key", key)
	if key == settings.KeyFilter || key == settings.KeyLicenseKey {
		w.Refresh()
	}
	return p, nil
}

// Refresh requests an immediate poll from Run.
func (w *Watcher) Refresh() {
	select {
	case w.refresh <- struct{}{}:
	default:
	}
}

func (w *Watcher) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}

func (w *Watcher) Board() board.Board {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.board
}

// TestNotify sends the test notification through the normal gate.
func (w *Watcher) TestNotify(ctx context.Context) error {
	if w.dispatcher == nil {
		return notify.ErrDisabled
	}
	return w.dispatcher.Dispatch(ctx, notify.TestEvent())
}

// Poll runs one fetch/diff/notify cycle and returns the detected changes.
func (w *Watcher) Poll(ctx context.Context) ([]board.Change, error) {
	p := w.Preferences()
	res, err := w.client.Fetch(ctx, p.LicenseKey, p.DeviceID)
	if err != nil {
		w.mu.Lock()
		wasConnected := w.status.Connected || w.status.Polls == 0
		w.status.Connected = false
		w.status.LastError = err.Error()
		w.status.Polls++
		w.mu.Unlock()
		if wasConnected && w.feed != nil {
			w.feed.SetStatus(hub.Status("error", "Disconnected"))
		}
		return nil, err
	}

	now := time.Now()
	b := board.Build(res, p.Filter)
	changes := w.tracker.Observe(res.Data, p.Filter)

	w.mu.Lock()
	prev := w.status
	w.status = Status{Connected: true, LastPoll: now, Key: res.KeyStatus(), Polls: prev.Polls + 1}
	w.board = b
	w.mu.Unlock()

	if res.Type == scope.TierInvalid && prev.Key.State != scope.KeyInvalid {
		slog.Warn("delta-scope rejected license key", "error", res.Err())
	}
	if w.feed != nil {
		if !prev.Connected || prev.Key != w.status.Key {
			w.feed.SetStatus(hub.Status("success", "Connected | "+w.status.Key.Label))
		}
		w.feed.SetBoard(b)
	}

	for _, c := range changes {
		w.handleChange(ctx, c, now)
	}
	return changes, nil
}

func (w *Watcher) handleChange(ctx context.Context, c board.Change, at time.Time) {
	slog.Info("listing change", "kind", c.Kind, "name", c.Name, "added", c.Added, "score", c.Item.Score)
	if w.feed != nil {
		w.feed.Publish(c, at)
	}
	if w.opts.CSVDir != "" {
		if err := alerts.LogToCSV(w.opts.CSVDir, alerts.Alert{
			Timestamp: at,
			Kind:      string(c.Kind),
			Name:      c.Name,
			Added:     c.Added,
			Score:     c.Item.Score,
			Msg:       c.Item.Msg,
		}); err != nil {
			slog.Warn("alert csv write failed", "error", err)
		}
	}
	if w.dispatcher == nil || (!c.Added && !w.opts.NotifyRemovals) {
		return
	}
	if err := w.dispatcher.Dispatch(ctx, notify.FromChange(c)); err != nil && !errors.Is(err, notify.ErrDisabled) {
		slog.Warn("notification delivery failed", "name", c.Name, "error", err)
	}
}

func (w *Watcher) heartbeat(ctx context.Context) {
	p := w.Preferences()
	if err := w.client.Ping(ctx, p.LicenseKey, p.DeviceID); err != nil {
		slog.Debug("heartbeat failed", "error", err)
	}
}

// Run polls immediately and then on every interval until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	poll := time.NewTicker(w.opts.PollInterval)
	defer poll.Stop()
	beat := time.NewTicker(w.opts.HeartbeatInterval)
	defer beat.Stop()

	w.pollLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-poll.C:
			w.pollLogged(ctx)
		case <-w.refresh:
			w.pollLogged(ctx)
		case <-beat.C:
			w.heartbeat(ctx)
		}
	}
}

func (w *Watcher) pollLogged(ctx context.Context) {
	if _, err := w.Poll(ctx); err != nil && ctx.Err() == nil {
		slog.Warn("poll failed", "error", err)
	}
}
