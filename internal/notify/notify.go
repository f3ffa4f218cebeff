package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"deltawatch/internal/board"
)

var ErrDisabled = errors.New("notifications disabled")

// Event is a single user-facing notification.
type Event struct {
	Title  string     `json:"title"`
	Body   string     `json:"body"`
	Kind   board.Kind `json:"kind"`
	Added  bool       `json:"added"`
	At     time.Time  `json:"at"`
	Sound  bool       `json:"sound"`
	Volume float64    `json:"volume"`
	Test   bool       `json:"test,omitempty"`
}

// Notifier delivers events somewhere.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev Event) error

func (f NotifierFunc) Notify(ctx context.Context, ev Event) error { return f(ctx, ev) }

// FromChange builds the event for a tracked-list change.
func FromChange(c board.Change) Event {
	kind := "Bull"
	if c.Kind == board.KindBear {
		kind = "Bear"
	}
	title := kind + " listing"
	if !c.Added {
		title = kind + " delisting"
	}
	return Event{Title: title, Body: c.Name, Kind: c.Kind, Added: c.Added, At: time.Now()}
}

// TestEvent is the event sent by the "test notification" action.
func TestEvent() Event {
	return Event{Title: "Test notification", Body: "This is a test message", Kind: board.KindBull, Added: true, At: time.Now(), Test: true}
}

// Dispatcher gates events on the user's notify preference and a per-name
// cooldown, then fans them out to every sink.
type Dispatcher struct {
	mu       sync.RWMutex
	sinks    []Notifier
	enabled  atomic.Bool
	sound    atomic.Bool
	volume   atomic.Uint64 // percent
	cooldown *cache.Cache
	window   time.Duration
}

// NewDispatcher returns a dispatcher. A zero cooldown disables suppression.
func NewDispatcher(cooldown time.Duration, sinks ...Notifier) *Dispatcher {
	d := &Dispatcher{sinks: sinks, window: cooldown}
	if cooldown > 0 {
		d.cooldown = cache.New(cooldown, 2*cooldown)
	}
	d.volume.Store(50)
	return d
}

// AddSink registers another sink.
func (d *Dispatcher) AddSink(n Notifier) {
	d.mu.Lock()
	d.sinks = append(d.sinks, n)
	d.mu.Unlock()
}

// Configure applies the user's notification preferences.
func (d *Dispatcher) Configure(enabled, sound bool, volume float64) {
	d.enabled.Store(enabled)
	d.sound.Store(sound)
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}
	d.volume.Store(uint64(volume*100 + 0.5))
}

func (d *Dispatcher) Enabled() bool { return d.enabled.Load() }

// Dispatch delivers ev to all sinks. It returns ErrDisabled without sending
// when notifications are off, and nil when the event is inside its cooldown.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	if !d.enabled.Load() {
		return ErrDisabled
	}
	if d.cooldown != nil && !ev.Test {
		key := fmt.Sprintf("%s|%s|%t", ev.Kind, ev.Body, ev.Added)
		if _, hit := d.cooldown.Get(key); hit {
			slog.Debug("notification suppressed by cooldown", "title", ev.Title, "body", ev.Body, "window", d.window)
			return nil
		}
		d.cooldown.SetDefault(key, struct{}{})
	}
	ev.Sound = d.sound.Load()
	ev.Volume = float64(d.volume.Load()) / 100
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	d.mu.RLock()
	sinks := append([]Notifier(nil), d.sinks...)
	d.mu.RUnlock()

	var errs []error
	for _, s := range sinks {
		if err := s.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes events to the default logger.
var LogSink = NotifierFunc(func(_ context.Context, ev Event) error {
	slog.Info("notification", "title", ev.Title, "body", ev.Body, "kind", ev.Kind, "sound", ev.Sound)
	return nil
})

// NTFY posts events to an ntfy topic.
type NTFY struct {
	Client   *http.Client
	Endpoint string
	Topic    string
}

func (n *NTFY) Notify(ctx context.Context, ev Event) error {
	endpoint := strings.TrimRight(strings.TrimSpace(n.Endpoint), "/")
	if endpoint == "" {
		return fmt.Errorf("ntfy endpoint not configured")
	}
	if t := strings.Trim(strings.TrimSpace(n.Topic), "/"); t != "" {
		endpoint += "/" + t
	}
	tag := "chart_with_upwards_trend"
	if ev.Kind == board.KindBear {
		tag = "chart_with_downwards_trend"
	}
	return Send(ctx, n.Client, endpoint, ev.Title, tag, ev.Body)
}

// Send posts message to endpoint as text/plain.
func Send(ctx context.Context, client *http.Client, endpoint, title, tags, message string) error {
	c := client
	if c == nil {
		c = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(message))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "text/plain")
	if title != "" {
		req.Header.Set("Title", title)
	}
	if tags != "" {
		req.Header.Set("Tags", tags)
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy notification failed: status=%d", resp.StatusCode)
	}
	return nil
}
