// Package hub fans watcher output out to websocket clients.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"deltawatch/internal/board"
	"deltawatch/internal/notify"
)

/* ====================
   Feed messages
   ==================== */

type StatusMsg struct {
	Type  string `json:"type"` // "status"
	Level string `json:"level"`
	Text  string `json:"text"`
}

type BoardMsg struct {
	Type  string      `json:"type"` // "board"
	Board board.Board `json:"board"`
}

type ListingMsg struct {
	Type   string       `json:"type"` // "listing"
	Change board.Change `json:"change"`
	Time   string       `json:"time"`
	TSUnix int64        `json:"ts_unix"` // ms
}

type HistoryMsg struct {
	Type     string       `json:"type"` // "history"
	Listings []ListingMsg `json:"listings"`
}

type NotificationMsg struct {
	Type  string       `json:"type"` // "notification"
	Event notify.Event `json:"event"`
}

type ControlMsg struct {
	Type   string `json:"type"`   // "control"
	Action string `json:"action"` // pause/resume/set_filter/...
	Value  any    `json:"value,omitempty"`
}

func Status(level, text string) StatusMsg {
	return StatusMsg{Type: "status", Level: level, Text: text}
}

func Listing(c board.Change, at time.Time) ListingMsg {
	return ListingMsg{Type: "listing", Change: c, Time: at.Format("15:04:05"), TSUnix: at.UnixMilli()}
}

/* ====================
   Websocket hub
   ==================== */

var wsUpgrader = websocket.Upgrader{
	CheckOrigin:       func(*http.Request) bool { return true },
	EnableCompression: true,
}

// Client is one connected websocket peer.
type Client struct {
	c      *websocket.Conn
	out    chan any
	done   chan struct{}
	paused atomic.Bool
}

// Send queues v for the client, dropping it when the buffer is full.
func (cl *Client) Send(v any) {
	select {
	case cl.out <- v:
	default:
	}
}

type ControlFunc func(cl *Client, ctrl ControlMsg)

type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	history []ListingMsg
	limit   int
	latest  *BoardMsg
	status  StatusMsg
	wg      sync.WaitGroup
}

func New(limit int) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		history: make([]ListingMsg, 0, limit),
		limit:   limit,
		status:  Status("info", "Connecting"),
	}
}

func (h *Hub) AddHistory(m ListingMsg) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.history = append(h.history, m)
	if h.limit > 0 && len(h.history) > h.limit {
		h.history = h.history[len(h.history)-h.limit:]
	}
}

// History returns a copy of the recent listing changes, oldest first.
func (h *Hub) History() []ListingMsg {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]ListingMsg, len(h.history))
	copy(out, h.history)
	return out
}

// SetBoard stores and broadcasts the latest board.
func (h *Hub) SetBoard(b board.Board) {
	m := BoardMsg{Type: "board", Board: b}
	h.mu.Lock()
	h.latest = &m
	h.mu.Unlock()
	h.Broadcast(m)
}

// SetStatus stores and broadcasts the connection status.
func (h *Hub) SetStatus(s StatusMsg) {
	h.mu.Lock()
	h.status = s
	h.mu.Unlock()
	h.Broadcast(s)
}

// Publish records and broadcasts a listing change.
func (h *Hub) Publish(c board.Change, at time.Time) {
	m := Listing(c, at)
	h.AddHistory(m)
	h.Broadcast(m)
}

// Notify implements notify.Notifier by pushing the event to every client.
func (h *Hub) Notify(_ context.Context, ev notify.Event) error {
	h.Broadcast(NotificationMsg{Type: "notification", Event: ev})
	return nil
}

func (h *Hub) Broadcast(v any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.Send(v)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// wait blocks until every connection handler has returned.
func (h *Hub) wait() { h.wg.Wait() }

func (h *Hub) ServeWS(onControl ControlFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Debug("websocket upgrade failed", "error", err)
			return
		}
		h.wg.Add(1)
		defer h.wg.Done()
		defer conn.Close()
		cl := &Client{c: conn, out: make(chan any, 256), done: make(chan struct{})}
		h.mu.Lock()
		h.clients[cl] = struct{}{}
		status, latest := h.status, h.latest
		h.mu.Unlock()

		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			ping := time.NewTicker(45 * time.Second)
			defer ping.Stop()
			for {
				select {
				case v := <-cl.out:
					if cl.paused.Load() {
						if _, ok := v.(StatusMsg); !ok {
							continue
						}
					}
					_ = conn.WriteJSON(v)
				case <-ping.C:
					_ = conn.WriteMessage(websocket.PingMessage, nil)
				case <-cl.done:
					return
				}
			}
		}()

		// greet + board + history, history always sent even when empty
		cl.Send(status)
		if latest != nil {
			cl.Send(*latest)
		}
		cl.Send(HistoryMsg{Type: "history", Listings: h.History()})

		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
			return nil
		})
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if mt != websocket.TextMessage {
				continue
			}
			var ctrl ControlMsg
			if err := json.Unmarshal(data, &ctrl); err != nil || ctrl.Type != "control" {
				continue
			}
			switch strings.ToLower(ctrl.Action) {
			case "pause":
				cl.paused.Store(true)
				cl.Send(Status("info", "Paused (this client)"))
			case "resume":
				cl.paused.Store(false)
				cl.Send(Status("success", "Resumed (this client)"))
			default:
				if onControl != nil {
					onControl(cl, ctrl)
				}
			}
		}
		close(cl.done)
		<-writerDone
		h.mu.Lock()
		delete(h.clients, cl)
		h.mu.Unlock()
	}
}
