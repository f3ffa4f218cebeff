package hub

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"deltawatch/internal/board"
	"deltawatch/internal/notify"
)

func readType(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var m map[string]any
	require.NoError(t, conn.ReadJSON(&m))
	return m
}

func TestHubHistoryLimit(t *testing.T) {
	h := New(2)
	now := time.Now()
	h.Publish(board.Change{Kind: board.KindBull, Name: "A", Added: true}, now)
	h.Publish(board.Change{Kind: board.KindBull, Name: "B", Added: true}, now)
	h.Publish(board.Change{Kind: board.KindBear, Name: "C", Added: true}, now)

	hist := h.History()
	require.Len(t, hist, 2)
	assert.Equal(t, "B", hist[0].Change.Name)
	assert.Equal(t, "C", hist[1].Change.Name)
}

func TestServeWSGreetsAndBroadcasts(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := New(10)
	h.SetBoard(board.Board{Meta: "Guest | updated: t"})
	h.Publish(board.Change{Kind: board.KindBull, Name: "A", Added: true}, time.Now())

	controls := make(chan ControlMsg, 1)
	srv := httptest.NewServer(h.ServeWS(func(cl *Client, ctrl ControlMsg) {
		controls <- ctrl
		cl.Send(Status("success", "ok"))
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)

	assert.Equal(t, "status", readType(t, conn)["type"])
	assert.Equal(t, "board", readType(t, conn)["type"])
	hist := readType(t, conn)
	assert.Equal(t, "history", hist["type"])
	assert.Len(t, hist["listings"], 1)

	require.Eventually(t, func() bool { return h.Clients() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, h.Notify(context.Background(), notify.TestEvent()))
	n := readType(t, conn)
	assert.Equal(t, "notification", n["type"])

	require.NoError(t, conn.WriteJSON(ControlMsg{Type: "control", Action: "set_filter", Value: "bear"}))
	select {
	case ctrl := <-controls:
		assert.Equal(t, "set_filter", ctrl.Action)
		assert.Equal(t, "bear", ctrl.Value)
	case <-time.After(3 * time.Second):
		t.Fatal("control callback not invoked")
	}
	assert.Equal(t, "success", readType(t, conn)["level"])

	// paused clients still get status but not listings
	require.NoError(t, conn.WriteJSON(ControlMsg{Type: "control", Action: "pause"}))
	assert.Equal(t, "Paused (this client)", readType(t, conn)["text"])
	h.Publish(board.Change{Kind: board.KindBear, Name: "B", Added: true}, time.Now())
	h.SetStatus(Status("error", "Disconnected"))
	assert.Equal(t, "Disconnected", readType(t, conn)["text"])

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return h.Clients() == 0 }, 3*time.Second, 10*time.Millisecond)
	h.wait()
}
