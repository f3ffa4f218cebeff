package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deltawatch/internal/board"
	"deltawatch/internal/hub"
	"deltawatch/internal/notify"
	"deltawatch/internal/settings"
	"deltawatch/internal/watcher"
)

type fakeService struct {
	mu        sync.Mutex
	prefs     settings.Preferences
	notifyErr error
	refreshes int
}

func (f *fakeService) Board() board.Board {
	return board.Board{Meta: "Guest | updated: t", Direction: board.DirectionAll}
}

func (f *fakeService) Status() watcher.Status { return watcher.Status{Connected: true, Polls: 3} }

func (f *fakeService) Preferences() settings.Preferences {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prefs
}

func (f *fakeService) ApplySetting(_ context.Context, key, value string) (settings.Preferences, error) {
	norm, err := settings.Normalize(key, value)
	if err != nil {
		return settings.Preferences{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	switch key {
	case settings.KeyFilter:
		f.prefs.Filter = board.Direction(norm)
	case settings.KeyLicenseKey:
		f.prefs.LicenseKey = norm
	case settings.KeyNotify:
		f.prefs.Notify = norm == "true"
	}
	return f.prefs, nil
}

func (f *fakeService) TestNotify(context.Context) error { return f.notifyErr }

func (f *fakeService) Refresh() {
	f.mu.Lock()
	f.refreshes++
	f.mu.Unlock()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	if body != "" {
		rdr = bytes.NewReader([]byte(body))
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestBoardAndStatus(t *testing.T) {
	feed := hub.New(10)
	feed.Publish(board.Change{Kind: board.KindBull, Name: "A", Added: true}, time.Now())
	h := NewServer(&fakeService{}, feed)

	rec := do(t, h, http.MethodGet, "/api/v1/board", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var b board.Board
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	assert.Equal(t, "Guest | updated: t", b.Meta)

	rec = do(t, h, http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"connected":true`)

	rec = do(t, h, http.MethodGet, "/api/v1/listings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"A"`)
}

func TestSettingsEndpoints(t *testing.T) {
	svc := &fakeService{}
	h := NewServer(svc, hub.New(10))

	rec := do(t, h, http.MethodPut, "/api/v1/settings/licenseKey", `{"value":"abcdefgh"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var p settings.Preferences
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "****efgh", p.LicenseKey)

	rec = do(t, h, http.MethodPut, "/api/v1/settings/filter", `{"value":"sideways"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/v1/settings/theme", `{"value":"dark"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "abcdefgh")
}

func TestNotifyAndRefresh(t *testing.T) {
	svc := &fakeService{notifyErr: notify.ErrDisabled}
	h := NewServer(svc, hub.New(10))

	rec := do(t, h, http.MethodPost, "/api/v1/notify/test", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	svc.notifyErr = nil
	rec = do(t, h, http.MethodPost, "/api/v1/notify/test", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sent")

	rec = do(t, h, http.MethodPost, "/api/v1/refresh", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, svc.refreshes)
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "", maskKey(""))
	assert.Equal(t, "***", maskKey("abc"))
	assert.Equal(t, "**cdef", maskKey("abcdef"))
}

func TestWebsocketControlAppliesSetting(t *testing.T) {
	svc := &fakeService{}
	feed := hub.New(10)
	srv := httptest.NewServer(NewServer(svc, feed))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(hub.ControlMsg{Type: "control", Action: "set_filter", Value: "bear"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var m map[string]any
		require.NoError(t, conn.ReadJSON(&m))
		if m["text"] == "Saved filter" {
			break
		}
	}
	assert.Equal(t, board.DirectionBear, svc.Preferences().Filter)
}
