package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"deltawatch/internal/board"
	"deltawatch/internal/hub"
	"deltawatch/internal/notify"
	"deltawatch/internal/settings"
	"deltawatch/internal/watcher"
)

type Service interface {
	Board() board.Board
	Status() watcher.Status
	Preferences() settings.Preferences
	ApplySetting(ctx context.Context, key, value string) (settings.Preferences, error)
	TestNotify(ctx context.Context) error
	Refresh()
}

type Feed interface {
	History() []hub.ListingMsg
	ServeWS(onControl hub.ControlFunc) http.HandlerFunc
}

func NewServer(svc Service, feed Feed) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("deltawatch API", "1.0.0")
	api := humachi.New(router, cfg)

	router.Get("/ws", feed.ServeWS(wsControl(svc)))

	registerBoardHandlers(api, svc, feed)
	registerSettingsHandlers(api, svc)

	return router
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, settings.ErrUnknownKey):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, settings.ErrInvalidValue):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, notify.ErrDisabled):
		return huma.Error409Conflict(err.Error())
	}
	return huma.Error502BadGateway(err.Error())
}

// maskKey hides all but the last four characters of a license key.
func maskKey(k string) string {
	if len(k) <= 4 {
		return strings.Repeat("*", len(k))
	}
	return strings.Repeat("*", len(k)-4) + k[len(k)-4:]
}

var controlKeys = map[string]string{
	"set_filter": settings.KeyFilter,
	"set_notify": settings.KeyNotify,
	"set_sound":  settings.KeySound,
	"set_volume": settings.KeyVolume,
	"set_key":    settings.KeyLicenseKey,
}

func wsControl(svc Service) hub.ControlFunc {
	return func(cl *hub.Client, ctrl hub.ControlMsg) {
		ctx := context.Background()
		action := strings.ToLower(ctrl.Action)
		switch action {
		case "test_notify":
			if err := svc.TestNotify(ctx); err != nil {
				cl.Send(hub.Status("warn", "Test notification: "+err.Error()))
			}
			return
		case "refresh":
			svc.Refresh()
			return
		}
		key, ok := controlKeys[action]
		if !ok {
			cl.Send(hub.Status("warn", "Unknown action "+ctrl.Action))
			return
		}
		value := ""
		if ctrl.Value != nil {
			value = fmt.Sprint(ctrl.Value)
		}
		if _, err := svc.ApplySetting(ctx, key, value); err != nil {
			slog.Debug("websocket control rejected", "action", action, "error", err)
			cl.Send(hub.Status("error", err.Error()))
			return
		}
		cl.Send(hub.Status("success", "Saved "+key))
	}
}
