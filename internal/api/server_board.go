package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"deltawatch/internal/board"
	"deltawatch/internal/hub"
	"deltawatch/internal/watcher"
)

func registerBoardHandlers(api huma.API, svc Service, feed Feed) {
	type boardOutput struct {
		Body board.Board
	}
	huma.Register(api, huma.Operation{OperationID: "get-board", Method: http.MethodGet, Path: "/api/v1/board", Summary: "Latest filtered anomaly board", Tags: []string{"Board"}},
		func(ctx context.Context, input *struct{}) (*boardOutput, error) {
			return &boardOutput{Body: svc.Board()}, nil
		})

	type statusOutput struct {
		Body watcher.Status
	}
	huma.Register(api, huma.Operation{OperationID: "get-status", Method: http.MethodGet, Path: "/api/v1/status", Summary: "Poller connection and license status", Tags: []string{"Board"}},
		func(ctx context.Context, input *struct{}) (*statusOutput, error) {
			return &statusOutput{Body: svc.Status()}, nil
		})

	type listingsOutput struct {
		Body struct {
			Listings []hub.ListingMsg `json:"listings"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-listings", Method: http.MethodGet, Path: "/api/v1/listings", Summary: "Recent list membership changes", Tags: []string{"Board"}},
		func(ctx context.Context, input *struct{}) (*listingsOutput, error) {
			out := &listingsOutput{}
			out.Body.Listings = feed.History()
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "refresh", Method: http.MethodPost, Path: "/api/v1/refresh", Summary: "Poll delta-scope now", Tags: []string{"Board"}, DefaultStatus: http.StatusAccepted},
		func(ctx context.Context, input *struct{}) (*struct{}, error) {
			svc.Refresh()
			return &struct{}{}, nil
		})
}
