package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"deltawatch/internal/settings"
)

type settingsOutput struct {
	Body settings.Preferences
}

func prefsOutput(p settings.Preferences) *settingsOutput {
	p.LicenseKey = maskKey(p.LicenseKey)
	return &settingsOutput{Body: p}
}

func registerSettingsHandlers(api huma.API, svc Service) {
	huma.Register(api, huma.Operation{OperationID: "get-settings", Method: http.MethodGet, Path: "/api/v1/settings", Summary: "Current preferences", Tags: []string{"Settings"}},
		func(ctx context.Context, input *struct{}) (*settingsOutput, error) {
			return prefsOutput(svc.Preferences()), nil
		})

	type setSettingInput struct {
		Key  string `path:"key" doc:"notify, sound, volume, filter or licenseKey"`
		Body struct {
			Value string `json:"value" doc:"New value as text"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "set-setting", Method: http.MethodPut, Path: "/api/v1/settings/{key}", Summary: "Update one preference", Tags: []string{"Settings"}},
		func(ctx context.Context, input *setSettingInput) (*settingsOutput, error) {
			p, err := svc.ApplySetting(ctx, input.Key, input.Body.Value)
			if err != nil {
				return nil, mapErr(err)
			}
			return prefsOutput(p), nil
		})

	type testNotifyOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "test-notify", Method: http.MethodPost, Path: "/api/v1/notify/test", Summary: "Send a test notification", Tags: []string{"Settings"}},
		func(ctx context.Context, input *struct{}) (*testNotifyOutput, error) {
			if err := svc.TestNotify(ctx); err != nil {
				return nil, mapErr(err)
			}
			out := &testNotifyOutput{}
			out.Body.Status = "sent"
			return out, nil
		})
}
