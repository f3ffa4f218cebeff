package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"deltawatch/internal/board"
	"deltawatch/internal/scope"
	"deltawatch/internal/watcher"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Poll once and print the board as JSON",
	Long: `Poll delta-scope once with the saved license key and filter and print
the board. Membership is compared against an empty history, so every tracked
item is reported as added. Nothing is written to the alert log and no
notification is sent.`,
	RunE: runCheck,
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Send one heartbeat to delta-scope",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()
		p := a.watcher.Preferences()
		if err := a.client.Ping(cmd.Context(), p.LicenseKey, p.DeviceID); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	},
}

type checkReport struct {
	Board   board.Board    `json:"board"`
	Changes []board.Change `json:"changes"`
}

func runCheck(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	// Read-only: no dispatcher, feed or CSV log.
	w := watcher.New(a.client, a.store, nil, nil, watcher.Options{})
	if _, err := w.LoadPreferences(cmd.Context()); err != nil {
		return err
	}
	changes, err := w.Poll(cmd.Context())
	if err != nil {
		return err
	}
	if err := writeJSON(cmd.OutOrStdout(), checkReport{Board: w.Board(), Changes: changes}); err != nil {
		return err
	}
	if w.Status().Key.State == scope.KeyInvalid {
		return errors.Join(scope.ErrInvalidKey, errors.New("showing public data"))
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
