package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"deltawatch/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change saved preferences",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print saved preferences",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()
		return writeJSON(cmd.OutOrStdout(), a.watcher.Preferences())
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one preference",
	Long: fmt.Sprintf(`Change one preference. Keys:
  %s    true|false
  %s     true|false
  %s    0..1 or 0..100%%
  %s    all|bull|bear
  %s license key

The value is written to the settings database. A running "serve" reads it
only at startup; to change a live server use PUT /api/v1/settings/{key}
or the websocket control messages instead.`, settings.KeyNotify, settings.KeySound, settings.KeyVolume, settings.KeyFilter, settings.KeyLicenseKey),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()
		p, err := a.watcher.ApplySetting(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), p)
	},
}

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Notification helpers",
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test notification through the configured sinks",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.watcher.TestNotify(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "sent")
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)
	notifyCmd.AddCommand(notifyTestCmd)
}
