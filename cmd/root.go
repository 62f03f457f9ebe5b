// Package cmd provides the command-line interface for the Notis companion tool.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/notisapp/notis/internal/config"
	"github.com/notisapp/notis/internal/linear"
	"github.com/notisapp/notis/internal/logging"
	"github.com/notisapp/notis/internal/store"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "notis",
	Short: "Notis submits visual webpage feedback to Linear",
	Long: `Notis is the companion tool for the Notis visual-feedback browser
extension. It connects your machine to a Linear workspace, turns captured
annotation files into Linear issues, and synthesizes robust CSS selectors
for annotated page elements.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if logLevel != "" {
			logging.SetupLogger(os.Stderr, logging.LogLevel(logLevel))
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level (debug, info, warn, error); overrides LOG_LEVEL")

	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(disconnectCmd)
	rootCmd.AddCommand(resourcesCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(selectorCmd)
}

// newSession wires an authenticated Linear session from configuration
// and the persisted settings store.
func newSession() (*linear.Session, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	settings, err := store.NewFileSettingsStore()
	if err != nil {
		return nil, err
	}

	tokens := linear.NewTokenClient(cfg.EffectiveClientID(), cfg.RedirectURI())
	return linear.NewSession(linear.NewClient(), tokens, settings), nil
}
