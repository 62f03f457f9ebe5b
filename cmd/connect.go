package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/notisapp/notis/internal/browser"
	"github.com/notisapp/notis/internal/config"
	"github.com/notisapp/notis/internal/linear"
	"github.com/notisapp/notis/internal/logging"
	"github.com/notisapp/notis/internal/store"
)

// connectTimeout bounds how long the loopback listener waits for the
// authorization redirect before the flow counts as abandoned.
const connectTimeout = 5 * time.Minute

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect Notis to a Linear workspace",
	Long: `Connect Notis to a Linear workspace via OAuth.

This command opens the Linear authorization page in your browser, waits
for the redirect on a loopback listener, exchanges the authorization code
for tokens, and stores them for later submissions.

Linear OAuth applications are created at linear.app under
Settings > API > OAuth applications. Set LINEAR_CLIENT_ID to use your own
application instead of the built-in one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		settings, err := store.NewFileSettingsStore()
		if err != nil {
			return err
		}
		sessions, err := store.NewFileSessionStore()
		if err != nil {
			return err
		}

		tokens := linear.NewTokenClient(cfg.EffectiveClientID(), cfg.RedirectURI())
		callback := &linear.CallbackServer{Port: cfg.OAuth.RedirectPort}
		authorizer := &linear.Authorizer{
			Tokens:          tokens,
			Sessions:        sessions,
			OpenBrowser:     browser.Open,
			WaitForCallback: callback.WaitForCallback,
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), connectTimeout)
		defer cancel()

		token, err := authorizer.Authorize(ctx)
		if err != nil {
			return err
		}

		if err := settings.Save(&store.LinearSettings{
			AccessToken:          token.AccessToken,
			RefreshToken:         token.RefreshToken,
			AccessTokenExpiresAt: token.ExpiresAt,
		}); err != nil {
			return err
		}
		logging.Info("linear tokens stored",
			"access_token", logging.MaskSensitive(token.AccessToken),
			"has_refresh_token", token.RefreshToken != "")

		// Greet with the viewer name to prove the connection works.
		session := linear.NewSession(linear.NewClient(), tokens, settings)
		resources, err := session.FetchWorkspaceResources(cmd.Context())
		if err != nil {
			return fmt.Errorf("connected, but failed to load workspace: %w", err)
		}

		if resources.OrganizationName != "" {
			fmt.Printf("Connected to %s as %s\n", resources.OrganizationName, resources.ViewerName)
		} else {
			fmt.Printf("Connected to Linear as %s\n", resources.ViewerName)
		}
		return nil
	},
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Remove the stored Linear connection",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := store.NewFileSettingsStore()
		if err != nil {
			return err
		}
		sessions, err := store.NewFileSessionStore()
		if err != nil {
			return err
		}

		if err := settings.Clear(); err != nil {
			return err
		}
		if err := sessions.Clear(); err != nil {
			return err
		}

		fmt.Println("Disconnected from Linear.")
		return nil
	},
}
