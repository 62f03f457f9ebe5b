package linear

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/notisapp/notis/internal/logging"
	"github.com/notisapp/notis/internal/store"
)

// refreshSkew is how far before the recorded expiry a token is treated
// as expired.
const refreshSkew = 60 * time.Second

// errNotConnected is returned when no Linear connection exists at all.
var errNotConnected = errors.New("Not connected to Linear. Run 'notis connect' first.")

// errSessionExpired is returned when a refresh is needed but no refresh
// token is stored.
var errSessionExpired = errors.New("Linear session has expired. Reconnect in extension settings.")

// Session executes authenticated Linear requests on behalf of the stored
// connection, refreshing tokens when needed. Refreshes are serialized so
// concurrent callers never race each other to the settings store.
type Session struct {
	Client   *Client
	Tokens   *TokenClient
	Settings store.SettingsStore

	refreshMu sync.Mutex

	// now is replaceable in tests.
	now func() time.Time
}

// NewSession wires a session from its collaborators.
func NewSession(client *Client, tokens *TokenClient, settings store.SettingsStore) *Session {
	return &Session{
		Client:   client,
		Tokens:   tokens,
		Settings: settings,
	}
}

// Execute runs an authenticated GraphQL request. A request that fails
// with an authorization error is retried exactly once after a token
// refresh; any further failure propagates unmodified.
func (s *Session) Execute(ctx context.Context, query string, variables map[string]any, out any) error {
	token, err := s.resolveToken(ctx)
	if err != nil {
		return err
	}

	err = s.Client.Execute(ctx, token, query, variables, out)
	if err == nil || !isAuthError(err) {
		return err
	}

	settings, loadErr := s.Settings.Load()
	if loadErr != nil || settings == nil || settings.RefreshToken == "" {
		return err
	}

	logging.Debug("authenticated request rejected, refreshing token once", "error", err)
	token, refreshErr := s.refresh(ctx)
	if refreshErr != nil {
		return refreshErr
	}
	return s.Client.Execute(ctx, token, query, variables, out)
}

// resolveToken returns a usable access token, refreshing proactively
// when the recorded expiry is within the skew margin. Tokens without a
// recorded expiry are assumed valid indefinitely.
func (s *Session) resolveToken(ctx context.Context) (string, error) {
	settings, err := s.Settings.Load()
	if err != nil {
		return "", err
	}
	if settings == nil || (settings.AccessToken == "" && settings.RefreshToken == "") {
		return "", errNotConnected
	}

	if settings.RefreshToken != "" && settings.AccessTokenExpiresAt > 0 &&
		s.nowMillis() >= settings.AccessTokenExpiresAt-refreshSkew.Milliseconds() {
		return s.refresh(ctx)
	}
	if settings.AccessToken == "" {
		return s.refresh(ctx)
	}
	return settings.AccessToken, nil
}

// refresh performs one refresh and persists the result immediately; the
// updated settings are visible to the rest of the application as a side
// effect.
func (s *Session) refresh(ctx context.Context) (string, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	settings, err := s.Settings.Load()
	if err != nil {
		return "", err
	}
	if settings == nil || settings.RefreshToken == "" {
		return "", errSessionExpired
	}

	token, err := s.Tokens.Refresh(ctx, settings.RefreshToken)
	if err != nil {
		return "", err
	}

	settings.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		settings.RefreshToken = token.RefreshToken
	}
	if token.ExpiresAt > 0 {
		settings.AccessTokenExpiresAt = token.ExpiresAt
	}
	if err := s.Settings.Save(settings); err != nil {
		return "", err
	}

	logging.Debug("linear token refreshed",
		"access_token", logging.MaskSensitive(token.AccessToken),
		"expires_at", settings.AccessTokenExpiresAt)
	return token.AccessToken, nil
}

func (s *Session) nowMillis() int64 {
	if s.now != nil {
		return s.now().UnixMilli()
	}
	return time.Now().UnixMilli()
}

// isAuthError classifies an error as an authorization failure worth one
// refresh-and-retry.
func isAuthError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"401", "403", "unauthorized", "forbidden"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
