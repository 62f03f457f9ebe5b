// Package store persists Linear credentials and short-lived OAuth flow
// state between runs of the CLI.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"

	"github.com/notisapp/notis/internal/logging"
)

// keyringService is the OS keychain service name for Linear tokens.
const keyringService = "notis.linear"

const (
	keyringAccessToken  = "access-token"
	keyringRefreshToken = "refresh-token"
)

// LinearSettings holds the persisted Linear connection state. Tokens are
// written back whenever an exchange or refresh succeeds.
type LinearSettings struct {
	// AccessToken is the current Linear OAuth access token
	AccessToken string `json:"accessToken,omitempty"`

	// RefreshToken is the optional OAuth refresh token
	RefreshToken string `json:"refreshToken,omitempty"`

	// AccessTokenExpiresAt is the access token expiry in epoch
	// milliseconds; zero means no expiry was reported
	AccessTokenExpiresAt int64 `json:"accessTokenExpiresAt,omitempty"`
}

// SettingsStore persists LinearSettings.
type SettingsStore interface {
	// Load returns the stored settings, or nil when nothing is stored.
	Load() (*LinearSettings, error)

	// Save replaces the stored settings.
	Save(*LinearSettings) error

	// Clear removes all stored settings.
	Clear() error
}

// FileSettingsStore keeps non-secret settings in a JSON file under the
// user config dir and tokens in the OS keychain. When no keychain backend
// is available (headless hosts), tokens fall back into the JSON file.
type FileSettingsStore struct {
	path       string
	useKeyring bool
}

// settingsFile is the on-disk shape; token fields are only populated in
// keychain-fallback mode.
type settingsFile struct {
	AccessToken          string `json:"accessToken,omitempty"`
	RefreshToken         string `json:"refreshToken,omitempty"`
	AccessTokenExpiresAt int64  `json:"accessTokenExpiresAt,omitempty"`
}

// NewFileSettingsStore creates a store rooted at ~/.config/notis.
func NewFileSettingsStore() (*FileSettingsStore, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate home directory: %w", err)
	}

	dir := filepath.Join(home, ".config", "notis")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	return &FileSettingsStore{
		path:       filepath.Join(dir, "settings.json"),
		useKeyring: keyringAvailable(),
	}, nil
}

// keyringAvailable probes whether an OS keychain backend responds at all.
func keyringAvailable() bool {
	_, err := keyring.Get(keyringService, keyringAccessToken)
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return true
	}
	logging.Debug("os keychain unavailable, falling back to file storage", "error", err)
	return false
}

// Load implements SettingsStore.
func (s *FileSettingsStore) Load() (*LinearSettings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	var file settingsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	settings := &LinearSettings{
		AccessToken:          file.AccessToken,
		RefreshToken:         file.RefreshToken,
		AccessTokenExpiresAt: file.AccessTokenExpiresAt,
	}

	if s.useKeyring {
		if token, err := keyring.Get(keyringService, keyringAccessToken); err == nil {
			settings.AccessToken = token
		}
		if token, err := keyring.Get(keyringService, keyringRefreshToken); err == nil {
			settings.RefreshToken = token
		}
	}

	if settings.AccessToken == "" && settings.RefreshToken == "" {
		return nil, nil
	}
	return settings, nil
}

// Save implements SettingsStore.
func (s *FileSettingsStore) Save(settings *LinearSettings) error {
	file := settingsFile{
		AccessTokenExpiresAt: settings.AccessTokenExpiresAt,
	}

	if s.useKeyring {
		if err := keyring.Set(keyringService, keyringAccessToken, settings.AccessToken); err != nil {
			return fmt.Errorf("failed to store access token: %w", err)
		}
		if settings.RefreshToken != "" {
			if err := keyring.Set(keyringService, keyringRefreshToken, settings.RefreshToken); err != nil {
				return fmt.Errorf("failed to store refresh token: %w", err)
			}
		}
	} else {
		file.AccessToken = settings.AccessToken
		file.RefreshToken = settings.RefreshToken
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}

	logging.Debug("linear settings saved",
		"access_token", logging.MaskSensitive(settings.AccessToken),
		"expires_at", settings.AccessTokenExpiresAt)
	return nil
}

// Clear implements SettingsStore.
func (s *FileSettingsStore) Clear() error {
	if s.useKeyring {
		if err := keyring.Delete(keyringService, keyringAccessToken); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("failed to remove access token: %w", err)
		}
		if err := keyring.Delete(keyringService, keyringRefreshToken); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("failed to remove refresh token: %w", err)
		}
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove settings: %w", err)
	}
	return nil
}

// MemorySettingsStore is an in-memory SettingsStore used in tests.
type MemorySettingsStore struct {
	Settings *LinearSettings
	// SaveCount counts Save calls, letting tests assert on persistence
	// side effects of token refreshes.
	SaveCount int
}

// Load implements SettingsStore.
func (m *MemorySettingsStore) Load() (*LinearSettings, error) {
	if m.Settings == nil {
		return nil, nil
	}
	copy := *m.Settings
	return &copy, nil
}

// Save implements SettingsStore.
func (m *MemorySettingsStore) Save(settings *LinearSettings) error {
	copy := *settings
	m.Settings = &copy
	m.SaveCount++
	return nil
}

// Clear implements SettingsStore.
func (m *MemorySettingsStore) Clear() error {
	m.Settings = nil
	return nil
}
