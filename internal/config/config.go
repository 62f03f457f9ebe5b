// Package config provides centralized configuration management for the application.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// DefaultClientID is the build-time default OAuth client id for the
// public Notis application. It can be replaced at build time:
//
//	go build -ldflags "-X github.com/notisapp/notis/internal/config.DefaultClientID=..."
var DefaultClientID = ""

// defaultRedirectPort is the loopback port the OAuth redirect listener
// binds when NOTIS_REDIRECT_PORT is not set.
const defaultRedirectPort = 8234

// Config holds all configuration parameters for the application.
type Config struct {
	Linear LinearConfig
	OAuth  OAuthConfig
}

// LinearConfig holds Linear specific configuration.
type LinearConfig struct {
	// ClientID is a per-install OAuth client id override. When empty the
	// build-time DefaultClientID is used.
	ClientID string
}

// OAuthConfig holds OAuth redirect listener configuration.
type OAuthConfig struct {
	// RedirectPort is the loopback port the authorization callback is served on.
	RedirectPort int
}

// LoadConfig initializes and loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	// Initialize Viper for environment variables
	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Map specific environment variables
	v.BindEnv("linear.client_id", "LINEAR_CLIENT_ID")
	v.BindEnv("oauth.redirect_port", "NOTIS_REDIRECT_PORT")

	v.SetDefault("oauth.redirect_port", defaultRedirectPort)

	// Create config structure
	config := &Config{
		Linear: LinearConfig{
			ClientID: v.GetString("linear.client_id"),
		},
		OAuth: OAuthConfig{
			RedirectPort: v.GetInt("oauth.redirect_port"),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// validateConfig ensures the loaded values are usable.
func validateConfig(config *Config) error {
	if config.OAuth.RedirectPort <= 0 || config.OAuth.RedirectPort > 65535 {
		return fmt.Errorf("invalid NOTIS_REDIRECT_PORT: %d", config.OAuth.RedirectPort)
	}
	return nil
}

// EffectiveClientID returns the per-install client id override when set,
// falling back to the build-time default. An empty result means no OAuth
// client is configured at all.
func (c *Config) EffectiveClientID() string {
	if c.Linear.ClientID != "" {
		return c.Linear.ClientID
	}
	return DefaultClientID
}

// RedirectURI returns the exact redirect URI the OAuth client must have
// registered for this install.
func (c *Config) RedirectURI() string {
	return fmt.Sprintf("http://127.0.0.1:%d/oauth/callback", c.OAuth.RedirectPort)
}
