package linear

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/notisapp/notis/internal/logging"
	"github.com/notisapp/notis/internal/store"
)

const (
	oauthAuthorizeURL = "https://linear.app/oauth/authorize"
	oauthTokenURL     = "https://api.linear.app/oauth/token"
	oauthScope        = "read,write,issues:create"
)

// TokenClient talks to Linear's OAuth token endpoint.
type TokenClient struct {
	ClientID    string
	RedirectURI string
	TokenURL    string
	HTTPClient  *http.Client
}

// NewTokenClient creates a token client against the public endpoint.
func NewTokenClient(clientID, redirectURI string) *TokenClient {
	return &TokenClient{
		ClientID:    clientID,
		RedirectURI: redirectURI,
		TokenURL:    oauthTokenURL,
		HTTPClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// ExchangeCode trades an authorization code (plus its PKCE verifier) for
// a token set.
func (t *TokenClient) ExchangeCode(ctx context.Context, code, codeVerifier string) (*TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", t.ClientID)
	form.Set("redirect_uri", t.RedirectURI)
	form.Set("code", code)
	form.Set("code_verifier", codeVerifier)
	return t.requestToken(ctx, form)
}

// Refresh trades a refresh token for a new token set.
func (t *TokenClient) Refresh(ctx context.Context, refreshToken string) (*TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", t.ClientID)
	form.Set("redirect_uri", t.RedirectURI)
	form.Set("refresh_token", refreshToken)
	return t.requestToken(ctx, form)
}

type tokenResponse struct {
	AccessToken      string  `json:"access_token"`
	RefreshToken     string  `json:"refresh_token"`
	ExpiresIn        float64 `json:"expires_in"`
	Error            string  `json:"error"`
	ErrorDescription string  `json:"error_description"`
}

func (t *TokenClient) requestToken(ctx context.Context, form url.Values) (*TokenSet, error) {
	endpoint := t.TokenURL
	if endpoint == "" {
		endpoint = oauthTokenURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := t.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	// Error payloads are JSON too, so decode before checking the status.
	var payload tokenResponse
	_ = json.Unmarshal(body, &payload)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || payload.AccessToken == "" {
		if payload.ErrorDescription != "" {
			return nil, errors.New(payload.ErrorDescription)
		}
		if payload.Error != "" {
			return nil, errors.New(payload.Error)
		}
		return nil, fmt.Errorf("Linear token endpoint returned %d", resp.StatusCode)
	}

	token := &TokenSet{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
	}
	// Only a finite positive expires_in yields an expiry timestamp.
	if payload.ExpiresIn > 0 && !math.IsInf(payload.ExpiresIn, 1) && !math.IsNaN(payload.ExpiresIn) {
		token.ExpiresAt = time.Now().UnixMilli() + int64(payload.ExpiresIn*1000)
	}
	return token, nil
}

// Authorizer runs the OAuth PKCE authorization flow end to end:
// generate state and verifier, open the authorization page, await the
// redirect callback, validate it, and exchange the code.
type Authorizer struct {
	Tokens   *TokenClient
	Sessions store.SessionStore

	// OpenBrowser launches the interactive authorization page.
	OpenBrowser func(url string) error

	// WaitForCallback blocks until the redirect callback URL arrives. An
	// empty URL with a nil error means the flow was abandoned.
	WaitForCallback func(ctx context.Context) (string, error)

	// AuthorizeURL overrides the authorization endpoint in tests.
	AuthorizeURL string
}

// Authorize runs one authorization attempt. The pending-transaction slot
// is always cleared on exit, whatever the outcome.
func (a *Authorizer) Authorize(ctx context.Context) (*TokenSet, error) {
	if a.Tokens == nil || a.Tokens.ClientID == "" {
		return nil, fmt.Errorf(
			"no Linear OAuth client id is configured. Create an OAuth application with redirect URI %s and set LINEAR_CLIENT_ID",
			a.redirectURI())
	}

	state, err := randomState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate oauth state: %w", err)
	}
	verifier := oauth2.GenerateVerifier()

	pending := &store.PendingAuth{
		State:        state,
		CodeVerifier: verifier,
		RedirectURL:  a.redirectURI(),
		CreatedAt:    time.Now().UnixMilli(),
	}
	// Overwrites any prior pending transaction; only one authorization
	// may be in flight.
	if err := a.Sessions.Put(pending); err != nil {
		return nil, fmt.Errorf("failed to persist oauth state: %w", err)
	}

	// Cleanup must never mask the real outcome, so its error is dropped.
	defer func() {
		if err := a.Sessions.Clear(); err != nil {
			logging.Debug("failed to clear pending oauth state", "error", err)
		}
	}()

	authURL := a.buildAuthorizeURL(state, oauth2.S256ChallengeFromVerifier(verifier))
	logging.Info("opening linear authorization page", "url", authURL)
	if a.OpenBrowser != nil {
		if err := a.OpenBrowser(authURL); err != nil {
			logging.Warn("failed to open browser, open the url manually", "error", err)
		}
	}

	callbackURL, err := a.WaitForCallback(ctx)
	if err != nil {
		return nil, err
	}
	if callbackURL == "" {
		return nil, errors.New("OAuth flow did not complete.")
	}

	code, callbackState, err := parseCallback(callbackURL)
	if err != nil {
		return nil, err
	}

	stored, err := a.Sessions.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to read pending oauth state: %w", err)
	}
	if stored == nil {
		return nil, errors.New("OAuth session expired before completion. Try again.")
	}
	if callbackState != stored.State {
		return nil, errors.New("OAuth state validation failed. Retry from extension settings.")
	}
	if code == "" {
		return nil, errors.New("OAuth did not provide an authorization code.")
	}

	return a.Tokens.ExchangeCode(ctx, code, stored.CodeVerifier)
}

func (a *Authorizer) redirectURI() string {
	if a.Tokens != nil {
		return a.Tokens.RedirectURI
	}
	return ""
}

func (a *Authorizer) buildAuthorizeURL(state, challenge string) string {
	endpoint := a.AuthorizeURL
	if endpoint == "" {
		endpoint = oauthAuthorizeURL
	}

	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", a.Tokens.ClientID)
	q.Set("redirect_uri", a.Tokens.RedirectURI)
	q.Set("scope", oauthScope)
	q.Set("state", state)
	q.Set("code_challenge_method", "S256")
	q.Set("code_challenge", challenge)
	return endpoint + "?" + q.Encode()
}

// parseCallback extracts the authorization code and state from the
// redirect URL, surfacing provider errors found in either the query
// string or the URL fragment.
func parseCallback(callbackURL string) (code, state string, err error) {
	parsed, err := url.Parse(callbackURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid oauth callback url: %w", err)
	}

	query := parsed.Query()
	fragment, _ := url.ParseQuery(parsed.Fragment)

	oauthErr := firstValue(query, fragment, "error")
	if oauthErr != "" {
		description := firstValue(query, fragment, "error_description")
		if description != "" {
			return "", "", fmt.Errorf("OAuth authorization failed: %s: %s", oauthErr, description)
		}
		return "", "", fmt.Errorf("OAuth authorization failed: %s", oauthErr)
	}

	return firstValue(query, fragment, "code"), firstValue(query, fragment, "state"), nil
}

func firstValue(query, fragment url.Values, key string) string {
	if v := query.Get(key); v != "" {
		return v
	}
	return fragment.Get(key)
}

// randomState returns a cryptographically random CSRF token.
func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
