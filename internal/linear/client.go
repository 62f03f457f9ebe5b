// Package linear implements the Linear access layer: the OAuth PKCE
// authorization flow, access/refresh token lifecycle, and authenticated
// GraphQL request execution.
package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultEndpoint = "https://api.linear.app/graphql"

// Client is a minimal GraphQL client for the Linear API.
type Client struct {
	Endpoint   string
	HTTPClient *http.Client
}

// NewClient creates a client against the public Linear endpoint.
func NewClient() *Client {
	return &Client{
		Endpoint:   defaultEndpoint,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message    string `json:"message"`
	Extensions struct {
		UserPresentableMessage string          `json:"userPresentableMessage"`
		ValidationErrors       json.RawMessage `json:"validationErrors"`
	} `json:"extensions"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// Execute runs a GraphQL request with the given token and unmarshals the
// data payload into out (which may be nil). The token is normalized to a
// Bearer header.
func (c *Client) Execute(ctx context.Context, token, query string, variables map[string]any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", BearerHeader(token))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("Linear API returned %d", resp.StatusCode)
	}

	var gqlResp graphQLResponse
	if err := json.Unmarshal(respBody, &gqlResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(gqlResp.Errors) > 0 {
		return graphQLErrorMessage(gqlResp.Errors[0])
	}
	if len(gqlResp.Data) == 0 || string(gqlResp.Data) == "null" {
		return errors.New("Linear API returned empty data.")
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(gqlResp.Data, out); err != nil {
		return fmt.Errorf("failed to decode data: %w", err)
	}
	return nil
}

// graphQLErrorMessage surfaces the most user-presentable message the
// error carries, appending validation details when present.
func graphQLErrorMessage(gqlErr graphQLError) error {
	msg := gqlErr.Extensions.UserPresentableMessage
	if msg == "" {
		msg = gqlErr.Message
	}
	if len(gqlErr.Extensions.ValidationErrors) > 0 && string(gqlErr.Extensions.ValidationErrors) != "null" {
		return fmt.Errorf("%s (%s)", msg, string(gqlErr.Extensions.ValidationErrors))
	}
	return fmt.Errorf("%s", msg)
}

// BearerHeader normalizes a token into an Authorization header value.
// Tokens already carrying a bearer prefix are passed through.
func BearerHeader(token string) string {
	trimmed := strings.TrimSpace(token)
	if strings.HasPrefix(strings.ToLower(trimmed), "bearer ") {
		return trimmed
	}
	return "Bearer " + trimmed
}
