package norisk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"launcher/internal/config"
	"launcher/internal/logging"
	"launcher/internal/services"
)

const serviceName = "norisk"

const maxErrorBody = 4 << 10

// HTTPDoer describes the HTTP client used by the API client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client holds the production and staging base URLs.
type Client struct {
	baseURL    string
	stagingURL string
	http       HTTPDoer
	logger     *slog.Logger
}

// NewClient constructs a client. A nil doer falls back to an http.Client with
// a 15 second timeout.
func NewClient(baseURL, stagingURL string, doer HTTPDoer, logger *slog.Logger) *Client {
	if doer == nil {
		doer = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		stagingURL: strings.TrimRight(strings.TrimSpace(stagingURL), "/"),
		http:       doer,
		logger:     logging.NewComponentLogger(logger, serviceName),
	}
}

// NewConfiguredClient builds a client from bootstrap configuration.
func NewConfiguredClient(cfg *config.Config, logger *slog.Logger) *Client {
	if cfg == nil {
		d := config.Default()
		cfg = &d
	}
	timeout := time.Duration(cfg.API.TimeoutSeconds) * time.Second
	return NewClient(cfg.API.BaseURL, cfg.API.StagingBaseURL, &http.Client{Timeout: timeout}, logger)
}

// BaseURL returns the base URL selected by the experimental flag.
func (c *Client) BaseURL(experimental bool) string {
	if experimental {
		return c.stagingURL
	}
	return c.baseURL
}

// Get issues a GET against endpoint and decodes the JSON reply into T.
func Get[T any](ctx context.Context, c *Client, endpoint, token string, query url.Values, experimental bool) (T, error) {
	var out T
	body, err := c.do(ctx, http.MethodGet, endpoint, token, query, experimental)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, services.Wrap(services.ErrDecode, serviceName, "GET "+endpoint, "unexpected response body", err)
	}
	return out, nil
}

// DeleteText issues a DELETE against endpoint and returns the raw reply.
func DeleteText(ctx context.Context, c *Client, endpoint, token string, query url.Values, experimental bool) (string, error) {
	body, err := c.do(ctx, http.MethodDelete, endpoint, token, query, experimental)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) do(ctx context.Context, method, endpoint, token string, query url.Values, experimental bool) ([]byte, error) {
	operation := method + " " + endpoint
	target := c.BaseURL(experimental) + "/" + strings.TrimLeft(endpoint, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, serviceName, operation, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if token = strings.TrimSpace(token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		req.Header.Set("X-Request-ID", rid)
	}

	logger := logging.WithContext(ctx, c.logger)
	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Debug("api request failed", logging.String("operation", operation), logging.Error(err))
		return nil, services.Wrap(services.ErrNetwork, serviceName, operation, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrNetwork, serviceName, operation, "read response", err)
	}
	logger.Debug("api request completed",
		logging.String("operation", operation),
		logging.Int("status", resp.StatusCode),
		logging.Bool("experimental", experimental),
		logging.Duration("elapsed", time.Since(started)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := body
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		statusErr := &services.StatusError{Code: resp.StatusCode, Body: string(snippet)}
		return nil, services.Wrap(services.ErrStatus, serviceName, operation, fmt.Sprintf("returned %d", resp.StatusCode), statusErr)
	}
	return body, nil
}
