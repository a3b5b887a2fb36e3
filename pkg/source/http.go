package source

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
)

// HTTPConfig configures an HTTPFetcher.
type HTTPConfig struct {
	// Name is the connector name policies refer to.
	Name string `yaml:"name"`

	// BaseURL is the upstream endpoint, e.g. "https://crm.internal:8443".
	BaseURL string `yaml:"base_url"`

	// PathTemplate is the request path with a "{key}" placeholder for
	// the subject key, e.g. "/v1/customers/{key}".
	PathTemplate string `yaml:"path_template"`

	// KeyParam names a query parameter to carry the subject key when
	// PathTemplate has no placeholder, e.g. "customer_id".
	KeyParam string `yaml:"key_param"`

	// HealthPath is requested by HealthCheck. Empty means the base URL.
	HealthPath string `yaml:"health_path"`

	// Headers are sent with every request.
	Headers map[string]string `yaml:"headers"`

	// BearerToken, when set, is sent as an Authorization header.
	BearerToken string `yaml:"bearer_token"`

	// Timeout bounds each HTTP request.
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the number of retry attempts for 5xx and network
	// failures.
	MaxRetries int `yaml:"max_retries"`

	// MaxResponseBytes caps the response body size.
	MaxResponseBytes int64 `yaml:"max_response_bytes"`
}

// DefaultHTTPConfig returns an HTTPConfig with sensible defaults.
func DefaultHTTPConfig() *HTTPConfig {
	return &HTTPConfig{
		Timeout:          10 * time.Second,
		MaxRetries:       2,
		MaxResponseBytes: 10 << 20,
	}
}

// Validate checks the configuration for correctness.
func (c *HTTPConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("base_url cannot be empty")
	}
	parsed, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("base_url must use http or https scheme, got %q", parsed.Scheme)
	}
	if c.PathTemplate == "" && c.KeyParam == "" {
		return fmt.Errorf("either path_template or key_param must be set")
	}
	if c.PathTemplate != "" && !strings.Contains(c.PathTemplate, "{key}") && c.KeyParam == "" {
		return fmt.Errorf("path_template must contain {key} when key_param is not set")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxResponseBytes <= 0 {
		return fmt.Errorf("max_response_bytes must be positive")
	}
	return nil
}

// HTTPFetcher retrieves subject records from a JSON REST endpoint.
type HTTPFetcher struct {
	config *HTTPConfig
	client *http.Client
	logger *slog.Logger
}

// NewHTTPFetcher creates a fetcher for the configured endpoint.
func NewHTTPFetcher(cfg *HTTPConfig) (*HTTPFetcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	applyHTTPDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid http source config: %w", err)
	}

	transport := &http.Transport{
		MaxIdleConns:        32,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &HTTPFetcher{
		config: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		logger: slog.Default().With("component", "source", "source", cfg.Name),
	}, nil
}

func applyHTTPDefaults(cfg *HTTPConfig) {
	defaults := DefaultHTTPConfig()
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.MaxResponseBytes == 0 {
		cfg.MaxResponseBytes = defaults.MaxResponseBytes
	}
}

// Name returns the connector name.
func (f *HTTPFetcher) Name() string {
	return f.config.Name
}

// Fetch performs a GET against the upstream and decodes the JSON
// object it returns. 5xx responses and network errors are retried with
// exponential backoff; 4xx responses are not.
func (f *HTTPFetcher) Fetch(ctx context.Context, key string) (*Payload, error) {
	requestURL, err := f.buildURL(key)
	if err != nil {
		return nil, NewSourceError(f.config.Name, "fetch", "failed to build request URL", err)
	}

	var lastErr error
	for attempt := 0; attempt <= f.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * 200 * time.Millisecond
			f.logger.Debug("retrying source fetch",
				"attempt", attempt,
				"max_retries", f.config.MaxRetries,
				"backoff", backoff,
			)
			select {
			case <-ctx.Done():
				return nil, NewSourceError(f.config.Name, "fetch", "context cancelled during retry", ctx.Err())
			case <-time.After(backoff):
			}
		}

		payload, retryable, err := f.doFetch(ctx, requestURL, key)
		if err == nil {
			return payload, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

// doFetch performs a single request attempt. The second return value
// reports whether the failure is worth retrying.
func (f *HTTPFetcher) doFetch(ctx context.Context, requestURL, key string) (*Payload, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, false, NewSourceError(f.config.Name, "fetch", "failed to create request", err)
	}
	f.setHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, NewSourceError(f.config.Name, "fetch", "request cancelled", ctx.Err())
		}
		return nil, true, NewSourceError(f.config.Name, "fetch", "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, NewNotFoundError(f.config.Name, key)

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, false, NewSourceError(f.config.Name, "fetch",
			fmt.Sprintf("upstream rejected credentials (status %d)", resp.StatusCode), nil)

	case resp.StatusCode >= 500:
		return nil, true, NewSourceError(f.config.Name, "fetch",
			fmt.Sprintf("upstream returned status %d", resp.StatusCode), nil)

	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, false, NewSourceError(f.config.Name, "fetch",
			fmt.Sprintf("upstream returned status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxResponseBytes+1))
	if err != nil {
		return nil, true, NewSourceError(f.config.Name, "fetch", "failed to read response body", err)
	}
	if int64(len(body)) > f.config.MaxResponseBytes {
		return nil, false, NewSourceError(f.config.Name, "fetch",
			fmt.Sprintf("response exceeds %d byte limit", f.config.MaxResponseBytes), nil)
	}

	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, false, NewSourceError(f.config.Name, "fetch", "response is not a JSON object", err)
	}

	return &Payload{
		Source:    f.config.Name,
		Data:      data,
		FetchedAt: time.Now().UTC(),
	}, false, nil
}

func (f *HTTPFetcher) buildURL(key string) (string, error) {
	base, err := url.Parse(f.config.BaseURL)
	if err != nil {
		return "", err
	}

	path := f.config.PathTemplate
	if strings.Contains(path, "{key}") {
		path = strings.ReplaceAll(path, "{key}", url.PathEscape(key))
	}
	if path != "" {
		base.Path = strings.TrimSuffix(base.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	}

	if f.config.KeyParam != "" && !strings.Contains(f.config.PathTemplate, "{key}") {
		query := base.Query()
		query.Set(f.config.KeyParam, key)
		base.RawQuery = query.Encode()
	}

	return base.String(), nil
}

func (f *HTTPFetcher) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	for key, value := range f.config.Headers {
		req.Header.Set(key, value)
	}
	if f.config.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+f.config.BearerToken)
	}
}

// HealthCheck requests the configured health path and treats any
// response below 500 as healthy.
func (f *HTTPFetcher) HealthCheck(ctx context.Context) error {
	target := f.config.BaseURL
	if f.config.HealthPath != "" {
		target = strings.TrimSuffix(f.config.BaseURL, "/") + "/" + strings.TrimPrefix(f.config.HealthPath, "/")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return NewSourceError(f.config.Name, "health_check", "failed to create request", err)
	}
	f.setHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return NewSourceError(f.config.Name, "health_check", "request failed", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 500 {
		return NewSourceError(f.config.Name, "health_check",
			fmt.Sprintf("upstream returned status %d", resp.StatusCode), nil)
	}
	return nil
}

// Close releases idle connections.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}
