package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/runningman84/truenas-status/pkg/config"
	"k8s.io/klog/v2"
)

// maxErrorBody bounds how much of a failed response is kept in an APIError
const maxErrorBody = 4096

// Client is an authenticated HTTP client for the appliance REST API.
// It is configured once and must not be modified after the first request.
type Client struct {
	httpClient *http.Client
	baseURL    string
	authMethod string
	apiKey     string
	username   string
	password   string
	debug      bool
}

// APIError represents a non-2xx response from the appliance
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d for %s: %s", e.StatusCode, e.URL, e.Message)
}

// IsNotFound returns true if the error is a 404 Not Found
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnauthorized returns true if the error is a 401 Unauthorized
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// NewClient creates a new appliance client from the validated configuration
func NewClient(cfg *config.Config) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: !cfg.VerifySSL, //nolint:gosec // appliances ship self-signed certificates
		},
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		baseURL:    cfg.TrueNASURL,
		authMethod: cfg.AuthMethod,
		apiKey:     cfg.APIKey,
		username:   cfg.Username,
		password:   cfg.Password,
		debug:      cfg.IsDebug(),
	}
}

// URL joins an endpoint path to the base URL
func (c *Client) URL(path string) string {
	return strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// GetJSON performs a GET request and decodes the JSON response into out
func (c *Client) GetJSON(ctx context.Context, path string, out interface{}) error {
	body, err := c.GetRaw(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", c.URL(path), err)
	}
	return nil
}

// GetRaw performs a GET request and returns the raw response body
func (c *Client) GetRaw(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", c.URL(path), err)
	}
	c.logResponse(path, resp.StatusCode, body)
	return body, nil
}

// PostJSON performs a POST request with a JSON body and decodes the JSON response into out.
// out may be nil when the response body is not needed.
func (c *Client) PostJSON(ctx context.Context, path string, in, out interface{}) error {
	resp, err := c.do(ctx, http.MethodPost, path, in)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response from %s: %w", c.URL(path), err)
	}
	c.logResponse(path, resp.StatusCode, body)

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", c.URL(path), err)
		}
	}
	return nil
}

// Download issues a request for a file endpoint and returns the response body
// stream after checking the status. The caller must close the stream.
func (c *Client) Download(ctx context.Context, method, path string, in interface{}) (io.ReadCloser, error) {
	resp, err := c.do(ctx, method, path, in)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// do sends a single request and returns the response if the status is 2xx.
// Requests are never retried.
func (c *Client) do(ctx context.Context, method, path string, in interface{}) (*http.Response, error) {
	url := c.URL(path)

	var bodyReader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authenticate(req)

	if c.debug {
		klog.V(1).Infof(" Request: %s %s", method, url)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s failed: %w", method, url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer func() { _ = resp.Body.Close() }()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(msg)),
			URL:        url,
		}
	}

	return resp, nil
}

// authenticate adds the configured credentials to a request
func (c *Client) authenticate(req *http.Request) {
	switch c.authMethod {
	case config.AuthMethodBasic:
		req.SetBasicAuth(c.username, c.password)
	default:
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// logResponse logs the response if debug mode is enabled
func (c *Client) logResponse(path string, statusCode int, body []byte) {
	if !c.debug {
		return
	}
	klog.V(1).Infof(" Status: %d for %s", statusCode, path)
	if len(body) > 0 {
		klog.V(1).Infof(" Body: %s", truncate(string(body), 512))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
