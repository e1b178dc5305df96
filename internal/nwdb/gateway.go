package nwdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"resty.dev/v3"
)

// DefaultTimeout bounds every upstream request unless overridden
const DefaultTimeout = 10 * time.Second

// DefaultUserAgent is sent on every request; the upstream host rejects clients
// without a browser-like signature
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// ErrNotModified is returned for HTTP 304. It is neither success nor failure.
var ErrNotModified = errors.New("not_modified")

// HTTPError is an upstream response with status >= 400
type HTTPError struct {
	StatusCode int
	StatusText string
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.StatusText)
}

// IsNotFound reports whether err is an upstream 404
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}

// Response is a successful upstream response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the response body as JSON
func (r *Response) Decode(dest interface{}) error {
	if err := json.Unmarshal(r.Body, dest); err != nil {
		return fmt.Errorf("failed to parse response JSON: %w", err)
	}
	return nil
}

// GatewayConfig holds configuration options for the gateway
type GatewayConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Gateway performs timeout-bounded GET requests against the database host
type Gateway struct {
	client  *resty.Client
	baseURL string
	timeout time.Duration
	logger  *logrus.Logger
}

// NewGateway creates a gateway with its own resty client
func NewGateway(config *GatewayConfig, logger *logrus.Logger) *Gateway {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	baseURL := strings.TrimRight(config.BaseURL, "/")

	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "*/*").
		SetLogger(logger)

	return &Gateway{
		client:  client,
		baseURL: baseURL,
		timeout: timeout,
		logger:  logger,
	}
}

// BaseURL returns the host requests are resolved against
func (g *Gateway) BaseURL() string {
	return g.baseURL
}

// Close releases the underlying HTTP client
func (g *Gateway) Close() error {
	return g.client.Close()
}

// Fetch performs a GET with the gateway's default timeout
func (g *Gateway) Fetch(ctx context.Context, path string, query url.Values) (*Response, error) {
	return g.FetchWithTimeout(ctx, path, query, g.timeout)
}

// FetchWithTimeout performs a GET for path (relative to the base URL, or absolute).
// A timeout aborts the request and surfaces as an error; HTTP 304 returns
// ErrNotModified and status >= 400 returns *HTTPError.
func (g *Gateway) FetchWithTimeout(ctx context.Context, path string, query url.Values, timeout time.Duration) (*Response, error) {
	if timeout <= 0 {
		timeout = g.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	g.logger.Debugf("NWDB API: GET %s %s", path, query.Encode())

	req := g.client.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}

	resp, err := req.Get(path)
	if err != nil {
		g.logger.Debugf("NWDB API: GET %s failed - %v", path, err)
		return nil, err
	}

	code := resp.StatusCode()
	g.logger.Debugf("NWDB API: Response status %d for %s", code, path)

	switch {
	case code == http.StatusNotModified:
		return nil, ErrNotModified
	case code >= http.StatusBadRequest:
		return nil, &HTTPError{
			StatusCode: code,
			StatusText: statusText(code, resp.Status()),
			URL:        path,
		}
	}

	return &Response{
		StatusCode: code,
		Header:     resp.Header(),
		Body:       resp.Bytes(),
	}, nil
}

// statusText strips the numeric code from a status line such as "404 Not Found"
func statusText(code int, status string) string {
	text := strings.TrimSpace(strings.TrimPrefix(status, strconv.Itoa(code)))
	if text == "" {
		text = http.StatusText(code)
	}
	return text
}
