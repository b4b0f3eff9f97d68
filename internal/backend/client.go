package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/karpool/karpool-client/pkg/errors"
	"github.com/karpool/karpool-client/pkg/logger"
	"github.com/karpool/karpool-client/pkg/monitoring"
)

// PlatformHeader marks every call as coming from the mobile client
const PlatformHeader = "mobile"

// TokenSource supplies the persisted bearer token. An empty token means
// the user is not logged in.
type TokenSource interface {
	Load(ctx context.Context) (string, error)
}

// Config holds backend client configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client calls the ride-sharing backend REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	log        *logger.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithNewRelic instruments outgoing calls as external segments
func WithNewRelic(nr *monitoring.NewRelicApp) Option {
	return func(c *Client) {
		base := c.httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		c.httpClient.Transport = nr.Transport(base)
	}
}

// NewClient creates a backend client
func NewClient(cfg Config, tokens TokenSource, log *logger.Logger, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		log:        log.Named("backend"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// call describes one backend request. endpoint is the route pattern used
// as a metric label.
type call struct {
	method   string
	path     string
	endpoint string
	auth     bool
	body     interface{}
}

// do executes c and returns the raw response body. Authenticated calls
// fail with ErrMissingCredentials before touching the network when no
// token is stored.
func (c *Client) do(ctx context.Context, cl call) ([]byte, error) {
	var token string
	if cl.auth {
		t, err := c.tokens.Load(ctx)
		if err != nil {
			return nil, apperrors.Internal("Failed to read stored session", err)
		}
		if t == "" {
			monitoring.MissingCredentialsTotal.Inc()
			return nil, apperrors.ErrMissingCredentials
		}
		token = t
	}

	var reader io.Reader
	if cl.body != nil {
		payload, err := json.Marshal(cl.body)
		if err != nil {
			return nil, apperrors.Internal("Failed to encode request", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, reader)
	if err != nil {
		return nil, apperrors.Internal("Failed to create request", err)
	}

	requestID := uuid.New().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Platform", PlatformHeader)
	req.Header.Set("X-Request-ID", requestID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		monitoring.ObserveBackend(cl.method, cl.endpoint, "error", time.Since(start))
		c.log.Warn("Backend request failed",
			logger.String("request_id", requestID),
			logger.String("method", cl.method),
			logger.String("path", cl.path),
			logger.Err(err),
		)
		return nil, apperrors.Transport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	monitoring.ObserveBackend(cl.method, cl.endpoint, strconv.Itoa(resp.StatusCode), elapsed)
	if err != nil {
		return nil, apperrors.Transport(fmt.Errorf("failed to read response: %w", err))
	}

	c.log.Debug("Backend request completed",
		logger.String("request_id", requestID),
		logger.String("method", cl.method),
		logger.String("path", cl.path),
		logger.Int("status", resp.StatusCode),
		logger.Duration("elapsed", elapsed),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.Upstream(resp.StatusCode, string(body))
	}
	return body, nil
}

// doJSON executes cl and decodes a non-empty response body into out
func (c *Client) doJSON(ctx context.Context, cl call, out interface{}) error {
	body, err := c.do(ctx, cl)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.Decode(err)
	}
	return nil
}
