// Package api is the request/response client of the chat backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"parley/internal/metrics"
	"parley/internal/models"

	"github.com/c-pro/geche"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL  = "http://localhost:5000"
	DefaultTimeout  = 15 * time.Second
	DefaultRate     = 10
	DefaultBurst    = 20
	DefaultCacheTTL = time.Minute
)

// Credentials supplies the bearer token and is cleared on a 401.
type Credentials interface {
	Token() string
	Clear() error
}

type Config struct {
	BaseURL string
	Timeout time.Duration
	// Rate limits outgoing requests per second; Burst is the bucket size.
	Rate  float64
	Burst int
	// CacheTTL is how long group details are reused.
	CacheTTL time.Duration
}

func (c *Config) setDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Rate <= 0 {
		c.Rate = DefaultRate
	}
	if c.Burst <= 0 {
		c.Burst = DefaultBurst
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// OnUnauthorized registers a hook run after a 401 cleared the credentials.
func OnUnauthorized(f func()) Option {
	return func(c *Client) { c.onUnauthorized = f }
}

type Client struct {
	cfg            Config
	http           *http.Client
	creds          Credentials
	limiter        *rate.Limiter
	groups         geche.Geche[string, models.Group]
	metrics        *metrics.Metrics
	onUnauthorized func()
	log            zerolog.Logger
}

// New builds a client. ctx bounds the lifetime of the group cache cleanup.
func New(ctx context.Context, cfg Config, creds Credentials, opts ...Option) *Client {
	cfg.setDefaults()
	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		creds:   creds,
		limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst),
		groups:  geche.NewMapTTLCache[string, models.Group](ctx, cfg.CacheTTL, time.Minute),
		log:     log.With().Str("component", "api").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	method string
	path   string
	// route labels metrics; path may contain IDs.
	route       string
	body        io.Reader
	contentType string
	// anonymous calls carry no token and never clear the session.
	anonymous bool
}

func jsonRequest(method, path, route string, payload any) (request, error) {
	r := request{method: method, path: path, route: route}
	if payload == nil {
		return r, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return r, fmt.Errorf("failed to encode request: %w", err)
	}
	r.body = bytes.NewReader(data)
	r.contentType = "application/json"
	return r, nil
}

// do performs r and decodes a 2xx JSON body into out (if non-nil).
func (c *Client) do(ctx context.Context, r request, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.cfg.BaseURL+r.path, r.body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.creds != nil && !r.anonymous {
		if token := c.creds.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.Request(r.route, "error", time.Since(start).Seconds())
		return fmt.Errorf("%w: %s %s: %v", ErrNetwork, r.method, r.route, err)
	}
	defer func() { _ = resp.Body.Close() }()
	c.metrics.Request(r.route, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized && !r.anonymous {
			c.unauthorized()
		}
		return &Error{Status: resp.StatusCode, Message: errorMessage(body), anonymous: r.anonymous}
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", r.route, err)
	}
	return nil
}

func (c *Client) unauthorized() {
	c.log.Warn().Msg("session rejected by server, clearing credentials")
	if c.creds != nil {
		if err := c.creds.Clear(); err != nil {
			c.log.Error().Err(err).Msg("failed to clear credentials")
		}
	}
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
}

// errorMessage extracts {"message": ...} or {"error": ...} from an error body.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return strings.TrimSpace(string(body))
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

// IsUnauthorized reports whether err is a rejected session.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
