// Package client is the Go SDK for the MiniSocial data service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/anonto42/minisocial/internal/models"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-retryablehttp"
	log "github.com/sirupsen/logrus"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultRetryMax = 3
)

// Options configures a Client.
type Options struct {
	// BaseURL includes the API prefix, e.g. http://localhost:8080/api/v1.
	BaseURL  string
	Token    string
	Timeout  time.Duration
	// RetryMax bounds read retries. Zero means the default of 3, negative disables them.
	RetryMax int
}

// Client talks to the data service over HTTP and WebSocket. Reads are retried
// with exponential backoff, mutations are sent exactly once.
type Client struct {
	baseURL *url.URL
	reads   *http.Client
	writes  *http.Client
	dialer  *websocket.Dialer

	mu    sync.RWMutex
	token string
}

func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", base.Scheme)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	switch {
	case opts.RetryMax == 0:
		opts.RetryMax = defaultRetryMax
	case opts.RetryMax < 0:
		opts.RetryMax = 0
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.RetryMax
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = opts.Timeout
	rc.Logger = leveledLogrus{}
	// hand the last response back so its status can be mapped
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		baseURL: base,
		reads:   rc.StandardClient(),
		writes:  &http.Client{Timeout: opts.Timeout},
		dialer:  &websocket.Dialer{HandshakeTimeout: opts.Timeout},
		token:   opts.Token,
	}, nil
}

// SetToken replaces the session token used for every later call.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, nil), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	httpClient := c.writes
	if method == http.MethodGet {
		httpClient = c.reads
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%s %s: %w: %v", method, path, models.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// statusError maps a failed response back onto the error taxonomy.
func statusError(resp *http.Response) error {
	var payload struct {
		Message interface{} `json:"message"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload)
	msg := http.StatusText(resp.StatusCode)
	if payload.Message != nil {
		msg = fmt.Sprint(payload.Message)
	}

	var sentinel error
	code := "HTTP_" + fmt.Sprint(resp.StatusCode)
	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		sentinel, code = models.ErrValidation, "VALIDATION_ERROR"
	case http.StatusUnauthorized:
		sentinel, code = models.ErrUnauthorized, "UNAUTHORIZED"
	case http.StatusForbidden:
		sentinel, code = models.ErrForbidden, "FORBIDDEN"
	case http.StatusNotFound:
		sentinel, code = models.ErrNotFound, "NOT_FOUND"
	case http.StatusConflict:
		sentinel, code = models.ErrConflict, "CONFLICT"
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusTooManyRequests:
		sentinel, code = models.ErrUnavailable, "UNAVAILABLE"
	default:
		sentinel = errors.New(strings.ToLower(http.StatusText(resp.StatusCode)))
	}
	return &models.AppError{Code: code, Message: msg, Err: sentinel}
}

// leveledLogrus routes retry logs into logrus.
type leveledLogrus struct{}

func fields(kv []interface{}) log.Fields {
	f := make(log.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}

func (leveledLogrus) Error(msg string, kv ...interface{}) { log.WithFields(fields(kv)).Error(msg) }
func (leveledLogrus) Info(msg string, kv ...interface{})  { log.WithFields(fields(kv)).Debug(msg) }
func (leveledLogrus) Debug(msg string, kv ...interface{}) { log.WithFields(fields(kv)).Trace(msg) }
func (leveledLogrus) Warn(msg string, kv ...interface{})  { log.WithFields(fields(kv)).Warn(msg) }
