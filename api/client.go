// Package api is the storefront's HTTP transport. It attaches the current bearer token to
// every request and turns a 401 into a local session teardown.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-storefront/events"
	"github.com/jrsteele09/go-storefront/internal/errors"
	"github.com/jrsteele09/go-storefront/internal/metrics"
)

const (
	// DefaultRedirectDelay is how long a 401 waits before sending the user to login.
	DefaultRedirectDelay = 2 * time.Second
	// RequestIDHeader carries a fresh id on every request.
	RequestIDHeader = "X-Request-ID"
)

// Credentials supplies the bearer token at dispatch time and is cleared when the backend rejects it.
type Credentials interface {
	oauth2.TokenSource
	HasRefreshToken() bool
	Clear() error
}

// Navigator moves the caller to the login entry point after a session teardown.
type Navigator interface {
	AtLogin() bool
	ToLogin()
}

type nopNavigator struct{}

func (nopNavigator) AtLogin() bool { return true }
func (nopNavigator) ToLogin()      {}

// Client talks JSON to the storefront backend on behalf of the current session.
type Client struct {
	baseURL       string
	http          *http.Client
	creds         Credentials
	broadcaster   events.Broadcaster
	navigator     Navigator
	redirectDelay time.Duration
	afterFunc     func(d time.Duration, f func())
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithNavigator sets where a session teardown sends the user.
func WithNavigator(n Navigator) Option {
	return func(c *Client) {
		c.navigator = n
	}
}

// WithRedirectDelay overrides DefaultRedirectDelay.
func WithRedirectDelay(d time.Duration) Option {
	return func(c *Client) {
		c.redirectDelay = d
	}
}

// WithAfterFunc replaces the timer used to schedule the login redirect (primarily for testing)
func WithAfterFunc(after func(d time.Duration, f func())) Option {
	return func(c *Client) {
		c.afterFunc = after
	}
}

// NewClient builds a Client rooted at baseURL. Credentials are read on every request.
func NewClient(baseURL string, creds Credentials, broadcaster events.Broadcaster, options ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		http:          http.DefaultClient,
		creds:         creds,
		broadcaster:   broadcaster,
		navigator:     nopNavigator{},
		redirectDelay: DefaultRedirectDelay,
		afterFunc: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// CallOption adjusts a single request.
type CallOption func(*request)

// Anonymous sends the request without credentials. A 401 on an anonymous request is a
// credential failure and leaves the current session alone.
func Anonymous() CallOption {
	return func(r *request) {
		r.anonymous = true
	}
}

func Query(values url.Values) CallOption {
	return func(r *request) {
		r.query = values
	}
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	anonymous   bool

	// recovered is set once the 401 teardown has run for this request.
	recovered bool
}

func (c *Client) Get(ctx context.Context, path string, out any, opts ...CallOption) error {
	return c.sendJSON(ctx, http.MethodGet, path, nil, out, opts)
}

func (c *Client) Post(ctx context.Context, path string, in, out any, opts ...CallOption) error {
	return c.sendJSON(ctx, http.MethodPost, path, in, out, opts)
}

func (c *Client) Put(ctx context.Context, path string, in, out any, opts ...CallOption) error {
	return c.sendJSON(ctx, http.MethodPut, path, in, out, opts)
}

func (c *Client) Patch(ctx context.Context, path string, in, out any, opts ...CallOption) error {
	return c.sendJSON(ctx, http.MethodPatch, path, in, out, opts)
}

func (c *Client) Delete(ctx context.Context, path string, out any, opts ...CallOption) error {
	return c.sendJSON(ctx, http.MethodDelete, path, nil, out, opts)
}

// Upload posts a single file as multipart/form-data. The boundary comes from the writer,
// so no fixed content type is configured for this transport.
func (c *Client) Upload(ctx context.Context, path, field, filename string, content io.Reader, out any, opts ...CallOption) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("[Client.Upload] %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("[Client.Upload] copy %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("[Client.Upload] %w", err)
	}

	r := &request{method: http.MethodPost, path: path, body: buf.Bytes(), contentType: mw.FormDataContentType()}
	for _, opt := range opts {
		opt(r)
	}
	return c.do(ctx, r, out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any, opts []CallOption) error {
	r := &request{method: method, path: path, contentType: "application/json"}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("[Client.%s] marshal %s: %w", method, path, err)
		}
		r.body = body
	}
	for _, opt := range opts {
		opt(r)
	}
	return c.do(ctx, r, out)
}

func (c *Client) do(ctx context.Context, r *request, out any) error {
	req, err := c.newRequest(ctx, r)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.APIRequests.WithLabelValues(r.method, "error").Inc()
		return fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()
	metrics.APIRequests.WithLabelValues(r.method, strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", r.method, r.path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newError(r.method, r.path, resp.StatusCode, body)
		if resp.StatusCode == http.StatusUnauthorized && !r.anonymous && !r.recovered {
			r.recovered = true
			c.teardown(r)
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrapf(errors.ErrMalformedResponse, "%s %s: %v", r.method, r.path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, r *request) (*http.Request, error) {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return nil, fmt.Errorf("[Client.newRequest] %s %s: %w", r.method, r.path, err)
	}
	if r.body != nil && r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())

	if !r.anonymous {
		c.authorize(req)
	}
	return req, nil
}

// authorize reads the token at dispatch time. A missing token sends the request
// unauthenticated; the backend decides whether that is allowed.
func (c *Client) authorize(req *http.Request) {
	tok, err := c.creds.Token()
	if err != nil {
		if !errors.Is(err, errors.ErrNoAccessToken) {
			log.Err(err).Str("path", req.URL.Path).Msg("reading access token")
		}
		log.Warn().Str("path", req.URL.Path).Msg("no access token for request")
		return
	}
	tok.SetAuthHeader(req)
	log.Debug().Str("path", req.URL.Path).Msg("access token attached")
}

// teardown clears the stored session, tells every subscriber about it and schedules
// the login redirect. It never retries the request.
func (c *Client) teardown(r *request) {
	log.Error().Str("method", r.method).Str("path", r.path).Msg("401 unauthorized, tearing down session")

	if c.creds.HasRefreshToken() {
		// TODO: exchange the refresh token once the backend exposes a refresh endpoint.
		log.Warn().Msg("refresh token present but not exchanged, login required")
	} else {
		log.Warn().Msg("no refresh token available")
	}

	if err := c.creds.Clear(); err != nil {
		log.Err(err).Msg("clearing stored credentials")
	}
	metrics.SessionInvalidations.WithLabelValues(metrics.ReasonUnauthorized).Inc()
	c.broadcaster.Emit(events.SessionInvalidated)

	if c.navigator.AtLogin() {
		return
	}
	log.Info().Dur("delay", c.redirectDelay).Msg("redirecting to login")
	c.afterFunc(c.redirectDelay, c.navigator.ToLogin)
}
