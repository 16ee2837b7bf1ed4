package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/ACHamster/travel-diary-mobile/internal/logger"
	"github.com/ACHamster/travel-diary-mobile/internal/models"
	"github.com/ACHamster/travel-diary-mobile/internal/session"
	"github.com/ACHamster/travel-diary-mobile/internal/transport"
	"github.com/ACHamster/travel-diary-mobile/internal/validate"
)

const (
	DefaultRefreshPath    = "/auth/refresh"
	DefaultRefreshTimeout = 15 * time.Second

	HeaderRequestID = "X-Request-ID"

	refreshKey   = "refresh"
	clearTimeout = 5 * time.Second
)

type Config struct {
	// Backend address including API prefix, e.g. https://travel.achamster.live/api
	BaseURL string `validate:"required,url"`

	RefreshPath    string
	RefreshTimeout time.Duration

	// Called when a request marked RedirectOnAuth fails with AuthError
	OnAuthFailure func(ctx context.Context)
}

// Request describes one logical API call
type Request struct {
	Method string
	Path   string
	Query  url.Values

	// Body is encoded as JSON unless RawBody is set
	Body    any
	RawBody []byte
	Header  http.Header

	// Invoke Config.OnAuthFailure when the call fails with AuthError
	RedirectOnAuth bool

	// Do not try to refresh the session on 401/403
	SkipRefresh bool

	retry bool
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals JSON body into out. Nil out or empty body is a no-op.
func (r *Response) Decode(out any) error {
	if out == nil || len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("can't decode response. Err: %w", err)
	}
	return nil
}

// DecodeData is Decode for endpoints that wrap the payload into {"data": ...}.
// Bodies without the envelope are decoded as is.
func (r *Response) DecodeData(out any) error {
	if out == nil || len(r.Body) == 0 {
		return nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	body := r.Body
	if json.Unmarshal(body, &envelope) == nil && len(envelope.Data) > 0 && !bytes.Equal(envelope.Data, []byte("null")) {
		body = envelope.Data
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("can't decode response. Err: %w", err)
	}
	return nil
}

// Client sends authenticated requests and keeps the session fresh.
// Safe for concurrent use, at most one refresh is in flight at a time.
type Client struct {
	config    Config
	store     session.Store
	transport transport.Transport
	logger    logger.Logger

	refresh singleflight.Group
}

func New(config Config, store session.Store, tr transport.Transport, l logger.Logger) (*Client, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid api config: %w", err)
	}

	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.RefreshPath == "" {
		config.RefreshPath = DefaultRefreshPath
	}
	if config.RefreshTimeout <= 0 {
		config.RefreshTimeout = DefaultRefreshTimeout
	}

	return &Client{
		config:    config,
		store:     store,
		transport: tr,
		logger:    l,
	}, nil
}

func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Do sends the request with the current access token.
// A 401/403 answer triggers one refresh and one retry unless the request opts out.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	req.Header = req.Header.Clone()
	if req.Header == nil {
		req.Header = http.Header{}
	}
	if req.Header.Get(HeaderRequestID) == "" {
		req.Header.Set(HeaderRequestID, uuid.NewString())
	}

	current, err := c.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("can't load session. Err: %w", err)
	}

	resp, err := c.send(ctx, req, current.AccessToken)

	var authErr *AuthError
	if errors.As(err, &authErr) && req.RedirectOnAuth && c.config.OnAuthFailure != nil {
		c.config.OnAuthFailure(ctx)
	}

	return resp, err
}

// Get, Post, Put and Delete decode the payload into out and call OnAuthFailure on unrecoverable auth errors
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.call(ctx, Request{Method: http.MethodGet, Path: path, Query: query, RedirectOnAuth: true}, out)
}

func (c *Client) Post(ctx context.Context, path string, body any, out any) error {
	return c.call(ctx, Request{Method: http.MethodPost, Path: path, Body: body, RedirectOnAuth: true}, out)
}

func (c *Client) Put(ctx context.Context, path string, body any, out any) error {
	return c.call(ctx, Request{Method: http.MethodPut, Path: path, Body: body, RedirectOnAuth: true}, out)
}

func (c *Client) Delete(ctx context.Context, path string, body any, out any) error {
	return c.call(ctx, Request{Method: http.MethodDelete, Path: path, Body: body, RedirectOnAuth: true}, out)
}

func (c *Client) call(ctx context.Context, req Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	return resp.DecodeData(out)
}

func (c *Client) send(ctx context.Context, req Request, token string) (*Response, error) {
	built, err := c.build(req, token)
	if err != nil {
		return nil, err
	}

	resp, err := c.transport.Do(ctx, built)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	body := errorBody(resp.Body)
	unauthorized := resp.StatusCode == http.StatusUnauthorized ||
		resp.StatusCode == http.StatusForbidden ||
		body.unauthorized()

	switch {
	case unauthorized && body.alreadyRegistered():
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: resp.Body}
	case unauthorized && c.refreshable(req):
		return c.refreshAndRetry(ctx, req, token)
	case unauthorized:
		return nil, &AuthError{Reason: ErrUnauthorized, Err: &HTTPError{StatusCode: resp.StatusCode, Body: resp.Body}}
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: resp.Body}, nil
	default:
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: resp.Body}
	}
}

func (c *Client) refreshable(req Request) bool {
	return !req.retry && !req.SkipRefresh && req.Path != c.config.RefreshPath
}

func (c *Client) refreshAndRetry(ctx context.Context, req Request, rejected string) (*Response, error) {
	c.logger.Debug("Request rejected, refreshing session", "method", req.Method, "path", req.Path, "request_id", req.Header.Get(HeaderRequestID))

	s, err := c.refreshRejected(ctx, rejected)
	if err != nil {
		return nil, err
	}

	req.retry = true
	return c.send(ctx, req, s.AccessToken)
}

func (c *Client) build(req Request, token string) (transport.Request, error) {
	body := req.RawBody
	if body == nil && req.Body != nil {
		var err error
		body, err = json.Marshal(req.Body)
		if err != nil {
			return transport.Request{}, fmt.Errorf("can't encode request body. Err: %w", err)
		}
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	for key, values := range req.Header {
		if len(values) == 0 || values[0] == "" {
			continue
		}
		header[http.CanonicalHeaderKey(key)] = append([]string(nil), values...)
	}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	return transport.Request{
		Method: req.Method,
		URL:    c.url(req.Path, req.Query),
		Header: header,
		Body:   body,
	}, nil
}

func (c *Client) url(path string, query url.Values) string {
	u := c.config.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Refresh exchanges the stored refresh token for a new session.
// Concurrent callers share one refresh. On failure the stored session is cleared.
func (c *Client) Refresh(ctx context.Context) (models.Session, error) {
	return c.refreshRejected(ctx, "")
}

// refreshRejected refreshes unless the session already moved past the rejected access token
func (c *Client) refreshRejected(ctx context.Context, rejected string) (models.Session, error) {
	ch := c.refresh.DoChan(refreshKey, func() (any, error) {
		// Outlives the caller, other callers may wait for the same result
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.RefreshTimeout)
		defer cancel()

		return c.doRefresh(ctx, rejected)
	})

	select {
	case <-ctx.Done():
		return models.Session{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return models.Session{}, res.Err
		}
		return res.Val.(models.Session), nil
	}
}

func (c *Client) doRefresh(ctx context.Context, rejected string) (models.Session, error) {
	current, err := c.store.Load(ctx)
	if err != nil {
		return c.refreshFailed(ctx, ErrRefreshFailed, err)
	}
	if rejected != "" && current.AccessToken != "" && current.AccessToken != rejected {
		return current, nil
	}
	if current.RefreshToken == "" {
		return c.refreshFailed(ctx, ErrNoRefreshToken, nil)
	}

	body, err := json.Marshal(map[string]string{"refreshToken": current.RefreshToken})
	if err != nil {
		return c.refreshFailed(ctx, ErrRefreshFailed, err)
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set(HeaderRequestID, uuid.NewString())

	resp, err := c.transport.Do(ctx, transport.Request{
		Method: http.MethodPost,
		URL:    c.url(c.config.RefreshPath, nil),
		Header: header,
		Body:   body,
	})
	if err != nil {
		return c.refreshFailed(ctx, ErrRefreshFailed, &NetworkError{Err: err})
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || errorBody(resp.Body).unauthorized() {
		return c.refreshFailed(ctx, ErrRefreshFailed, &HTTPError{StatusCode: resp.StatusCode, Body: resp.Body})
	}

	var result models.AuthResult
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return c.refreshFailed(ctx, ErrRefreshFailed, fmt.Errorf("can't decode refresh response. Err: %w", err))
	}
	if err := validate.Struct(result); err != nil {
		return c.refreshFailed(ctx, ErrRefreshFailed, err)
	}

	next := models.Session{
		AccessToken:  result.Token,
		RefreshToken: result.RefreshToken,
		UserID:       current.UserID,
		Profile:      current.Profile.Merge(result.User),
	}
	if next.RefreshToken == "" {
		next.RefreshToken = current.RefreshToken
	}
	if result.User.ID != 0 {
		next.UserID = result.User.ID
	}

	if err := c.store.Save(ctx, next); err != nil {
		return c.refreshFailed(ctx, ErrRefreshFailed, err)
	}

	c.logger.Info("Session refreshed", "user_id", next.UserID)
	return next, nil
}

// refreshFailed drops the session. ctx may already be past the refresh deadline, so the clear runs on its own bound.
func (c *Client) refreshFailed(ctx context.Context, reason error, cause error) (models.Session, error) {
	clearCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), clearTimeout)
	defer cancel()

	if err := c.store.Clear(clearCtx); err != nil {
		c.logger.Error("Failed to clear session", "error", err)
		cause = errors.Join(cause, fmt.Errorf("can't clear session. Err: %w", err))
	}

	c.logger.Warn("Session refresh failed, session cleared", "reason", reason, "error", cause)
	return models.Session{}, &AuthError{Reason: reason, Err: cause}
}
