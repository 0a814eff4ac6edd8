// Package client is the REST client of the cohort ledger API. Every call
// maps one-to-one onto a backend route and failures are returned as typed
// errors from pkg/errors.
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
	"time"

	appErrors "github.com/noah-isme/cohort-ledger-api/pkg/errors"
)

const defaultTimeout = 10 * time.Second

// Client talks to one API base URL, for example http://localhost:8080/api/v1.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// New builds a client authenticating with the given bearer token.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken swaps the bearer token used by subsequent calls.
func (c *Client) SetToken(token string) { c.token = token }

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

func jsonRequest(method, path string, payload any) (request, error) {
	req := request{method: method, path: path}
	if payload == nil {
		return req, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return req, fmt.Errorf("encode request body: %w", err)
	}
	req.body = bytes.NewReader(raw)
	req.contentType = "application/json"
	return req, nil
}

// send performs the request and returns the response for a 2xx status.
// Any other outcome is converted into a typed error.
func (c *Client) send(ctx context.Context, r request) (*http.Response, error) {
	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, r.body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransportFailure.Code, appErrors.ErrTransportFailure.Status,
			fmt.Sprintf("%s %s failed", r.method, r.path))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp, nil
}

// do sends r and decodes the data member of the envelope into out.
func (c *Client) do(ctx context.Context, r request, out any) (map[string]interface{}, error) {
	resp, err := c.send(ctx, r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransportFailure.Code, appErrors.ErrTransportFailure.Status, "failed to read response")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode response")
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode response data")
		}
	}
	return env.Meta, nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Error != nil && env.Error.Code != "" {
		out := appErrors.Clone(env.Error, "")
		out.Status = resp.StatusCode
		return out
	}
	template := templateFor(resp.StatusCode)
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	out := appErrors.Clone(template, msg)
	out.Status = resp.StatusCode
	return out
}

func templateFor(status int) *appErrors.Error {
	switch {
	case status == http.StatusUnauthorized:
		return appErrors.ErrUnauthorized
	case status == http.StatusForbidden:
		return appErrors.ErrForbidden
	case status == http.StatusNotFound:
		return appErrors.ErrNotFound
	case status == http.StatusConflict:
		return appErrors.ErrConflict
	case status == http.StatusRequestEntityTooLarge:
		return appErrors.ErrPayloadTooLarge
	case status == http.StatusBadGateway, status == http.StatusServiceUnavailable, status == http.StatusGatewayTimeout:
		return appErrors.ErrTransportFailure
	case status >= http.StatusInternalServerError:
		return appErrors.ErrInternal
	default:
		return appErrors.ErrValidation
	}
}

func get[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	var out T
	_, err := c.do(ctx, request{method: http.MethodGet, path: path, query: query}, &out)
	return out, err
}

func call[T any](ctx context.Context, c *Client, method, path string, payload any) (T, error) {
	var out T
	req, err := jsonRequest(method, path, payload)
	if err != nil {
		return out, err
	}
	_, err = c.do(ctx, req, &out)
	return out, err
}

func (c *Client) remove(ctx context.Context, path string) error {
	_, err := c.do(ctx, request{method: http.MethodDelete, path: path}, nil)
	return err
}

func escape(id string) string { return url.PathEscape(id) }

// IsTimeout reports whether err is a client side deadline.
func IsTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout())
}
