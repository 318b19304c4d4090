// Package client is the Go SDK for the MedOK HTTP API. It owns the API key,
// the signed-in token pair and the error envelope decoding; the stores under
// pkg/client/stores build the application state on top of it.
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

	"github.com/google/uuid"
)

const (
	apiPrefix      = "/api/v1"
	defaultTimeout = 30 * time.Second
)

var (
	// ErrMissingConfig is returned by New when the endpoint or the API key is absent.
	ErrMissingConfig = errors.New("client: base url and api key are required")
	// ErrTransport marks failures that never produced an HTTP response.
	ErrTransport = errors.New("client: transport failure")
	// ErrNotSignedIn is returned by calls that need tokens while none are stored.
	ErrNotSignedIn = errors.New("client: not signed in")
)

type Config struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	tokens  *TokenStore
}

func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	key := strings.TrimSpace(cfg.APIKey)
	if base == "" || key == "" {
		return nil, ErrMissingConfig
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("client: invalid base url: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: base, apiKey: key, http: httpClient, tokens: &TokenStore{}}, nil
}

// Tokens exposes the token store so embedders can persist and restore a session.
func (c *Client) Tokens() *TokenStore {
	return c.tokens
}

// APIError is the decoded {"error":{...}} envelope of a non-2xx response.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// IsAuth reports an expired, revoked or missing session.
func (e *APIError) IsAuth() bool {
	return e.Status == http.StatusUnauthorized
}

// AsAPIError unwraps err into an *APIError when the server answered with an error envelope.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func IsAuthError(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.IsAuth()
}

func IsTransportError(err error) bool {
	return errors.Is(err, ErrTransport)
}

type successEnvelope struct {
	Data json.RawMessage `json:"data"`
}

type errorEnvelope struct {
	Error APIError `json:"error"`
}

// request describes one API call; body is JSON encoded unless raw is set.
type request struct {
	method      string
	path        string
	query       url.Values
	body        any
	raw         io.Reader
	contentType string
	bearer      string
}

func (c *Client) newRequest(ctx context.Context, req request) (*http.Request, error) {
	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	body := req.raw
	contentType := req.contentType
	if body == nil && req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("client: encode %s %s: %w", req.method, req.path, err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("client: build %s %s: %w", req.method, req.path, err)
	}
	httpReq.Header.Set("apikey", c.apiKey)
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	bearer := req.bearer
	if bearer == "" {
		bearer = c.tokens.AccessToken()
	}
	if bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+bearer)
	}
	if req.method != http.MethodGet {
		httpReq.Header.Set("Idempotency-Key", uuid.NewString())
	}
	return httpReq, nil
}

// do sends req and decodes the data envelope into out (which may be nil).
func (c *Client) do(ctx context.Context, req request, out any) error {
	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrTransport, req.method, req.path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	var env successEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("client: decode %s %s: %w", req.method, req.path, err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("client: decode %s %s data: %w", req.method, req.path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Error.Code == "" {
		return &APIError{
			Status:  resp.StatusCode,
			Code:    "HTTP_" + fmt.Sprint(resp.StatusCode),
			Message: strings.TrimSpace(string(body)),
		}
	}
	env.Error.Status = resp.StatusCode
	return &env.Error
}
