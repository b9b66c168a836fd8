// Package httpclient provides the outbound JSON HTTP client used by tool services.
package httpclient

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

	"tripplanner/pkg/apperr"
)

// DefaultTimeout bounds a single request when the caller does not set one.
const DefaultTimeout = 20 * time.Second

// StatusError reports a non-2xx upstream response.
//
//nolint:govet // fieldalignment: logical grouping preferred
type StatusError struct {
	Status     int
	StatusText string
	Details    any // Parsed JSON error body, when the upstream sent one
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Upstream request failed: %d %s", e.Status, e.StatusText)
}

// StatusCode exposes the upstream status to the retry classifier.
func (e *StatusError) StatusCode() int {
	return e.Status
}

// Request describes one outbound call.
//
//nolint:govet // fieldalignment: logical grouping preferred
type Request struct {
	Method  string
	URL     string
	Query   url.Values
	Headers map[string]string
	Body    any           // string bodies are sent as text/plain, anything else as JSON
	APIKey  string        // Sent as a bearer token unless Authorization is set
	Timeout time.Duration // Per-request timeout; DefaultTimeout when zero
}

// Client performs JSON requests with per-request timeouts.
type Client struct {
	http *http.Client
}

// New creates a client. A nil httpClient uses a fresh http.Client.
func New(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{http: httpClient}
}

// Do executes req and decodes the response into out.
//
// JSON responses are unmarshalled into out; other content types are stored
// into out when it is a *string. A non-2xx status returns *StatusError and a
// per-request timeout returns *apperr.TimeoutError.
func (c *Client) Do(ctx context.Context, req *Request, out any) error {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := c.build(reqCtx, req)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return apperr.NewTimeoutError(fmt.Sprintf("Request timed out after %dms", timeout.Milliseconds()))
		}
		return fmt.Errorf("request %s %s: %w", httpReq.Method, httpReq.URL.Host, err)
	}
	defer func() { _ = resp.Body.Close() }()

	isJSON := strings.Contains(resp.Header.Get("Content-Type"), "application/json")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
		}
		if isJSON {
			var details any
			if json.NewDecoder(resp.Body).Decode(&details) == nil {
				statusErr.Details = details
			}
		}
		return statusErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return apperr.NewTimeoutError(fmt.Sprintf("Request timed out after %dms", timeout.Milliseconds()))
		}
		return fmt.Errorf("read response body: %w", err)
	}

	if out == nil {
		return nil
	}
	if isJSON {
		if len(bytes.TrimSpace(body)) == 0 {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return apperr.NewRemoteAPIError("Upstream returned malformed JSON", err)
		}
		return nil
	}
	if s, ok := out.(*string); ok {
		*s = string(body)
		return nil
	}
	return apperr.NewRemoteAPIError(fmt.Sprintf("Upstream returned unexpected content type %q", resp.Header.Get("Content-Type")), nil)
}

// GetJSON is a convenience wrapper for a GET decoding a JSON body into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, query url.Values, headers map[string]string, timeout time.Duration, out any) error {
	return c.Do(ctx, &Request{
		Method:  http.MethodGet,
		URL:     rawURL,
		Query:   query,
		Headers: headers,
		Timeout: timeout,
	}, out)
}

func (c *Client) build(ctx context.Context, req *Request) (*http.Request, error) {
	if req.URL == "" {
		return nil, errors.New("apiUrl is required")
	}
	u, err := url.Parse(req.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API URL %q", req.URL)
	}
	if len(req.Query) > 0 {
		q := u.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	contentType := ""
	if req.Body != nil && method != http.MethodGet && method != http.MethodHead {
		switch b := req.Body.(type) {
		case string:
			body = strings.NewReader(b)
			contentType = "text/plain;charset=utf-8"
		default:
			encoded, err := json.Marshal(b)
			if err != nil {
				return nil, fmt.Errorf("encode request body: %w", err)
			}
			body = bytes.NewReader(encoded)
			contentType = "application/json"
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.APIKey != "" && httpReq.Header.Get("Authorization") == "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	}
	return httpReq, nil
}
