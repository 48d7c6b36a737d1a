// Package api is the thin HTTP/JSON client for the vibe backend. Requests
// always resolve to a Response; the transport never panics and never returns
// a Go error, so callers branch on the neutral result shape instead.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// DefaultBaseURL is used when VIBE_API_URL is not set.
const DefaultBaseURL = "https://www.slashvibe.dev"

const defaultTimeout = 10 * time.Second

// TokenSource supplies the bearer token. It is consulted on every request so
// a token rotated by another process (or by presence registration) is picked
// up without rebuilding the client.
type TokenSource func() string

// Client issues JSON requests against the vibe API.
type Client struct {
	baseURL    string
	token      TokenSource
	userAgent  string
	httpClient *http.Client
}

// NewClient builds a client with the base URL from VIBE_API_URL.
func NewClient(token TokenSource, version string) *Client {
	baseURL := strings.TrimRight(os.Getenv("VIBE_API_URL"), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return NewClientAt(baseURL, token, version)
}

// NewClientAt builds a client against an explicit base URL. Tests use this.
func NewClientAt(baseURL string, token TokenSource, version string) *Client {
	if token == nil {
		token = func() string { return "" }
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		userAgent: "vibe-mcp/" + version,
		// Per-request deadlines come from the context; the transport
		// timeout is a backstop only.
		httpClient: &http.Client{},
	}
}

// Request describes one API call.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    any
	Token   string        // per-request override
	Timeout time.Duration // default 10s
	NoAuth  bool          // skip the Authorization header
}

// Response is the uniform result shape. Exactly one of OK or Err is
// meaningful; Timeout and Network classify failures for retry policy.
type Response struct {
	OK         bool
	StatusCode int
	Err        string
	Timeout    bool
	Network    bool
	Data       map[string]any
}

// Do performs the request. It always returns a Response and never an error.
func (c *Client) Do(ctx context.Context, req Request) Response {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := c.baseURL + req.Path
	if len(req.Query) > 0 {
		endpoint += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return Response{Err: fmt.Sprintf("encode request: %v", err)}
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, endpoint, body)
	if err != nil {
		return Response{Err: fmt.Sprintf("build request: %v", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	if !req.NoAuth {
		token := req.Token
		if token == "" {
			token = c.token()
		}
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyTransportError(err)
	}

	data := map[string]any{}
	_ = json.Unmarshal(respData, &data)

	if resp.StatusCode >= 400 {
		message := ""
		if errField, ok := data["error"].(string); ok && errField != "" {
			message = errField
		} else {
			message = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return Response{StatusCode: resp.StatusCode, Err: message, Data: data}
	}

	return Response{OK: true, StatusCode: resp.StatusCode, Data: data}
}

func classifyTransportError(err error) Response {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Response{Err: "request timed out", Timeout: true}
	case errors.As(err, &netErr) && netErr.Timeout():
		return Response{Err: "request timed out", Timeout: true}
	default:
		return Response{Err: err.Error(), Network: true}
	}
}

// String returns a map field as a string, tolerating absence.
func (r Response) String(key string) string {
	value, _ := r.Data[key].(string)
	return value
}

// Bool returns a map field as a bool.
func (r Response) Bool(key string) bool {
	value, _ := r.Data[key].(bool)
	return value
}

// Object returns a nested JSON object field.
func (r Response) Object(key string) map[string]any {
	value, _ := r.Data[key].(map[string]any)
	return value
}

// Array returns a JSON array field.
func (r Response) Array(key string) []any {
	value, _ := r.Data[key].([]any)
	return value
}
