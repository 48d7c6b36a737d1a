package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDoAttachesBearerAndHeaders(t *testing.T) {
	var gotAuth, gotAgent, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAgent = r.Header.Get("User-Agent")
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer server.Close()

	c := NewClientAt(server.URL, func() string { return "tok-1" }, "test")
	resp := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/api/messages", Body: map[string]string{"to": "bob"}})

	if !resp.OK {
		t.Fatalf("resp not ok: %+v", resp)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotAgent != "vibe-mcp/test" {
		t.Errorf("user agent = %q", gotAgent)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
}

func TestDoOmitsAuthWithoutToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer server.Close()

	c := NewClientAt(server.URL, nil, "test")
	if resp := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/api/presence"}); !resp.OK {
		t.Fatalf("resp not ok: %+v", resp)
	}
	if gotAuth != "" {
		t.Errorf("auth header should be absent, got %q", gotAuth)
	}
}

func TestTokenSourceReadOnEveryCall(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer server.Close()

	token := ""
	c := NewClientAt(server.URL, func() string { return token }, "test")

	c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if gotAuth != "" {
		t.Fatalf("auth before rotation = %q", gotAuth)
	}
	token = "rotated"
	c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if gotAuth != "Bearer rotated" {
		t.Fatalf("auth after rotation = %q", gotAuth)
	}
}

func TestErrorEnvelopeMapping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "Authentication required"})
	}))
	defer server.Close()

	c := NewClientAt(server.URL, nil, "test")
	resp := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if resp.OK {
		t.Fatal("401 must not be OK")
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if resp.Err != "Authentication required" {
		t.Errorf("err = %q", resp.Err)
	}
	if resp.Timeout || resp.Network {
		t.Error("server error must not be flagged as transport failure")
	}
}

func TestErrorWithoutBodySynthesizesHTTPCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewClientAt(server.URL, nil, "test")
	resp := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if resp.Err != "HTTP 502" {
		t.Fatalf("err = %q, want HTTP 502", resp.Err)
	}
}

func TestTimeoutFlagged(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer server.Close()

	c := NewClientAt(server.URL, nil, "test")
	resp := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/", Timeout: 50 * time.Millisecond})
	if resp.OK {
		t.Fatal("timed-out request must not be OK")
	}
	if !resp.Timeout {
		t.Fatalf("timeout not flagged: %+v", resp)
	}
}

func TestNetworkErrorFlagged(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	c := NewClientAt(server.URL, nil, "test")
	resp := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if resp.OK || !resp.Network {
		t.Fatalf("network error not flagged: %+v", resp)
	}
}

func TestResponseAccessors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":   true,
			"sessionId": "S",
			"message":   map[string]any{"id": "srv-1"},
			"threads":   []any{map[string]any{"with": "bob"}},
		})
	}))
	defer server.Close()

	c := NewClientAt(server.URL, nil, "test")
	resp := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if !resp.Bool("success") || resp.String("sessionId") != "S" {
		t.Fatalf("accessors: %+v", resp.Data)
	}
	if resp.Object("message")["id"] != "srv-1" {
		t.Fatalf("object accessor: %+v", resp.Object("message"))
	}
	if len(resp.Array("threads")) != 1 {
		t.Fatalf("array accessor: %+v", resp.Array("threads"))
	}
}
