package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// SendMessageRequest is the POST /api/messages body.
type SendMessageRequest struct {
	To      string          `json:"to"`
	Body    string          `json:"body"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SendMessage delivers a DM to the server.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) Response {
	return c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/api/messages",
		Body:   req,
	})
}

// FetchInbox returns the caller's inbox threads.
func (c *Client) FetchInbox(ctx context.Context, user string) Response {
	query := url.Values{}
	query.Set("user", user)
	return c.Do(ctx, Request{
		Method: http.MethodGet,
		Path:   "/api/messages",
		Query:  query,
	})
}

// FetchThread returns the messages between user and the partner. The server
// may auto-mark the thread read as a side effect.
func (c *Client) FetchThread(ctx context.Context, user, with string) Response {
	query := url.Values{}
	query.Set("user", user)
	query.Set("with", with)
	return c.Do(ctx, Request{
		Method: http.MethodGet,
		Path:   "/api/messages",
		Query:  query,
	})
}

// RegisterPresence opens a server session for the handle. The response may
// carry an authoritative session id and token.
func (c *Client) RegisterPresence(ctx context.Context, username string) Response {
	return c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/api/presence",
		Body: map[string]any{
			"action":   "register",
			"username": username,
		},
	})
}

// HeartbeatRequest is the recurring presence payload. Username is only set
// in legacy mode, when registration did not hand back a token.
type HeartbeatRequest struct {
	WorkingOn string `json:"workingOn,omitempty"`
	Context   string `json:"context,omitempty"`
	Source    string `json:"source"`
	Username  string `json:"username,omitempty"`
}

// Heartbeat asserts liveness.
func (c *Client) Heartbeat(ctx context.Context, req HeartbeatRequest) Response {
	body := map[string]any{
		"action": "heartbeat",
		"source": req.Source,
	}
	if req.WorkingOn != "" {
		body["workingOn"] = req.WorkingOn
	}
	if req.Context != "" {
		body["context"] = req.Context
	}
	if req.Username != "" {
		body["username"] = req.Username
	}
	return c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/api/presence",
		Body:   body,
	})
}

// ActiveUsers returns who is online or recently away.
func (c *Client) ActiveUsers(ctx context.Context) Response {
	return c.Do(ctx, Request{
		Method: http.MethodGet,
		Path:   "/api/presence",
	})
}

// VerifyToken validates a bearer token with the server.
func (c *Client) VerifyToken(ctx context.Context, token string) Response {
	return c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/api/auth/verify",
		Token:  token,
	})
}
