package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	mcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/VibeCodingInc/vibe-mcp/internal/types"
	"github.com/VibeCodingInc/vibe-mcp/internal/vibesync"
)

type dmArgs struct {
	To      string `json:"to" jsonschema:"Recipient handle, with or without a leading @"`
	Message string `json:"message" jsonschema:"Message body. Bodies over 2000 characters are truncated."`
}

type threadArgs struct {
	With  string `json:"with" jsonschema:"Conversation partner handle"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum messages to return (default: 50)"`
}

type markReadArgs struct {
	With string `json:"with" jsonschema:"Partner whose messages to mark read"`
}

type resumeArgs struct {
	Repo string `json:"repo,omitempty" jsonschema:"Limit resume to sessions in this repository"`
}

type saveArgs struct {
	Summary string `json:"summary" jsonschema:"One or two sentences describing what happened this session"`
}

func registerTools(server *mcp.Server, deps Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "vibe_dm",
		Description: "Send a direct message to another user on vibe.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args dmArgs) (*mcp.CallToolResult, any, error) {
		return handleDM(ctx, deps, args), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "vibe_inbox",
		Description: "List your conversations with unread counts, newest first.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
		return handleInbox(ctx, deps), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "vibe_thread",
		Description: "Read your conversation with one user, oldest first.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args threadArgs) (*mcp.CallToolResult, any, error) {
		return handleThread(ctx, deps, args), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "vibe_mark_read",
		Description: "Mark every message from one user as read.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args markReadArgs) (*mcp.CallToolResult, any, error) {
		return handleMarkRead(deps, args), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "vibe_who",
		Description: "See who is online right now and what they are working on.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
		return handleWho(ctx, deps), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "vibe_unread",
		Description: "Count your unread messages.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
		return handleUnread(ctx, deps), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "vibe_whoami",
		Description: "Show your configured handle and session identity.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
		return handleWhoami(deps), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "vibe_resume",
		Description: "Pick up context from your previous session: summary, journal, session chain.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args resumeArgs) (*mcp.CallToolResult, any, error) {
		return handleResume(deps, args), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "vibe_save_session",
		Description: "Close the current session with a summary so it can be resumed later.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args saveArgs) (*mcp.CallToolResult, any, error) {
		return handleSave(deps, args), nil, nil
	})
}

func handleDM(ctx context.Context, deps Deps, args dmArgs) *mcp.CallToolResult {
	me, result := requireHandle(deps)
	if result != nil {
		return result
	}
	if strings.TrimSpace(args.Message) == "" {
		return toolError("Error: message body cannot be empty")
	}
	journalTool(deps, "vibe_dm", args.To)

	truncated := false
	body := args.Message
	if clipped := types.TruncateContent(body); clipped != body {
		body = clipped
		truncated = true
	}

	msg, err := deps.Engine.SendMessage(ctx, me, args.To, body, nil)
	if err != nil {
		switch {
		case errors.Is(err, vibesync.ErrSelfSend):
			return toolError("Error: you cannot DM yourself")
		case errors.Is(err, vibesync.ErrAuthExpired), errors.Is(err, vibesync.ErrAuthFailed):
			return toolError("Error: authentication failed. Re-register with the server and try again.")
		case errors.Is(err, vibesync.ErrTransient):
			return toolError(fmt.Sprintf("Message to @%s queued (server unreachable). It will retry automatically.", types.NormalizeHandle(args.To)))
		default:
			return toolError(fmt.Sprintf("Error: %v", err))
		}
	}

	text := fmt.Sprintf("Sent to @%s", msg.ToHandle)
	if truncated {
		text += fmt.Sprintf(" (message truncated to %d characters)", types.MaxContentLength)
	}
	return toolResult(text, false)
}

func handleInbox(ctx context.Context, deps Deps) *mcp.CallToolResult {
	me, result := requireHandle(deps)
	if result != nil {
		return result
	}
	journalTool(deps, "vibe_inbox", "")

	threads := deps.Engine.GetInbox(ctx, me)
	if len(threads) == 0 {
		return toolResult("No conversations yet", false)
	}

	var lines []string
	for _, thread := range threads {
		marker := ""
		if thread.UnreadCount > 0 {
			marker = fmt.Sprintf(" [%d unread]", thread.UnreadCount)
		}
		lines = append(lines, fmt.Sprintf("@%s%s: %s", thread.Partner, marker, preview(thread.LastMessage.Content)))
	}
	return toolResult(strings.Join(lines, "\n"), false)
}

func handleThread(ctx context.Context, deps Deps, args threadArgs) *mcp.CallToolResult {
	me, result := requireHandle(deps)
	if result != nil {
		return result
	}
	peer := types.NormalizeHandle(args.With)
	if peer == "" {
		return toolError("Error: a partner handle is required")
	}
	journalTool(deps, "vibe_thread", peer)

	limit := args.Limit
	if limit <= 0 {
		limit = 50
	}
	messages := deps.Engine.GetThread(ctx, me, peer, limit)
	if len(messages) == 0 {
		return toolResult(fmt.Sprintf("No messages with @%s", peer), false)
	}

	var lines []string
	for _, msg := range messages {
		from := "me"
		if msg.Direction == types.DirectionReceived {
			from = "@" + msg.FromHandle
		}
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", msg.CreatedAt, from, msg.Content))
	}
	return toolResult(strings.Join(lines, "\n"), false)
}

func handleMarkRead(deps Deps, args markReadArgs) *mcp.CallToolResult {
	me, result := requireHandle(deps)
	if result != nil {
		return result
	}
	peer := types.NormalizeHandle(args.With)
	if peer == "" {
		return toolError("Error: a partner handle is required")
	}
	journalTool(deps, "vibe_mark_read", peer)

	n := deps.Engine.MarkThreadRead(me, peer)
	return toolResult(fmt.Sprintf("Marked %d messages from @%s as read", n, peer), false)
}

func handleWho(ctx context.Context, deps Deps) *mcp.CallToolResult {
	journalTool(deps, "vibe_who", "")
	users := deps.Engine.ActiveUsers(ctx)
	if len(users) == 0 {
		return toolResult("Nobody is online right now", false)
	}
	var lines []string
	for _, user := range users {
		line := "@" + user.Username
		if user.WorkingOn != "" {
			line += " - " + user.WorkingOn
		}
		lines = append(lines, line)
	}
	return toolResult(strings.Join(lines, "\n"), false)
}

func handleUnread(ctx context.Context, deps Deps) *mcp.CallToolResult {
	me, result := requireHandle(deps)
	if result != nil {
		return result
	}
	journalTool(deps, "vibe_unread", "")

	n := deps.Engine.UnreadCount(ctx, me)
	if n == 0 {
		return toolResult("No unread messages", false)
	}
	return toolResult(fmt.Sprintf("%d unread messages", n), false)
}

func handleWhoami(deps Deps) *mcp.CallToolResult {
	cfg := deps.Cfg.Load()
	if cfg.Handle == "" {
		return toolResult("No handle configured. Set one with 'vibe config set handle <name>'.", false)
	}
	lines := []string{"@" + cfg.Handle}
	if cfg.OneLiner != "" {
		lines = append(lines, cfg.OneLiner)
	}
	lines = append(lines, "session "+deps.Cfg.GetSessionID())
	if working := deps.Cfg.GetWorkingOn(); working != "" {
		lines = append(lines, "working on: "+working)
	}
	return toolResult(strings.Join(lines, "\n"), false)
}

func handleResume(deps Deps, args resumeArgs) *mcp.CallToolResult {
	me, result := requireHandle(deps)
	if result != nil {
		return result
	}
	journalTool(deps, "vibe_resume", args.Repo)

	resumed, err := deps.Sessions.Resume(me, args.Repo)
	if err != nil {
		return toolError(fmt.Sprintf("Error: %v", err))
	}
	if resumed.Previous == nil {
		return toolResult("No previous session to resume", false)
	}

	digest, err := deps.Sessions.Summarize(resumed.Previous.SessionID)
	if err != nil {
		digest = fmt.Sprintf("session %s", resumed.Previous.SessionID)
	}
	if len(resumed.Chain) > 0 {
		var ids []string
		for _, s := range resumed.Chain {
			ids = append(ids, s.SessionID)
		}
		digest += "\nearlier: " + strings.Join(ids, " <- ")
	}
	return toolResult(digest, false)
}

func handleSave(deps Deps, args saveArgs) *mcp.CallToolResult {
	journalTool(deps, "vibe_save_session", "")
	if err := deps.Sessions.Save(args.Summary); err != nil {
		return toolError(fmt.Sprintf("Error: %v", err))
	}
	return toolResult("Session saved", false)
}

// requireHandle resolves the configured identity, or explains how to get one.
func requireHandle(deps Deps) (string, *mcp.CallToolResult) {
	handle := deps.Cfg.GetHandle()
	if handle == "" {
		return "", toolError("Error: no handle configured. Set one with 'vibe config set handle <name>'.")
	}
	return handle, nil
}

// journalTool records the call in the session journal, best effort.
func journalTool(deps Deps, tool, target string) {
	if err := deps.Store.LogToolCall(deps.Cfg.GetSessionID(), tool, target); err != nil {
		deps.Log.Debugw("tool journal write dropped", "tool", tool, "error", err)
	}
}

func preview(body string) string {
	body = strings.ReplaceAll(body, "\n", " ")
	if clipped := types.ClipRunes(body, 60); clipped != body {
		return clipped + "..."
	}
	return body
}

func toolResult(text string, isError bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: isError,
	}
}

func toolError(text string) *mcp.CallToolResult {
	return toolResult(text, true)
}
