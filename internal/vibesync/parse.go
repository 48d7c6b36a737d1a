package vibesync

import (
	"encoding/json"

	"github.com/VibeCodingInc/vibe-mcp/internal/api"
	"github.com/VibeCodingInc/vibe-mcp/internal/types"
)

// The server has grown several envelope shapes over time; readers here
// accept every spelling observed in the wild rather than pinning one.

// extractMessageIDs pulls server and thread ids from a send response,
// whichever of message.{id,thread_id}, messageId, or id is present.
func extractMessageIDs(resp api.Response) (serverID, threadID *string) {
	if message := resp.Object("message"); message != nil {
		if id := stringField(message, "id"); id != "" {
			serverID = &id
		}
		if id := stringField(message, "thread_id", "threadId"); id != "" {
			threadID = &id
		}
	}
	if serverID == nil {
		if id := resp.String("messageId"); id != "" {
			serverID = &id
		}
	}
	if serverID == nil {
		if id := resp.String("id"); id != "" {
			serverID = &id
		}
	}
	if threadID == nil {
		if id := resp.String("threadId"); id != "" {
			threadID = &id
		}
	}
	return serverID, threadID
}

// parseInboxThreads maps the GET /api/messages?user=me envelope.
func parseInboxThreads(resp api.Response, me string) []types.InboxThread {
	var threads []types.InboxThread
	for _, raw := range resp.Array("threads") {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		partner := types.NormalizeHandle(stringField(entry, "with", "partner", "username"))
		if partner == "" {
			continue
		}
		thread := types.InboxThread{Partner: partner}
		if unread, ok := entry["unread"].(float64); ok {
			thread.UnreadCount = int(unread)
		} else if unread, ok := entry["unreadCount"].(float64); ok {
			thread.UnreadCount = int(unread)
		}
		for _, key := range []string{"lastMessage", "last_message"} {
			if rawMsg, ok := entry[key].(map[string]any); ok {
				if msg, ok := parseServerMessage(rawMsg, me, partner); ok {
					thread.LastMessage = msg
				}
				break
			}
		}
		threads = append(threads, thread)
	}
	return threads
}

// parseThreadMessages maps the GET /api/messages?user=me&with=peer envelope.
func parseThreadMessages(resp api.Response, me, peer string) []types.Message {
	var messages []types.Message
	for _, raw := range resp.Array("messages") {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if msg, ok := parseServerMessage(entry, me, peer); ok {
			messages = append(messages, msg)
		}
	}
	return messages
}

// parseServerMessage converts one server message object. Messages without a
// server id are dropped: the client never invents server identity.
func parseServerMessage(entry map[string]any, me, fallbackPeer string) (types.Message, bool) {
	serverID := stringField(entry, "id", "server_id", "messageId")
	if serverID == "" {
		return types.Message{}, false
	}

	from := types.NormalizeHandle(stringField(entry, "from", "from_handle", "fromHandle", "sender"))
	to := types.NormalizeHandle(stringField(entry, "to", "to_handle", "toHandle", "recipient"))
	if from == "" && to != "" {
		from = fallbackPeer
	}
	if to == "" && from != "" {
		to = me
	}
	if from == "" || to == "" {
		return types.Message{}, false
	}

	createdAt := stringField(entry, "created_at", "createdAt", "timestamp")
	if createdAt == "" {
		createdAt = types.NowISO()
	}

	// A message the server already holds is at least sent; inbound copies
	// are delivered until read.
	status := types.StatusSent
	if to == me {
		status = types.StatusDelivered
		if read, ok := entry["read"].(bool); ok && read {
			status = types.StatusRead
		}
	}

	msg := types.Message{
		// Deterministic local id so concurrent merges from several
		// processes converge on the same row.
		LocalID:    "srv-" + serverID,
		ServerID:   &serverID,
		FromHandle: from,
		ToHandle:   to,
		Content:    stringField(entry, "body", "text", "content"),
		Status:     status,
		CreatedAt:  createdAt,
	}
	if threadID := stringField(entry, "thread_id", "threadId"); threadID != "" {
		msg.ThreadID = &threadID
	}
	if payload, ok := entry["payload"]; ok && payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			msg.Payload = data
		}
	}
	now := types.NowISO()
	msg.SyncedAt = &now
	return msg, true
}

func stringField(entry map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := entry[key].(string); ok && value != "" {
			return value
		}
	}
	return ""
}
