package vibesync

import "errors"

// Send failure kinds. Tool shells branch on these to build the display
// string (for example, suggesting re-auth on ErrAuthExpired).
var (
	// ErrSelfSend is returned when from and to normalize to the same handle.
	ErrSelfSend = errors.New("cannot send a message to yourself")

	// ErrBodyTooLong is returned for bodies over the 2000-character limit.
	// Callers are expected to truncate and warn before sending.
	ErrBodyTooLong = errors.New("message body exceeds 2000 characters")

	// ErrAuthExpired is returned on a 401 from the server.
	ErrAuthExpired = errors.New("authentication expired")

	// ErrAuthFailed is returned when the server reports an authentication
	// problem without a 401.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRemoteStorage is returned when the server reports an internal
	// storage failure.
	ErrRemoteStorage = errors.New("server storage error")

	// ErrTransient marks network and timeout failures; retry is safe.
	ErrTransient = errors.New("transient network error")
)
