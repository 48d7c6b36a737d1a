package daemon

import (
	"github.com/gen2brain/beeep"

	"github.com/VibeCodingInc/vibe-mcp/internal/config"
	"github.com/VibeCodingInc/vibe-mcp/internal/logging"
	"github.com/VibeCodingInc/vibe-mcp/internal/types"
)

const notifyPreviewLen = 120

// Notifier raises desktop notifications for incoming DMs, honoring the
// notifications preference. DMs are always addressed to the user, so the
// mentions level behaves like all here; off suppresses everything.
type Notifier struct {
	cfg *config.Store
	log *logging.Logger
	// sink is swappable for tests.
	sink func(title, body string) error
}

func NewNotifier(cfg *config.Store, log *logging.Logger) *Notifier {
	return &Notifier{
		cfg: cfg,
		log: log,
		sink: func(title, body string) error {
			return beeep.Notify(title, body, "")
		},
	}
}

// NotifyMessage shows one notification for a DM from the given handle.
func (n *Notifier) NotifyMessage(from, body string) {
	if n.cfg.Load().Notifications == config.NotifyOff {
		return
	}
	preview := body
	if clipped := types.ClipRunes(body, notifyPreviewLen); clipped != body {
		preview = clipped + "..."
	}
	if err := n.sink("@"+from, preview); err != nil {
		n.log.Debugw("desktop notification failed", "error", err)
	}
}
