package daemon

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/VibeCodingInc/vibe-mcp/internal/logging"
	"github.com/VibeCodingInc/vibe-mcp/internal/store"
	"github.com/VibeCodingInc/vibe-mcp/internal/types"
)

const watchDebounce = 500 * time.Millisecond

// InboxWatcher watches the message database for writes from other processes
// and raises a notification when a conversation gains unread messages.
type InboxWatcher struct {
	dbPath   string
	handle   string
	store    store.Store
	notifier *Notifier
	log      *logging.Logger

	watcher *fsnotify.Watcher
	wg      sync.WaitGroup

	mu       sync.Mutex
	debounce *time.Timer
	unread   map[string]int
}

func NewInboxWatcher(dbPath, handle string, st store.Store, notifier *Notifier, log *logging.Logger) *InboxWatcher {
	return &InboxWatcher{
		dbPath:   dbPath,
		handle:   types.NormalizeHandle(handle),
		store:    st,
		notifier: notifier,
		log:      log,
		unread:   make(map[string]int),
	}
}

// Start begins watching. The baseline unread counts are taken immediately so
// pre-existing unread messages do not fire notifications.
func (w *InboxWatcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watching the directory survives the atomic rename dance SQLite's WAL
	// checkpointer performs on the sidecar files.
	if err := watcher.Add(filepath.Dir(w.dbPath)); err != nil {
		_ = watcher.Close()
		return err
	}
	w.watcher = watcher

	w.mu.Lock()
	w.unread = w.snapshotUnread()
	w.mu.Unlock()

	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

func (w *InboxWatcher) loop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Debugw("inbox watcher error", "error", err)
		}
	}
}

func (w *InboxWatcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	name := filepath.Base(event.Name)
	if name != filepath.Base(w.dbPath) && name != filepath.Base(w.dbPath)+"-wal" {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(watchDebounce, w.checkUnread)
}

// checkUnread diffs unread counts against the last snapshot and notifies for
// conversations that gained messages.
func (w *InboxWatcher) checkUnread() {
	threads, err := w.store.GetInboxThreads(w.handle)
	if err != nil {
		return
	}
	current := make(map[string]int)
	previews := make(map[string]string)
	for _, thread := range threads {
		if thread.UnreadCount > 0 {
			current[thread.Partner] = thread.UnreadCount
		}
		previews[thread.Partner] = thread.LastMessage.Content
	}

	w.mu.Lock()
	previous := w.unread
	w.unread = current
	w.mu.Unlock()

	for partner, count := range current {
		if count > previous[partner] {
			w.notifier.NotifyMessage(partner, previews[partner])
		}
	}
}

func (w *InboxWatcher) snapshotUnread() map[string]int {
	counts := make(map[string]int)
	threads, err := w.store.GetInboxThreads(w.handle)
	if err != nil {
		w.log.Debugw("unread snapshot failed", "error", err)
		return counts
	}
	for _, thread := range threads {
		if thread.UnreadCount > 0 {
			counts[thread.Partner] = thread.UnreadCount
		}
	}
	return counts
}

// Stop closes the watcher and waits for the loop to exit.
func (w *InboxWatcher) Stop() {
	w.mu.Lock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.mu.Unlock()
	if w.watcher != nil {
		_ = w.watcher.Close()
	}
	w.wg.Wait()
}
