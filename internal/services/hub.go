package services

import (
	"sync"

	"github.com/rideline/navigator/internal/lib/navigation"
)

// ProgressHub fans progress snapshots out to per-session watchers, one
// channel per websocket client.
type ProgressHub struct {
	mu       sync.RWMutex
	watchers map[string]map[*ProgressWatcher]struct{}
}

// ProgressWatcher receives progress for one session
type ProgressWatcher struct {
	SessionID string
	Ch        chan navigation.Progress
}

// NewProgressHub creates an empty hub
func NewProgressHub() *ProgressHub {
	return &ProgressHub{
		watchers: make(map[string]map[*ProgressWatcher]struct{}),
	}
}

// Register adds a watcher for a session
func (h *ProgressHub) Register(sessionID string) *ProgressWatcher {
	w := &ProgressWatcher{
		SessionID: sessionID,
		Ch:        make(chan navigation.Progress, 16),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.watchers[sessionID] == nil {
		h.watchers[sessionID] = make(map[*ProgressWatcher]struct{})
	}
	h.watchers[sessionID][w] = struct{}{}
	return w
}

// Unregister removes a watcher and closes its channel
func (h *ProgressHub) Unregister(w *ProgressWatcher) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessionWatchers, ok := h.watchers[w.SessionID]
	if !ok {
		return
	}
	if _, registered := sessionWatchers[w]; !registered {
		return
	}
	delete(sessionWatchers, w)
	if len(sessionWatchers) == 0 {
		delete(h.watchers, w.SessionID)
	}
	close(w.Ch)
}

// Broadcast delivers a snapshot to every watcher of the session.
// Slow watchers drop updates rather than block the position stream.
func (h *ProgressHub) Broadcast(sessionID string, p navigation.Progress) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for w := range h.watchers[sessionID] {
		select {
		case w.Ch <- p:
		default:
		}
	}
}
