package booking_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"ms-booking/internal/auth"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/notify"
)

// StreamHandler serves the long-lived notification stream. Each request becomes
// one session: subscribed to the bus, filtered by the caller's role and event
// scope, kept alive with periodic heartbeat frames.
type StreamHandler struct {
	Bus               *notify.Bus
	Logger            *logger.Logger
	HeartbeatInterval time.Duration
}

func NewStreamHandler(bus *notify.Bus, log *logger.Logger, heartbeat time.Duration) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	return &StreamHandler{Bus: bus, Logger: log, HeartbeatInterval: heartbeat}
}

// streamSession is the per-client state. The bus callback does a non-blocking
// send into ch, so a slow client drops events instead of stalling the publisher;
// within one session the channel preserves publish order.
type streamSession struct {
	identity    models.Identity
	ch          chan models.Notification
	closed      atomic.Bool
	cleanup     sync.Once
	unsubscribe func()
}

// matches applies the delivery filter: global or scope-matching event, and
// broadcast or role-matching target.
func (s *streamSession) matches(n models.Notification) bool {
	if n.EventID != "" && n.EventID != s.identity.EventScope {
		return false
	}
	if n.TargetRole != "" && n.TargetRole != models.RoleAll && n.TargetRole != s.identity.Role {
		return false
	}
	return true
}

// close releases the subscription exactly once, whichever exit path fires first.
// The closed flag stops the bus callback from delivering after cleanup.
func (s *streamSession) close() {
	s.cleanup.Do(func() {
		s.closed.Store(true)
		s.unsubscribe()
	})
}

// HandleNotifications streams filtered notifications to the client as SSE frames.
func (h *StreamHandler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Unauthorized"}`))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	h.setupSSEHeaders(w)

	session := &streamSession{
		identity: identity,
		ch:       make(chan models.Notification, 16),
	}

	sub := h.Bus.Subscribe(func(n models.Notification) {
		if session.closed.Load() {
			return
		}
		if !session.matches(n) {
			return
		}
		select {
		case session.ch <- n:
		default:
			// Buffer full: drop rather than block the publisher.
		}
	})
	session.unsubscribe = func() { h.Bus.Unsubscribe(sub) }
	defer session.close()

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	h.Logger.LogStream("CONNECT", fmt.Sprintf("role=%s event=%s", identity.Role, identity.EventScope))

	ticker := time.NewTicker(h.HeartbeatInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case n := <-session.ch:
			jsonData, err := json.Marshal(n)
			if err != nil {
				h.Logger.Error("STREAM", fmt.Sprintf("Failed to serialize notification: %v", err))
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", jsonData)
			flusher.Flush()

		case <-ticker.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()

		case <-ctx.Done():
			h.Logger.LogStream("DISCONNECT", fmt.Sprintf("role=%s event=%s", identity.Role, identity.EventScope))
			return
		}
	}
}

func (h *StreamHandler) setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}
