package httpapi

import (
	"fmt"
	"net/http"

	"github.com/custodia-labs/leafstream/internal/logger"
)

// handleStream relays broker events to the client as server-sent
// events. Each event is one "data:" frame carrying the serialized
// JSON. The subscription ends when the client disconnects or the
// broker evicts the subscriber.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub := s.broker.Subscribe()
	defer s.broker.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	logger.Debug("http: stream subscriber %s connected", sub.ID)

	for {
		select {
		case <-r.Context().Done():
			logger.Debug("http: stream subscriber %s disconnected", sub.ID)
			return
		case msg, open := <-sub.C:
			if !open {
				// Evicted by the broker for falling behind.
				logger.Debug("http: stream subscriber %s evicted", sub.ID)
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
