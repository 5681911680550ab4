package server

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/convei-labs/fusion/internal/fanout"
)

// handleEvents streams unified state ticks to the dashboard as
// server-sent events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.streamSSE(w, r, s.states)
}

// handleFrames streams video frame ticks.
func (s *Server) handleFrames(w http.ResponseWriter, r *http.Request) {
	s.streamSSE(w, r, s.frames)
}

func (s *Server) streamSSE(w http.ResponseWriter, r *http.Request, b *fanout.Broadcaster) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch, cancel := b.Subscribe(16)
	defer cancel()
	s.log.Debug("sse subscriber connected", zap.String("path", r.URL.Path))

	for {
		select {
		case <-r.Context().Done():
			s.log.Debug("sse subscriber disconnected", zap.String("path", r.URL.Path))
			return
		case msg, open := <-ch:
			if !open {
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, msg.Data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
