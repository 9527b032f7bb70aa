package httpx

import (
	"net/http"
	"time"

	"github.com/vnq1909/music-web-stream-1/internal/service/events"
	"github.com/vnq1909/music-web-stream-1/internal/ws"
)

const sseRetry = 3 * time.Second

func (r *Router) handleEventsSSE(w http.ResponseWriter, req *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	hub := r.events.Hub()
	if hub == nil {
		writeError(w, http.StatusServiceUnavailable, "events unavailable")
		return
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	client := ws.NewSSEClient(w, flusher, r.logger)
	if err := client.Open(sseRetry); err != nil {
		return
	}
	hub.Register(events.TopicLibrary, client)
	defer func() {
		hub.Unregister(events.TopicLibrary, client)
		client.Close()
	}()

	ticker := time.NewTicker(r.opts.Heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-req.Context().Done():
			return
		case <-client.Done():
			return
		case <-ticker.C:
			if err := client.Heartbeat(); err != nil {
				return
			}
		}
	}
}

func (r *Router) handleEventsWS(w http.ResponseWriter, req *http.Request) {
	hub := r.events.Hub()
	if hub == nil {
		writeError(w, http.StatusServiceUnavailable, "events unavailable")
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	hub.Register(events.TopicLibrary, client)
	defer hub.Unregister(events.TopicLibrary, client)
	client.Run()
}
