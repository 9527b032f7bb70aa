package events

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/vnq1909/music-web-stream-1/internal/domain"
	"github.com/vnq1909/music-web-stream-1/internal/ws"
)

// TopicLibrary carries catalog change notifications.
const TopicLibrary = "library"

// Service publishes library events to streaming subscribers.
type Service struct {
	hub    *ws.Hub
	logger *slog.Logger
}

// New constructs an events service.
func New(hub *ws.Hub, logger *slog.Logger) Service {
	return Service{hub: hub, logger: logger}
}

// Publish broadcasts an event without waiting on subscribers.
func (s Service) Publish(event domain.LibraryEvent) {
	if s.hub == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	data, err := MarshalEvent(event)
	if err != nil {
		s.logger.Warn("failed to marshal library event", "error", err)
		return
	}
	if !s.hub.Broadcast(TopicLibrary, data) {
		s.logger.Warn("library event dropped", "type", event.Type, "song_id", event.SongID)
	}
}

// Hub returns the subscription hub (useful for HTTP handlers).
func (s Service) Hub() *ws.Hub {
	return s.hub
}

// MarshalEvent formats a library event for streaming payloads.
func MarshalEvent(event domain.LibraryEvent) ([]byte, error) {
	payload := map[string]any{
		"type":    event.Type,
		"song_id": event.SongID,
		"title":   event.Title,
		"at":      event.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
	return json.Marshal(payload)
}
