package domain

import "time"

// Library event types broadcast to subscribers.
const (
	EventSongCreated = "song.created"
	EventSongUpdated = "song.updated"
	EventSongDeleted = "song.deleted"
)

// LibraryEvent notifies clients that the catalog changed.
type LibraryEvent struct {
	Type       string
	SongID     string
	Title      string
	OccurredAt time.Time
}
