package domain

import "time"

// Blob describes a committed object in the blob store.
type Blob struct {
	ID          string
	Filename    string
	ObjectKey   string
	Size        int64
	ContentType string
	CreatedAt   time.Time
}
