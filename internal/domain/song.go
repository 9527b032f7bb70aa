package domain

import (
	"strings"
	"time"
)

// SongMetadata is the user supplied description of an uploaded track.
type SongMetadata struct {
	Title       string
	Artist      string
	Album       string
	Description string
}

// Normalize trims surrounding whitespace from every field.
func (m SongMetadata) Normalize() SongMetadata {
	return SongMetadata{
		Title:       strings.TrimSpace(m.Title),
		Artist:      strings.TrimSpace(m.Artist),
		Album:       strings.TrimSpace(m.Album),
		Description: strings.TrimSpace(m.Description),
	}
}

// Validate requires every field to be present.
func (m SongMetadata) Validate() error {
	switch {
	case m.Title == "":
		return &ValidationError{Field: "title", Message: "Please add all fields"}
	case m.Artist == "":
		return &ValidationError{Field: "artist", Message: "Please add all fields"}
	case m.Album == "":
		return &ValidationError{Field: "album", Message: "Please add all fields"}
	case m.Description == "":
		return &ValidationError{Field: "description", Message: "Please add all fields"}
	}
	return nil
}

// Song is a catalog entry. It exists only once its blob has been committed.
type Song struct {
	ID string
	SongMetadata
	OwnerUserID    string
	BlobID         string
	StoredFileName string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SongPatch carries optional metadata changes; nil fields stay untouched.
type SongPatch struct {
	Title       *string
	Artist      *string
	Album       *string
	Description *string
}

// Apply returns the metadata after the patch and whether anything differs.
func (p SongPatch) Apply(current SongMetadata) (SongMetadata, bool, error) {
	next := current
	fields := []struct {
		name  string
		value *string
		dst   *string
	}{
		{"title", p.Title, &next.Title},
		{"artist", p.Artist, &next.Artist},
		{"album", p.Album, &next.Album},
		{"description", p.Description, &next.Description},
	}
	changed := false
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		v := strings.TrimSpace(*f.value)
		if v == "" {
			return current, false, &ValidationError{Field: f.name, Message: f.name + " cannot be empty"}
		}
		if v != *f.dst {
			*f.dst = v
			changed = true
		}
	}
	return next, changed, nil
}
