package domain

import (
	"strings"
	"time"
)

// Playlist is an owner's ordered collection of song snapshots.
type Playlist struct {
	ID           string
	OwnerUserID  string
	PlaylistName string
	Songs        []PlaylistEntry
	CreatedAt    time.Time
}

// PlaylistEntry is a copy of song fields taken when the song was added.
// It is not updated when the catalog entry is later edited.
type PlaylistEntry struct {
	SongID     string
	Title      string
	ArtistName string
	SongSrc    string
	AddedAt    time.Time
}

// EntryFromSong snapshots the playlist fields of a catalog song.
func EntryFromSong(song Song) PlaylistEntry {
	return PlaylistEntry{
		SongID:     song.ID,
		Title:      song.Title,
		ArtistName: song.Artist,
		SongSrc:    song.StoredFileName,
	}
}

// Validate rejects malformed entries before they reach the playlist index.
func (e PlaylistEntry) Validate() error {
	switch {
	case strings.TrimSpace(e.SongID) == "":
		return &ValidationError{Field: "songId", Message: "playlist entry requires songId"}
	case strings.TrimSpace(e.Title) == "":
		return &ValidationError{Field: "title", Message: "playlist entry requires title"}
	case strings.TrimSpace(e.ArtistName) == "":
		return &ValidationError{Field: "artistName", Message: "playlist entry requires artistName"}
	case strings.TrimSpace(e.SongSrc) == "":
		return &ValidationError{Field: "songSrc", Message: "playlist entry requires songSrc"}
	}
	return nil
}

// Contains reports whether the playlist already holds the song.
func (p Playlist) Contains(songID string) bool {
	for _, entry := range p.Songs {
		if entry.SongID == songID {
			return true
		}
	}
	return false
}
