package httpx

import (
	"time"

	"github.com/vnq1909/music-web-stream-1/internal/domain"
)

type userView struct {
	ID        string    `json:"id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
}

func newUserView(u domain.User) userView {
	return userView{ID: u.ID, FullName: u.FullName, Email: u.Email, IsAdmin: u.IsAdmin, CreatedAt: u.CreatedAt}
}

// songView keeps the field names the web client reads: song is the stream key
// and file the blob id.
type songView struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Artist      string     `json:"artist"`
	Album       string     `json:"album"`
	Description string     `json:"description"`
	UploadedBy  string     `json:"uploadedBy,omitempty"`
	Song        string     `json:"song"`
	File        string     `json:"file"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

func newSongView(s domain.Song) songView {
	v := songView{
		ID:          s.ID,
		Title:       s.Title,
		Artist:      s.Artist,
		Album:       s.Album,
		Description: s.Description,
		UploadedBy:  s.OwnerUserID,
		Song:        s.StoredFileName,
		File:        s.BlobID,
		CreatedAt:   s.CreatedAt,
	}
	if !s.UpdatedAt.IsZero() {
		updated := s.UpdatedAt
		v.UpdatedAt = &updated
	}
	return v
}

func newSongViews(songs []domain.Song) []songView {
	out := make([]songView, 0, len(songs))
	for _, s := range songs {
		out = append(out, newSongView(s))
	}
	return out
}

type playlistEntryView struct {
	SongID     string    `json:"songId"`
	Title      string    `json:"title"`
	ArtistName string    `json:"artistName"`
	SongSrc    string    `json:"songSrc"`
	AddedAt    time.Time `json:"addedAt"`
}

type playlistView struct {
	ID           string              `json:"id"`
	PlaylistName string              `json:"playlistName"`
	UserID       string              `json:"userId"`
	Songs        []playlistEntryView `json:"songs"`
	CreatedAt    time.Time           `json:"createdAt"`
}

func newPlaylistView(p domain.Playlist) playlistView {
	v := playlistView{
		ID:           p.ID,
		PlaylistName: p.PlaylistName,
		UserID:       p.OwnerUserID,
		Songs:        make([]playlistEntryView, 0, len(p.Songs)),
		CreatedAt:    p.CreatedAt,
	}
	for _, e := range p.Songs {
		v.Songs = append(v.Songs, playlistEntryView(e))
	}
	return v
}
