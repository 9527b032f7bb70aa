package playlist

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vnq1909/music-web-stream-1/internal/domain"
	"github.com/vnq1909/music-web-stream-1/internal/repository"
)

// Service manages user playlists.
type Service struct {
	playlists repository.PlaylistRepository
	songs     repository.SongRepository
	logger    *slog.Logger
	now       func() time.Time
}

// New constructs a playlist service.
func New(playlists repository.PlaylistRepository, songs repository.SongRepository, logger *slog.Logger) Service {
	return Service{
		playlists: playlists,
		songs:     songs,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create makes an empty playlist owned by the caller.
func (s Service) Create(ctx context.Context, owner domain.Identity, name string) (*domain.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &domain.ValidationError{Field: "playlistName", Message: "Please add a playlist name"}
	}
	p := &domain.Playlist{
		ID:           uuid.NewString(),
		OwnerUserID:  owner.UserID,
		PlaylistName: name,
		Songs:        []domain.PlaylistEntry{},
		CreatedAt:    s.now(),
	}
	if err := s.playlists.CreatePlaylist(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("playlist created", "playlist_id", p.ID, "owner_id", owner.UserID)
	return p, nil
}

// List returns the caller's playlists.
func (s Service) List(ctx context.Context, owner domain.Identity) ([]domain.Playlist, error) {
	playlists, err := s.playlists.ListPlaylistsByOwner(ctx, owner.UserID)
	if err != nil {
		return nil, err
	}
	if playlists == nil {
		playlists = []domain.Playlist{}
	}
	return playlists, nil
}

// Get loads a playlist owned by the caller. Playlists of other users are
// reported as missing.
func (s Service) Get(ctx context.Context, owner domain.Identity, id string) (*domain.Playlist, error) {
	p, err := s.playlists.GetPlaylist(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewError(domain.ErrNotFound, "Playlist not found")
		}
		return nil, err
	}
	if p.OwnerUserID != owner.UserID {
		return nil, domain.NewError(domain.ErrNotFound, "Playlist not found")
	}
	return p, nil
}

// Delete removes a playlist owned by the caller.
func (s Service) Delete(ctx context.Context, owner domain.Identity, id string) error {
	if _, err := s.Get(ctx, owner, id); err != nil {
		return err
	}
	if err := s.playlists.DeletePlaylist(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NewError(domain.ErrNotFound, "Playlist not found")
		}
		return err
	}
	s.logger.Info("playlist deleted", "playlist_id", id, "owner_id", owner.UserID)
	return nil
}

// AddSong appends a snapshot of a catalog song to the playlist.
func (s Service) AddSong(ctx context.Context, owner domain.Identity, playlistID, songID string) (*domain.Playlist, error) {
	p, err := s.Get(ctx, owner, playlistID)
	if err != nil {
		return nil, err
	}
	song, err := s.songs.GetSongByID(ctx, songID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewError(domain.ErrNotFound, "Song not found")
		}
		return nil, err
	}
	if p.Contains(song.ID) {
		return nil, domain.NewError(domain.ErrConflict, "Song already in playlist")
	}
	entry := domain.EntryFromSong(*song)
	entry.AddedAt = s.now()
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	if err := s.playlists.AppendPlaylistEntry(ctx, p.ID, entry); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, domain.NewError(domain.ErrConflict, "Song already in playlist")
		case errors.Is(err, repository.ErrNotFound):
			return nil, domain.NewError(domain.ErrNotFound, "Playlist not found")
		}
		return nil, err
	}
	p.Songs = append(p.Songs, entry)
	return p, nil
}

// RemoveSong removes every entry for songID from the playlist.
func (s Service) RemoveSong(ctx context.Context, owner domain.Identity, playlistID, songID string) (*domain.Playlist, error) {
	if strings.TrimSpace(songID) == "" {
		return nil, &domain.ValidationError{Field: "song", Message: "song is required"}
	}
	if _, err := s.Get(ctx, owner, playlistID); err != nil {
		return nil, err
	}
	removed, err := s.playlists.RemovePlaylistEntries(ctx, playlistID, songID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if removed == 0 {
		return nil, domain.NewError(domain.ErrNotFound, "Song not found in playlist")
	}
	return s.Get(ctx, owner, playlistID)
}
