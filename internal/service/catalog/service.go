package catalog

import (
	"context"
	"errors"
	"log/slog"

	"github.com/vnq1909/music-web-stream-1/internal/domain"
	"github.com/vnq1909/music-web-stream-1/internal/repository"
)

// Publisher receives catalog change notifications.
type Publisher interface {
	Publish(event domain.LibraryEvent)
}

// Service reads and edits catalog entries.
type Service struct {
	songs  repository.SongRepository
	events Publisher
	logger *slog.Logger
}

// New constructs a catalog service. events may be nil.
func New(songs repository.SongRepository, events Publisher, logger *slog.Logger) Service {
	return Service{songs: songs, events: events, logger: logger}
}

// ListSongs returns every song, newest first.
func (s Service) ListSongs(ctx context.Context) ([]domain.Song, error) {
	songs, err := s.songs.ListSongs(ctx)
	if err != nil {
		return nil, err
	}
	if len(songs) == 0 {
		return nil, domain.NewError(domain.ErrNotFound, "No songs found")
	}
	return songs, nil
}

// GetSong loads one song.
func (s Service) GetSong(ctx context.Context, id string) (*domain.Song, error) {
	song, err := s.songs.GetSongByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewError(domain.ErrNotFound, "Song not found")
		}
		return nil, err
	}
	return song, nil
}

// EditSongMetadata applies patch to a song. Only admins may edit, and a patch
// that changes nothing is reported as ErrNoChanges without writing.
func (s Service) EditSongMetadata(ctx context.Context, requester domain.Identity, id string, patch domain.SongPatch) (*domain.Song, error) {
	if !requester.IsAdmin {
		return nil, domain.NewError(domain.ErrForbidden, "Not authorized to edit songs")
	}
	current, err := s.GetSong(ctx, id)
	if err != nil {
		return nil, err
	}
	next, changed, err := patch.Apply(current.SongMetadata)
	if err != nil {
		return nil, err
	}
	if !changed {
		return current, domain.NewError(domain.ErrNoChanges, "No changes made to the song")
	}
	updated, err := s.songs.UpdateSongMetadata(ctx, id, next)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewError(domain.ErrNotFound, "Song not found")
		}
		s.logger.Error("song update failed", "song_id", id, "error", err)
		return nil, err
	}
	s.logger.Info("song updated", "song_id", id, "editor", requester.UserID)
	if s.events != nil {
		s.events.Publish(domain.LibraryEvent{Type: domain.EventSongUpdated, SongID: updated.ID, Title: updated.Title, OccurredAt: updated.UpdatedAt})
	}
	return updated, nil
}
