package deletion

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vnq1909/music-web-stream-1/internal/domain"
	"github.com/vnq1909/music-web-stream-1/internal/repository"
)

// Step names, in execution order.
const (
	StepCatalog   = "catalog"
	StepBlob      = "blob"
	StepPlaylists = "playlists"
)

// Step statuses.
const (
	StatusDone    = "done"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// StepOutcome records what happened to one step of a song deletion.
type StepOutcome struct {
	Step   string `json:"step"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Report lists every step outcome of one DeleteSong call.
type Report struct {
	SongID          string        `json:"songId"`
	Steps           []StepOutcome `json:"steps"`
	PlaylistEntries int64         `json:"playlistEntriesRemoved"`
}

// Outcome returns the outcome recorded for step.
func (r Report) Outcome(step string) StepOutcome {
	for _, o := range r.Steps {
		if o.Step == step {
			return o
		}
	}
	return StepOutcome{Step: step, Status: StatusSkipped}
}

// BlobDeleter removes a blob by id.
type BlobDeleter interface {
	Delete(ctx context.Context, blobID string) error
}

// Publisher receives catalog change notifications.
type Publisher interface {
	Publish(event domain.LibraryEvent)
}

// Service removes songs along with their blobs and playlist references.
type Service struct {
	songs     repository.SongRepository
	playlists repository.PlaylistRepository
	blobs     BlobDeleter
	events    Publisher
	logger    *slog.Logger
}

// New constructs a deletion coordinator. events may be nil.
func New(songs repository.SongRepository, playlists repository.PlaylistRepository, blobs BlobDeleter, events Publisher, logger *slog.Logger) Service {
	return Service{
		songs:     songs,
		playlists: playlists,
		blobs:     blobs,
		events:    events,
		logger:    logger,
	}
}

// DeleteSong deletes the catalog row, then the blob, then every playlist
// reference. Earlier steps stay committed when a later one fails; the returned
// StepError names the failing step.
func (s Service) DeleteSong(ctx context.Context, requester domain.Identity, songID string) (Report, error) {
	report := Report{SongID: songID}
	if !requester.IsAdmin {
		return report, domain.NewError(domain.ErrForbidden, "Not authorized to delete songs")
	}
	song, err := s.songs.GetSongByID(ctx, songID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return report, domain.NewError(domain.ErrNotFound, "Song not found")
		}
		return report, err
	}

	if err := s.songs.DeleteSong(ctx, song.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// a concurrent delete won the race
			return report, domain.NewError(domain.ErrNotFound, "Song not found")
		}
		record(&report, StepCatalog, err)
		record(&report, StepBlob, errSkipped)
		record(&report, StepPlaylists, errSkipped)
		s.logger.Error("song delete failed", "song_id", song.ID, "error", err)
		return report, &domain.StepError{Step: StepCatalog, Kind: domain.ErrCatalogDelete, Message: "Error deleting song", Err: err}
	}
	record(&report, StepCatalog, nil)
	if s.events != nil {
		s.events.Publish(domain.LibraryEvent{Type: domain.EventSongDeleted, SongID: song.ID, Title: song.Title, OccurredAt: time.Now().UTC()})
	}

	// Cleanup steps ignore request cancellation.
	cleanupCtx := context.WithoutCancel(ctx)

	blobErr := s.blobs.Delete(cleanupCtx, song.BlobID)
	if errors.Is(blobErr, domain.ErrNotFound) {
		s.logger.Warn("blob already missing", "song_id", song.ID, "blob_id", song.BlobID)
		blobErr = nil
	}
	record(&report, StepBlob, blobErr)
	if blobErr != nil {
		s.logger.Error("orphaned blob after song delete", "song_id", song.ID, "blob_id", song.BlobID, "error", blobErr)
	}

	removed, pullErr := s.playlists.PullSongFromPlaylists(cleanupCtx, song.ID)
	report.PlaylistEntries = removed
	record(&report, StepPlaylists, pullErr)
	if pullErr != nil {
		s.logger.Error("playlist cleanup failed", "song_id", song.ID, "error", pullErr)
	}

	switch {
	case blobErr != nil:
		return report, &domain.StepError{Step: StepBlob, Kind: domain.ErrPartialFailure, Message: "Song record deleted but failed to delete audio file", Err: blobErr}
	case pullErr != nil:
		return report, &domain.StepError{Step: StepPlaylists, Kind: domain.ErrPartialFailure, Message: "Song deleted but failed to update playlists", Err: pullErr}
	}
	s.logger.Info("song deleted", "song_id", song.ID, "blob_id", song.BlobID, "playlist_entries", removed)
	return report, nil
}

// PurgeSongFromPlaylists removes songID from every playlist. It is the retry
// path for a failed playlists step and is safe to repeat.
func (s Service) PurgeSongFromPlaylists(ctx context.Context, requester domain.Identity, songID string) (int64, error) {
	if !requester.IsAdmin {
		return 0, domain.NewError(domain.ErrForbidden, "Not authorized to purge playlists")
	}
	if songID == "" {
		return 0, &domain.ValidationError{Field: "songId", Message: "songId required"}
	}
	removed, err := s.playlists.PullSongFromPlaylists(ctx, songID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, domain.NewError(domain.ErrNotFound, "Song not found")
	}
	if err != nil {
		s.logger.Error("playlist purge failed", "song_id", songID, "error", err)
		return 0, err
	}
	s.logger.Info("playlists purged", "song_id", songID, "entries", removed)
	return removed, nil
}

var errSkipped = errors.New("skipped")

func record(report *Report, step string, err error) {
	outcome := StepOutcome{Step: step, Status: StatusDone}
	switch {
	case errors.Is(err, errSkipped):
		outcome.Status = StatusSkipped
	case err != nil:
		outcome.Status = StatusFailed
		outcome.Error = err.Error()
	}
	report.Steps = append(report.Steps, outcome)
}
