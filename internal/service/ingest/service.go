package ingest

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vnq1909/music-web-stream-1/internal/blobstore"
	"github.com/vnq1909/music-web-stream-1/internal/domain"
	"github.com/vnq1909/music-web-stream-1/internal/repository"
)

// BlobStore is the write side of the blob store.
type BlobStore interface {
	OpenWrite(ctx context.Context, filename, contentType string) (*blobstore.Writer, error)
	Delete(ctx context.Context, blobID string) error
}

// Publisher receives catalog change notifications.
type Publisher interface {
	Publish(event domain.LibraryEvent)
}

// Service turns uploaded byte streams into catalog entries.
type Service struct {
	blobs    BlobStore
	songs    repository.SongRepository
	events   Publisher
	logger   *slog.Logger
	maxBytes int64
	now      func() time.Time
}

// New constructs an ingestion service. maxBytes <= 0 disables the size limit.
func New(blobs BlobStore, songs repository.SongRepository, events Publisher, logger *slog.Logger, maxBytes int64) Service {
	return Service{
		blobs:    blobs,
		songs:    songs,
		events:   events,
		logger:   logger,
		maxBytes: maxBytes,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Upload is one inbound song.
type Upload struct {
	OwnerID     string
	Metadata    domain.SongMetadata
	Filename    string
	ContentType string
	Body        io.Reader
}

// Result describes a committed ingestion.
type Result struct {
	Song  *domain.Song
	Bytes int64
}

var errTooLarge = errors.New("upload exceeds size limit")

// Ingest streams the upload into the blob store and registers the song once
// the blob is committed. A failed write never produces a catalog row.
func (s Service) Ingest(ctx context.Context, up Upload) (*Result, error) {
	meta := up.Metadata.Normalize()
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	if up.Body == nil {
		return nil, &domain.ValidationError{Field: "file", Message: "No file uploaded"}
	}
	if strings.TrimSpace(up.OwnerID) == "" {
		return nil, domain.NewError(domain.ErrUnauthenticated, "owner required")
	}

	stored, err := storedFileName(up.Filename)
	if err != nil {
		return nil, err
	}
	contentType := detectContentType(up.ContentType, filepath.Ext(stored))

	w, err := s.blobs.OpenWrite(ctx, stored, contentType)
	if err != nil {
		return nil, err
	}
	body := up.Body
	if s.maxBytes > 0 {
		body = &limitedReader{r: body, remaining: s.maxBytes}
	}
	if _, err := io.Copy(w, body); err != nil {
		w.Abort(err)
		s.logger.Warn("upload stream failed", "blob_id", w.ID(), "filename", stored, "error", err)
		if errors.Is(err, errTooLarge) {
			return nil, domain.NewError(domain.ErrTooLarge, fmt.Sprintf("file exceeds the %d byte upload limit", s.maxBytes))
		}
		return nil, domain.StorageError("stream upload", err)
	}
	if err := w.Close(); err != nil {
		s.logger.Error("blob commit failed", "blob_id", w.ID(), "filename", stored, "error", err)
		return nil, err
	}
	blob := w.Blob()

	song := &domain.Song{
		ID:             uuid.NewString(),
		SongMetadata:   meta,
		OwnerUserID:    up.OwnerID,
		BlobID:         blob.ID,
		StoredFileName: stored,
		CreatedAt:      s.now(),
	}
	if err := s.songs.CreateSong(ctx, song); err != nil {
		s.logger.Error("catalog insert failed after blob commit", "blob_id", blob.ID, "error", err)
		if delErr := s.blobs.Delete(context.WithoutCancel(ctx), blob.ID); delErr != nil {
			s.logger.Warn("orphaned blob left for reconciliation", "blob_id", blob.ID, "error", delErr)
		}
		return nil, fmt.Errorf("register song: %w", err)
	}

	s.logger.Info("song ingested", "song_id", song.ID, "blob_id", blob.ID, "owner_id", up.OwnerID, "bytes", blob.Size)
	if s.events != nil {
		s.events.Publish(domain.LibraryEvent{Type: domain.EventSongCreated, SongID: song.ID, Title: song.Title, OccurredAt: song.CreatedAt})
	}
	return &Result{Song: song, Bytes: blob.Size}, nil
}

var audioTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".opus": "audio/opus",
	".flac": "audio/flac",
	".webm": "audio/webm",
}

func detectContentType(declared, ext string) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if t, ok := audioTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

// storedFileName returns a random name that keeps a sanitized extension of the original.
func storedFileName(original string) (string, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("generate filename: %w", err)
	}
	return hex.EncodeToString(raw[:]) + sanitizeExt(filepath.Ext(original)), nil
}

func sanitizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" || len(ext) > 8 {
		return ""
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return "." + ext
}

type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, errTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, errTooLarge
	}
	return n, err
}
