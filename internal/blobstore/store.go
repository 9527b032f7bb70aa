package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vnq1909/music-web-stream-1/internal/domain"
	"github.com/vnq1909/music-web-stream-1/internal/repository"
)

// ErrObjectNotFound is returned by object stores for a missing key.
var ErrObjectNotFound = errors.New("blobstore: object not found")

// ObjectStore moves raw bytes in and out of durable storage.
type ObjectStore interface {
	// PutObject consumes body until EOF and reports the stored size.
	PutObject(ctx context.Context, key, contentType string, body io.Reader) (int64, error)
	// GetObject opens [start, end] inclusive; end < 0 reads to the end.
	GetObject(ctx context.Context, key string, start, end int64) (io.ReadCloser, error)
	DeleteObject(ctx context.Context, key string) error
}

// Store is the blob store: bytes in an ObjectStore, identity in a blob index.
// A blob becomes visible to readers only after both its bytes and its index row
// have been written.
type Store struct {
	objects ObjectStore
	index   repository.BlobRepository
	prefix  string
	logger  *slog.Logger
	now     func() time.Time
}

// New constructs a Store.
func New(objects ObjectStore, index repository.BlobRepository, prefix string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		objects: objects,
		index:   index,
		prefix:  prefix,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// OpenWrite starts a streamed write of a new blob stored under filename.
// The blob is committed by Close; Abort discards it.
func (s *Store) OpenWrite(ctx context.Context, filename, contentType string) (*Writer, error) {
	if filename == "" {
		return nil, &domain.ValidationError{Field: "filename", Message: "filename required"}
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	now := s.now()
	id := uuid.NewString()
	key := path.Join(s.prefix, now.Format("2006/01/02"), id)

	pr, pw := io.Pipe()
	w := &Writer{
		store: s,
		ctx:   ctx,
		pw:    pw,
		done:  make(chan struct{}),
		blob: domain.Blob{
			ID:          id,
			Filename:    filename,
			ObjectKey:   key,
			ContentType: contentType,
			CreatedAt:   now,
		},
	}
	go func() {
		defer close(w.done)
		size, err := s.objects.PutObject(ctx, key, contentType, pr)
		w.size, w.uploadErr = size, err
		// unblock pending writes when the upload stops early
		pr.CloseWithError(errUploadStopped(err))
	}()
	return w, nil
}

func errUploadStopped(err error) error {
	if err != nil {
		return err
	}
	return io.ErrClosedPipe
}

// OpenRead opens the newest blob stored under filename.
func (s *Store) OpenRead(ctx context.Context, filename string) (*Reader, error) {
	return s.OpenRange(ctx, filename, 0, -1)
}

// OpenRange opens bytes [start, end] of the blob stored under filename.
// end < 0 reads to the end of the blob.
func (s *Store) OpenRange(ctx context.Context, filename string, start, end int64) (*Reader, error) {
	blob, err := s.Stat(ctx, filename)
	if err != nil {
		return nil, err
	}
	if end < 0 || end >= blob.Size {
		end = blob.Size - 1
	}
	if start < 0 || (blob.Size > 0 && start > end) {
		return nil, &domain.ValidationError{Field: "range", Message: "invalid byte range"}
	}
	body, err := s.objects.GetObject(ctx, blob.ObjectKey, start, end)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			s.logger.Error("blob indexed but object missing", "blob_id", blob.ID, "object_key", blob.ObjectKey)
			return nil, fmt.Errorf("blob %s: %w", filename, domain.ErrNotFound)
		}
		return nil, domain.StorageError("open blob", err)
	}
	return &Reader{ReadCloser: body, Blob: *blob, Start: start, End: end}, nil
}

// Stat returns the index entry for filename.
func (s *Store) Stat(ctx context.Context, filename string) (*domain.Blob, error) {
	blob, err := s.index.GetBlobByFilename(ctx, filename)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("blob %s: %w", filename, domain.ErrNotFound)
		}
		return nil, domain.StorageError("lookup blob", err)
	}
	return blob, nil
}

// Delete removes the blob bytes and then its index row.
func (s *Store) Delete(ctx context.Context, blobID string) error {
	blob, err := s.index.GetBlobByID(ctx, blobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("blob %s: %w", blobID, domain.ErrNotFound)
		}
		return domain.StorageError("lookup blob", err)
	}
	if err := s.objects.DeleteObject(ctx, blob.ObjectKey); err != nil && !errors.Is(err, ErrObjectNotFound) {
		return domain.StorageError("delete object", err)
	}
	if err := s.index.DeleteBlob(ctx, blobID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return domain.StorageError("delete blob index", err)
	}
	s.logger.Info("blob deleted", "blob_id", blobID, "object_key", blob.ObjectKey)
	return nil
}

// Writer streams bytes of one blob into the object store.
type Writer struct {
	store *Store
	ctx   context.Context
	pw    *io.PipeWriter
	done  chan struct{}
	blob  domain.Blob

	size      int64
	uploadErr error

	once      sync.Once
	commitErr error
}

// ID returns the blob identifier assigned at open time.
func (w *Writer) ID() string { return w.blob.ID }

// Write forwards p to the upload.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.pw.Write(p)
	if err != nil {
		return n, domain.StorageError("write blob", err)
	}
	return n, nil
}

// Close finishes the upload and records the blob in the index. The blob is
// durable only when Close returns nil.
func (w *Writer) Close() error {
	w.once.Do(func() {
		_ = w.pw.Close()
		<-w.done
		if w.uploadErr != nil {
			w.commitErr = domain.StorageError("upload blob", w.uploadErr)
			return
		}
		w.blob.Size = w.size
		if err := w.store.index.CreateBlob(w.ctx, &w.blob); err != nil {
			w.store.logger.Error("blob index insert failed", "blob_id", w.blob.ID, "error", err)
			if delErr := w.store.objects.DeleteObject(context.WithoutCancel(w.ctx), w.blob.ObjectKey); delErr != nil {
				w.store.logger.Warn("orphaned object left behind", "object_key", w.blob.ObjectKey, "error", delErr)
			}
			w.commitErr = domain.StorageError("index blob", err)
			return
		}
		w.store.logger.Info("blob committed", "blob_id", w.blob.ID, "filename", w.blob.Filename, "size", w.blob.Size)
	})
	return w.commitErr
}

// Abort stops the upload without committing. It is a no-op after Close.
func (w *Writer) Abort(cause error) {
	if cause == nil {
		cause = errors.New("upload aborted")
	}
	w.once.Do(func() {
		_ = w.pw.CloseWithError(cause)
		<-w.done
		w.commitErr = domain.StorageError("upload blob", cause)
		w.store.logger.Warn("blob upload aborted", "blob_id", w.blob.ID, "error", cause)
	})
}

// Blob returns the committed blob. It is only meaningful after a nil Close.
func (w *Writer) Blob() domain.Blob { return w.blob }

// Reader is an open blob body.
type Reader struct {
	io.ReadCloser
	Blob  domain.Blob
	Start int64
	End   int64
}

// Length is the number of bytes the reader will yield.
func (r *Reader) Length() int64 {
	if r.Blob.Size == 0 {
		return 0
	}
	return r.End - r.Start + 1
}
