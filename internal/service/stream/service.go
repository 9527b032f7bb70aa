package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/vnq1909/music-web-stream-1/internal/blobstore"
	"github.com/vnq1909/music-web-stream-1/internal/domain"
)

// DefaultChunkSize is used when the service is built with a non-positive chunk size.
const DefaultChunkSize = 64 << 10

// BlobReader is the read side of the blob store.
type BlobReader interface {
	Stat(ctx context.Context, filename string) (*domain.Blob, error)
	OpenRange(ctx context.Context, filename string, start, end int64) (*blobstore.Reader, error)
}

// Service resolves stored filenames to audio streams.
type Service struct {
	blobs     BlobReader
	chunkSize int
	logger    *slog.Logger
}

// New constructs a streaming service.
func New(blobs BlobReader, chunkSize int, logger *slog.Logger) Service {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return Service{blobs: blobs, chunkSize: chunkSize, logger: logger}
}

// Open streams the whole blob stored under filename.
func (s Service) Open(ctx context.Context, filename string) (*Stream, error) {
	if err := validateName(filename); err != nil {
		return nil, err
	}
	r, err := s.blobs.OpenRange(ctx, filename, 0, -1)
	if err != nil {
		return nil, s.mapOpenError(filename, err)
	}
	return s.newStream(r, false), nil
}

// OpenRange streams the byte range named by an HTTP Range header value.
// An empty header opens the whole blob.
func (s Service) OpenRange(ctx context.Context, filename, rangeHeader string) (*Stream, error) {
	if strings.TrimSpace(rangeHeader) == "" {
		return s.Open(ctx, filename)
	}
	if err := validateName(filename); err != nil {
		return nil, err
	}
	blob, err := s.blobs.Stat(ctx, filename)
	if err != nil {
		return nil, s.mapOpenError(filename, err)
	}
	start, end, err := ParseRange(rangeHeader, blob.Size)
	if err != nil {
		return nil, err
	}
	r, err := s.blobs.OpenRange(ctx, filename, start, end)
	if err != nil {
		return nil, s.mapOpenError(filename, err)
	}
	return s.newStream(r, true), nil
}

func (s Service) newStream(r *blobstore.Reader, partial bool) *Stream {
	return &Stream{
		body:    r,
		blob:    r.Blob,
		start:   r.Start,
		end:     r.End,
		partial: partial,
		buf:     make([]byte, s.chunkSize),
	}
}

func (s Service) mapOpenError(filename string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewError(domain.ErrNotFound, "File not found")
	}
	s.logger.Error("stream open failed", "filename", filename, "error", err)
	return err
}

func validateName(filename string) error {
	if filename == "" || strings.ContainsAny(filename, "/\\") || filename == "." || filename == ".." {
		return domain.NewError(domain.ErrNotFound, "File not found")
	}
	return nil
}

// ParseRange resolves a single "bytes=" range against size and returns the
// inclusive bounds.
func ParseRange(header string, size int64) (int64, int64, error) {
	unsatisfiable := domain.NewError(domain.ErrRangeNotSatisfiable, fmt.Sprintf("Range not satisfiable for %d bytes", size))
	spec, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !ok || strings.Contains(spec, ",") {
		return 0, 0, unsatisfiable
	}
	first, last, ok := strings.Cut(strings.TrimSpace(spec), "-")
	if !ok {
		return 0, 0, unsatisfiable
	}
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)

	if first == "" {
		n, err := strconv.ParseInt(last, 10, 64)
		if err != nil || n <= 0 || size == 0 {
			return 0, 0, unsatisfiable
		}
		if n > size {
			n = size
		}
		return size - n, size - 1, nil
	}

	start, err := strconv.ParseInt(first, 10, 64)
	if err != nil || start < 0 || start >= size {
		return 0, 0, unsatisfiable
	}
	end := size - 1
	if last != "" {
		end, err = strconv.ParseInt(last, 10, 64)
		if err != nil || end < start {
			return 0, 0, unsatisfiable
		}
		if end >= size {
			end = size - 1
		}
	}
	return start, end, nil
}

// Stream is a lazy, single pass sequence of audio chunks. It ends with
// io.EOF or with the first read error and cannot be restarted.
type Stream struct {
	body    io.ReadCloser
	blob    domain.Blob
	start   int64
	end     int64
	partial bool
	buf     []byte
	sent    int64
	err     error
}

// Next returns the next chunk. The slice is only valid until the next call.
func (s *Stream) Next() ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	n, err := io.ReadFull(s.body, s.buf)
	s.sent += int64(n)
	switch {
	case err == nil:
		return s.buf[:n], nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		if s.sent < s.Length() {
			s.err = domain.StorageError("read blob", fmt.Errorf("short read: %d of %d bytes", s.sent, s.Length()))
		} else {
			s.err = io.EOF
		}
	default:
		s.err = domain.StorageError("read blob", err)
	}
	if n > 0 {
		return s.buf[:n], nil
	}
	return nil, s.err
}

// Read implements io.Reader with the same terminal states as Next.
func (s *Stream) Read(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	n, err := s.body.Read(p)
	s.sent += int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) {
			if s.sent < s.Length() {
				s.err = domain.StorageError("read blob", io.ErrUnexpectedEOF)
			} else {
				s.err = io.EOF
			}
		} else {
			s.err = domain.StorageError("read blob", err)
		}
		if n > 0 {
			return n, nil
		}
		return 0, s.err
	}
	return n, nil
}

// Close releases the underlying blob reader.
func (s *Stream) Close() error {
	if s.err == nil {
		s.err = io.ErrClosedPipe
	}
	return s.body.Close()
}

// Size is the full blob size.
func (s *Stream) Size() int64 { return s.blob.Size }

// Length is the number of bytes this stream yields.
func (s *Stream) Length() int64 {
	if s.blob.Size == 0 {
		return 0
	}
	return s.end - s.start + 1
}

// ContentType of the stored blob.
func (s *Stream) ContentType() string { return s.blob.ContentType }

// Partial reports whether the stream serves a byte range.
func (s *Stream) Partial() bool { return s.partial }

// ContentRange returns the Content-Range header value for a partial stream.
func (s *Stream) ContentRange() string {
	return fmt.Sprintf("bytes %d-%d/%d", s.start, s.end, s.blob.Size)
}

// Filename is the stream key.
func (s *Stream) Filename() string { return s.blob.Filename }
