// Package blobtest provides in-memory blob store backends for tests.
package blobtest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"

	"github.com/vnq1909/music-web-stream-1/internal/blobstore"
	"github.com/vnq1909/music-web-stream-1/internal/domain"
	"github.com/vnq1909/music-web-stream-1/internal/repository"
)

// Objects is an in-memory ObjectStore.
type Objects struct {
	mu   sync.Mutex
	data map[string][]byte

	// FailPutAfter makes PutObject fail once this many bytes were consumed.
	// Negative disables the failure.
	FailPutAfter int64
	FailPutErr   error
	FailDelete   error
	FailGet      error

	// FailReadAfter cuts GetObject bodies after this many bytes. The body then
	// returns FailReadErr, or ends early when it is nil. Negative disables it.
	FailReadAfter int64
	FailReadErr   error
}

// NewObjects returns an empty store.
func NewObjects() *Objects {
	return &Objects{data: make(map[string][]byte), FailPutAfter: -1, FailReadAfter: -1}
}

var _ blobstore.ObjectStore = (*Objects)(nil)

// PutObject stores body under key.
func (o *Objects) PutObject(ctx context.Context, key, _ string, body io.Reader) (int64, error) {
	o.mu.Lock()
	failAfter, failErr := o.FailPutAfter, o.FailPutErr
	o.mu.Unlock()

	var buf bytes.Buffer
	if failAfter >= 0 {
		if _, err := io.CopyN(&buf, body, failAfter); err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		if failErr == nil {
			failErr = errors.New("object store unavailable")
		}
		return 0, failErr
	}
	if _, err := io.Copy(&buf, body); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.data[key] = buf.Bytes()
	return int64(buf.Len()), nil
}

// GetObject returns a copy of the stored range.
func (o *Objects) GetObject(_ context.Context, key string, start, end int64) (io.ReadCloser, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.FailGet != nil {
		return nil, o.FailGet
	}
	data, ok := o.data[key]
	if !ok {
		return nil, blobstore.ErrObjectNotFound
	}
	if end < 0 || end >= int64(len(data)) {
		end = int64(len(data)) - 1
	}
	if start > end {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	out := append([]byte(nil), data[start:end+1]...)
	if o.FailReadAfter >= 0 && o.FailReadAfter < int64(len(out)) {
		return io.NopCloser(&cutReader{data: out[:o.FailReadAfter], err: o.FailReadErr}), nil
	}
	return io.NopCloser(bytes.NewReader(out)), nil
}

type cutReader struct {
	data []byte
	err  error
}

func (c *cutReader) Read(p []byte) (int, error) {
	if len(c.data) == 0 {
		if c.err != nil {
			return 0, c.err
		}
		return 0, io.EOF
	}
	n := copy(p, c.data)
	c.data = c.data[n:]
	return n, nil
}

// DeleteObject removes key.
func (o *Objects) DeleteObject(_ context.Context, key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.FailDelete != nil {
		return o.FailDelete
	}
	delete(o.data, key)
	return nil
}

// Keys lists stored keys in order.
func (o *Objects) Keys() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	keys := make([]string, 0, len(o.data))
	for k := range o.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Index is an in-memory BlobRepository.
type Index struct {
	mu    sync.Mutex
	blobs map[string]domain.Blob

	FailCreate error
	FailDelete error
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{blobs: make(map[string]domain.Blob)}
}

var _ repository.BlobRepository = (*Index)(nil)

// CreateBlob records blob.
func (i *Index) CreateBlob(_ context.Context, blob *domain.Blob) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.FailCreate != nil {
		return i.FailCreate
	}
	i.blobs[blob.ID] = *blob
	return nil
}

// GetBlobByID looks a blob up by id.
func (i *Index) GetBlobByID(_ context.Context, id string) (*domain.Blob, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	b, ok := i.blobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

// GetBlobByFilename returns the newest blob with filename.
func (i *Index) GetBlobByFilename(_ context.Context, filename string) (*domain.Blob, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	var found *domain.Blob
	for _, b := range i.blobs {
		if b.Filename != filename {
			continue
		}
		if found == nil || b.CreatedAt.After(found.CreatedAt) {
			b := b
			found = &b
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

// DeleteBlob removes the row.
func (i *Index) DeleteBlob(_ context.Context, id string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.FailDelete != nil {
		return i.FailDelete
	}
	if _, ok := i.blobs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(i.blobs, id)
	return nil
}

// Len reports the number of indexed blobs.
func (i *Index) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.blobs)
}
