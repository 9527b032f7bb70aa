package blobstore_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnq1909/music-web-stream-1/internal/blobstore"
	"github.com/vnq1909/music-web-stream-1/internal/blobstore/blobtest"
	"github.com/vnq1909/music-web-stream-1/internal/domain"
)

func newStore() (*blobstore.Store, *blobtest.Objects, *blobtest.Index) {
	objects := blobtest.NewObjects()
	index := blobtest.NewIndex()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return blobstore.New(objects, index, "songs", logger), objects, index
}

func TestWriteCommitsOnClose(t *testing.T) {
	store, objects, index := newStore()
	ctx := context.Background()

	w, err := store.OpenWrite(ctx, "abc.mp3", "audio/mpeg")
	require.NoError(t, err)
	require.NotEmpty(t, w.ID())

	_, err = io.Copy(w, strings.NewReader("hello audio"))
	require.NoError(t, err)
	assert.Equal(t, 0, index.Len(), "blob must not be visible before Close")

	require.NoError(t, w.Close())
	assert.Equal(t, 1, index.Len())
	require.Len(t, objects.Keys(), 1)
	assert.True(t, strings.HasPrefix(objects.Keys()[0], "songs/"))
	assert.True(t, strings.HasSuffix(objects.Keys()[0], w.ID()))
	assert.Equal(t, int64(len("hello audio")), w.Blob().Size)

	r, err := store.OpenRead(ctx, "abc.mp3")
	require.NoError(t, err)
	defer r.Close()
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello audio", string(body))
	assert.Equal(t, int64(11), r.Length())
}

func TestWriteFailureLeavesNoIndexRow(t *testing.T) {
	store, objects, index := newStore()
	objects.FailPutAfter = 4

	w, err := store.OpenWrite(context.Background(), "broken.mp3", "")
	require.NoError(t, err)

	_, copyErr := io.Copy(w, bytes.NewReader(make([]byte, 64<<10)))
	closeErr := w.Close()

	require.Error(t, errors.Join(copyErr, closeErr))
	assert.ErrorIs(t, closeErr, domain.ErrStorage)
	assert.Equal(t, 0, index.Len())
}

func TestIndexFailureRemovesObject(t *testing.T) {
	store, objects, index := newStore()
	index.FailCreate = errors.New("db down")

	w, err := store.OpenWrite(context.Background(), "x.mp3", "")
	require.NoError(t, err)
	_, err = w.Write([]byte("data"))
	require.NoError(t, err)

	err = w.Close()
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.Empty(t, objects.Keys())
}

func TestAbortDiscardsUpload(t *testing.T) {
	store, objects, index := newStore()
	w, err := store.OpenWrite(context.Background(), "gone.mp3", "")
	require.NoError(t, err)
	_, err = w.Write([]byte("partial"))
	require.NoError(t, err)

	w.Abort(errors.New("client disconnected"))
	assert.ErrorIs(t, w.Close(), domain.ErrStorage)
	assert.Equal(t, 0, index.Len())
	assert.Empty(t, objects.Keys())
}

func TestOpenRangeAndUnknownName(t *testing.T) {
	store, _, _ := newStore()
	ctx := context.Background()

	_, err := store.OpenRead(ctx, "missing.mp3")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	w, err := store.OpenWrite(ctx, "r.mp3", "")
	require.NoError(t, err)
	_, _ = w.Write([]byte("0123456789"))
	require.NoError(t, w.Close())

	r, err := store.OpenRange(ctx, "r.mp3", 2, 5)
	require.NoError(t, err)
	body, _ := io.ReadAll(r)
	assert.Equal(t, "2345", string(body))
	assert.Equal(t, int64(4), r.Length())

	_, err = store.OpenRange(ctx, "r.mp3", 8, 3)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDeleteRemovesObjectAndIndex(t *testing.T) {
	store, objects, index := newStore()
	ctx := context.Background()
	w, err := store.OpenWrite(ctx, "d.mp3", "")
	require.NoError(t, err)
	_, _ = w.Write([]byte("bytes"))
	require.NoError(t, w.Close())

	require.NoError(t, store.Delete(ctx, w.ID()))
	assert.Empty(t, objects.Keys())
	assert.Equal(t, 0, index.Len())

	assert.ErrorIs(t, store.Delete(ctx, w.ID()), domain.ErrNotFound)
}

func TestDeleteObjectFailureIsStorageError(t *testing.T) {
	store, objects, index := newStore()
	ctx := context.Background()
	w, err := store.OpenWrite(ctx, "d.mp3", "")
	require.NoError(t, err)
	_, _ = w.Write([]byte("bytes"))
	require.NoError(t, w.Close())

	objects.FailDelete = errors.New("s3 timeout")
	err = store.Delete(ctx, w.ID())
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.Equal(t, 1, index.Len())
}
