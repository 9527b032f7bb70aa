package catalog_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnq1909/music-web-stream-1/internal/domain"
	"github.com/vnq1909/music-web-stream-1/internal/repository/memory"
	"github.com/vnq1909/music-web-stream-1/internal/service/catalog"
)

type eventLog []domain.LibraryEvent

func (l *eventLog) Publish(event domain.LibraryEvent) { *l = append(*l, event) }

func ptr(s string) *string { return &s }

func seed(t *testing.T) (*memory.Store, domain.Song) {
	t.Helper()
	repo := memory.New()
	song := domain.Song{
		ID:             "s1",
		SongMetadata:   domain.SongMetadata{Title: "Test Track", Artist: "Artist A", Album: "LP", Description: "first"},
		OwnerUserID:    "u1",
		BlobID:         "b1",
		StoredFileName: "abc.mp3",
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, repo.CreateSong(context.Background(), &song))
	return repo, song
}

func newService(repo *memory.Store, events *eventLog) catalog.Service {
	return catalog.New(repo, events, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestListSongsEmptyCatalog(t *testing.T) {
	svc := newService(memory.New(), &eventLog{})
	_, err := svc.ListSongs(context.Background())
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "No songs found", err.Error())
}

func TestGetSong(t *testing.T) {
	repo, song := seed(t)
	svc := newService(repo, &eventLog{})

	got, err := svc.GetSong(context.Background(), song.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test Track", got.Title)

	_, err = svc.GetSong(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEditRequiresAdmin(t *testing.T) {
	repo, song := seed(t)
	svc := newService(repo, &eventLog{})
	_, err := svc.EditSongMetadata(context.Background(), domain.Identity{UserID: "u1"}, song.ID, domain.SongPatch{Title: ptr("New")})
	require.ErrorIs(t, err, domain.ErrForbidden)

	stored, _ := repo.GetSongByID(context.Background(), song.ID)
	assert.Equal(t, "Test Track", stored.Title)
}

func TestEditIdenticalFieldsReportsNoChanges(t *testing.T) {
	repo, song := seed(t)
	events := &eventLog{}
	svc := newService(repo, events)
	admin := domain.Identity{UserID: "root", IsAdmin: true}

	before, _ := repo.GetSongByID(context.Background(), song.ID)
	_, err := svc.EditSongMetadata(context.Background(), admin, song.ID, domain.SongPatch{Title: ptr(" Test Track "), Artist: ptr("Artist A")})
	require.ErrorIs(t, err, domain.ErrNoChanges)
	assert.Equal(t, "No changes made to the song", err.Error())

	after, _ := repo.GetSongByID(context.Background(), song.ID)
	assert.Equal(t, before, after)
	assert.Empty(t, *events)
}

func TestEditPersistsAndPublishes(t *testing.T) {
	repo, song := seed(t)
	events := &eventLog{}
	svc := newService(repo, events)
	admin := domain.Identity{UserID: "root", IsAdmin: true}

	updated, err := svc.EditSongMetadata(context.Background(), admin, song.ID, domain.SongPatch{Album: ptr("Deluxe")})
	require.NoError(t, err)
	assert.Equal(t, "Deluxe", updated.Album)
	assert.Equal(t, "Test Track", updated.Title)

	require.Len(t, *events, 1)
	assert.Equal(t, domain.EventSongUpdated, (*events)[0].Type)

	_, err = svc.EditSongMetadata(context.Background(), admin, song.ID, domain.SongPatch{Album: ptr("  ")})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.EditSongMetadata(context.Background(), admin, "missing", domain.SongPatch{Album: ptr("x")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
