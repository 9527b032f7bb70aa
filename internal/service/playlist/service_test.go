package playlist_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnq1909/music-web-stream-1/internal/domain"
	"github.com/vnq1909/music-web-stream-1/internal/repository"
	"github.com/vnq1909/music-web-stream-1/internal/repository/memory"
	"github.com/vnq1909/music-web-stream-1/internal/service/playlist"
)

var (
	alice = domain.Identity{UserID: "alice"}
	bob   = domain.Identity{UserID: "bob"}
)

func setup(t *testing.T) (playlist.Service, *memory.Store) {
	t.Helper()
	repo := memory.New()
	for _, s := range []domain.Song{
		{ID: "s1", SongMetadata: domain.SongMetadata{Title: "Same", Artist: "A", Album: "x", Description: "x"}, StoredFileName: "one.mp3", CreatedAt: time.Now()},
		{ID: "s2", SongMetadata: domain.SongMetadata{Title: "Same", Artist: "B", Album: "x", Description: "x"}, StoredFileName: "two.mp3", CreatedAt: time.Now()},
	} {
		song := s
		require.NoError(t, repo.CreateSong(context.Background(), &song))
	}
	return playlist.New(repo, repo, slog.New(slog.NewTextHandler(io.Discard, nil))), repo
}

func TestCreateRequiresName(t *testing.T) {
	svc, _ := setup(t)
	_, err := svc.Create(context.Background(), alice, "  ")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAddSongSnapshotsCatalogFields(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	p, err := svc.Create(ctx, alice, "Road trip")
	require.NoError(t, err)

	p, err = svc.AddSong(ctx, alice, p.ID, "s1")
	require.NoError(t, err)
	require.Len(t, p.Songs, 1)
	entry := p.Songs[0]
	assert.Equal(t, "s1", entry.SongID)
	assert.Equal(t, "Same", entry.Title)
	assert.Equal(t, "A", entry.ArtistName)
	assert.Equal(t, "one.mp3", entry.SongSrc)

	_, err = repo.UpdateSongMetadata(ctx, "s1", domain.SongMetadata{Title: "Renamed", Artist: "A", Album: "x", Description: "x"})
	require.NoError(t, err)
	stored, err := svc.Get(ctx, alice, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Same", stored.Songs[0].Title)

	_, err = svc.AddSong(ctx, alice, p.ID, "s1")
	assert.ErrorIs(t, err, domain.ErrConflict)
	_, err = svc.AddSong(ctx, alice, p.ID, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRemoveSongMatchesByIDNotTitle(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	p, err := svc.Create(ctx, alice, "Twins")
	require.NoError(t, err)
	_, err = svc.AddSong(ctx, alice, p.ID, "s1")
	require.NoError(t, err)
	_, err = svc.AddSong(ctx, alice, p.ID, "s2")
	require.NoError(t, err)

	p, err = svc.RemoveSong(ctx, alice, p.ID, "s2")
	require.NoError(t, err)
	require.Len(t, p.Songs, 1)
	assert.Equal(t, "s1", p.Songs[0].SongID)

	_, err = svc.RemoveSong(ctx, alice, p.ID, "s2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRemoveSongMalformedIDIsNotFound(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	p, err := svc.Create(ctx, alice, "Mixed")
	require.NoError(t, err)

	repo.FailRemoveEntries = repository.ErrNotFound
	_, err = svc.RemoveSong(ctx, alice, p.ID, "not-a-uuid")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.NotErrorIs(t, err, repository.ErrNotFound)
}

func TestOtherOwnersPlaylistIsHidden(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	p, err := svc.Create(ctx, alice, "Mine")
	require.NoError(t, err)

	_, err = svc.Get(ctx, bob, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.AddSong(ctx, bob, p.ID, "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, bob, p.ID), domain.ErrNotFound)

	list, err := svc.List(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, svc.Delete(ctx, alice, p.ID))
	_, err = svc.Get(ctx, alice, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
