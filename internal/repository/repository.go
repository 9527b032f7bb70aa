package repository

import (
	"context"

	"github.com/vnq1909/music-web-stream-1/internal/domain"
)

// UserRepository persists accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// SongRepository is the catalog of committed songs.
type SongRepository interface {
	CreateSong(ctx context.Context, song *domain.Song) error
	GetSongByID(ctx context.Context, id string) (*domain.Song, error)
	ListSongs(ctx context.Context) ([]domain.Song, error)
	ListSongsByOwner(ctx context.Context, ownerID string) ([]domain.Song, error)
	UpdateSongMetadata(ctx context.Context, id string, meta domain.SongMetadata) (*domain.Song, error)
	DeleteSong(ctx context.Context, id string) error
}

// PlaylistRepository is the playlist index with denormalized song entries.
type PlaylistRepository interface {
	CreatePlaylist(ctx context.Context, playlist *domain.Playlist) error
	GetPlaylist(ctx context.Context, id string) (*domain.Playlist, error)
	ListPlaylistsByOwner(ctx context.Context, ownerID string) ([]domain.Playlist, error)
	DeletePlaylist(ctx context.Context, id string) error
	AppendPlaylistEntry(ctx context.Context, playlistID string, entry domain.PlaylistEntry) error
	RemovePlaylistEntries(ctx context.Context, playlistID, songID string) (int64, error)
	PullSongFromPlaylists(ctx context.Context, songID string) (int64, error)
}

// BlobRepository indexes committed blobs by id and stored filename.
type BlobRepository interface {
	CreateBlob(ctx context.Context, blob *domain.Blob) error
	GetBlobByID(ctx context.Context, id string) (*domain.Blob, error)
	GetBlobByFilename(ctx context.Context, filename string) (*domain.Blob, error)
	DeleteBlob(ctx context.Context, id string) error
}
