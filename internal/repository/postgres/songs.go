package postgres

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/vnq1909/music-web-stream-1/internal/domain"
	"github.com/vnq1909/music-web-stream-1/internal/repository"
)

var songColumns = []string{
	"id", "title", "artist", "album", "description",
	"COALESCE(owner_user_id::text, '')", "blob_id", "stored_filename", "created_at", "updated_at",
}

// CreateSong registers a catalog entry for a committed blob.
func (r *Repository) CreateSong(ctx context.Context, song *domain.Song) error {
	const query = `INSERT INTO songs (id, title, artist, album, description, owner_user_id, blob_id, stored_filename, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		song.ID,
		song.Title,
		song.Artist,
		song.Album,
		song.Description,
		nilIfEmpty(song.OwnerUserID),
		song.BlobID,
		song.StoredFileName,
		song.CreatedAt,
	).Scan(&song.UpdatedAt)
	return mapError(err)
}

// GetSongByID fetches a song by identifier.
func (r *Repository) GetSongByID(ctx context.Context, id string) (*domain.Song, error) {
	query, args, err := r.sb.Select(songColumns...).From("songs").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	return scanSong(r.pool.QueryRow(ctx, query, args...))
}

// ListSongs returns the whole catalog, newest first.
func (r *Repository) ListSongs(ctx context.Context) ([]domain.Song, error) {
	return r.listSongs(ctx, r.sb.Select(songColumns...).From("songs"))
}

// ListSongsByOwner returns songs uploaded by the user.
func (r *Repository) ListSongsByOwner(ctx context.Context, ownerID string) ([]domain.Song, error) {
	return r.listSongs(ctx, r.sb.Select(songColumns...).From("songs").Where(sq.Eq{"owner_user_id": ownerID}))
}

func (r *Repository) listSongs(ctx context.Context, builder sq.SelectBuilder) ([]domain.Song, error) {
	query, args, err := builder.OrderBy("created_at DESC", "id").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	var songs []domain.Song
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, *song)
	}
	return songs, rows.Err()
}

// UpdateSongMetadata overwrites the descriptive fields and returns the stored row.
func (r *Repository) UpdateSongMetadata(ctx context.Context, id string, meta domain.SongMetadata) (*domain.Song, error) {
	query, args, err := r.sb.Update("songs").
		SetMap(map[string]any{
			"title":       meta.Title,
			"artist":      meta.Artist,
			"album":       meta.Album,
			"description": meta.Description,
			"updated_at":  sq.Expr("NOW()"),
		}).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING id, title, artist, album, description, COALESCE(owner_user_id::text, ''), blob_id, stored_filename, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanSong(r.pool.QueryRow(ctx, query, args...))
}

// DeleteSong removes the catalog row.
func (r *Repository) DeleteSong(ctx context.Context, id string) error {
	const query = `DELETE FROM songs WHERE id = $1`
	cmdTag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return mapError(err)
	}
	if cmdTag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanSong(row pgx.Row) (*domain.Song, error) {
	var s domain.Song
	if err := row.Scan(&s.ID, &s.Title, &s.Artist, &s.Album, &s.Description, &s.OwnerUserID, &s.BlobID, &s.StoredFileName, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, mapError(err)
	}
	return &s, nil
}
