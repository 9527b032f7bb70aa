package postgres

import (
	"context"
	"time"

	"github.com/vnq1909/music-web-stream-1/internal/domain"
	"github.com/vnq1909/music-web-stream-1/internal/repository"
)

// CreatePlaylist inserts an empty playlist.
func (r *Repository) CreatePlaylist(ctx context.Context, playlist *domain.Playlist) error {
	const query = `INSERT INTO playlists (id, owner_user_id, playlist_name, created_at)
		VALUES ($1, $2, $3, $4)`
	_, err := r.pool.Exec(ctx, query, playlist.ID, playlist.OwnerUserID, playlist.PlaylistName, playlist.CreatedAt)
	return mapError(err)
}

// GetPlaylist loads a playlist with its entries in insertion order.
func (r *Repository) GetPlaylist(ctx context.Context, id string) (*domain.Playlist, error) {
	const query = `SELECT id, owner_user_id, playlist_name, created_at FROM playlists WHERE id = $1`
	var p domain.Playlist
	if err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.OwnerUserID, &p.PlaylistName, &p.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	entries, err := r.entriesFor(ctx, []string{p.ID})
	if err != nil {
		return nil, err
	}
	p.Songs = entries[p.ID]
	return &p, nil
}

// ListPlaylistsByOwner returns every playlist of a user with entries.
func (r *Repository) ListPlaylistsByOwner(ctx context.Context, ownerID string) ([]domain.Playlist, error) {
	const query = `SELECT id, owner_user_id, playlist_name, created_at FROM playlists
		WHERE owner_user_id = $1 ORDER BY created_at, id`
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	var playlists []domain.Playlist
	var ids []string
	for rows.Next() {
		var p domain.Playlist
		if err := rows.Scan(&p.ID, &p.OwnerUserID, &p.PlaylistName, &p.CreatedAt); err != nil {
			return nil, err
		}
		playlists = append(playlists, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return playlists, nil
	}
	entries, err := r.entriesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range playlists {
		playlists[i].Songs = entries[playlists[i].ID]
	}
	return playlists, nil
}

func (r *Repository) entriesFor(ctx context.Context, playlistIDs []string) (map[string][]domain.PlaylistEntry, error) {
	const query = `SELECT playlist_id, song_id, title, artist_name, song_src, added_at FROM playlist_songs
		WHERE playlist_id = ANY($1::uuid[]) ORDER BY playlist_id, position`
	rows, err := r.pool.Query(ctx, query, playlistIDs)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	out := make(map[string][]domain.PlaylistEntry, len(playlistIDs))
	for rows.Next() {
		var playlistID string
		var e domain.PlaylistEntry
		if err := rows.Scan(&playlistID, &e.SongID, &e.Title, &e.ArtistName, &e.SongSrc, &e.AddedAt); err != nil {
			return nil, err
		}
		out[playlistID] = append(out[playlistID], e)
	}
	return out, rows.Err()
}

// DeletePlaylist removes a playlist and its entries.
func (r *Repository) DeletePlaylist(ctx context.Context, id string) error {
	const query = `DELETE FROM playlists WHERE id = $1`
	cmdTag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return mapError(err)
	}
	if cmdTag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// AppendPlaylistEntry adds a snapshot entry at the end of the playlist.
func (r *Repository) AppendPlaylistEntry(ctx context.Context, playlistID string, entry domain.PlaylistEntry) error {
	if entry.AddedAt.IsZero() {
		entry.AddedAt = time.Now().UTC()
	}
	const query = `INSERT INTO playlist_songs (playlist_id, song_id, title, artist_name, song_src, added_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, query, playlistID, entry.SongID, entry.Title, entry.ArtistName, entry.SongSrc, entry.AddedAt)
	return mapError(err)
}

// RemovePlaylistEntries deletes every entry of songID in one playlist.
func (r *Repository) RemovePlaylistEntries(ctx context.Context, playlistID, songID string) (int64, error) {
	const query = `DELETE FROM playlist_songs WHERE playlist_id = $1 AND song_id = $2`
	cmdTag, err := r.pool.Exec(ctx, query, playlistID, songID)
	if err != nil {
		return 0, mapError(err)
	}
	return cmdTag.RowsAffected(), nil
}

// PullSongFromPlaylists removes songID from every playlist in a single statement.
func (r *Repository) PullSongFromPlaylists(ctx context.Context, songID string) (int64, error) {
	const query = `DELETE FROM playlist_songs WHERE song_id = $1`
	cmdTag, err := r.pool.Exec(ctx, query, songID)
	if err != nil {
		return 0, mapError(err)
	}
	return cmdTag.RowsAffected(), nil
}
