// Package memory holds map backed repositories used by service and handler tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vnq1909/music-web-stream-1/internal/domain"
	"github.com/vnq1909/music-web-stream-1/internal/repository"
)

// Store implements the user, song and playlist repositories.
type Store struct {
	mu        sync.Mutex
	users     map[string]domain.User
	songs     map[string]domain.Song
	playlists map[string]domain.Playlist

	// Injected failures, returned by the matching method when set.
	FailDeleteSong    error
	FailPull          error
	FailUpdateSong    error
	FailRemoveEntries error
}

var (
	_ repository.UserRepository     = (*Store)(nil)
	_ repository.SongRepository     = (*Store)(nil)
	_ repository.PlaylistRepository = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{
		users:     make(map[string]domain.User),
		songs:     make(map[string]domain.Song),
		playlists: make(map[string]domain.Playlist),
	}
}

func (s *Store) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	s.users[user.ID] = *user
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteUser removes the account and clears ownership of its songs.
func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.users, id)
	for songID, song := range s.songs {
		if song.OwnerUserID == id {
			song.OwnerUserID = ""
			s.songs[songID] = song
		}
	}
	for playlistID, p := range s.playlists {
		if p.OwnerUserID == id {
			delete(s.playlists, playlistID)
		}
	}
	return nil
}

func (s *Store) CreateSong(_ context.Context, song *domain.Song) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.songs[song.ID]; ok {
		return repository.ErrDuplicate
	}
	for _, existing := range s.songs {
		if existing.StoredFileName == song.StoredFileName {
			return repository.ErrDuplicate
		}
	}
	s.songs[song.ID] = *song
	return nil
}

func (s *Store) GetSongByID(_ context.Context, id string) (*domain.Song, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	song, ok := s.songs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &song, nil
}

func (s *Store) ListSongs(_ context.Context) ([]domain.Song, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedSongs(func(domain.Song) bool { return true }), nil
}

func (s *Store) ListSongsByOwner(_ context.Context, ownerID string) ([]domain.Song, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedSongs(func(song domain.Song) bool { return song.OwnerUserID == ownerID }), nil
}

func (s *Store) sortedSongs(keep func(domain.Song) bool) []domain.Song {
	out := make([]domain.Song, 0, len(s.songs))
	for _, song := range s.songs {
		if keep(song) {
			out = append(out, song)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *Store) UpdateSongMetadata(_ context.Context, id string, meta domain.SongMetadata) (*domain.Song, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpdateSong != nil {
		return nil, s.FailUpdateSong
	}
	song, ok := s.songs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	song.SongMetadata = meta
	song.UpdatedAt = time.Now().UTC()
	s.songs[id] = song
	return &song, nil
}

func (s *Store) DeleteSong(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailDeleteSong != nil {
		return s.FailDeleteSong
	}
	if _, ok := s.songs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.songs, id)
	return nil
}

func (s *Store) CreatePlaylist(_ context.Context, playlist *domain.Playlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := *playlist
	p.Songs = append([]domain.PlaylistEntry(nil), playlist.Songs...)
	s.playlists[p.ID] = p
	return nil
}

func (s *Store) GetPlaylist(_ context.Context, id string) (*domain.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.playlists[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p.Songs = append([]domain.PlaylistEntry(nil), p.Songs...)
	return &p, nil
}

func (s *Store) ListPlaylistsByOwner(_ context.Context, ownerID string) ([]domain.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Playlist
	for _, p := range s.playlists {
		if p.OwnerUserID == ownerID {
			p.Songs = append([]domain.PlaylistEntry(nil), p.Songs...)
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) DeletePlaylist(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.playlists[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.playlists, id)
	return nil
}

func (s *Store) AppendPlaylistEntry(_ context.Context, playlistID string, entry domain.PlaylistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.playlists[playlistID]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Contains(entry.SongID) {
		return repository.ErrDuplicate
	}
	p.Songs = append(p.Songs, entry)
	s.playlists[playlistID] = p
	return nil
}

func (s *Store) RemovePlaylistEntries(_ context.Context, playlistID, songID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailRemoveEntries != nil {
		return 0, s.FailRemoveEntries
	}
	p, ok := s.playlists[playlistID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	var removed int64
	p.Songs, removed = without(p.Songs, songID)
	s.playlists[playlistID] = p
	return removed, nil
}

// PullSongFromPlaylists removes songID from every playlist.
func (s *Store) PullSongFromPlaylists(_ context.Context, songID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailPull != nil {
		return 0, s.FailPull
	}
	var total int64
	for id, p := range s.playlists {
		var removed int64
		p.Songs, removed = without(p.Songs, songID)
		s.playlists[id] = p
		total += removed
	}
	return total, nil
}

func without(entries []domain.PlaylistEntry, songID string) ([]domain.PlaylistEntry, int64) {
	kept := entries[:0:0]
	var removed int64
	for _, e := range entries {
		if e.SongID == songID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	return kept, removed
}
