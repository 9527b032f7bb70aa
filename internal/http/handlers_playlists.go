package httpx

import (
	"encoding/json"
	"net/http"
	"strings"
)

func (r *Router) handleListPlaylists(w http.ResponseWriter, req *http.Request) {
	info, _ := authInfoFromContext(req.Context())
	playlists, err := r.playlists.List(req.Context(), info.identity())
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	out := make([]playlistView, 0, len(playlists))
	for _, p := range playlists {
		out = append(out, newPlaylistView(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"playlists": out})
}

func (r *Router) handleCreatePlaylist(w http.ResponseWriter, req *http.Request) {
	info, _ := authInfoFromContext(req.Context())
	var payload struct {
		PlaylistName string `json:"playlistName"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p, err := r.playlists.Create(req.Context(), info.identity(), payload.PlaylistName)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"status": "success", "playlist": newPlaylistView(*p)})
}

func (r *Router) handleGetPlaylist(w http.ResponseWriter, req *http.Request) {
	info, _ := authInfoFromContext(req.Context())
	p, err := r.playlists.Get(req.Context(), info.identity(), req.PathValue("id"))
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "playlist": newPlaylistView(*p)})
}

func (r *Router) handleAddToPlaylist(w http.ResponseWriter, req *http.Request) {
	info, _ := authInfoFromContext(req.Context())
	var payload struct {
		SongID string `json:"songId"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(payload.SongID) == "" {
		writeError(w, http.StatusBadRequest, "songId is required")
		return
	}
	p, err := r.playlists.AddSong(req.Context(), info.identity(), req.PathValue("id"), payload.SongID)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "playlist": newPlaylistView(*p)})
}

func (r *Router) handleRemoveFromPlaylist(w http.ResponseWriter, req *http.Request) {
	info, _ := authInfoFromContext(req.Context())
	p, err := r.playlists.RemoveSong(req.Context(), info.identity(), req.PathValue("id"), req.URL.Query().Get("song"))
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "playlist": newPlaylistView(*p)})
}

func (r *Router) handleDeletePlaylist(w http.ResponseWriter, req *http.Request) {
	info, _ := authInfoFromContext(req.Context())
	if err := r.playlists.Delete(req.Context(), info.identity(), req.PathValue("id")); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Playlist deleted", "status": "success"})
}
