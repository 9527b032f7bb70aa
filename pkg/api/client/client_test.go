package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	cli, err := New(srv.URL)
	require.NoError(t, err)
	return cli
}

func TestNewNormalisesBaseURL(t *testing.T) {
	cli, err := New(" localhost:4000/ ")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4000", cli.baseURL)

	cli, err = New("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4000", cli.baseURL)
}

func TestLoginDecodesToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ana@example.com", body["email"])
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token":     "tok-1",
			"isAdmin":   true,
			"expiresIn": 3600,
			"user":      map[string]any{"id": "u1", "email": "ana@example.com"},
		})
	})
	cli := newTestClient(t, mux)

	resp, err := cli.Login(context.Background(), "ana@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", resp.Token)
	assert.True(t, resp.IsAdmin)
	assert.Equal(t, "u1", resp.User.ID)
}

func TestAPIErrorCarriesMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/songs", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"No songs found","status":"error"}`))
	})
	cli := newTestClient(t, mux)

	_, err := cli.ListSongs(context.Background())
	var apiErr APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "No songs found", apiErr.Message)
}

func TestUploadSongSendsFieldsBeforeFile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/song/upload", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		reader, err := r.MultipartReader()
		require.NoError(t, err)
		var order []string
		var audio []byte
		for {
			part, err := reader.NextPart()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			order = append(order, part.FormName())
			if part.FormName() == "file" {
				assert.Equal(t, "track.mp3", part.FileName())
				assert.Equal(t, "audio/mpeg", part.Header.Get("Content-Type"))
				audio, _ = io.ReadAll(part)
			}
		}
		assert.Equal(t, []string{"title", "artist", "album", "description", "file"}, order)
		assert.Equal(t, "ID3-audio", string(audio))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"song": map[string]any{"id": "s1", "song": "abc.mp3"}})
	})
	cli := newTestClient(t, mux)

	song, err := cli.UploadSong(context.Background(), "tok", SongInput{Title: "T", Artist: "A", Album: "B", Description: "D"},
		"track.mp3", "audio/mpeg", strings.NewReader("ID3-audio"))
	require.NoError(t, err)
	assert.Equal(t, "s1", song.ID)
	assert.Equal(t, "abc.mp3", song.Song)
}

func TestDeleteSongReturnsReportOnPartialFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/v1/song/delete/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "s1", r.PathValue("id"))
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":  "Song deleted but failed to update playlists",
			"status": "error",
			"step":   "playlists",
			"report": map[string]any{
				"songId": "s1",
				"steps": []map[string]string{
					{"step": "catalog", "status": "done"},
					{"step": "blob", "status": "done"},
					{"step": "playlists", "status": "failed", "error": "boom"},
				},
			},
		})
	})
	cli := newTestClient(t, mux)

	report, err := cli.DeleteSong(context.Background(), "tok", "s1")
	require.Error(t, err)
	assert.Equal(t, "s1", report.SongID)
	require.Len(t, report.Steps, 3)
	assert.Equal(t, "failed", report.Steps[2].Status)
}

func TestStreamForwardsRange(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/stream/{filename}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc.mp3", r.PathValue("filename"))
		assert.Equal(t, "bytes=0-3", r.Header.Get("Range"))
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Header().Set("Content-Range", "bytes 0-3/10")
		w.Header().Set("Content-Length", "4")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write([]byte("0123"))
	})
	cli := newTestClient(t, mux)

	var buf bytes.Buffer
	info, err := cli.Stream(context.Background(), "abc.mp3", "bytes=0-3", &buf)
	require.NoError(t, err)
	assert.Equal(t, http.StatusPartialContent, info.Status)
	assert.Equal(t, "bytes 0-3/10", info.ContentRange)
	assert.EqualValues(t, 4, info.Bytes)
	assert.Equal(t, "0123", buf.String())
}

func TestPlaylistRoundTrip(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/playlist/add/{id}", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_ = json.NewEncoder(w).Encode(map[string]any{"playlist": map[string]any{
			"id":    r.PathValue("id"),
			"songs": []map[string]string{{"songId": body["songId"]}},
		}})
	})
	mux.HandleFunc("DELETE /api/v1/playlist/remove/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "s1", r.URL.Query().Get("song"))
		_ = json.NewEncoder(w).Encode(map[string]any{"playlist": map[string]any{"id": r.PathValue("id"), "songs": []any{}}})
	})
	cli := newTestClient(t, mux)

	p, err := cli.AddToPlaylist(context.Background(), "tok", "p1", "s1")
	require.NoError(t, err)
	require.Len(t, p.Songs, 1)
	assert.Equal(t, "s1", p.Songs[0].SongID)

	p, err = cli.RemoveFromPlaylist(context.Background(), "tok", "p1", "s1")
	require.NoError(t, err)
	assert.Empty(t, p.Songs)
}
