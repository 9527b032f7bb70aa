package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/vnq1909/music-web-stream-1/internal/domain"
	"github.com/vnq1909/music-web-stream-1/internal/service/deletion"
	"github.com/vnq1909/music-web-stream-1/internal/service/ingest"
)

func (r *Router) handleListSongs(w http.ResponseWriter, req *http.Request) {
	songs, err := r.catalog.ListSongs(req.Context())
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"songs": newSongViews(songs)})
}

func (r *Router) handleGetSong(w http.ResponseWriter, req *http.Request) {
	song, err := r.catalog.GetSong(req.Context(), req.PathValue("id"))
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"song": newSongView(*song), "status": "success"})
}

// handleUpload streams a multipart upload into ingestion. Metadata fields must
// precede the file part so the body is never buffered.
func (r *Router) handleUpload(w http.ResponseWriter, req *http.Request) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing for upload", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	if r.opts.UploadMaxBytes > 0 {
		req.Body = http.MaxBytesReader(w, req.Body, r.opts.UploadMaxBytes+multipartSlack)
	}
	reader, err := req.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart/form-data body required")
		return
	}

	var meta domain.SongMetadata
	fields := map[string]*string{
		"title":       &meta.Title,
		"artist":      &meta.Artist,
		"album":       &meta.Album,
		"description": &meta.Description,
	}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "No file uploaded")
			return
		}
		if err != nil {
			r.writeMultipartError(w, req, err)
			return
		}
		if part.FormName() == "file" && part.FileName() != "" {
			contentType := part.Header.Get("Content-Type")
			if mediaType, _, perr := mime.ParseMediaType(contentType); perr == nil {
				contentType = mediaType
			}
			result, err := r.ingest.Ingest(req.Context(), ingest.Upload{
				OwnerID:     info.UserID,
				Metadata:    meta,
				Filename:    part.FileName(),
				ContentType: contentType,
				Body:        part,
			})
			_ = part.Close()
			if err != nil {
				r.writeUploadError(w, req, err)
				return
			}
			r.recordTransfer("in", result.Bytes)
			writeJSON(w, http.StatusCreated, map[string]any{
				"message": "Song added successfully",
				"status":  "success",
				"song":    newSongView(*result.Song),
			})
			return
		}
		if dst, ok := fields[part.FormName()]; ok {
			value, err := io.ReadAll(io.LimitReader(part, 64<<10))
			if err != nil {
				r.writeMultipartError(w, req, err)
				return
			}
			*dst = string(value)
		}
		_ = part.Close()
	}
}

func (r *Router) writeUploadError(w http.ResponseWriter, req *http.Request, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeError(w, http.StatusRequestEntityTooLarge, "file exceeds the upload limit")
		return
	}
	r.writeServiceError(w, req, err)
}

func (r *Router) writeMultipartError(w http.ResponseWriter, req *http.Request, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeError(w, http.StatusRequestEntityTooLarge, "file exceeds the upload limit")
		return
	}
	r.logger.Warn("malformed multipart body", "path", req.URL.Path, "error", err)
	writeError(w, http.StatusBadRequest, "malformed multipart body")
}

func (r *Router) handleEditSong(w http.ResponseWriter, req *http.Request) {
	info, _ := authInfoFromContext(req.Context())
	var payload struct {
		Title       *string `json:"title"`
		Artist      *string `json:"artist"`
		Album       *string `json:"album"`
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	patch := domain.SongPatch{
		Title:       payload.Title,
		Artist:      payload.Artist,
		Album:       payload.Album,
		Description: payload.Description,
	}
	song, err := r.catalog.EditSongMetadata(req.Context(), info.identity(), req.PathValue("id"), patch)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Song updated successfully",
		"status":  "success",
		"song":    newSongView(*song),
	})
}

func (r *Router) handleDeleteSong(w http.ResponseWriter, req *http.Request) {
	info, _ := authInfoFromContext(req.Context())
	report, err := r.deletion.DeleteSong(req.Context(), info.identity(), req.PathValue("id"))
	for _, step := range report.Steps {
		r.recordDeletionStep(step.Step, step.Status)
	}
	if err != nil {
		var stepErr *domain.StepError
		if !errors.As(err, &stepErr) {
			r.writeServiceError(w, req, err)
			return
		}
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrCatalogDelete) {
			status = http.StatusBadRequest
		}
		r.logger.Error("song deletion incomplete", "song_id", report.SongID, "step", stepErr.Step, "error", err)
		writeJSON(w, status, map[string]any{
			"error":  stepErr.Message,
			"status": "error",
			"step":   stepErr.Step,
			"report": report,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Song deleted successfully",
		"status":  "success",
		"report":  report,
	})
}

func (r *Router) handlePurgePlaylists(w http.ResponseWriter, req *http.Request) {
	info, _ := authInfoFromContext(req.Context())
	removed, err := r.deletion.PurgeSongFromPlaylists(req.Context(), info.identity(), req.PathValue("songId"))
	if err != nil {
		r.recordDeletionStep(deletion.StepPlaylists, deletion.StatusFailed)
		r.writeServiceError(w, req, err)
		return
	}
	r.recordDeletionStep(deletion.StepPlaylists, deletion.StatusDone)
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "removed": removed})
}
