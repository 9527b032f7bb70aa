package httpx

import (
	"errors"
	"io"
	"net/http"
	"strconv"
)

// handleStream serves a stored blob by filename, honouring single byte ranges.
// Once headers are sent a read failure ends the response without retrying.
func (r *Router) handleStream(w http.ResponseWriter, req *http.Request) {
	filename := req.PathValue("filename")
	s, err := r.stream.OpenRange(req.Context(), filename, req.Header.Get("Range"))
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	defer s.Close()

	h := w.Header()
	contentType := s.ContentType()
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	h.Set("Accept-Ranges", "bytes")
	h.Set("Content-Length", strconv.FormatInt(s.Length(), 10))
	h.Set("Cache-Control", "no-store")
	status := http.StatusOK
	if s.Partial() {
		h.Set("Content-Range", s.ContentRange())
		status = http.StatusPartialContent
	}
	w.WriteHeader(status)

	flusher, _ := w.(http.Flusher)
	var sent int64
	defer func() { r.recordTransfer("out", sent) }()
	for {
		chunk, err := s.Next()
		if len(chunk) > 0 {
			n, werr := w.Write(chunk)
			sent += int64(n)
			if werr != nil {
				r.logger.Warn("stream client went away", "filename", s.Filename(), "sent", sent, "error", werr)
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			r.logger.Error("stream interrupted", "filename", s.Filename(), "sent", sent, "length", s.Length(), "error", err)
			return
		}
	}
}
