package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"
)

// Client provides typed access to the music API for interactive tools.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// New constructs a Client pointing at the provided API base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = "http://localhost:4000"
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Message string
	Body    []byte
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body any, token string, v any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := c.newRequest(ctx, method, path, reader, token)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return newAPIError(resp)
	}

	if v == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, token string) (*http.Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
	}
	return req, nil
}

// transfer returns a client sharing the configured transport but without an
// overall timeout; uploads and streams are bounded by ctx instead.
func (c *Client) transfer() *http.Client {
	return &http.Client{Transport: c.httpClient.Transport}
}

func newAPIError(resp *http.Response) APIError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return APIError{Status: resp.StatusCode, Message: extractError(bytes.NewReader(data)), Body: data}
}

func extractError(body io.Reader) string {
	if body == nil {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return ""
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}
	return strings.TrimSpace(payload.Error)
}

// User reflects API user payloads.
type User struct {
	ID        string    `json:"id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
}

// LoginResponse captures the token payload emitted by the API.
type LoginResponse struct {
	Token     string `json:"token"`
	IsAdmin   bool   `json:"isAdmin"`
	ExpiresIn int64  `json:"expiresIn"`
	User      User   `json:"user"`
}

// Register creates a listener account.
func (c *Client) Register(ctx context.Context, fullName, email, password string) (User, error) {
	body := map[string]string{
		"fullName": fullName,
		"email":    email,
		"password": password,
	}
	var resp struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/register", body, "", &resp); err != nil {
		return User{}, err
	}
	return resp.User, nil
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", body, "", &resp); err != nil {
		return LoginResponse{}, err
	}
	return resp, nil
}

// Song is a catalog entry. Song holds the stream key.
type Song struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Artist      string     `json:"artist"`
	Album       string     `json:"album"`
	Description string     `json:"description"`
	UploadedBy  string     `json:"uploadedBy"`
	Song        string     `json:"song"`
	File        string     `json:"file"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt"`
}

// ListSongs returns the public catalog, newest first.
func (c *Client) ListSongs(ctx context.Context) ([]Song, error) {
	var resp struct {
		Songs []Song `json:"songs"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/songs", nil, "", &resp); err != nil {
		return nil, err
	}
	return resp.Songs, nil
}

// GetSong fetches one catalog entry.
func (c *Client) GetSong(ctx context.Context, token, songID string) (Song, error) {
	path := fmt.Sprintf("/api/v1/song/%s", url.PathEscape(songID))
	var resp struct {
		Song Song `json:"song"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, token, &resp); err != nil {
		return Song{}, err
	}
	return resp.Song, nil
}

// SongInput carries the metadata fields of an upload.
type SongInput struct {
	Title       string
	Artist      string
	Album       string
	Description string
}

// UploadSong streams audio as a multipart body. Metadata fields are written
// before the file part.
func (c *Client) UploadSong(ctx context.Context, token string, input SongInput, filename, contentType string, audio io.Reader) (Song, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUpload(mw, input, filename, contentType, audio))
	}()

	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/song/upload", pr, token)
	if err != nil {
		pr.Close()
		return Song{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.transfer().Do(req)
	if err != nil {
		pr.Close()
		return Song{}, fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return Song{}, newAPIError(resp)
	}
	var out struct {
		Song Song `json:"song"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Song{}, fmt.Errorf("decode response: %w", err)
	}
	return out.Song, nil
}

func writeUpload(mw *multipart.Writer, input SongInput, filename, contentType string, audio io.Reader) error {
	fields := [][2]string{
		{"title", input.Title},
		{"artist", input.Artist},
		{"album", input.Album},
		{"description", input.Description},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return err
		}
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return err
	}
	return mw.Close()
}

// SongPatch updates only the non-nil fields.
type SongPatch struct {
	Title       *string `json:"title,omitempty"`
	Artist      *string `json:"artist,omitempty"`
	Album       *string `json:"album,omitempty"`
	Description *string `json:"description,omitempty"`
}

// EditSong applies a metadata patch.
func (c *Client) EditSong(ctx context.Context, token, songID string, patch SongPatch) (Song, error) {
	path := fmt.Sprintf("/api/v1/song/edit/%s", url.PathEscape(songID))
	var resp struct {
		Song Song `json:"song"`
	}
	if err := c.do(ctx, http.MethodPut, path, patch, token, &resp); err != nil {
		return Song{}, err
	}
	return resp.Song, nil
}

// DeleteStep is the outcome of one deletion step.
type DeleteStep struct {
	Step   string `json:"step"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// DeleteReport describes what a song deletion did.
type DeleteReport struct {
	SongID                 string       `json:"songId"`
	Steps                  []DeleteStep `json:"steps"`
	PlaylistEntriesRemoved int64        `json:"playlistEntriesRemoved"`
}

// DeleteSong removes a song. On partial failure the report is returned
// alongside the APIError.
func (c *Client) DeleteSong(ctx context.Context, token, songID string) (DeleteReport, error) {
	path := fmt.Sprintf("/api/v1/song/delete/%s", url.PathEscape(songID))
	var resp struct {
		Report DeleteReport `json:"report"`
	}
	err := c.do(ctx, http.MethodDelete, path, nil, token, &resp)
	if err != nil {
		var apiErr APIError
		if errors.As(err, &apiErr) && len(apiErr.Body) > 0 {
			_ = json.Unmarshal(apiErr.Body, &resp)
		}
		return resp.Report, err
	}
	return resp.Report, nil
}

// PurgeSong removes every playlist entry referencing songID. Admin only.
func (c *Client) PurgeSong(ctx context.Context, token, songID string) (int64, error) {
	path := fmt.Sprintf("/api/v1/playlist/purge/%s", url.PathEscape(songID))
	var resp struct {
		Removed int64 `json:"removed"`
	}
	if err := c.do(ctx, http.MethodPost, path, nil, token, &resp); err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

// StreamInfo describes a completed download.
type StreamInfo struct {
	Status       int
	ContentType  string
	ContentRange string
	Bytes        int64
}

// Stream copies the audio stored under filename into dst. A non-empty
// rangeSpec such as "bytes=0-1023" requests a partial response.
func (c *Client) Stream(ctx context.Context, filename, rangeSpec string, dst io.Writer) (StreamInfo, error) {
	path := fmt.Sprintf("/api/v1/stream/%s", url.PathEscape(filename))
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return StreamInfo{}, err
	}
	if strings.TrimSpace(rangeSpec) != "" {
		req.Header.Set("Range", strings.TrimSpace(rangeSpec))
	}
	resp, err := c.transfer().Do(req)
	if err != nil {
		return StreamInfo{}, fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return StreamInfo{}, newAPIError(resp)
	}
	info := StreamInfo{
		Status:       resp.StatusCode,
		ContentType:  resp.Header.Get("Content-Type"),
		ContentRange: resp.Header.Get("Content-Range"),
	}
	n, err := io.Copy(dst, resp.Body)
	info.Bytes = n
	if err != nil {
		return info, fmt.Errorf("read stream: %w", err)
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return info, fmt.Errorf("stream truncated: got %d of %d bytes", n, resp.ContentLength)
	}
	return info, nil
}

// PlaylistEntry is a snapshot of a song inside a playlist.
type PlaylistEntry struct {
	SongID     string    `json:"songId"`
	Title      string    `json:"title"`
	ArtistName string    `json:"artistName"`
	SongSrc    string    `json:"songSrc"`
	AddedAt    time.Time `json:"addedAt"`
}

// Playlist is a user's ordered collection of songs.
type Playlist struct {
	ID           string          `json:"id"`
	PlaylistName string          `json:"playlistName"`
	UserID       string          `json:"userId"`
	Songs        []PlaylistEntry `json:"songs"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type playlistResponse struct {
	Playlist Playlist `json:"playlist"`
}

// ListPlaylists returns the caller's playlists.
func (c *Client) ListPlaylists(ctx context.Context, token string) ([]Playlist, error) {
	var resp struct {
		Playlists []Playlist `json:"playlists"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/playlist", nil, token, &resp); err != nil {
		return nil, err
	}
	return resp.Playlists, nil
}

// CreatePlaylist creates an empty playlist.
func (c *Client) CreatePlaylist(ctx context.Context, token, name string) (Playlist, error) {
	var resp playlistResponse
	body := map[string]string{"playlistName": name}
	if err := c.do(ctx, http.MethodPost, "/api/v1/playlist/create", body, token, &resp); err != nil {
		return Playlist{}, err
	}
	return resp.Playlist, nil
}

// GetPlaylist fetches one of the caller's playlists.
func (c *Client) GetPlaylist(ctx context.Context, token, playlistID string) (Playlist, error) {
	path := fmt.Sprintf("/api/v1/playlist/%s", url.PathEscape(playlistID))
	var resp playlistResponse
	if err := c.do(ctx, http.MethodGet, path, nil, token, &resp); err != nil {
		return Playlist{}, err
	}
	return resp.Playlist, nil
}

// AddToPlaylist appends a song.
func (c *Client) AddToPlaylist(ctx context.Context, token, playlistID, songID string) (Playlist, error) {
	path := fmt.Sprintf("/api/v1/playlist/add/%s", url.PathEscape(playlistID))
	var resp playlistResponse
	body := map[string]string{"songId": songID}
	if err := c.do(ctx, http.MethodPost, path, body, token, &resp); err != nil {
		return Playlist{}, err
	}
	return resp.Playlist, nil
}

// RemoveFromPlaylist drops every entry for songID.
func (c *Client) RemoveFromPlaylist(ctx context.Context, token, playlistID, songID string) (Playlist, error) {
	path := fmt.Sprintf("/api/v1/playlist/remove/%s?song=%s", url.PathEscape(playlistID), url.QueryEscape(songID))
	var resp playlistResponse
	if err := c.do(ctx, http.MethodDelete, path, nil, token, &resp); err != nil {
		return Playlist{}, err
	}
	return resp.Playlist, nil
}

// DeletePlaylist removes a playlist.
func (c *Client) DeletePlaylist(ctx context.Context, token, playlistID string) error {
	path := fmt.Sprintf("/api/v1/playlist/delete/%s", url.PathEscape(playlistID))
	return c.do(ctx, http.MethodDelete, path, nil, token, nil)
}
