package ws

import (
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSSEClientFramesEvents(t *testing.T) {
	rec := httptest.NewRecorder()
	c := NewSSEClient(rec, rec, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := c.Open(3 * time.Second); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := c.Send([]byte(`{"type":"song.created"}`)); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := c.Send([]byte("a\nb\n")); err != nil {
		t.Fatalf("send multiline: %v", err)
	}
	if err := c.Heartbeat(); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	want := "retry: 3000\n\n" +
		"id: 1\ndata: {\"type\":\"song.created\"}\n\n" +
		"id: 2\ndata: a\ndata: b\n\n" +
		": ping\n\n"
	if got := rec.Body.String(); got != want {
		t.Fatalf("unexpected stream:\n%q\nwant\n%q", got, want)
	}
	if !rec.Flushed {
		t.Fatal("expected frames to be flushed")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestSSEClientClosesOnWriteFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	c := NewSSEClient(failingWriter{}, rec, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := c.Send([]byte("x")); err == nil {
		t.Fatal("expected write error")
	}
	select {
	case <-c.Done():
	default:
		t.Fatal("client should be done after a failed write")
	}
	if err := c.Heartbeat(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after close, got %v", err)
	}
	c.Close()
}
