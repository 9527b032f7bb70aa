package ws

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// SSEClient delivers library change events as a text/event-stream. Each
// event carries an increasing id so a browser EventSource can report the
// last one it saw after reconnecting.
type SSEClient struct {
	mu      sync.Mutex
	writer  io.Writer
	flusher http.Flusher
	log     *slog.Logger
	closed  bool
	seq     uint64
	done    chan struct{}
}

// NewSSEClient wraps an open event-stream response.
func NewSSEClient(writer io.Writer, flusher http.Flusher, logger *slog.Logger) *SSEClient {
	return &SSEClient{writer: writer, flusher: flusher, log: logger, done: make(chan struct{})}
}

// Open writes the reconnect delay the browser should use.
func (c *SSEClient) Open(retry time.Duration) error {
	return c.write(fmt.Sprintf("retry: %d\n\n", retry.Milliseconds()), "sse open failed")
}

// Send writes one library event. Payload lines become separate data fields.
func (c *SSEClient) Send(payload []byte) error {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	var frame bytes.Buffer
	fmt.Fprintf(&frame, "id: %d\n", seq)
	for _, line := range bytes.Split(bytes.TrimRight(payload, "\n"), []byte("\n")) {
		frame.WriteString("data: ")
		frame.Write(line)
		frame.WriteByte('\n')
	}
	frame.WriteByte('\n')
	return c.write(frame.String(), "sse send failed")
}

// Heartbeat writes a comment frame so idle proxies keep the stream open.
func (c *SSEClient) Heartbeat() error {
	return c.write(": ping\n\n", "sse heartbeat failed")
}

func (c *SSEClient) write(frame, failure string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return io.EOF
	}
	if _, err := io.WriteString(c.writer, frame); err != nil {
		c.closeLocked()
		c.log.Warn(failure, "error", err)
		return err
	}
	c.flusher.Flush()
	return nil
}

// Close stops delivery. The handler watching Done returns afterwards.
func (c *SSEClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *SSEClient) closeLocked() {
	if !c.closed {
		c.closed = true
		close(c.done)
	}
}

// Done is closed once the client stops accepting events.
func (c *SSEClient) Done() <-chan struct{} {
	return c.done
}
