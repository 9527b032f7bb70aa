package ws

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingSubscriber struct {
	mu       sync.Mutex
	payloads [][]byte
	closed   bool
	fail     bool
}

func (r *recordingSubscriber) Send(p []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("gone")
	}
	r.payloads = append(r.payloads, p)
	return nil
}

func (r *recordingSubscriber) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

func (r *recordingSubscriber) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestHubBroadcastsToTopicOnly(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	library := &recordingSubscriber{}
	other := &recordingSubscriber{}
	hub.Register("library", library)
	hub.Register("other", other)
	waitFor(t, func() bool { return hub.Subscribers("library") == 1 })

	if !hub.Broadcast("library", []byte(`{"type":"song.created"}`)) {
		t.Fatalf("expected broadcast to be queued")
	}
	waitFor(t, func() bool { return library.count() == 1 })
	if other.count() != 0 {
		t.Fatalf("unexpected delivery to other topic")
	}
}

func TestHubDropsFailingSubscriber(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	bad := &recordingSubscriber{fail: true}
	hub.Register("library", bad)
	waitFor(t, func() bool { return hub.Subscribers("library") == 1 })

	hub.Broadcast("library", []byte("x"))
	waitFor(t, func() bool { return hub.Subscribers("library") == 0 })
	bad.mu.Lock()
	defer bad.mu.Unlock()
	if !bad.closed {
		t.Fatalf("expected failing subscriber to be closed")
	}
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	hub := NewHub()
	sub := &recordingSubscriber{}
	hub.Register("library", sub)
	waitFor(t, func() bool { return hub.Subscribers("library") == 1 })

	hub.Close()
	waitFor(t, func() bool {
		sub.mu.Lock()
		defer sub.mu.Unlock()
		return sub.closed
	})
	if hub.Broadcast("library", []byte("late")) {
		t.Fatalf("expected broadcast after close to be dropped")
	}
}
