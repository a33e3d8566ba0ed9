package server

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/SmitUplenchwar2687/Tollgate/internal/events"
)

func TestHub_SlowClientDoesNotBlockPublish(t *testing.T) {
	h := NewHub(zaptest.NewLogger(t))
	// No writer drains this queue, so it fills after one event.
	stuck := &client{send: make(chan []byte, 1)}
	if !h.register(stuck) {
		t.Fatal("register refused on an open hub")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 3; i++ {
			_ = h.Publish(context.Background(), events.Event{ID: "e", Type: events.TypeEvaluation})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a client that is not reading")
	}
	if h.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want the slow client dropped", h.ClientCount())
	}
	if _, ok := <-stuck.send; !ok {
		t.Error("queued event lost before the queue was closed")
	}
	if _, ok := <-stuck.send; ok {
		t.Error("send queue still open after drop")
	}
}

func TestHub_RefusesClientsAfterClose(t *testing.T) {
	h := NewHub(nil)
	if err := h.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if h.register(&client{send: make(chan []byte, 1)}) {
		t.Error("register accepted a client on a closed hub")
	}
	if err := h.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
