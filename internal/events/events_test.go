package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkaGo "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafkaGo.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkaGo.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type recordingPublisher struct {
	events []Event
	err    error
	closed int
}

func (p *recordingPublisher) Publish(_ context.Context, e Event) error {
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error {
	p.closed++
	return p.err
}

func sampleEvent() Event {
	e := New(TypeEvaluation, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	e.Identifier = "quote:10.0.0.1"
	e.Route = "quote"
	e.Status = "ok"
	e.Allowed = true
	e.Discount = 1250
	return e
}

func TestNew_AssignsUniqueIDs(t *testing.T) {
	a := New(TypeEvaluation, time.Now())
	b := New(TypeEvaluation, time.Now())
	if a.ID == b.ID {
		t.Fatal("expected distinct event ids")
	}
	if _, err := uuid.Parse(a.ID); err != nil {
		t.Errorf("event id %q is not a uuid: %v", a.ID, err)
	}
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, "policy-events")
	e := sampleEvent()

	if err := p.Publish(context.Background(), e); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("wrote %d messages, want 1", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != e.Identifier {
		t.Errorf("message key = %q, want %q", msg.Key, e.Identifier)
	}

	var got Event
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got.ID != e.ID || got.Discount != 1250 || got.Status != "ok" {
		t.Errorf("payload = %+v, want %+v", got, e)
	}

	if err := p.Close(); err != nil || !w.closed {
		t.Errorf("Close() error = %v, closed = %v", err, w.closed)
	}
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	boom := errors.New("broker unavailable")
	p := newKafkaPublisher(&fakeWriter{err: boom}, "policy-events")
	if err := p.Publish(context.Background(), sampleEvent()); !errors.Is(err, boom) {
		t.Errorf("Publish() error = %v, want wrapped %v", err, boom)
	}
}

func TestNewKafkaPublisher_Validation(t *testing.T) {
	if _, err := NewKafkaPublisher(KafkaConfig{Topic: "t"}); err == nil {
		t.Error("expected error without brokers")
	}
	if _, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}}); err == nil {
		t.Error("expected error without topic")
	}
	p, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t"})
	if err != nil {
		t.Fatalf("NewKafkaPublisher() error = %v", err)
	}
	// Closing a writer that never connected does not touch the network.
	if err := p.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestMulti_FansOutAndJoinsErrors(t *testing.T) {
	boom := errors.New("down")
	ok := &recordingPublisher{}
	bad := &recordingPublisher{err: boom}
	m := Multi{bad, ok}

	err := m.Publish(context.Background(), sampleEvent())
	if !errors.Is(err, boom) {
		t.Errorf("Publish() error = %v, want %v", err, boom)
	}
	if len(ok.events) != 1 || len(bad.events) != 1 {
		t.Errorf("each publisher should see the event: ok=%d bad=%d", len(ok.events), len(bad.events))
	}

	_ = m.Close()
	if ok.closed != 1 || bad.closed != 1 {
		t.Errorf("Close() should reach every publisher")
	}
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	p := NewLogPublisher(zap.New(core))

	if err := p.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	entries := logs.FilterMessage("policy evaluated").All()
	if len(entries) != 1 {
		t.Fatalf("logged %d entries, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["identifier"]; got != "quote:10.0.0.1" {
		t.Errorf("identifier field = %v", got)
	}
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	if err := p.Publish(context.Background(), sampleEvent()); err != nil {
		t.Error(err)
	}
	if err := p.Close(); err != nil {
		t.Error(err)
	}
}
