package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/autonova/project-service/internal/model"
	"github.com/autonova/project-service/internal/outbox"
	"github.com/autonova/project-service/internal/store"
)

// recordPublisher captures published messages and fails on demand.
type recordPublisher struct {
	topics  []string
	failOn  string
	failErr error
}

func (p *recordPublisher) Publish(_ context.Context, topic string, _ []byte) error {
	if p.failOn != "" && topic == p.failOn {
		return p.failErr
	}
	p.topics = append(p.topics, topic)
	return nil
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func enqueue(t *testing.T, s store.Store, topic string, at time.Time) string {
	t.Helper()
	m, err := outbox.NewMessage(topic, outbox.Envelope{
		ProjectID:  "p1",
		OccurredAt: at,
	})
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	err = s.InTx(context.Background(), func(tx store.Tx) error {
		return tx.InsertOutbox(context.Background(), m)
	})
	if err != nil {
		t.Fatalf("InsertOutbox: %v", err)
	}
	return m.ID
}

func newDispatcher(s store.Store, p outbox.Publisher) *outbox.Dispatcher {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return outbox.NewDispatcher(s, p, logger, time.Hour, 10)
}

func TestDrainOncePublishesInOrder(t *testing.T) {
	s := newTestStore(t)
	pub := &recordPublisher{}
	d := newDispatcher(s, pub)

	base := time.Now().UTC().Truncate(time.Second)
	enqueue(t, s, "a", base)
	enqueue(t, s, "b", base.Add(time.Second))
	enqueue(t, s, "c", base.Add(2*time.Second))

	if err := d.DrainOnce(context.Background()); err != nil {
		t.Fatalf("DrainOnce: %v", err)
	}

	want := []string{"a", "b", "c"}
	if len(pub.topics) != len(want) {
		t.Fatalf("published = %v, want %v", pub.topics, want)
	}
	for i := range want {
		if pub.topics[i] != want[i] {
			t.Errorf("published[%d] = %q, want %q", i, pub.topics[i], want[i])
		}
	}

	pending, err := s.PendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("PendingOutbox: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after drain = %d, want 0", len(pending))
	}
}

func TestDrainOnceEmptyOutbox(t *testing.T) {
	s := newTestStore(t)
	pub := &recordPublisher{}
	d := newDispatcher(s, pub)

	if err := d.DrainOnce(context.Background()); err != nil {
		t.Fatalf("DrainOnce: %v", err)
	}
	if len(pub.topics) != 0 {
		t.Errorf("published = %v, want nothing", pub.topics)
	}
}

func TestDrainOnceFailureStopsBatch(t *testing.T) {
	s := newTestStore(t)
	pub := &recordPublisher{failOn: "b", failErr: errors.New("broker down")}
	d := newDispatcher(s, pub)

	base := time.Now().UTC().Truncate(time.Second)
	enqueue(t, s, "a", base)
	idB := enqueue(t, s, "b", base.Add(time.Second))
	idC := enqueue(t, s, "c", base.Add(2*time.Second))

	if err := d.DrainOnce(context.Background()); err != nil {
		t.Fatalf("DrainOnce: %v", err)
	}
	if len(pub.topics) != 1 || pub.topics[0] != "a" {
		t.Fatalf("published = %v, want just [a]", pub.topics)
	}

	// The failed message and everything after it stay pending.
	pending, err := s.PendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("PendingOutbox: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != idB || pending[1].ID != idC {
		t.Fatalf("pending = %d messages, want [b c]", len(pending))
	}

	// Once the broker recovers, the next drain picks up where it stopped.
	pub.failOn = ""
	if err := d.DrainOnce(context.Background()); err != nil {
		t.Fatalf("second DrainOnce: %v", err)
	}
	want := []string{"a", "b", "c"}
	if len(pub.topics) != len(want) {
		t.Fatalf("published = %v, want %v", pub.topics, want)
	}
	for i := range want {
		if pub.topics[i] != want[i] {
			t.Errorf("published[%d] = %q, want %q", i, pub.topics[i], want[i])
		}
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s := newTestStore(t)
	pub := &recordPublisher{}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	d := outbox.NewDispatcher(s, pub, logger, 5*time.Millisecond, 10)

	enqueue(t, s, "a", time.Now().UTC())

	ctx, cancel := context.WithCancel(context.Background())
	d.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		pending, err := s.PendingOutbox(context.Background(), 10)
		if err != nil {
			t.Fatalf("PendingOutbox: %v", err)
		}
		if len(pending) == 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	d.Wait()

	if len(pub.topics) == 0 {
		t.Fatal("dispatcher never drained the outbox")
	}
}

func TestNewMessagePayload(t *testing.T) {
	delta := int64(1000)
	occurred := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env := outbox.Envelope{
		ProjectID:       "p1",
		ChangeRequestID: "cr1",
		FromStatus:      "submitted",
		ToStatus:        "approved",
		ChangedBy:       model.Actor{UserID: "u1", Role: "manager"},
		OccurredAt:      occurred,
		Deltas:          &outbox.Deltas{PriceDeltaCents: &delta},
	}

	m, err := outbox.NewMessage(outbox.TopicChangeRequestApproved, env)
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	if m.Topic != outbox.TopicChangeRequestApproved {
		t.Errorf("Topic = %q, want %q", m.Topic, outbox.TopicChangeRequestApproved)
	}
	if !m.CreatedAt.Equal(occurred) {
		t.Errorf("CreatedAt = %v, want %v", m.CreatedAt, occurred)
	}

	var decoded map[string]any
	if err := json.Unmarshal(m.Payload, &decoded); err != nil {
		t.Fatalf("Unmarshal payload: %v", err)
	}
	if decoded["projectId"] != "p1" {
		t.Errorf("projectId = %v, want p1", decoded["projectId"])
	}
	if decoded["changeRequestId"] != "cr1" {
		t.Errorf("changeRequestId = %v, want cr1", decoded["changeRequestId"])
	}
	changedBy, ok := decoded["changedBy"].(map[string]any)
	if !ok || changedBy["userId"] != "u1" || changedBy["role"] != "manager" {
		t.Errorf("changedBy = %v, want u1/manager", decoded["changedBy"])
	}
	deltas, ok := decoded["deltas"].(map[string]any)
	if !ok || deltas["priceDeltaCents"] != float64(1000) {
		t.Errorf("deltas = %v, want priceDeltaCents 1000", decoded["deltas"])
	}
	if _, present := decoded["quoteId"]; present {
		t.Error("empty quoteId should be omitted")
	}
}
