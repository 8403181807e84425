package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/beastsupply/storefront/internal/domain"
	"github.com/beastsupply/storefront/internal/order/repository"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mockOutbox struct {
	mu        sync.Mutex
	events    []*repository.OutboxEvent
	processed []int64
	fetchErr  error
	markErr   error
}

func (m *mockOutbox) GetUnprocessedEvents(_ context.Context, limit int) ([]*repository.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	var out []*repository.OutboxEvent
	for _, e := range m.events {
		if !m.isProcessed(e.ID) && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockOutbox) MarkEventAsProcessed(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	m.processed = append(m.processed, id)
	return nil
}

func (m *mockOutbox) isProcessed(id int64) bool {
	for _, p := range m.processed {
		if p == id {
			return true
		}
	}
	return false
}

func (m *mockOutbox) processedIDs() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.processed...)
}

type mockWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	failOn   string // aggregate key whose publish fails
	closed   bool
}

func (w *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, m := range msgs {
		if string(m.Key) == w.failOn {
			return errors.New("broker unavailable")
		}
		w.messages = append(w.messages, m)
	}
	return nil
}

func (w *mockWriter) Close() error {
	w.closed = true
	return nil
}

func (w *mockWriter) sent() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.messages...)
}

func outboxEvent(id int64, orderID string) *repository.OutboxEvent {
	return &repository.OutboxEvent{
		ID:          id,
		AggregateID: orderID,
		EventType:   domain.EventTypeOrderPlaced,
		Payload:     []byte(`{"order_id":"` + orderID + `"}`),
	}
}

func TestProcessUnpublishedEvents_PublishesAndMarks(t *testing.T) {
	repo := &mockOutbox{events: []*repository.OutboxEvent{outboxEvent(1, "a"), outboxEvent(2, "b")}}
	writer := &mockWriter{}
	p := NewOutboxPoller(repo, writer, time.Second, zap.NewNop())

	p.processUnpublishedEvents(context.Background())

	sent := writer.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "a", string(sent[0].Key))
	assert.Equal(t, `{"order_id":"a"}`, string(sent[0].Value))
	require.Len(t, sent[0].Headers, 1)
	assert.Equal(t, "event_type", sent[0].Headers[0].Key)
	assert.Equal(t, domain.EventTypeOrderPlaced, string(sent[0].Headers[0].Value))
	assert.Equal(t, []int64{1, 2}, repo.processedIDs())
}

func TestProcessUnpublishedEvents_StopsAtFirstFailure(t *testing.T) {
	repo := &mockOutbox{events: []*repository.OutboxEvent{outboxEvent(1, "a"), outboxEvent(2, "b"), outboxEvent(3, "c")}}
	writer := &mockWriter{failOn: "b"}
	p := NewOutboxPoller(repo, writer, time.Second, zap.NewNop())

	p.processUnpublishedEvents(context.Background())
	assert.Equal(t, []int64{1}, repo.processedIDs())

	writer.failOn = ""
	p.processUnpublishedEvents(context.Background())
	assert.Equal(t, []int64{1, 2, 3}, repo.processedIDs())
}

func TestProcessUnpublishedEvents_MarkFailureRepublishes(t *testing.T) {
	repo := &mockOutbox{events: []*repository.OutboxEvent{outboxEvent(1, "a")}, markErr: errors.New("db down")}
	writer := &mockWriter{}
	p := NewOutboxPoller(repo, writer, time.Second, zap.NewNop())

	p.processUnpublishedEvents(context.Background())
	repo.mu.Lock()
	repo.markErr = nil
	repo.mu.Unlock()
	p.processUnpublishedEvents(context.Background())

	// at-least-once: the event goes out again after a failed mark
	assert.Len(t, writer.sent(), 2)
	assert.Equal(t, []int64{1}, repo.processedIDs())
}

func TestProcessUnpublishedEvents_FetchError(t *testing.T) {
	repo := &mockOutbox{fetchErr: errors.New("db down")}
	writer := &mockWriter{}
	p := NewOutboxPoller(repo, writer, time.Second, zap.NewNop())

	p.processUnpublishedEvents(context.Background())
	assert.Empty(t, writer.sent())
}

func TestRun_PublishesUntilCancelled(t *testing.T) {
	repo := &mockOutbox{events: []*repository.OutboxEvent{outboxEvent(1, "a")}}
	writer := &mockWriter{}
	p := NewOutboxPoller(repo, writer, 5*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return len(repo.processedIDs()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-done
	p.Close()
	assert.True(t, writer.closed)
	assert.Len(t, writer.sent(), 1)
}
