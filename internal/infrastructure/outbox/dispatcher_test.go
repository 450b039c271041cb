package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/corebank/ledgersvc/internal/domain"
	"github.com/corebank/ledgersvc/internal/usecase/mocks"
)

func newTestDispatcher(repo *mocks.MockOutboxRepository, pub *stubPublisher) *Dispatcher {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	return NewDispatcher(Config{
		OutboxRepo:  repo,
		Publisher:   pub,
		Logger:      logger,
		BatchSize:   10,
		Interval:    5 * time.Millisecond,
		ClaimTTL:    time.Minute,
		MaxAttempts: 3,
	})
}

func seedEvent(repo *mocks.MockOutboxRepository, id string, createdAt time.Time) *domain.OutboxEvent {
	event := &domain.OutboxEvent{
		ID:            id,
		AggregateType: domain.AggregateTypeTransaction,
		AggregateID:   "txn-1",
		EventType:     domain.EventTypeTransactionPosted,
		Payload:       []byte(`{}`),
		CreatedAt:     createdAt,
	}
	repo.Create(context.Background(), nil, event)
	return event
}

func TestProcessBatchPublishesAndMarks(t *testing.T) {
	repo := mocks.NewMockOutboxRepository()
	pub := &stubPublisher{}
	base := time.Now().UTC().Add(-time.Minute)

	seedEvent(repo, "evt-2", base.Add(time.Second))
	seedEvent(repo, "evt-1", base)

	d := newTestDispatcher(repo, pub)

	if err := d.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch failed: %v", err)
	}

	// Oldest first.
	if len(pub.published) != 2 || pub.published[0].ID != "evt-1" || pub.published[1].ID != "evt-2" {
		t.Fatalf("publish order = %#v, want evt-1 then evt-2", ids(pub.published))
	}

	for _, e := range repo.Events {
		if !e.Processed || e.ProcessedAt == nil {
			t.Errorf("event %s not marked processed", e.ID)
		}
	}

	// A second pass finds nothing to do.
	if err := d.processBatch(context.Background()); err != nil {
		t.Fatalf("second pass failed: %v", err)
	}
	if len(pub.published) != 2 {
		t.Fatalf("processed events were republished: %#v", ids(pub.published))
	}
}

func TestProcessBatchRecordsFailureAndRetries(t *testing.T) {
	repo := mocks.NewMockOutboxRepository()
	pub := &stubPublisher{
		errorsByID: map[string]error{"evt-1": errors.New("stream unavailable")},
	}
	base := time.Now().UTC().Add(-time.Minute)
	seedEvent(repo, "evt-1", base)
	seedEvent(repo, "evt-2", base.Add(time.Second))

	d := newTestDispatcher(repo, pub)

	if err := d.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch failed: %v", err)
	}

	// evt-2 goes through despite evt-1 failing.
	if len(pub.published) != 1 || pub.published[0].ID != "evt-2" {
		t.Fatalf("published = %#v, want only evt-2", ids(pub.published))
	}

	failed := repo.Events[0]
	if failed.ID != "evt-1" {
		failed = repo.Events[1]
	}
	if failed.Processed {
		t.Error("failed event must stay unprocessed")
	}
	if failed.RetryCount != 1 || failed.LastError != "stream unavailable" {
		t.Errorf("retry bookkeeping = %d/%q", failed.RetryCount, failed.LastError)
	}

	// The failure released the claim, so the next pass retries it.
	delete(pub.errorsByID, "evt-1")
	if err := d.processBatch(context.Background()); err != nil {
		t.Fatalf("retry pass failed: %v", err)
	}
	if !failed.Processed {
		t.Error("event must be processed after a successful retry")
	}
}

func TestMarkProcessedTwiceKeepsFirstTimestamp(t *testing.T) {
	repo := mocks.NewMockOutboxRepository()
	pub := &stubPublisher{}

	event := seedEvent(repo, "evt-1", time.Now().UTC().Add(-time.Minute))

	d := newTestDispatcher(repo, pub)
	if err := d.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch failed: %v", err)
	}
	if event.ProcessedAt == nil {
		t.Fatal("event must be marked processed")
	}
	first := *event.ProcessedAt

	// Marking again, as a redelivered ack would, is a silent no-op.
	if err := repo.MarkProcessed(context.Background(), "evt-1", first.Add(time.Hour)); err != nil {
		t.Fatalf("second mark failed: %v", err)
	}

	if !event.Processed {
		t.Error("event must stay processed")
	}
	if !event.ProcessedAt.Equal(first) {
		t.Errorf("processed_at = %s, want unchanged %s", event.ProcessedAt, first)
	}
}

func TestProcessBatchSkipsPoisonEvents(t *testing.T) {
	repo := mocks.NewMockOutboxRepository()
	pub := &stubPublisher{}

	poison := seedEvent(repo, "evt-1", time.Now().UTC().Add(-time.Minute))
	poison.RetryCount = 3
	poison.LastError = "bad payload"

	d := newTestDispatcher(repo, pub)

	if err := d.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch failed: %v", err)
	}

	if len(pub.published) != 0 {
		t.Fatalf("poison event must not be retried, published %#v", ids(pub.published))
	}
}

func TestProcessBatchSkipsHeldClaims(t *testing.T) {
	repo := mocks.NewMockOutboxRepository()
	pub := &stubPublisher{}

	claimed := time.Now().UTC().Add(-time.Second)
	event := seedEvent(repo, "evt-1", time.Now().UTC().Add(-time.Minute))
	event.ClaimedAt = &claimed

	d := newTestDispatcher(repo, pub)

	if err := d.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch failed: %v", err)
	}

	if len(pub.published) != 0 {
		t.Fatal("event claimed by another dispatcher must be skipped")
	}
}

func TestStartStopsOnContextCancellation(t *testing.T) {
	repo := mocks.NewMockOutboxRepository()
	pub := &stubPublisher{}
	d := newTestDispatcher(repo, pub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- d.Start(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop after cancel")
	}
}

func ids(events []*domain.OutboxEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

type stubPublisher struct {
	published  []*domain.OutboxEvent
	errorsByID map[string]error
}

func (s *stubPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	if err := s.errorsByID[event.ID]; err != nil {
		return err
	}
	s.published = append(s.published, event)
	return nil
}
