package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/corebank/ledgersvc/internal/domain"
)

// EnqueueEvent serializes payload and writes an outbox row inside the caller's
// already-open unit of work. The event ID is a UUID consumers use as the
// idempotency key. A payload that cannot be serialized aborts the whole unit
// of work via SerializationError; the event is never silently skipped.
func EnqueueEvent(ctx context.Context, tx Transaction, repo OutboxRepository, aggregateType, aggregateID, eventType string, payload any, now time.Time) (*domain.OutboxEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, &domain.SerializationError{EventType: eventType, Err: err}
	}

	event := &domain.OutboxEvent{
		ID:            uuid.NewString(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       data,
		CreatedAt:     now,
	}

	if err := repo.Create(ctx, tx, event); err != nil {
		return nil, err
	}

	return event, nil
}
