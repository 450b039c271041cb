package postgres

import (
	"context"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corebank/ledgersvc/internal/domain"
	"github.com/corebank/ledgersvc/internal/usecase"
)

// OutboxRepository implements usecase.OutboxRepository.
type OutboxRepository struct {
	pool *pgxpool.Pool
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

const outboxColumns = `id, aggregate_type, aggregate_id, event_type, payload, created_at,
	processed, processed_at, retry_count, last_error, claimed_at`

// Create inserts an outbox event within the same transaction as the state
// change it describes. This is the whole point of the pattern.
func (r *OutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx, `
		INSERT INTO event_outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at, processed)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID,
		event.AggregateType,
		event.AggregateID,
		event.EventType,
		event.Payload,
		timeToPgTimestamptz(event.CreatedAt),
		event.Processed,
	)

	return err
}

// ClaimBatch stamps claimed_at on the oldest claimable rows and returns them
// oldest first. SKIP LOCKED keeps concurrent dispatchers from fighting over
// the same rows; the claim TTL re-exposes rows a crashed dispatcher took.
func (r *OutboxRepository) ClaimBatch(ctx context.Context, batchSize int, claimTTL time.Duration, maxAttempts int) ([]*domain.OutboxEvent, error) {
	now := time.Now().UTC()
	cutoff := now.Add(-claimTTL)

	rows, err := r.pool.Query(ctx, `
		WITH picked AS (
			SELECT id
			FROM event_outbox
			WHERE processed = FALSE
			  AND (claimed_at IS NULL OR claimed_at < $2)
			  AND ($3 = 0 OR retry_count < $3)
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE event_outbox e
		SET claimed_at = $4
		FROM picked
		WHERE e.id = picked.id
		RETURNING `+qualifyOutboxColumns("e"),
		int32(batchSize),
		timeToPgTimestamptz(cutoff),
		int32(maxAttempts),
		timeToPgTimestamptz(now),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events, err := scanOutboxEvents(rows)
	if err != nil {
		return nil, err
	}

	// UPDATE ... RETURNING does not preserve the CTE ordering.
	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})

	return events, nil
}

// MarkProcessed marks an event processed. Marking an already-processed event
// again is a no-op, not an error.
func (r *OutboxRepository) MarkProcessed(ctx context.Context, id string, processedAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE event_outbox
		SET processed = TRUE, processed_at = $2
		WHERE id = $1 AND processed = FALSE`,
		id,
		timeToPgTimestamptz(processedAt),
	)

	return err
}

// RecordError bumps the retry counter, stores the failure message and
// releases the claim so a later pass can retry the event.
func (r *OutboxRepository) RecordError(ctx context.Context, id string, message string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE event_outbox
		SET retry_count = retry_count + 1, last_error = $2, claimed_at = NULL
		WHERE id = $1`,
		id,
		message,
	)

	return err
}

// ListPending lists unprocessed events oldest first.
func (r *OutboxRepository) ListPending(ctx context.Context, limit, offset int) ([]*domain.OutboxEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+outboxColumns+`
		FROM event_outbox
		WHERE processed = FALSE
		ORDER BY created_at
		LIMIT $1 OFFSET $2`, int32(limit), int32(offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOutboxEvents(rows)
}

// GetByAggregate lists events for a specific aggregate oldest first.
func (r *OutboxRepository) GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+outboxColumns+`
		FROM event_outbox
		WHERE aggregate_type = $1 AND aggregate_id = $2
		ORDER BY created_at
		LIMIT $3 OFFSET $4`, aggregateType, aggregateID, int32(limit), int32(offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOutboxEvents(rows)
}

func qualifyOutboxColumns(alias string) string {
	return alias + `.id, ` + alias + `.aggregate_type, ` + alias + `.aggregate_id, ` +
		alias + `.event_type, ` + alias + `.payload, ` + alias + `.created_at, ` +
		alias + `.processed, ` + alias + `.processed_at, ` + alias + `.retry_count, ` +
		alias + `.last_error, ` + alias + `.claimed_at`
}

func scanOutboxEvents(rows pgx.Rows) ([]*domain.OutboxEvent, error) {
	var events []*domain.OutboxEvent
	for rows.Next() {
		var (
			event       domain.OutboxEvent
			createdAt   pgtype.Timestamptz
			processedAt pgtype.Timestamptz
			claimedAt   pgtype.Timestamptz
		)

		err := rows.Scan(
			&event.ID,
			&event.AggregateType,
			&event.AggregateID,
			&event.EventType,
			&event.Payload,
			&createdAt,
			&event.Processed,
			&processedAt,
			&event.RetryCount,
			&event.LastError,
			&claimedAt,
		)
		if err != nil {
			return nil, err
		}

		event.CreatedAt = createdAt.Time
		event.ProcessedAt = pgTimestamptzToTimePtr(processedAt)
		event.ClaimedAt = pgTimestamptzToTimePtr(claimedAt)

		events = append(events, &event)
	}

	return events, rows.Err()
}
