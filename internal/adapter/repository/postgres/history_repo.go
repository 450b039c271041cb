package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corebank/ledgersvc/internal/domain"
	"github.com/corebank/ledgersvc/internal/usecase"
)

// StatusHistoryRepository implements usecase.StatusHistoryRepository. The
// table is append-only: rows are only ever inserted or closed, never updated
// in place or deleted.
type StatusHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewStatusHistoryRepository creates a new StatusHistoryRepository.
func NewStatusHistoryRepository(pool *pgxpool.Pool) *StatusHistoryRepository {
	return &StatusHistoryRepository{pool: pool}
}

// Append inserts a new open history row within a transaction.
func (r *StatusHistoryRepository) Append(ctx context.Context, tx usecase.Transaction, row *domain.TransactionStatusHistory) error {
	pgxTx := tx.(*Tx).PgxTx()

	var endedAt pgtype.Timestamptz
	if row.EndedAt != nil {
		endedAt = timeToPgTimestamptz(*row.EndedAt)
	}

	_, err := pgxTx.Exec(ctx, `
		INSERT INTO transaction_status_history (id, transaction_id, status, started_at, ended_at, reason, regulatory)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		row.ID,
		row.TransactionID,
		string(row.Status),
		timeToPgTimestamptz(row.StartedAt),
		endedAt,
		row.Reason,
		row.Regulatory,
	)

	return err
}

// CloseCurrent stamps EndedAt on the single open row for the transaction.
func (r *StatusHistoryRepository) CloseCurrent(ctx context.Context, tx usecase.Transaction, transactionID string, endedAt time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx, `
		UPDATE transaction_status_history
		SET ended_at = $2
		WHERE transaction_id = $1 AND ended_at IS NULL`,
		transactionID,
		timeToPgTimestamptz(endedAt),
	)

	return err
}

// ListByTransaction lists history rows oldest first.
func (r *StatusHistoryRepository) ListByTransaction(ctx context.Context, transactionID string) ([]*domain.TransactionStatusHistory, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, transaction_id, status, started_at, ended_at, reason, regulatory
		FROM transaction_status_history
		WHERE transaction_id = $1
		ORDER BY started_at, id`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []*domain.TransactionStatusHistory
	for rows.Next() {
		var (
			row       domain.TransactionStatusHistory
			status    string
			startedAt pgtype.Timestamptz
			endedAt   pgtype.Timestamptz
		)

		err := rows.Scan(
			&row.ID,
			&row.TransactionID,
			&status,
			&startedAt,
			&endedAt,
			&row.Reason,
			&row.Regulatory,
		)
		if err != nil {
			return nil, err
		}

		row.Status = domain.TransactionStatus(status)
		row.StartedAt = startedAt.Time
		row.EndedAt = pgTimestamptzToTimePtr(endedAt)

		history = append(history, &row)
	}

	return history, rows.Err()
}
