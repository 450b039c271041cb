package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corebank/ledgersvc/internal/domain"
	"github.com/corebank/ledgersvc/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

const transactionColumns = `id, external_ref, type, status, total_amount, currency, description,
	initiated_by, account_ref, category_ref, transaction_date, value_date, metadata, version,
	created_at, updated_at`

// Create inserts a new transaction header within a transaction.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error {
	pgxTx := tx.(*Tx).PgxTx()

	metadata, err := json.Marshal(txn.Metadata)
	if err != nil {
		return err
	}

	_, err = pgxTx.Exec(ctx, `
		INSERT INTO transactions (id, external_ref, type, status, total_amount, currency, description,
			initiated_by, account_ref, category_ref, transaction_date, value_date, metadata, version,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		txn.ID,
		txn.ExternalRef,
		string(txn.Type),
		string(txn.Status),
		decimalToNumeric(txn.TotalAmount),
		txn.Currency,
		txn.Description,
		txn.InitiatedBy,
		txn.AccountRef,
		txn.CategoryRef,
		timeToPgTimestamptz(txn.TransactionDate),
		timeToPgTimestamptz(txn.ValueDate),
		metadata,
		txn.Version,
		timeToPgTimestamptz(txn.CreatedAt),
		timeToPgTimestamptz(txn.UpdatedAt),
	)

	return err
}

// GetByID retrieves a transaction header by ID.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE id = $1`, id)

	return scanTransaction(row)
}

// GetByIDForUpdate retrieves a transaction header with a FOR UPDATE lock.
func (r *TransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Transaction, error) {
	pgxTx := tx.(*Tx).PgxTx()

	row := pgxTx.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE id = $1
		FOR UPDATE`, id)

	return scanTransaction(row)
}

// UpdateStatus performs the conditional status claim. The denormalized status
// column moves from -> to only if it still equals from; the losing writer of
// a race sees zero rows affected.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, from, to domain.TransactionStatus, updatedAt time.Time) (bool, error) {
	pgxTx := tx.(*Tx).PgxTx()

	tag, err := pgxTx.Exec(ctx, `
		UPDATE transactions
		SET status = $3, version = version + 1, updated_at = $4
		WHERE id = $1 AND status = $2`,
		id,
		string(from),
		string(to),
		timeToPgTimestamptz(updatedAt),
	)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}

// List lists transaction headers, newest first.
func (r *TransactionRepository) List(ctx context.Context, limit, offset int) ([]*domain.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, int32(limit), int32(offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []*domain.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}

	return txns, rows.Err()
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		txn             domain.Transaction
		txnType         string
		status          string
		totalAmount     pgtype.Numeric
		transactionDate pgtype.Timestamptz
		valueDate       pgtype.Timestamptz
		metadata        []byte
		createdAt       pgtype.Timestamptz
		updatedAt       pgtype.Timestamptz
	)

	err := row.Scan(
		&txn.ID,
		&txn.ExternalRef,
		&txnType,
		&status,
		&totalAmount,
		&txn.Currency,
		&txn.Description,
		&txn.InitiatedBy,
		&txn.AccountRef,
		&txn.CategoryRef,
		&transactionDate,
		&valueDate,
		&metadata,
		&txn.Version,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}

		return nil, err
	}

	txn.Type = domain.TransactionType(txnType)
	txn.Status = domain.TransactionStatus(status)
	txn.TotalAmount = numericToDecimal(totalAmount)
	txn.TransactionDate = transactionDate.Time
	txn.ValueDate = valueDate.Time
	txn.CreatedAt = createdAt.Time
	txn.UpdatedAt = updatedAt.Time

	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &txn.Metadata)
	}

	return &txn, nil
}
