package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corebank/ledgersvc/internal/domain"
	"github.com/corebank/ledgersvc/internal/usecase"
)

// EntryRepository implements usecase.EntryRepository. Entries are immutable;
// corrections arrive as new offsetting rows.
type EntryRepository struct {
	pool *pgxpool.Pool
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{pool: pool}
}

const entryColumns = `id, transaction_id, account_id, direction, amount, currency, posted_at,
	exchange_rate, cost_center, note, reversal_of_entry_id`

// Create inserts an entry within a transaction.
func (r *EntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx, `
		INSERT INTO ledger_entries (id, transaction_id, account_id, direction, amount, currency,
			posted_at, exchange_rate, cost_center, note, reversal_of_entry_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.ID,
		entry.TransactionID,
		entry.AccountID,
		string(entry.Direction),
		decimalToNumeric(entry.Amount),
		entry.Currency,
		timeToPgTimestamptz(entry.PostedAt),
		decimalPtrToNumeric(entry.ExchangeRate),
		entry.CostCenter,
		entry.Note,
		stringPtrToText(entry.ReversalOfEntryID),
	)

	return err
}

// GetByTransaction lists all entries of a transaction in insertion order.
func (r *EntryRepository) GetByTransaction(ctx context.Context, transactionID string) ([]*domain.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE transaction_id = $1
		ORDER BY id`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// GetByAccount lists entries booked against a chart-of-accounts node, newest
// first.
func (r *EntryRepository) GetByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY posted_at DESC, id DESC
		LIMIT $2 OFFSET $3`, accountID, int32(limit), int32(offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func scanEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var (
		entry        domain.LedgerEntry
		direction    string
		amount       pgtype.Numeric
		postedAt     pgtype.Timestamptz
		exchangeRate pgtype.Numeric
		reversalOf   pgtype.Text
	)

	err := row.Scan(
		&entry.ID,
		&entry.TransactionID,
		&entry.AccountID,
		&direction,
		&amount,
		&entry.Currency,
		&postedAt,
		&exchangeRate,
		&entry.CostCenter,
		&entry.Note,
		&reversalOf,
	)
	if err != nil {
		return nil, err
	}

	entry.Direction = domain.LegType(direction)
	entry.Amount = numericToDecimal(amount)
	entry.PostedAt = postedAt.Time
	entry.ExchangeRate = numericToDecimalPtr(exchangeRate)
	entry.ReversalOfEntryID = textToStringPtr(reversalOf)

	return &entry, nil
}
