package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corebank/ledgersvc/internal/domain"
	"github.com/corebank/ledgersvc/internal/usecase"
)

// LegRepository implements usecase.LegRepository. Legs are append-only; there
// is deliberately no update or delete.
type LegRepository struct {
	pool *pgxpool.Pool
}

// NewLegRepository creates a new LegRepository.
func NewLegRepository(pool *pgxpool.Pool) *LegRepository {
	return &LegRepository{pool: pool}
}

const legColumns = `id, transaction_id, external_account_id, external_space, leg_type, amount,
	currency, description, value_date, booking_date, reversal_of_leg_id`

// Create inserts a leg within a transaction.
func (r *LegRepository) Create(ctx context.Context, tx usecase.Transaction, leg *domain.TransactionLeg) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx, `
		INSERT INTO transaction_legs (id, transaction_id, external_account_id, external_space, leg_type,
			amount, currency, description, value_date, booking_date, reversal_of_leg_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		leg.ID,
		leg.TransactionID,
		leg.ExternalAccountID,
		leg.ExternalSpace,
		string(leg.LegType),
		decimalToNumeric(leg.Amount),
		leg.Currency,
		leg.Description,
		timeToPgTimestamptz(leg.ValueDate),
		timeToPgTimestamptz(leg.BookingDate),
		stringPtrToText(leg.ReversalOfLegID),
	)

	return err
}

// GetByTransaction lists all legs of a transaction in insertion order.
func (r *LegRepository) GetByTransaction(ctx context.Context, transactionID string) ([]*domain.TransactionLeg, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+legColumns+`
		FROM transaction_legs
		WHERE transaction_id = $1
		ORDER BY id`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var legs []*domain.TransactionLeg
	for rows.Next() {
		leg, err := scanLeg(rows)
		if err != nil {
			return nil, err
		}
		legs = append(legs, leg)
	}

	return legs, rows.Err()
}

func scanLeg(row pgx.Row) (*domain.TransactionLeg, error) {
	var (
		leg         domain.TransactionLeg
		legType     string
		amount      pgtype.Numeric
		valueDate   pgtype.Timestamptz
		bookingDate pgtype.Timestamptz
		reversalOf  pgtype.Text
	)

	err := row.Scan(
		&leg.ID,
		&leg.TransactionID,
		&leg.ExternalAccountID,
		&leg.ExternalSpace,
		&legType,
		&amount,
		&leg.Currency,
		&leg.Description,
		&valueDate,
		&bookingDate,
		&reversalOf,
	)
	if err != nil {
		return nil, err
	}

	leg.LegType = domain.LegType(legType)
	leg.Amount = numericToDecimal(amount)
	leg.ValueDate = valueDate.Time
	leg.BookingDate = bookingDate.Time
	leg.ReversalOfLegID = textToStringPtr(reversalOf)

	return &leg, nil
}
