package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corebank/ledgersvc/internal/domain"
	"github.com/corebank/ledgersvc/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

const accountColumns = `id, code, name, type, parent_id, active, created_at, updated_at`

// Create inserts a new chart-of-accounts node within a transaction.
func (r *AccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.LedgerAccount) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx, `
		INSERT INTO ledger_accounts (id, code, name, type, parent_id, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		account.ID,
		account.Code,
		account.Name,
		string(account.Type),
		stringPtrToText(account.ParentID),
		account.Active,
		timeToPgTimestamptz(account.CreatedAt),
		timeToPgTimestamptz(account.UpdatedAt),
	)

	return err
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.LedgerAccount, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM ledger_accounts
		WHERE id = $1`, id)

	return scanAccount(row)
}

// GetByCode retrieves an account by its unique code.
func (r *AccountRepository) GetByCode(ctx context.Context, code string) (*domain.LedgerAccount, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM ledger_accounts
		WHERE code = $1`, code)

	return scanAccount(row)
}

// UpdateParent moves an account under a new parent within a transaction.
func (r *AccountRepository) UpdateParent(ctx context.Context, tx usecase.Transaction, id string, parentID *string, updatedAt time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	tag, err := pgxTx.Exec(ctx, `
		UPDATE ledger_accounts
		SET parent_id = $2, updated_at = $3
		WHERE id = $1`,
		id,
		stringPtrToText(parentID),
		timeToPgTimestamptz(updatedAt),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

// ListChildren lists the direct children of an account in code order.
func (r *AccountRepository) ListChildren(ctx context.Context, parentID string) ([]*domain.LedgerAccount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+accountColumns+`
		FROM ledger_accounts
		WHERE parent_id = $1
		ORDER BY code`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAccounts(rows)
}

// List lists accounts with pagination.
func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.LedgerAccount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+accountColumns+`
		FROM ledger_accounts
		ORDER BY code
		LIMIT $1 OFFSET $2`, int32(limit), int32(offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAccounts(rows)
}

func scanAccount(row pgx.Row) (*domain.LedgerAccount, error) {
	var (
		account   domain.LedgerAccount
		accType   string
		parentID  pgtype.Text
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)

	err := row.Scan(
		&account.ID,
		&account.Code,
		&account.Name,
		&accType,
		&parentID,
		&account.Active,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	account.Type = domain.AccountType(accType)
	account.ParentID = textToStringPtr(parentID)
	account.CreatedAt = createdAt.Time
	account.UpdatedAt = updatedAt.Time

	return &account, nil
}

func scanAccounts(rows pgx.Rows) ([]*domain.LedgerAccount, error) {
	var accounts []*domain.LedgerAccount
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}
