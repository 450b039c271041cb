package usecase

import (
	"context"
	"time"

	"github.com/corebank/ledgersvc/internal/domain"
)

// AccountRepository defines data access for the chart of accounts.
type AccountRepository interface {
	Create(ctx context.Context, tx Transaction, account *domain.LedgerAccount) error
	GetByID(ctx context.Context, id string) (*domain.LedgerAccount, error)
	GetByCode(ctx context.Context, code string) (*domain.LedgerAccount, error)
	UpdateParent(ctx context.Context, tx Transaction, id string, parentID *string, updatedAt time.Time) error
	ListChildren(ctx context.Context, parentID string) ([]*domain.LedgerAccount, error)
	List(ctx context.Context, limit, offset int) ([]*domain.LedgerAccount, error)
}

// TransactionRepository defines data access for transaction headers.
type TransactionRepository interface {
	Create(ctx context.Context, tx Transaction, txn *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Transaction, error)
	// UpdateStatus performs the conditional status claim: the denormalized
	// status column moves from -> to only if it still equals from. Returns
	// false when another writer got there first.
	UpdateStatus(ctx context.Context, tx Transaction, id string, from, to domain.TransactionStatus, updatedAt time.Time) (bool, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Transaction, error)
}

// LegRepository defines data access for transaction legs.
type LegRepository interface {
	Create(ctx context.Context, tx Transaction, leg *domain.TransactionLeg) error
	GetByTransaction(ctx context.Context, transactionID string) ([]*domain.TransactionLeg, error)
}

// EntryRepository defines data access for internal ledger entries.
type EntryRepository interface {
	Create(ctx context.Context, tx Transaction, entry *domain.LedgerEntry) error
	GetByTransaction(ctx context.Context, transactionID string) ([]*domain.LedgerEntry, error)
	GetByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.LedgerEntry, error)
}

// StatusHistoryRepository defines data access for the status-history log.
type StatusHistoryRepository interface {
	Append(ctx context.Context, tx Transaction, row *domain.TransactionStatusHistory) error
	// CloseCurrent stamps EndedAt on the single open row for the transaction.
	CloseCurrent(ctx context.Context, tx Transaction, transactionID string, endedAt time.Time) error
	ListByTransaction(ctx context.Context, transactionID string) ([]*domain.TransactionStatusHistory, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	// ClaimBatch stamps claimed_at on the oldest unprocessed rows and returns
	// them in created_at ascending order. Rows whose claim is older than
	// claimTTL are re-claimable. When maxAttempts > 0, rows at or past that
	// retry count are excluded.
	ClaimBatch(ctx context.Context, batchSize int, claimTTL time.Duration, maxAttempts int) ([]*domain.OutboxEvent, error)
	// MarkProcessed is idempotent: marking an already-processed event again
	// is a no-op, not an error.
	MarkProcessed(ctx context.Context, id string, processedAt time.Time) error
	RecordError(ctx context.Context, id string, message string) error
	ListPending(ctx context.Context, limit, offset int) ([]*domain.OutboxEvent, error)
	GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique entity IDs.
type IDGenerator interface {
	Generate() string
}

// Retrier re-runs an operation on transient database errors.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// Cache defines caching operations for read aggregates.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage for the HTTP adapter.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}
