package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/corebank/ledgersvc/internal/domain"
	"github.com/corebank/ledgersvc/internal/usecase"
)

// MockTx is an in-memory usecase.Transaction.
type MockTx struct {
	Committed  bool
	RolledBack bool
}

func (t *MockTx) Commit(ctx context.Context) error {
	t.Committed = true
	return nil
}

func (t *MockTx) Rollback(ctx context.Context) error {
	if !t.Committed {
		t.RolledBack = true
	}
	return nil
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	mu  sync.Mutex
	Txs []*MockTx

	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &MockTx{}
	m.Txs = append(m.Txs, tx)
	return tx, nil
}

// LastTx returns the most recently begun transaction.
func (m *MockTransactionManager) LastTx() *MockTx {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Txs) == 0 {
		return nil
	}
	return m.Txs[len(m.Txs)-1]
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	mu      sync.Mutex
	counter int

	GenerateFunc func() string
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("id-%06d", m.counter)
}

// MockTransactionRepository is a mock implementation of TransactionRepository.
type MockTransactionRepository struct {
	mu           sync.RWMutex
	transactions map[string]*domain.Transaction

	CreateFunc           func(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error
	GetByIDFunc          func(ctx context.Context, id string) (*domain.Transaction, error)
	GetByIDForUpdateFunc func(ctx context.Context, tx usecase.Transaction, id string) (*domain.Transaction, error)
	UpdateStatusFunc     func(ctx context.Context, tx usecase.Transaction, id string, from, to domain.TransactionStatus, updatedAt time.Time) (bool, error)
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{transactions: make(map[string]*domain.Transaction)}
}

// Seed stores a transaction directly, bypassing the Create hook.
func (m *MockTransactionRepository) Seed(txn *domain.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[txn.ID] = txn
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, txn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[txn.ID] = txn
	return nil
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if txn, ok := m.transactions[id]; ok {
		return txn, nil
	}
	return nil, domain.ErrTransactionNotFound
}

func (m *MockTransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Transaction, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, tx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *MockTransactionRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, from, to domain.TransactionStatus, updatedAt time.Time) (bool, error) {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, tx, id, from, to, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.transactions[id]
	if !ok || txn.Status != from {
		return false, nil
	}
	txn.Status = to
	txn.Version++
	txn.UpdatedAt = updatedAt
	return true, nil
}

func (m *MockTransactionRepository) List(ctx context.Context, limit, offset int) ([]*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]*domain.Transaction, 0, len(m.transactions))
	for _, txn := range m.transactions {
		all = append(all, txn)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// MockLegRepository is a mock implementation of LegRepository.
type MockLegRepository struct {
	mu   sync.RWMutex
	legs map[string][]*domain.TransactionLeg

	CreateFunc func(ctx context.Context, tx usecase.Transaction, leg *domain.TransactionLeg) error
}

func NewMockLegRepository() *MockLegRepository {
	return &MockLegRepository{legs: make(map[string][]*domain.TransactionLeg)}
}

func (m *MockLegRepository) Create(ctx context.Context, tx usecase.Transaction, leg *domain.TransactionLeg) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, leg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.legs[leg.TransactionID] = append(m.legs[leg.TransactionID], leg)
	return nil
}

func (m *MockLegRepository) GetByTransaction(ctx context.Context, transactionID string) ([]*domain.TransactionLeg, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.TransactionLeg(nil), m.legs[transactionID]...), nil
}

// Count returns the total number of stored legs.
func (m *MockLegRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, legs := range m.legs {
		n += len(legs)
	}
	return n
}

// MockEntryRepository is a mock implementation of EntryRepository.
type MockEntryRepository struct {
	mu      sync.RWMutex
	entries map[string][]*domain.LedgerEntry

	CreateFunc func(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error
}

func NewMockEntryRepository() *MockEntryRepository {
	return &MockEntryRepository{entries: make(map[string][]*domain.LedgerEntry)}
}

func (m *MockEntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.TransactionID] = append(m.entries[entry.TransactionID], entry)
	return nil
}

func (m *MockEntryRepository) GetByTransaction(ctx context.Context, transactionID string) ([]*domain.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.LedgerEntry(nil), m.entries[transactionID]...), nil
}

func (m *MockEntryRepository) GetByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.LedgerEntry
	for _, entries := range m.entries {
		for _, e := range entries {
			if e.AccountID == accountID {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

// MockStatusHistoryRepository is a mock implementation of StatusHistoryRepository.
type MockStatusHistoryRepository struct {
	mu   sync.RWMutex
	Rows []*domain.TransactionStatusHistory

	AppendFunc func(ctx context.Context, tx usecase.Transaction, row *domain.TransactionStatusHistory) error
}

func NewMockStatusHistoryRepository() *MockStatusHistoryRepository {
	return &MockStatusHistoryRepository{}
}

func (m *MockStatusHistoryRepository) Append(ctx context.Context, tx usecase.Transaction, row *domain.TransactionStatusHistory) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, tx, row)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rows = append(m.Rows, row)
	return nil
}

func (m *MockStatusHistoryRepository) CloseCurrent(ctx context.Context, tx usecase.Transaction, transactionID string, endedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.Rows {
		if row.TransactionID == transactionID && row.EndedAt == nil {
			t := endedAt
			row.EndedAt = &t
		}
	}
	return nil
}

func (m *MockStatusHistoryRepository) ListByTransaction(ctx context.Context, transactionID string) ([]*domain.TransactionStatusHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.TransactionStatusHistory
	for _, row := range m.Rows {
		if row.TransactionID == transactionID {
			out = append(out, row)
		}
	}
	return out, nil
}

// OpenRows returns the history rows for a transaction with a nil EndedAt.
func (m *MockStatusHistoryRepository) OpenRows(transactionID string) []*domain.TransactionStatusHistory {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.TransactionStatusHistory
	for _, row := range m.Rows {
		if row.TransactionID == transactionID && row.EndedAt == nil {
			out = append(out, row)
		}
	}
	return out
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
type MockOutboxRepository struct {
	mu     sync.RWMutex
	Events []*domain.OutboxEvent

	CreateFunc     func(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error
	ClaimBatchFunc func(ctx context.Context, batchSize int, claimTTL time.Duration, maxAttempts int) ([]*domain.OutboxEvent, error)
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockOutboxRepository) ClaimBatch(ctx context.Context, batchSize int, claimTTL time.Duration, maxAttempts int) ([]*domain.OutboxEvent, error) {
	if m.ClaimBatchFunc != nil {
		return m.ClaimBatchFunc(ctx, batchSize, claimTTL, maxAttempts)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	var out []*domain.OutboxEvent
	for _, e := range m.Events {
		if e.Processed {
			continue
		}
		if maxAttempts > 0 && e.RetryCount >= maxAttempts {
			continue
		}
		if e.ClaimedAt != nil && now.Sub(*e.ClaimedAt) < claimTTL {
			continue
		}
		out = append(out, e)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > batchSize {
		out = out[:batchSize]
	}
	for _, e := range out {
		t := now
		e.ClaimedAt = &t
	}
	return out, nil
}

func (m *MockOutboxRepository) MarkProcessed(ctx context.Context, id string, processedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Events {
		if e.ID == id && !e.Processed {
			e.Processed = true
			t := processedAt
			e.ProcessedAt = &t
		}
	}
	return nil
}

func (m *MockOutboxRepository) RecordError(ctx context.Context, id string, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Events {
		if e.ID == id {
			e.RetryCount++
			e.LastError = message
			e.ClaimedAt = nil
		}
	}
	return nil
}

func (m *MockOutboxRepository) ListPending(ctx context.Context, limit, offset int) ([]*domain.OutboxEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.OutboxEvent
	for _, e := range m.Events {
		if !e.Processed {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

func (m *MockOutboxRepository) GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.OutboxEvent
	for _, e := range m.Events {
		if e.AggregateType == aggregateType && e.AggregateID == aggregateID {
			out = append(out, e)
		}
	}
	return out, nil
}

// EventsOfType returns stored events matching the given type.
func (m *MockOutboxRepository) EventsOfType(eventType string) []*domain.OutboxEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.OutboxEvent
	for _, e := range m.Events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

// MockAccountRepository is a mock implementation of AccountRepository.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.LedgerAccount

	GetByIDFunc      func(ctx context.Context, id string) (*domain.LedgerAccount, error)
	ListChildrenFunc func(ctx context.Context, parentID string) ([]*domain.LedgerAccount, error)
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{accounts: make(map[string]*domain.LedgerAccount)}
}

// Seed stores an account directly.
func (m *MockAccountRepository) Seed(account *domain.LedgerAccount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
}

func (m *MockAccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.LedgerAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
	return nil
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*domain.LedgerAccount, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if a, ok := m.accounts[id]; ok {
		return a, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) GetByCode(ctx context.Context, code string) (*domain.LedgerAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.accounts {
		if a.Code == code {
			return a, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) UpdateParent(ctx context.Context, tx usecase.Transaction, id string, parentID *string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.ParentID = parentID
	a.UpdatedAt = updatedAt
	return nil
}

func (m *MockAccountRepository) ListChildren(ctx context.Context, parentID string) ([]*domain.LedgerAccount, error) {
	if m.ListChildrenFunc != nil {
		return m.ListChildrenFunc(ctx, parentID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.LedgerAccount
	for _, a := range m.accounts {
		if a.ParentID != nil && *a.ParentID == parentID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *MockAccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.LedgerAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]*domain.LedgerAccount, 0, len(m.accounts))
	for _, a := range m.accounts {
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// MockCache is an in-memory usecase.Cache. LastSetTTL records the TTL of
// the most recent Set call.
type MockCache struct {
	mu         sync.RWMutex
	items      map[string][]byte
	LastSetTTL time.Duration
}

func NewMockCache() *MockCache {
	return &MockCache{items: make(map[string][]byte)}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.items[key]; ok {
		return v, nil
	}
	return nil, nil
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	m.LastSetTTL = ttl
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}
