package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/corebank/ledgersvc/internal/domain"
)

const defaultCacheTTL = 30 * time.Second

// PostingUseCase is the core posting service: it validates and commits a
// balanced set of legs and ledger entries under one transaction header, with
// the status-history row and outbox event in the same unit of work.
type PostingUseCase struct {
	txManager   TransactionManager
	txnRepo     TransactionRepository
	legRepo     LegRepository
	entryRepo   EntryRepository
	historyRepo StatusHistoryRepository
	outboxRepo  OutboxRepository
	idGen       IDGenerator
	retrier     Retrier
	cache       Cache
	cacheTTL    time.Duration
}

// NewPostingUseCase creates a new PostingUseCase. retrier and cache may be
// nil; a non-positive cacheTTL falls back to the default.
func NewPostingUseCase(
	txManager TransactionManager,
	txnRepo TransactionRepository,
	legRepo LegRepository,
	entryRepo EntryRepository,
	historyRepo StatusHistoryRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	retrier Retrier,
	cache Cache,
	cacheTTL time.Duration,
) *PostingUseCase {
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}

	return &PostingUseCase{
		txManager:   txManager,
		txnRepo:     txnRepo,
		legRepo:     legRepo,
		entryRepo:   entryRepo,
		historyRepo: historyRepo,
		outboxRepo:  outboxRepo,
		idGen:       idGen,
		retrier:     retrier,
		cache:       cache,
		cacheTTL:    cacheTTL,
	}
}

// PostLegInput is one leg of a posting request. LedgerAccountID names the
// internal chart-of-accounts account the mirrored ledger entry is booked to.
// ExchangeRate, when set, records the rate against the booking currency on
// the mirrored entry.
type PostLegInput struct {
	ExternalAccountID string
	ExternalSpace     string
	LedgerAccountID   string
	LegType           domain.LegType
	Amount            decimal.Decimal
	Currency          string
	Description       string
	ValueDate         *time.Time
	ExchangeRate      *decimal.Decimal
	CostCenter        string
}

// PostInput is the header plus legs for a posting request. TransactionID may
// reference an existing INITIATED header; when empty a new one is created.
type PostInput struct {
	TransactionID   string
	ExternalRef     string
	Type            domain.TransactionType
	Currency        string
	Description     string
	InitiatedBy     string
	AccountRef      string
	CategoryRef     string
	Metadata        map[string]any
	TransactionDate *time.Time
	ValueDate       *time.Time
	Legs            []PostLegInput
}

// Post validates the balance invariant and commits header, legs, entries,
// status history and the TRANSACTION_POSTED outbox event atomically. On any
// error nothing is written.
func (uc *PostingUseCase) Post(ctx context.Context, input PostInput) (*domain.Transaction, error) {
	if len(input.Legs) < 2 {
		return nil, domain.ErrNoLegs
	}

	legs := make([]*domain.TransactionLeg, len(input.Legs))
	for i, li := range input.Legs {
		leg := &domain.TransactionLeg{
			ExternalAccountID: li.ExternalAccountID,
			ExternalSpace:     li.ExternalSpace,
			LegType:           li.LegType,
			Amount:            li.Amount,
			Currency:          li.Currency,
			Description:       li.Description,
		}

		if err := leg.Validate(); err != nil {
			return nil, err
		}

		if li.LedgerAccountID == "" {
			return nil, domain.ErrAccountNotFound
		}

		legs[i] = leg
	}

	if err := domain.CheckBalanced(legs); err != nil {
		return nil, err
	}

	var posted *domain.Transaction

	op := func() error {
		var err error
		posted, err = uc.postOnce(ctx, input)
		return err
	}

	if err := uc.run(ctx, op); err != nil {
		return nil, err
	}

	uc.invalidate(ctx, posted.ID)

	return posted, nil
}

func (uc *PostingUseCase) postOnce(ctx context.Context, input PostInput) (*domain.Transaction, error) {
	now := time.Now().UTC()

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	txn, err := uc.claimHeader(ctx, tx, input, now)
	if err != nil {
		return nil, err
	}

	valueDate := now
	if input.ValueDate != nil {
		valueDate = *input.ValueDate
	}

	postedLegs := make([]domain.PostedLeg, 0, len(input.Legs))
	for _, li := range input.Legs {
		legValueDate := valueDate
		if li.ValueDate != nil {
			legValueDate = *li.ValueDate
		}

		leg := &domain.TransactionLeg{
			ID:                uc.idGen.Generate(),
			TransactionID:     txn.ID,
			ExternalAccountID: li.ExternalAccountID,
			ExternalSpace:     li.ExternalSpace,
			LegType:           li.LegType,
			Amount:            li.Amount,
			Currency:          li.Currency,
			Description:       li.Description,
			ValueDate:         legValueDate,
			BookingDate:       now,
		}

		if err := uc.legRepo.Create(ctx, tx, leg); err != nil {
			return nil, err
		}

		entry := &domain.LedgerEntry{
			ID:            uc.idGen.Generate(),
			TransactionID: txn.ID,
			AccountID:     li.LedgerAccountID,
			Direction:     li.LegType,
			Amount:        li.Amount,
			Currency:      li.Currency,
			PostedAt:      now,
			ExchangeRate:  li.ExchangeRate,
			CostCenter:    li.CostCenter,
			Note:          li.Description,
		}

		if err := uc.entryRepo.Create(ctx, tx, entry); err != nil {
			return nil, err
		}

		txn.Legs = append(txn.Legs, leg)
		txn.Entries = append(txn.Entries, entry)
		postedLegs = append(postedLegs, domain.PostedLeg{
			LegID:             leg.ID,
			ExternalAccountID: leg.ExternalAccountID,
			LegType:           string(leg.LegType),
			Amount:            leg.Amount.String(),
			Currency:          leg.Currency,
		})
	}

	if err := uc.recordTransition(ctx, tx, txn.ID, domain.StatusPosted, "", false, now); err != nil {
		return nil, err
	}
	txn.Status = domain.StatusPosted

	payload := domain.TransactionPostedEvent{
		TransactionID: txn.ID,
		ExternalRef:   txn.ExternalRef,
		Type:          string(txn.Type),
		Status:        string(domain.StatusPosted),
		TotalAmount:   txn.TotalAmount.String(),
		Currency:      txn.Currency,
		Legs:          postedLegs,
		Metadata:      txn.Metadata,
		PostedAt:      now.Format(time.RFC3339Nano),
	}

	if _, err := EnqueueEvent(ctx, tx, uc.outboxRepo, domain.AggregateTypeTransaction, txn.ID, domain.EventTypeTransactionPosted, payload, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return txn, nil
}

// claimHeader loads or creates the header and performs the optimistic
// INITIATED -> POSTED claim. Two concurrent posting attempts on the same
// identifier cannot both pass the conditional update; the loser sees
// ErrAlreadyPosted.
func (uc *PostingUseCase) claimHeader(ctx context.Context, tx Transaction, input PostInput, now time.Time) (*domain.Transaction, error) {
	id := input.TransactionID
	if id == "" {
		id = uc.idGen.Generate()
	}

	txn, err := uc.txnRepo.GetByIDForUpdate(ctx, tx, id)
	switch {
	case errors.Is(err, domain.ErrTransactionNotFound):
		txn, err = uc.newHeader(ctx, tx, id, input, now)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if txn.Status == domain.StatusPosted {
			return nil, domain.ErrAlreadyPosted
		}
		if err := domain.ValidateTransition(txn.Status, domain.StatusPosted); err != nil {
			return nil, err
		}
	}

	claimed, err := uc.txnRepo.UpdateStatus(ctx, tx, id, domain.StatusInitiated, domain.StatusPosted, now)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, domain.ErrAlreadyPosted
	}

	return txn, nil
}

func (uc *PostingUseCase) newHeader(ctx context.Context, tx Transaction, id string, input PostInput, now time.Time) (*domain.Transaction, error) {
	currency := input.Currency
	if currency == "" {
		currency = input.Legs[0].Currency
	}

	if err := domain.ValidateCurrency(currency); err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, li := range input.Legs {
		if li.LegType == domain.LegTypeDebit && li.Currency == currency {
			total = total.Add(li.Amount)
		}
	}

	txnDate := now
	if input.TransactionDate != nil {
		txnDate = *input.TransactionDate
	}

	valueDate := now
	if input.ValueDate != nil {
		valueDate = *input.ValueDate
	}

	txn := &domain.Transaction{
		ID:              id,
		ExternalRef:     input.ExternalRef,
		Type:            input.Type,
		Status:          domain.StatusInitiated,
		TotalAmount:     total,
		Currency:        currency,
		Description:     input.Description,
		InitiatedBy:     input.InitiatedBy,
		AccountRef:      input.AccountRef,
		CategoryRef:     input.CategoryRef,
		TransactionDate: txnDate,
		ValueDate:       valueDate,
		Metadata:        input.Metadata,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := uc.txnRepo.Create(ctx, tx, txn); err != nil {
		return nil, err
	}

	history := &domain.TransactionStatusHistory{
		ID:            uc.idGen.Generate(),
		TransactionID: id,
		Status:        domain.StatusInitiated,
		StartedAt:     now,
	}

	if err := uc.historyRepo.Append(ctx, tx, history); err != nil {
		return nil, err
	}

	return txn, nil
}

// recordTransition closes the open history row and appends the new one.
// Every transition writes exactly one new row and closes exactly one prior.
func (uc *PostingUseCase) recordTransition(ctx context.Context, tx Transaction, transactionID string, to domain.TransactionStatus, reason string, regulatory bool, now time.Time) error {
	if err := uc.historyRepo.CloseCurrent(ctx, tx, transactionID, now); err != nil {
		return err
	}

	return uc.historyRepo.Append(ctx, tx, &domain.TransactionStatusHistory{
		ID:            uc.idGen.Generate(),
		TransactionID: transactionID,
		Status:        to,
		StartedAt:     now,
		Reason:        reason,
		Regulatory:    regulatory,
	})
}

// Reverse creates offsetting legs and entries for a POSTED or SETTLED
// transaction. The originals stay untouched; the new rows reference them and
// by construction keep the balance invariant.
func (uc *PostingUseCase) Reverse(ctx context.Context, transactionID, reason string) (*domain.Transaction, error) {
	var reversed *domain.Transaction

	op := func() error {
		var err error
		reversed, err = uc.reverseOnce(ctx, transactionID, reason)
		return err
	}

	if err := uc.run(ctx, op); err != nil {
		return nil, err
	}

	uc.invalidate(ctx, transactionID)

	return reversed, nil
}

func (uc *PostingUseCase) reverseOnce(ctx context.Context, transactionID, reason string) (*domain.Transaction, error) {
	now := time.Now().UTC()

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	txn, err := uc.txnRepo.GetByIDForUpdate(ctx, tx, transactionID)
	if err != nil {
		return nil, err
	}

	from := txn.Status
	if err := domain.ValidateTransition(from, domain.StatusReversed); err != nil {
		return nil, err
	}

	claimed, err := uc.txnRepo.UpdateStatus(ctx, tx, transactionID, from, domain.StatusReversed, now)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, domain.ErrConcurrentUpdate
	}

	legs, err := uc.legRepo.GetByTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	txn.Legs = legs

	for _, original := range legs {
		if original.ReversalOfLegID != nil {
			continue
		}

		originalID := original.ID
		offset := &domain.TransactionLeg{
			ID:                uc.idGen.Generate(),
			TransactionID:     transactionID,
			ExternalAccountID: original.ExternalAccountID,
			ExternalSpace:     original.ExternalSpace,
			LegType:           original.LegType.Opposite(),
			Amount:            original.Amount,
			Currency:          original.Currency,
			Description:       reason,
			ValueDate:         now,
			BookingDate:       now,
			ReversalOfLegID:   &originalID,
		}

		if err := uc.legRepo.Create(ctx, tx, offset); err != nil {
			return nil, err
		}

		txn.Legs = append(txn.Legs, offset)
	}

	entries, err := uc.entryRepo.GetByTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	txn.Entries = entries

	for _, original := range entries {
		if original.ReversalOfEntryID != nil {
			continue
		}

		originalID := original.ID
		offset := &domain.LedgerEntry{
			ID:                uc.idGen.Generate(),
			TransactionID:     transactionID,
			AccountID:         original.AccountID,
			Direction:         original.Direction.Opposite(),
			Amount:            original.Amount,
			Currency:          original.Currency,
			PostedAt:          now,
			ExchangeRate:      original.ExchangeRate,
			CostCenter:        original.CostCenter,
			Note:              reason,
			ReversalOfEntryID: &originalID,
		}

		if err := uc.entryRepo.Create(ctx, tx, offset); err != nil {
			return nil, err
		}

		txn.Entries = append(txn.Entries, offset)
	}

	if err := uc.recordTransition(ctx, tx, transactionID, domain.StatusReversed, reason, true, now); err != nil {
		return nil, err
	}
	txn.Status = domain.StatusReversed

	payload := domain.TransactionStatusEvent{
		TransactionID: transactionID,
		FromStatus:    string(from),
		ToStatus:      string(domain.StatusReversed),
		Reason:        reason,
		OccurredAt:    now.Format(time.RFC3339Nano),
	}

	if _, err := EnqueueEvent(ctx, tx, uc.outboxRepo, domain.AggregateTypeTransaction, transactionID, domain.EventTypeTransactionReversed, payload, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return txn, nil
}

// Settle advances a POSTED transaction to SETTLED.
func (uc *PostingUseCase) Settle(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	return uc.transition(ctx, transactionID, domain.StatusSettled, "", false, domain.EventTypeTransactionSettled)
}

// Cancel cancels an INITIATED transaction.
func (uc *PostingUseCase) Cancel(ctx context.Context, transactionID, reason string) (*domain.Transaction, error) {
	return uc.transition(ctx, transactionID, domain.StatusCancelled, reason, false, domain.EventTypeTransactionCancelled)
}

// Fail marks an INITIATED transaction as failed.
func (uc *PostingUseCase) Fail(ctx context.Context, transactionID, reason string) (*domain.Transaction, error) {
	return uc.transition(ctx, transactionID, domain.StatusFailed, reason, true, domain.EventTypeTransactionFailed)
}

func (uc *PostingUseCase) transition(ctx context.Context, transactionID string, to domain.TransactionStatus, reason string, regulatory bool, eventType string) (*domain.Transaction, error) {
	var txn *domain.Transaction

	op := func() error {
		var err error
		txn, err = uc.transitionOnce(ctx, transactionID, to, reason, regulatory, eventType)
		return err
	}

	if err := uc.run(ctx, op); err != nil {
		return nil, err
	}

	uc.invalidate(ctx, transactionID)

	return txn, nil
}

func (uc *PostingUseCase) transitionOnce(ctx context.Context, transactionID string, to domain.TransactionStatus, reason string, regulatory bool, eventType string) (*domain.Transaction, error) {
	now := time.Now().UTC()

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	txn, err := uc.txnRepo.GetByIDForUpdate(ctx, tx, transactionID)
	if err != nil {
		return nil, err
	}

	from := txn.Status
	if err := domain.ValidateTransition(from, to); err != nil {
		return nil, err
	}

	claimed, err := uc.txnRepo.UpdateStatus(ctx, tx, transactionID, from, to, now)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, domain.ErrConcurrentUpdate
	}

	if err := uc.recordTransition(ctx, tx, transactionID, to, reason, regulatory, now); err != nil {
		return nil, err
	}
	txn.Status = to

	payload := domain.TransactionStatusEvent{
		TransactionID: transactionID,
		FromStatus:    string(from),
		ToStatus:      string(to),
		Reason:        reason,
		OccurredAt:    now.Format(time.RFC3339Nano),
	}

	if _, err := EnqueueEvent(ctx, tx, uc.outboxRepo, domain.AggregateTypeTransaction, transactionID, eventType, payload, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return txn, nil
}

// GetTransaction returns the aggregate: header, current status, legs and the
// mirrored ledger entries. Reads go through the cache; every transition
// invalidates it.
func (uc *PostingUseCase) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	if uc.cache != nil {
		if data, err := uc.cache.Get(ctx, cacheKey(id)); err == nil && data != nil {
			var cached domain.Transaction
			if err := json.Unmarshal(data, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	txn, err := uc.txnRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	legs, err := uc.legRepo.GetByTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	txn.Legs = legs

	entries, err := uc.entryRepo.GetByTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	txn.Entries = entries

	if uc.cache != nil {
		if data, err := json.Marshal(txn); err == nil {
			_ = uc.cache.Set(ctx, cacheKey(id), data, uc.cacheTTL)
		}
	}

	return txn, nil
}

// ListStatusHistory returns the transition log, oldest first.
func (uc *PostingUseCase) ListStatusHistory(ctx context.Context, transactionID string) ([]*domain.TransactionStatusHistory, error) {
	if _, err := uc.txnRepo.GetByID(ctx, transactionID); err != nil {
		return nil, err
	}

	return uc.historyRepo.ListByTransaction(ctx, transactionID)
}

// ListTransactions lists transaction headers.
func (uc *PostingUseCase) ListTransactions(ctx context.Context, limit, offset int) ([]*domain.Transaction, error) {
	limit = clampLimit(limit)
	return uc.txnRepo.List(ctx, limit, offset)
}

// ListEntriesByAccount lists internal ledger entries booked to an account.
func (uc *PostingUseCase) ListEntriesByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	limit = clampLimit(limit)
	return uc.entryRepo.GetByAccount(ctx, accountID, limit, offset)
}

func (uc *PostingUseCase) run(ctx context.Context, op func() error) error {
	if uc.retrier != nil {
		return uc.retrier.Retry(ctx, op)
	}
	return op()
}

func (uc *PostingUseCase) invalidate(ctx context.Context, id string) {
	if uc.cache != nil {
		_ = uc.cache.Delete(ctx, cacheKey(id))
	}
}

func cacheKey(id string) string {
	return "txn:" + id
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}
