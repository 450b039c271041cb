package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/corebank/ledgersvc/internal/domain"
	"github.com/corebank/ledgersvc/internal/usecase"
	"github.com/corebank/ledgersvc/internal/usecase/mocks"
)

type postingFixture struct {
	txMgr       *mocks.MockTransactionManager
	txnRepo     *mocks.MockTransactionRepository
	legRepo     *mocks.MockLegRepository
	entryRepo   *mocks.MockEntryRepository
	historyRepo *mocks.MockStatusHistoryRepository
	outboxRepo  *mocks.MockOutboxRepository
	cache       *mocks.MockCache
	uc          *usecase.PostingUseCase
}

func newPostingFixture() *postingFixture {
	f := &postingFixture{
		txMgr:       mocks.NewMockTransactionManager(),
		txnRepo:     mocks.NewMockTransactionRepository(),
		legRepo:     mocks.NewMockLegRepository(),
		entryRepo:   mocks.NewMockEntryRepository(),
		historyRepo: mocks.NewMockStatusHistoryRepository(),
		outboxRepo:  mocks.NewMockOutboxRepository(),
		cache:       mocks.NewMockCache(),
	}

	f.uc = usecase.NewPostingUseCase(
		f.txMgr,
		f.txnRepo,
		f.legRepo,
		f.entryRepo,
		f.historyRepo,
		f.outboxRepo,
		mocks.NewMockIDGenerator(),
		nil,
		f.cache,
		0,
	)

	return f
}

func balancedInput() usecase.PostInput {
	return usecase.PostInput{
		ExternalRef: "ext-001",
		Type:        domain.TransactionTypeWire,
		Currency:    "USD",
		Description: "wire in",
		Legs: []usecase.PostLegInput{
			{
				ExternalAccountID: "cust-1",
				LedgerAccountID:   "coa-cash",
				LegType:           domain.LegTypeDebit,
				Amount:            decimal.RequireFromString("100.00"),
				Currency:          "USD",
			},
			{
				ExternalAccountID: "cust-2",
				LedgerAccountID:   "coa-deposits",
				LegType:           domain.LegTypeCredit,
				Amount:            decimal.RequireFromString("100.00"),
				Currency:          "USD",
			},
		},
	}
}

func TestPostingUseCase_Post(t *testing.T) {
	f := newPostingFixture()

	txn, err := f.uc.Post(context.Background(), balancedInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if txn.Status != domain.StatusPosted {
		t.Errorf("status = %s, want POSTED", txn.Status)
	}

	if len(txn.Legs) != 2 || len(txn.Entries) != 2 {
		t.Errorf("legs/entries = %d/%d, want 2/2", len(txn.Legs), len(txn.Entries))
	}

	if !txn.TotalAmount.Equal(decimal.RequireFromString("100.00")) {
		t.Errorf("total = %s, want 100.00", txn.TotalAmount)
	}

	events := f.outboxRepo.EventsOfType(domain.EventTypeTransactionPosted)
	if len(events) != 1 {
		t.Fatalf("outbox TRANSACTION_POSTED events = %d, want 1", len(events))
	}
	if events[0].AggregateID != txn.ID {
		t.Errorf("event aggregate = %s, want %s", events[0].AggregateID, txn.ID)
	}
	if events[0].ID == "" {
		t.Error("event ID must be set")
	}

	open := f.historyRepo.OpenRows(txn.ID)
	if len(open) != 1 || open[0].Status != domain.StatusPosted {
		t.Fatalf("open history rows = %+v, want single POSTED", open)
	}

	rows, _ := f.historyRepo.ListByTransaction(context.Background(), txn.ID)
	if len(rows) != 2 {
		t.Fatalf("history rows = %d, want 2 (INITIATED closed + POSTED open)", len(rows))
	}
	if rows[0].Status != domain.StatusInitiated || rows[0].EndedAt == nil {
		t.Error("INITIATED row must exist and be closed")
	}

	if tx := f.txMgr.LastTx(); tx == nil || !tx.Committed {
		t.Error("unit of work must be committed")
	}
}

func TestPostingUseCase_Post_Unbalanced(t *testing.T) {
	f := newPostingFixture()

	input := balancedInput()
	input.Legs[1].Amount = decimal.RequireFromString("90.00")

	_, err := f.uc.Post(context.Background(), input)

	var unbalanced *domain.UnbalancedPostingError
	if !errors.As(err, &unbalanced) {
		t.Fatalf("err = %v, want UnbalancedPostingError", err)
	}
	if unbalanced.Currency != "USD" {
		t.Errorf("currency = %s, want USD", unbalanced.Currency)
	}
	if !unbalanced.Delta.Equal(decimal.RequireFromString("10.00")) {
		t.Errorf("delta = %s, want 10.00", unbalanced.Delta)
	}

	// No partial posting: validation failed before any unit of work.
	if len(f.txMgr.Txs) != 0 {
		t.Error("no transaction should be begun for an unbalanced posting")
	}
	if f.legRepo.Count() != 0 {
		t.Error("no legs should be persisted")
	}
	if len(f.outboxRepo.Events) != 0 {
		t.Error("no outbox event should be persisted")
	}
	if len(f.historyRepo.Rows) != 0 {
		t.Error("no history rows should be persisted")
	}
}

func TestPostingUseCase_Post_InputValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*usecase.PostInput)
		wantErr error
	}{
		{
			name:    "single leg",
			mutate:  func(in *usecase.PostInput) { in.Legs = in.Legs[:1] },
			wantErr: domain.ErrNoLegs,
		},
		{
			name: "zero amount leg rejected not dropped",
			mutate: func(in *usecase.PostInput) {
				in.Legs[0].Amount = decimal.Zero
			},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name: "unsupported currency",
			mutate: func(in *usecase.PostInput) {
				in.Legs[0].Currency = "XAU"
				in.Legs[1].Currency = "XAU"
			},
			wantErr: domain.ErrUnsupportedCurrency,
		},
		{
			name: "sub-minor-unit amount",
			mutate: func(in *usecase.PostInput) {
				in.Legs[0].Amount = decimal.RequireFromString("100.005")
				in.Legs[1].Amount = decimal.RequireFromString("100.005")
			},
			wantErr: domain.ErrAmountScale,
		},
		{
			name: "missing ledger account",
			mutate: func(in *usecase.PostInput) {
				in.Legs[0].LedgerAccountID = ""
			},
			wantErr: domain.ErrAccountNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPostingFixture()
			input := balancedInput()
			tt.mutate(&input)

			_, err := f.uc.Post(context.Background(), input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}

			if f.legRepo.Count() != 0 || len(f.outboxRepo.Events) != 0 {
				t.Error("no rows may be persisted on validation failure")
			}
		})
	}
}

func TestPostingUseCase_Post_ExistingInitiatedHeader(t *testing.T) {
	f := newPostingFixture()
	now := time.Now().UTC()

	f.txnRepo.Seed(&domain.Transaction{
		ID:        "txn-1",
		Status:    domain.StatusInitiated,
		Currency:  "USD",
		CreatedAt: now,
	})
	f.historyRepo.Append(context.Background(), nil, &domain.TransactionStatusHistory{
		ID:            "hist-1",
		TransactionID: "txn-1",
		Status:        domain.StatusInitiated,
		StartedAt:     now,
	})

	input := balancedInput()
	input.TransactionID = "txn-1"

	txn, err := f.uc.Post(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if txn.ID != "txn-1" || txn.Status != domain.StatusPosted {
		t.Errorf("got %s/%s, want txn-1/POSTED", txn.ID, txn.Status)
	}

	open := f.historyRepo.OpenRows("txn-1")
	if len(open) != 1 || open[0].Status != domain.StatusPosted {
		t.Error("exactly one open history row (POSTED) expected")
	}
}

func TestPostingUseCase_Post_AlreadyPosted(t *testing.T) {
	f := newPostingFixture()

	f.txnRepo.Seed(&domain.Transaction{ID: "txn-1", Status: domain.StatusPosted})

	input := balancedInput()
	input.TransactionID = "txn-1"

	_, err := f.uc.Post(context.Background(), input)
	if !errors.Is(err, domain.ErrAlreadyPosted) {
		t.Fatalf("err = %v, want ErrAlreadyPosted", err)
	}

	if f.legRepo.Count() != 0 {
		t.Error("losing posting attempt must not attach legs")
	}
	if tx := f.txMgr.LastTx(); tx != nil && tx.Committed {
		t.Error("losing posting attempt must roll back")
	}
}

func TestPostingUseCase_Post_ClaimRace(t *testing.T) {
	f := newPostingFixture()

	f.txnRepo.Seed(&domain.Transaction{ID: "txn-1", Status: domain.StatusInitiated})

	// Simulate a concurrent winner between the read and the claim.
	f.txnRepo.UpdateStatusFunc = func(ctx context.Context, tx usecase.Transaction, id string, from, to domain.TransactionStatus, updatedAt time.Time) (bool, error) {
		return false, nil
	}

	input := balancedInput()
	input.TransactionID = "txn-1"

	_, err := f.uc.Post(context.Background(), input)
	if !errors.Is(err, domain.ErrAlreadyPosted) {
		t.Fatalf("err = %v, want ErrAlreadyPosted", err)
	}

	if tx := f.txMgr.LastTx(); tx == nil || !tx.RolledBack {
		t.Error("lost race must roll back the unit of work")
	}
}

func TestPostingUseCase_Post_SerializationFailureAborts(t *testing.T) {
	f := newPostingFixture()

	input := balancedInput()
	input.Metadata = map[string]any{"geotag": make(chan int)}

	_, err := f.uc.Post(context.Background(), input)

	var serr *domain.SerializationError
	if !errors.As(err, &serr) {
		t.Fatalf("err = %v, want SerializationError", err)
	}

	// Never post without the ability to announce it.
	if tx := f.txMgr.LastTx(); tx == nil || tx.Committed || !tx.RolledBack {
		t.Error("whole unit of work must roll back when the payload cannot be serialized")
	}
	if len(f.outboxRepo.Events) != 0 {
		t.Error("no outbox row may be recorded")
	}
}

func TestPostingUseCase_Post_RetriesTransientFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	f := newPostingFixture()

	// The retrier re-runs the unit of work once after a transient failure.
	retrier := mocks.NewMockRetrier(ctrl)
	retrier.EXPECT().Retry(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, op func() error) error {
			if err := op(); err != nil {
				return op()
			}
			return nil
		})

	uc := usecase.NewPostingUseCase(
		f.txMgr, f.txnRepo, f.legRepo, f.entryRepo, f.historyRepo,
		f.outboxRepo, mocks.NewMockIDGenerator(), retrier, f.cache, 0,
	)

	now := time.Now().UTC()
	f.txnRepo.Seed(&domain.Transaction{ID: "txn-1", Status: domain.StatusInitiated, Currency: "USD", CreatedAt: now})
	f.historyRepo.Append(context.Background(), nil, &domain.TransactionStatusHistory{
		ID: "h1", TransactionID: "txn-1", Status: domain.StatusInitiated, StartedAt: now,
	})

	var attempts int
	f.txnRepo.UpdateStatusFunc = func(ctx context.Context, tx usecase.Transaction, id string, from, to domain.TransactionStatus, updatedAt time.Time) (bool, error) {
		attempts++
		if attempts == 1 {
			return false, errors.New("ERROR: deadlock detected (SQLSTATE 40P01)")
		}
		return true, nil
	}

	input := balancedInput()
	input.TransactionID = "txn-1"

	txn, err := uc.Post(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if attempts != 2 {
		t.Errorf("claim attempts = %d, want 2", attempts)
	}
	if txn.Status != domain.StatusPosted {
		t.Errorf("status = %s, want POSTED", txn.Status)
	}

	// The aborted first attempt left no legs behind.
	if f.legRepo.Count() != 2 {
		t.Errorf("legs = %d, want 2", f.legRepo.Count())
	}
}

func TestPostingUseCase_Post_EntriesCarryExchangeRate(t *testing.T) {
	f := newPostingFixture()

	rate := decimal.RequireFromString("1.08250000")
	input := balancedInput()
	input.Legs[0].ExchangeRate = &rate

	posted, err := f.uc.Post(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var rated int
	for _, e := range posted.Entries {
		if e.ExchangeRate != nil {
			rated++
			if !e.ExchangeRate.Equal(rate) {
				t.Errorf("entry rate = %s, want %s", e.ExchangeRate, rate)
			}
		}
	}
	if rated != 1 {
		t.Fatalf("entries with rate = %d, want 1", rated)
	}

	// Offsetting entries keep the original rate.
	reversed, err := f.uc.Reverse(context.Background(), posted.ID, "fx correction")
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}

	for _, e := range reversed.Entries {
		if e.ReversalOfEntryID == nil {
			continue
		}
		var original *domain.LedgerEntry
		for _, o := range reversed.Entries {
			if o.ID == *e.ReversalOfEntryID {
				original = o
				break
			}
		}
		if original == nil {
			t.Fatalf("no original entry for offset %s", e.ID)
		}
		if (original.ExchangeRate == nil) != (e.ExchangeRate == nil) {
			t.Error("offset entry must mirror the original's rate presence")
		}
		if original.ExchangeRate != nil && !e.ExchangeRate.Equal(*original.ExchangeRate) {
			t.Errorf("offset rate = %s, want %s", e.ExchangeRate, original.ExchangeRate)
		}
	}
}

func TestPostingUseCase_Reverse(t *testing.T) {
	f := newPostingFixture()

	posted, err := f.uc.Post(context.Background(), balancedInput())
	if err != nil {
		t.Fatalf("post: %v", err)
	}

	reversed, err := f.uc.Reverse(context.Background(), posted.ID, "customer dispute")
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}

	if reversed.Status != domain.StatusReversed {
		t.Errorf("status = %s, want REVERSED", reversed.Status)
	}

	legs, _ := f.legRepo.GetByTransaction(context.Background(), posted.ID)
	if len(legs) != 4 {
		t.Fatalf("legs = %d, want 4 (2 original + 2 offsetting)", len(legs))
	}

	byReversal := map[string]*domain.TransactionLeg{}
	originals := map[string]*domain.TransactionLeg{}
	for _, l := range legs {
		if l.ReversalOfLegID != nil {
			byReversal[*l.ReversalOfLegID] = l
		} else {
			originals[l.ID] = l
		}
	}

	if len(originals) != 2 || len(byReversal) != 2 {
		t.Fatalf("originals/offsets = %d/%d, want 2/2", len(originals), len(byReversal))
	}

	for id, original := range originals {
		offset, ok := byReversal[id]
		if !ok {
			t.Fatalf("no offsetting leg for %s", id)
		}
		if offset.LegType != original.LegType.Opposite() {
			t.Error("offset leg must swap DEBIT/CREDIT")
		}
		if !offset.Amount.Equal(original.Amount) || offset.Currency != original.Currency {
			t.Error("offset leg must keep amount and currency")
		}
	}

	// Combined legs still balance per currency.
	if err := domain.CheckBalanced(legs); err != nil {
		t.Errorf("reversed transaction unbalanced: %v", err)
	}

	open := f.historyRepo.OpenRows(posted.ID)
	if len(open) != 1 || open[0].Status != domain.StatusReversed {
		t.Error("exactly one open history row (REVERSED) expected")
	}
	if open[0].Reason != "customer dispute" {
		t.Errorf("reason = %q", open[0].Reason)
	}

	if len(f.outboxRepo.EventsOfType(domain.EventTypeTransactionReversed)) != 1 {
		t.Error("one TRANSACTION_REVERSED outbox event expected")
	}
}

func TestPostingUseCase_Reverse_InvalidStates(t *testing.T) {
	for _, status := range []domain.TransactionStatus{
		domain.StatusInitiated,
		domain.StatusReversed,
		domain.StatusCancelled,
		domain.StatusFailed,
	} {
		t.Run(string(status), func(t *testing.T) {
			f := newPostingFixture()
			f.txnRepo.Seed(&domain.Transaction{ID: "txn-1", Status: status})

			_, err := f.uc.Reverse(context.Background(), "txn-1", "oops")

			var invalid *domain.InvalidTransitionError
			if !errors.As(err, &invalid) {
				t.Fatalf("err = %v, want InvalidTransitionError", err)
			}
			if invalid.From != status || invalid.To != domain.StatusReversed {
				t.Errorf("transition = %s->%s", invalid.From, invalid.To)
			}
		})
	}
}

func TestPostingUseCase_Reverse_NotFound(t *testing.T) {
	f := newPostingFixture()

	_, err := f.uc.Reverse(context.Background(), "missing", "oops")
	if !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Fatalf("err = %v, want ErrTransactionNotFound", err)
	}
}

func TestPostingUseCase_Lifecycle(t *testing.T) {
	t.Run("settle posted", func(t *testing.T) {
		f := newPostingFixture()
		posted, _ := f.uc.Post(context.Background(), balancedInput())

		settled, err := f.uc.Settle(context.Background(), posted.ID)
		if err != nil {
			t.Fatalf("settle: %v", err)
		}
		if settled.Status != domain.StatusSettled {
			t.Errorf("status = %s, want SETTLED", settled.Status)
		}
		if len(f.outboxRepo.EventsOfType(domain.EventTypeTransactionSettled)) != 1 {
			t.Error("one TRANSACTION_SETTLED event expected")
		}
	})

	t.Run("cancel settled rejected", func(t *testing.T) {
		f := newPostingFixture()
		f.txnRepo.Seed(&domain.Transaction{ID: "txn-1", Status: domain.StatusSettled})

		_, err := f.uc.Cancel(context.Background(), "txn-1", "too late")

		var invalid *domain.InvalidTransitionError
		if !errors.As(err, &invalid) {
			t.Fatalf("err = %v, want InvalidTransitionError", err)
		}
		if invalid.From != domain.StatusSettled || invalid.To != domain.StatusCancelled {
			t.Errorf("transition = %s->%s, want SETTLED->CANCELLED", invalid.From, invalid.To)
		}
	})

	t.Run("cancel initiated", func(t *testing.T) {
		f := newPostingFixture()
		now := time.Now().UTC()
		f.txnRepo.Seed(&domain.Transaction{ID: "txn-1", Status: domain.StatusInitiated})
		f.historyRepo.Append(context.Background(), nil, &domain.TransactionStatusHistory{
			ID: "h1", TransactionID: "txn-1", Status: domain.StatusInitiated, StartedAt: now,
		})

		cancelled, err := f.uc.Cancel(context.Background(), "txn-1", "customer request")
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if cancelled.Status != domain.StatusCancelled {
			t.Errorf("status = %s, want CANCELLED", cancelled.Status)
		}

		open := f.historyRepo.OpenRows("txn-1")
		if len(open) != 1 || open[0].Status != domain.StatusCancelled {
			t.Error("exactly one open history row (CANCELLED) expected")
		}
	})

	t.Run("fail initiated", func(t *testing.T) {
		f := newPostingFixture()
		f.txnRepo.Seed(&domain.Transaction{ID: "txn-1", Status: domain.StatusInitiated})

		failed, err := f.uc.Fail(context.Background(), "txn-1", "upstream timeout")
		if err != nil {
			t.Fatalf("fail: %v", err)
		}
		if failed.Status != domain.StatusFailed {
			t.Errorf("status = %s, want FAILED", failed.Status)
		}
	})
}

func TestPostingUseCase_GetTransaction_UsesConfiguredCacheTTL(t *testing.T) {
	f := newPostingFixture()

	uc := usecase.NewPostingUseCase(
		f.txMgr, f.txnRepo, f.legRepo, f.entryRepo, f.historyRepo,
		f.outboxRepo, mocks.NewMockIDGenerator(), nil, f.cache, 5*time.Minute,
	)

	posted, err := uc.Post(context.Background(), balancedInput())
	if err != nil {
		t.Fatalf("post: %v", err)
	}

	if _, err := uc.GetTransaction(context.Background(), posted.ID); err != nil {
		t.Fatalf("get: %v", err)
	}

	if f.cache.LastSetTTL != 5*time.Minute {
		t.Errorf("cache TTL = %s, want 5m", f.cache.LastSetTTL)
	}
}

func TestPostingUseCase_GetTransaction_Caches(t *testing.T) {
	f := newPostingFixture()
	posted, _ := f.uc.Post(context.Background(), balancedInput())

	first, err := f.uc.GetTransaction(context.Background(), posted.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(first.Legs) != 2 {
		t.Fatalf("legs = %d, want 2", len(first.Legs))
	}

	// Second read is served from cache even if the repo forgets the row.
	f.txnRepo.GetByIDFunc = func(ctx context.Context, id string) (*domain.Transaction, error) {
		return nil, domain.ErrTransactionNotFound
	}

	second, err := f.uc.GetTransaction(context.Background(), posted.ID)
	if err != nil {
		t.Fatalf("cached get: %v", err)
	}
	if second.ID != posted.ID || second.Status != domain.StatusPosted {
		t.Error("cached aggregate mismatch")
	}

	// A transition invalidates the cached aggregate.
	f.txnRepo.GetByIDFunc = nil
	if _, err := f.uc.Settle(context.Background(), posted.ID); err != nil {
		t.Fatalf("settle: %v", err)
	}

	third, err := f.uc.GetTransaction(context.Background(), posted.ID)
	if err != nil {
		t.Fatalf("get after settle: %v", err)
	}
	if third.Status != domain.StatusSettled {
		t.Errorf("status = %s, want SETTLED after invalidation", third.Status)
	}
}
