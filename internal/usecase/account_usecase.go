package usecase

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/corebank/ledgersvc/internal/domain"
)

// MaxTreeDepth bounds the ancestor walk. A chain longer than this means the
// chart of accounts is corrupt, not deep.
const MaxTreeDepth = 64

// AccountUseCase manages the chart-of-accounts tree.
type AccountUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	outboxRepo  OutboxRepository
	idGen       IDGenerator
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(txManager TransactionManager, accountRepo AccountRepository, outboxRepo OutboxRepository, idGen IDGenerator) *AccountUseCase {
	return &AccountUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		outboxRepo:  outboxRepo,
		idGen:       idGen,
	}
}

// CreateAccountInput represents input for creating a ledger account.
type CreateAccountInput struct {
	Code     string
	Name     string
	Type     domain.AccountType
	ParentID *string
}

// CreateAccount creates a chart-of-accounts node and its ACCOUNT_CREATED
// outbox event in one unit of work.
func (uc *AccountUseCase) CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.LedgerAccount, error) {
	now := time.Now().UTC()

	account := &domain.LedgerAccount{
		ID:        uc.idGen.Generate(),
		Code:      input.Code,
		Name:      input.Name,
		Type:      input.Type,
		ParentID:  input.ParentID,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := account.Validate(); err != nil {
		return nil, err
	}

	if existing, err := uc.accountRepo.GetByCode(ctx, input.Code); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateCode, input.Code)
	} else if err != nil && !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, err
	}

	if input.ParentID != nil {
		parent, err := uc.accountRepo.GetByID(ctx, *input.ParentID)
		if err != nil {
			if errors.Is(err, domain.ErrAccountNotFound) {
				return nil, domain.ErrParentNotFound
			}
			return nil, err
		}
		if !parent.Active {
			return nil, domain.ErrAccountInactive
		}
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := uc.accountRepo.Create(ctx, tx, account); err != nil {
		return nil, err
	}

	payload := domain.AccountCreatedEvent{
		AccountID: account.ID,
		Code:      account.Code,
		Name:      account.Name,
		Type:      string(account.Type),
		ParentID:  account.ParentID,
	}

	if _, err := EnqueueEvent(ctx, tx, uc.outboxRepo, domain.AggregateTypeAccount, account.ID, domain.EventTypeAccountCreated, payload, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return account, nil
}

// AttachChild reparents child under parent after validating that the move
// cannot create a cycle: the child must not appear anywhere in the proposed
// parent's ancestor chain.
func (uc *AccountUseCase) AttachChild(ctx context.Context, parentID, childID string) (*domain.LedgerAccount, error) {
	if parentID == childID {
		return nil, &domain.CycleError{AccountID: childID, ParentID: parentID}
	}

	child, err := uc.accountRepo.GetByID(ctx, childID)
	if err != nil {
		return nil, err
	}

	parent, err := uc.accountRepo.GetByID(ctx, parentID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrParentNotFound
		}
		return nil, err
	}
	if !parent.Active {
		return nil, domain.ErrAccountInactive
	}

	if err := uc.checkNoCycle(ctx, parent, childID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := uc.accountRepo.UpdateParent(ctx, tx, childID, &parentID, now); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"account_id": childID,
		"parent_id":  parentID,
	}

	if _, err := EnqueueEvent(ctx, tx, uc.outboxRepo, domain.AggregateTypeAccount, childID, domain.EventTypeAccountReparented, payload, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	child.ParentID = &parentID
	child.UpdatedAt = now

	return child, nil
}

// checkNoCycle walks up from the proposed parent to the root.
func (uc *AccountUseCase) checkNoCycle(ctx context.Context, parent *domain.LedgerAccount, childID string) error {
	current := parent
	for depth := 0; depth < MaxTreeDepth; depth++ {
		if current.ID == childID {
			return &domain.CycleError{AccountID: childID, ParentID: parent.ID}
		}

		if current.ParentID == nil {
			return nil
		}

		next, err := uc.accountRepo.GetByID(ctx, *current.ParentID)
		if err != nil {
			return err
		}
		current = next
	}

	return fmt.Errorf("%w: ancestor chain deeper than %d", domain.ErrInvalidAccount, MaxTreeDepth)
}

// SubtreeOf returns a lazy depth-first sequence of the descendants of
// accountID, the account itself excluded. The sequence is finite (the tree is
// acyclic by construction) and restartable: iterating it again re-runs the
// queries.
func (uc *AccountUseCase) SubtreeOf(ctx context.Context, accountID string) iter.Seq2[*domain.LedgerAccount, error] {
	return func(yield func(*domain.LedgerAccount, error) bool) {
		roots, err := uc.accountRepo.ListChildren(ctx, accountID)
		if err != nil {
			yield(nil, err)
			return
		}

		// Push in reverse so the first child is visited first.
		stack := make([]*domain.LedgerAccount, 0, len(roots))
		for i := len(roots) - 1; i >= 0; i-- {
			stack = append(stack, roots[i])
		}

		for len(stack) > 0 {
			node := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if !yield(node, nil) {
				return
			}

			children, err := uc.accountRepo.ListChildren(ctx, node.ID)
			if err != nil {
				yield(nil, err)
				return
			}

			for i := len(children) - 1; i >= 0; i-- {
				stack = append(stack, children[i])
			}
		}
	}
}

// GetAccount retrieves an account by ID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, id string) (*domain.LedgerAccount, error) {
	return uc.accountRepo.GetByID(ctx, id)
}

// ListAccounts lists accounts.
func (uc *AccountUseCase) ListAccounts(ctx context.Context, limit, offset int) ([]*domain.LedgerAccount, error) {
	limit = clampLimit(limit)
	return uc.accountRepo.List(ctx, limit, offset)
}
