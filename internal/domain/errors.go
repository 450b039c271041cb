package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// Account errors
	ErrAccountNotFound = errors.New("ledger account not found")
	ErrAccountInactive = errors.New("ledger account is inactive")
	ErrDuplicateCode   = errors.New("ledger account code already exists")
	ErrParentNotFound  = errors.New("parent ledger account not found")
	ErrInvalidAccount  = errors.New("invalid ledger account")

	// Posting errors
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrNoLegs              = errors.New("posting requires at least two legs")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrUnsupportedCurrency = errors.New("unsupported currency code")
	ErrAmountScale         = errors.New("amount precision exceeds currency minor units")
	ErrInvalidLegType      = errors.New("leg type must be DEBIT or CREDIT")
	ErrAlreadyPosted       = errors.New("transaction already posted")
	ErrConcurrentUpdate    = errors.New("transaction status changed concurrently")
)

// UnbalancedPostingError reports a currency group whose debit and credit sums
// differ. Delta is debits minus credits.
type UnbalancedPostingError struct {
	Currency string
	Delta    decimal.Decimal
}

func (e *UnbalancedPostingError) Error() string {
	return fmt.Sprintf("unbalanced posting: currency %s debits exceed credits by %s", e.Currency, e.Delta)
}

// InvalidTransitionError reports a status transition outside the state table.
type InvalidTransitionError struct {
	From TransactionStatus
	To   TransactionStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition: %s -> %s", e.From, e.To)
}

// CycleError reports a chart-of-accounts reparent that would make an account
// its own ancestor.
type CycleError struct {
	AccountID string
	ParentID  string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("attaching account %s under %s would create a cycle", e.AccountID, e.ParentID)
}

// SerializationError wraps a failure to serialize an outbox payload. A state
// change must never commit without the event announcing it, so this aborts
// the whole unit of work.
type SerializationError struct {
	EventType string
	Err       error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("cannot serialize outbox payload for %s: %v", e.EventType, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }
