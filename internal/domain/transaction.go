package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType enumerates the payment rails a transaction can arrive on.
// Rail-specific validation happens upstream; here the type is descriptive.
type TransactionType string

const (
	TransactionTypeACH           TransactionType = "ACH"
	TransactionTypeCard          TransactionType = "CARD"
	TransactionTypeSEPA          TransactionType = "SEPA"
	TransactionTypeWire          TransactionType = "WIRE"
	TransactionTypeDirectDebit   TransactionType = "DIRECT_DEBIT"
	TransactionTypeStandingOrder TransactionType = "STANDING_ORDER"
	TransactionTypeDeposit       TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal    TransactionType = "WITHDRAWAL"
	TransactionTypeFee           TransactionType = "FEE"
	TransactionTypeInterest      TransactionType = "INTEREST"
)

// TransactionStatus is the lifecycle state of a transaction. The value on
// Transaction is a denormalized copy of the open status-history row and is
// only ever written alongside it.
type TransactionStatus string

const (
	StatusInitiated TransactionStatus = "INITIATED"
	StatusPosted    TransactionStatus = "POSTED"
	StatusSettled   TransactionStatus = "SETTLED"
	StatusReversed  TransactionStatus = "REVERSED"
	StatusCancelled TransactionStatus = "CANCELLED"
	StatusFailed    TransactionStatus = "FAILED"
)

// statusTransitions is the full edge table of the lifecycle state machine.
// REVERSED, CANCELLED and FAILED are terminal.
var statusTransitions = map[TransactionStatus][]TransactionStatus{
	StatusInitiated: {StatusPosted, StatusCancelled, StatusFailed},
	StatusPosted:    {StatusSettled, StatusReversed},
	StatusSettled:   {StatusReversed},
}

// CanTransitionTo reports whether the edge from -> to exists.
func (from TransactionStatus) CanTransitionTo(to TransactionStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns an InvalidTransitionError for edges outside the
// state table.
func ValidateTransition(from, to TransactionStatus) error {
	if !from.CanTransitionTo(to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}

// Terminal reports whether no further transitions are possible.
func (s TransactionStatus) Terminal() bool {
	return len(statusTransitions[s]) == 0
}

// Transaction is the aggregate header for a double-entry posting. It owns a
// set of legs (the external customer-account view) and ledger entries (the
// internal chart-of-accounts view).
type Transaction struct {
	ID              string
	ExternalRef     string
	Type            TransactionType
	Status          TransactionStatus
	TotalAmount     decimal.Decimal
	Currency        string
	Description     string
	InitiatedBy     string
	AccountRef      string
	CategoryRef     string
	TransactionDate time.Time
	ValueDate       time.Time
	Metadata        map[string]any
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Legs    []*TransactionLeg
	Entries []*LedgerEntry
}
