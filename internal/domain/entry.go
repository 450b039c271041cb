package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry is the internal chart-of-accounts counterpart of a leg: one
// immutable row per (transaction, account, side, amount, currency). Entries
// are never updated or deleted, only offset by new entries referencing the
// original.
type LedgerEntry struct {
	ID                string
	TransactionID     string
	AccountID         string
	Direction         LegType
	Amount            decimal.Decimal
	Currency          string
	PostedAt          time.Time
	ExchangeRate      *decimal.Decimal
	CostCenter        string
	Note              string
	ReversalOfEntryID *string
}
