package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LegType is the side of a double-entry leg.
type LegType string

const (
	LegTypeDebit  LegType = "DEBIT"
	LegTypeCredit LegType = "CREDIT"
)

// Valid reports whether the leg type is DEBIT or CREDIT.
func (t LegType) Valid() bool {
	return t == LegTypeDebit || t == LegTypeCredit
}

// Opposite returns the other side, used when building reversal legs.
func (t LegType) Opposite() LegType {
	if t == LegTypeDebit {
		return LegTypeCredit
	}
	return LegTypeDebit
}

// TransactionLeg is one side of a posting expressed against an external
// customer account. Legs are append-only: corrections are new offsetting
// legs referencing the original via ReversalOfLegID.
type TransactionLeg struct {
	ID                string
	TransactionID     string
	ExternalAccountID string
	ExternalSpace     string
	LegType           LegType
	Amount            decimal.Decimal
	Currency          string
	Description       string
	ValueDate         time.Time
	BookingDate       time.Time
	ReversalOfLegID   *string
}

// Validate checks a single leg's fields against the posting input rules.
func (l *TransactionLeg) Validate() error {
	if !l.LegType.Valid() {
		return ErrInvalidLegType
	}

	return ValidateAmount(l.Amount, l.Currency)
}

// CheckBalanced groups legs by currency and verifies that debit and credit
// sums match exactly per group. Comparison is fixed-point decimal, never
// floating point. Returns an UnbalancedPostingError naming the first
// offending currency and the debit-minus-credit delta.
func CheckBalanced(legs []*TransactionLeg) error {
	type sums struct {
		debit  decimal.Decimal
		credit decimal.Decimal
	}

	byCurrency := make(map[string]*sums)
	order := make([]string, 0, 2)

	for _, leg := range legs {
		s, ok := byCurrency[leg.Currency]
		if !ok {
			s = &sums{debit: decimal.Zero, credit: decimal.Zero}
			byCurrency[leg.Currency] = s
			order = append(order, leg.Currency)
		}

		switch leg.LegType {
		case LegTypeDebit:
			s.debit = s.debit.Add(leg.Amount)
		case LegTypeCredit:
			s.credit = s.credit.Add(leg.Amount)
		}
	}

	for _, currency := range order {
		s := byCurrency[currency]
		if !s.debit.Equal(s.credit) {
			return &UnbalancedPostingError{
				Currency: currency,
				Delta:    s.debit.Sub(s.credit),
			}
		}
	}

	return nil
}
