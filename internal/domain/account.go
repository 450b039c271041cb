package domain

import (
	"fmt"
	"strings"
	"time"
)

// AccountType classifies a ledger account in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeIncome    AccountType = "income"
	AccountTypeExpense   AccountType = "expense"
)

// Valid reports whether the account type is one of the five classes.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity,
		AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

// LedgerAccount is a node in the chart-of-accounts tree. ParentID is a
// back-reference, not an ownership pointer; acyclicity is validated on every
// reparent by walking the ancestor chain.
type LedgerAccount struct {
	ID        string
	Code      string
	Name      string
	Type      AccountType
	ParentID  *string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks structural fields of an account.
func (a *LedgerAccount) Validate() error {
	if strings.TrimSpace(a.Code) == "" {
		return fmt.Errorf("%w: code is required", ErrInvalidAccount)
	}

	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidAccount)
	}

	if !a.Type.Valid() {
		return fmt.Errorf("%w: unknown account type %q", ErrInvalidAccount, a.Type)
	}

	if a.ParentID != nil && *a.ParentID == a.ID {
		return &CycleError{AccountID: a.ID, ParentID: *a.ParentID}
	}

	return nil
}
