package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/corebank/ledgersvc/internal/domain"
	"github.com/corebank/ledgersvc/internal/usecase"
)

// PostTransactionRequest represents a request to post a transaction.
type PostTransactionRequest struct {
	TransactionID   string           `json:"transaction_id,omitempty"`
	ExternalRef     string           `json:"external_ref"`
	Type            string           `json:"type"`
	Currency        string           `json:"currency,omitempty"`
	Description     string           `json:"description,omitempty"`
	InitiatedBy     string           `json:"initiated_by,omitempty"`
	AccountRef      string           `json:"account_ref,omitempty"`
	CategoryRef     string           `json:"category_ref,omitempty"`
	Metadata        map[string]any   `json:"metadata,omitempty"`
	TransactionDate *time.Time       `json:"transaction_date,omitempty"`
	ValueDate       *time.Time       `json:"value_date,omitempty"`
	Legs            []PostLegRequest `json:"legs"`
}

// PostLegRequest represents a single leg in a posting request.
type PostLegRequest struct {
	ExternalAccountID string           `json:"external_account_id"`
	ExternalSpace     string           `json:"external_space,omitempty"`
	LedgerAccountID   string           `json:"ledger_account_id"`
	LegType           string           `json:"leg_type"`
	Amount            decimal.Decimal  `json:"amount"`
	Currency          string           `json:"currency"`
	Description       string           `json:"description,omitempty"`
	ValueDate         *time.Time       `json:"value_date,omitempty"`
	ExchangeRate      *decimal.Decimal `json:"exchange_rate,omitempty"`
	CostCenter        string           `json:"cost_center,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *PostTransactionRequest) ToUseCaseInput() usecase.PostInput {
	legs := make([]usecase.PostLegInput, len(r.Legs))
	for i, l := range r.Legs {
		legs[i] = usecase.PostLegInput{
			ExternalAccountID: l.ExternalAccountID,
			ExternalSpace:     l.ExternalSpace,
			LedgerAccountID:   l.LedgerAccountID,
			LegType:           domain.LegType(l.LegType),
			Amount:            l.Amount,
			Currency:          l.Currency,
			Description:       l.Description,
			ValueDate:         l.ValueDate,
			ExchangeRate:      l.ExchangeRate,
			CostCenter:        l.CostCenter,
		}
	}

	return usecase.PostInput{
		TransactionID:   r.TransactionID,
		ExternalRef:     r.ExternalRef,
		Type:            domain.TransactionType(r.Type),
		Currency:        r.Currency,
		Description:     r.Description,
		InitiatedBy:     r.InitiatedBy,
		AccountRef:      r.AccountRef,
		CategoryRef:     r.CategoryRef,
		Metadata:        r.Metadata,
		TransactionDate: r.TransactionDate,
		ValueDate:       r.ValueDate,
		Legs:            legs,
	}
}

// ReasonRequest carries the reason for a lifecycle transition.
type ReasonRequest struct {
	Reason string `json:"reason,omitempty"`
}

// CreateAccountRequest represents a request to create a ledger account.
type CreateAccountRequest struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	ParentID *string `json:"parent_id,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput() usecase.CreateAccountInput {
	return usecase.CreateAccountInput{
		Code:     r.Code,
		Name:     r.Name,
		Type:     domain.AccountType(r.Type),
		ParentID: r.ParentID,
	}
}

// AttachParentRequest represents a request to reparent an account.
type AttachParentRequest struct {
	ParentID string `json:"parent_id"`
}
