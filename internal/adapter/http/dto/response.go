package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/corebank/ledgersvc/internal/domain"
)

// TransactionResponse represents a transaction in API responses.
type TransactionResponse struct {
	ID              string             `json:"id"`
	ExternalRef     string             `json:"external_ref,omitempty"`
	Type            string             `json:"type"`
	Status          string             `json:"status"`
	TotalAmount     decimal.Decimal    `json:"total_amount"`
	Currency        string             `json:"currency"`
	Description     string             `json:"description,omitempty"`
	InitiatedBy     string             `json:"initiated_by,omitempty"`
	AccountRef      string             `json:"account_ref,omitempty"`
	CategoryRef     string             `json:"category_ref,omitempty"`
	TransactionDate time.Time          `json:"transaction_date"`
	ValueDate       time.Time          `json:"value_date"`
	Metadata        map[string]any     `json:"metadata,omitempty"`
	Version         int64              `json:"version"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
	Legs            []*LegResponse     `json:"legs,omitempty"`
	Entries         []*EntryResponse   `json:"entries,omitempty"`
}

// LegResponse represents a transaction leg in API responses.
type LegResponse struct {
	ID                string          `json:"id"`
	TransactionID     string          `json:"transaction_id"`
	ExternalAccountID string          `json:"external_account_id"`
	ExternalSpace     string          `json:"external_space,omitempty"`
	LegType           string          `json:"leg_type"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	Description       string          `json:"description,omitempty"`
	ValueDate         time.Time       `json:"value_date"`
	BookingDate       time.Time       `json:"booking_date"`
	ReversalOfLegID   *string         `json:"reversal_of_leg_id,omitempty"`
}

// EntryResponse represents a ledger entry in API responses.
type EntryResponse struct {
	ID                string           `json:"id"`
	TransactionID     string           `json:"transaction_id"`
	AccountID         string           `json:"account_id"`
	Direction         string           `json:"direction"`
	Amount            decimal.Decimal  `json:"amount"`
	Currency          string           `json:"currency"`
	PostedAt          time.Time        `json:"posted_at"`
	ExchangeRate      *decimal.Decimal `json:"exchange_rate,omitempty"`
	CostCenter        string           `json:"cost_center,omitempty"`
	Note              string           `json:"note,omitempty"`
	ReversalOfEntryID *string          `json:"reversal_of_entry_id,omitempty"`
}

// StatusHistoryResponse represents one status-history row.
type StatusHistoryResponse struct {
	ID            string     `json:"id"`
	TransactionID string     `json:"transaction_id"`
	Status        string     `json:"status"`
	StartedAt     time.Time  `json:"started_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Regulatory    bool       `json:"regulatory"`
}

// AccountResponse represents a ledger account in API responses.
type AccountResponse struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	ParentID  *string   `json:"parent_id,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OutboxEventResponse represents an outbox event in API responses.
type OutboxEventResponse struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"created_at"`
	Processed     bool            `json:"processed"`
	ProcessedAt   *time.Time      `json:"processed_at,omitempty"`
	RetryCount    int             `json:"retry_count"`
	LastError     string          `json:"last_error,omitempty"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// TransactionFromDomain converts a domain transaction to a response.
func TransactionFromDomain(t *domain.Transaction) *TransactionResponse {
	resp := &TransactionResponse{
		ID:              t.ID,
		ExternalRef:     t.ExternalRef,
		Type:            string(t.Type),
		Status:          string(t.Status),
		TotalAmount:     t.TotalAmount,
		Currency:        t.Currency,
		Description:     t.Description,
		InitiatedBy:     t.InitiatedBy,
		AccountRef:      t.AccountRef,
		CategoryRef:     t.CategoryRef,
		TransactionDate: t.TransactionDate,
		ValueDate:       t.ValueDate,
		Metadata:        t.Metadata,
		Version:         t.Version,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}

	for _, leg := range t.Legs {
		resp.Legs = append(resp.Legs, LegFromDomain(leg))
	}
	for _, entry := range t.Entries {
		resp.Entries = append(resp.Entries, EntryFromDomain(entry))
	}

	return resp
}

// TransactionsFromDomain converts domain transactions to responses.
func TransactionsFromDomain(txns []*domain.Transaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(txns))
	for i, t := range txns {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// LegFromDomain converts a domain leg to a response.
func LegFromDomain(l *domain.TransactionLeg) *LegResponse {
	return &LegResponse{
		ID:                l.ID,
		TransactionID:     l.TransactionID,
		ExternalAccountID: l.ExternalAccountID,
		ExternalSpace:     l.ExternalSpace,
		LegType:           string(l.LegType),
		Amount:            l.Amount,
		Currency:          l.Currency,
		Description:       l.Description,
		ValueDate:         l.ValueDate,
		BookingDate:       l.BookingDate,
		ReversalOfLegID:   l.ReversalOfLegID,
	}
}

// EntryFromDomain converts a domain entry to a response.
func EntryFromDomain(e *domain.LedgerEntry) *EntryResponse {
	return &EntryResponse{
		ID:                e.ID,
		TransactionID:     e.TransactionID,
		AccountID:         e.AccountID,
		Direction:         string(e.Direction),
		Amount:            e.Amount,
		Currency:          e.Currency,
		PostedAt:          e.PostedAt,
		ExchangeRate:      e.ExchangeRate,
		CostCenter:        e.CostCenter,
		Note:              e.Note,
		ReversalOfEntryID: e.ReversalOfEntryID,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.LedgerEntry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// StatusHistoryFromDomain converts history rows to responses.
func StatusHistoryFromDomain(rows []*domain.TransactionStatusHistory) []*StatusHistoryResponse {
	result := make([]*StatusHistoryResponse, len(rows))
	for i, row := range rows {
		result[i] = &StatusHistoryResponse{
			ID:            row.ID,
			TransactionID: row.TransactionID,
			Status:        string(row.Status),
			StartedAt:     row.StartedAt,
			EndedAt:       row.EndedAt,
			Reason:        row.Reason,
			Regulatory:    row.Regulatory,
		}
	}
	return result
}

// AccountFromDomain converts a domain account to a response.
func AccountFromDomain(a *domain.LedgerAccount) *AccountResponse {
	return &AccountResponse{
		ID:        a.ID,
		Code:      a.Code,
		Name:      a.Name,
		Type:      string(a.Type),
		ParentID:  a.ParentID,
		Active:    a.Active,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.LedgerAccount) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// OutboxEventFromDomain converts a domain outbox event to a response.
func OutboxEventFromDomain(e *domain.OutboxEvent) *OutboxEventResponse {
	return &OutboxEventResponse{
		ID:            e.ID,
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		EventType:     e.EventType,
		Payload:       json.RawMessage(e.Payload),
		CreatedAt:     e.CreatedAt,
		Processed:     e.Processed,
		ProcessedAt:   e.ProcessedAt,
		RetryCount:    e.RetryCount,
		LastError:     e.LastError,
	}
}

// OutboxEventsFromDomain converts domain outbox events to responses.
func OutboxEventsFromDomain(events []*domain.OutboxEvent) []*OutboxEventResponse {
	result := make([]*OutboxEventResponse, len(events))
	for i, e := range events {
		result[i] = OutboxEventFromDomain(e)
	}
	return result
}
