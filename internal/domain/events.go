package domain

import "time"

// Event types
const (
	EventTypeTransactionPosted    = "TRANSACTION_POSTED"
	EventTypeTransactionSettled   = "TRANSACTION_SETTLED"
	EventTypeTransactionReversed  = "TRANSACTION_REVERSED"
	EventTypeTransactionCancelled = "TRANSACTION_CANCELLED"
	EventTypeTransactionFailed    = "TRANSACTION_FAILED"
	EventTypeAccountCreated       = "ACCOUNT_CREATED"
	EventTypeAccountReparented    = "ACCOUNT_REPARENTED"
)

// Aggregate types
const (
	AggregateTypeTransaction = "transaction"
	AggregateTypeAccount     = "ledger_account"
)

// OutboxEvent is a domain event captured in the same database transaction as
// the state change it describes. ID is a UUID and doubles as the idempotency
// key consumers de-duplicate on; delivery is at-least-once.
type OutboxEvent struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	Processed     bool
	ProcessedAt   *time.Time
	RetryCount    int
	LastError     string
	ClaimedAt     *time.Time
}

// TransactionPostedEvent is the payload for TRANSACTION_POSTED and carries
// the posted aggregate.
type TransactionPostedEvent struct {
	TransactionID string         `json:"transaction_id"`
	ExternalRef   string         `json:"external_ref"`
	Type          string         `json:"type"`
	Status        string         `json:"status"`
	TotalAmount   string         `json:"total_amount"`
	Currency      string         `json:"currency"`
	Legs          []PostedLeg    `json:"legs"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	PostedAt      string         `json:"posted_at"`
}

// PostedLeg is one leg inside a TransactionPostedEvent payload.
type PostedLeg struct {
	LegID             string `json:"leg_id"`
	ExternalAccountID string `json:"external_account_id"`
	LegType           string `json:"leg_type"`
	Amount            string `json:"amount"`
	Currency          string `json:"currency"`
}

// TransactionStatusEvent is the payload for settle/reverse/cancel/fail
// lifecycle events.
type TransactionStatusEvent struct {
	TransactionID string `json:"transaction_id"`
	FromStatus    string `json:"from_status"`
	ToStatus      string `json:"to_status"`
	Reason        string `json:"reason,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}

// AccountCreatedEvent is the payload for ACCOUNT_CREATED.
type AccountCreatedEvent struct {
	AccountID string  `json:"account_id"`
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	ParentID  *string `json:"parent_id,omitempty"`
}
