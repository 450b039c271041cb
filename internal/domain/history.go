package domain

import "time"

// TransactionStatusHistory is the append-only log of status transitions.
// The single row with a nil EndedAt is the current status; Transaction.Status
// denormalizes it for fast reads and is written in the same unit of work.
type TransactionStatusHistory struct {
	ID            string
	TransactionID string
	Status        TransactionStatus
	StartedAt     time.Time
	EndedAt       *time.Time
	Reason        string
	Regulatory    bool
}
