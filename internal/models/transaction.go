package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is an append-only record of one completed transfer.
// Only Seen is ever updated after insert.
type Transaction struct {
	ID                 int64           `json:"id" db:"id"`
	CreatedAt          time.Time       `json:"createdAt" db:"created_at"`
	SenderAccountID    string          `json:"senderAccountId" db:"sender_id"`
	RecipientAccountID string          `json:"recipientAccountId" db:"recipient_id"`
	Amount             decimal.Decimal `json:"amount" db:"amount"`
	MediaRef           string          `json:"mediaRef,omitempty" db:"media_ref"`
	Seen               bool            `json:"seen" db:"seen"`
}

// TransactionSummary is a transaction joined with its participants for display
type TransactionSummary struct {
	ID               int64           `json:"id"`
	CreatedAt        time.Time       `json:"createdAt"`
	Date             string          `json:"date,omitempty"`
	SenderOwnerID    int64           `json:"-"`
	RecipientOwnerID int64           `json:"-"`
	SenderName       string          `json:"senderName"`
	RecipientName    string          `json:"recipientName"`
	Amount           decimal.Decimal `json:"amount" swaggertype:"string"`
	MediaRef         string          `json:"mediaRef,omitempty"`
	MediaURL         string          `json:"mediaUrl,omitempty"`
}

// ParticipantPair holds the owning users of the two sides of a transaction
type ParticipantPair struct {
	SenderOwnerID    int64
	RecipientOwnerID int64
}

// TransferCompletedEvent is published after a transfer commits
type TransferCompletedEvent struct {
	EventID            string          `json:"eventId"`
	Reference          string          `json:"reference"`
	TransactionID      int64           `json:"transactionId"`
	SenderAccountID    string          `json:"senderAccountId"`
	RecipientAccountID string          `json:"recipientAccountId"`
	Amount             decimal.Decimal `json:"amount"`
	HasMedia           bool            `json:"hasMedia"`
	OccurredAt         time.Time       `json:"occurredAt"`
}
