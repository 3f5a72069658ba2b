package audit

import (
	"encoding/json"
	"log"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusSuccess             = "SUCCESS"
	StatusInsufficientBalance = "INSUFFICIENT_BALANCE"
	StatusRejected            = "REJECTED"
	StatusFailed              = "FAILED"
)

type Event struct {
	Timestamp     time.Time       `json:"timestamp"`
	EventType     string          `json:"event_type"`
	Reference     string          `json:"reference"`
	TransactionID int64           `json:"transaction_id,omitempty"`
	AccountID     string          `json:"account_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	Details       any             `json:"details,omitempty"`
}

// Logger writes one JSON line per audited event to the process log
type Logger struct {
	out *log.Logger
	now func() time.Time
}

func NewLogger() *Logger {
	return &Logger{out: log.Default(), now: time.Now}
}

// NewLoggerTo writes audit lines to the given logger instead of the default one
func NewLoggerTo(out *log.Logger) *Logger {
	return &Logger{out: out, now: time.Now}
}

func (a *Logger) LogTransfer(reference string, transactionID int64, fromAccount, toAccount string, amount decimal.Decimal, status string) {
	a.log(Event{
		EventType:     "TRANSFER",
		Reference:     reference,
		TransactionID: transactionID,
		AccountID:     fromAccount,
		Amount:        amount,
		Status:        status,
		Details: map[string]string{
			"from_account": fromAccount,
			"to_account":   toAccount,
		},
	})
}

func (a *Logger) LogError(reference, accountID string, err error) {
	a.log(Event{
		EventType: "ERROR",
		Reference: reference,
		AccountID: accountID,
		Status:    StatusFailed,
		Details:   map[string]string{"error": err.Error()},
	})
}

func (a *Logger) log(event Event) {
	event.Timestamp = a.now()
	data, _ := json.Marshal(event)
	a.out.Printf("AUDIT: %s", string(data))
}
