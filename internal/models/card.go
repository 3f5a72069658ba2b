package models

import "time"

// Card is an addressing handle for an Account. It never carries a balance of its own.
type Card struct {
	ID             int64     `json:"id" db:"id"`
	AccountID      string    `json:"accountId" db:"account_id"`
	ExpirationDate time.Time `json:"expirationDate" db:"expiration_date"`
}
