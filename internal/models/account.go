package models

import (
	"github.com/shopspring/decimal"
)

// Currency is the stored currency tag of an account. No conversion is ever performed.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyTRY Currency = "TRY"
	CurrencyRUB Currency = "RUB"
)

// PartyType distinguishes private persons from legal entities
type PartyType string

const (
	PartyPerson PartyType = "PER"
	PartyEntity PartyType = "ENT"
)

// Account is a balance-bearing payment account owned by one user
type Account struct {
	ID       string          `json:"id" db:"id"`
	OwnerID  int64           `json:"ownerId" db:"owner_id"`
	Balance  decimal.Decimal `json:"balance" db:"balance"` // NUMERIC(19,2), never negative
	Currency Currency        `json:"currency" db:"currency"`
	Party    PartyType       `json:"party" db:"party"`
}

// CanDebit reports whether amount can leave the account without driving it negative.
func (a *Account) CanDebit(amount decimal.Decimal) bool {
	return !a.Balance.Sub(amount).IsNegative()
}
