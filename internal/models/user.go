package models

import "strings"

// User is the Telegram user owning accounts. ID is the Telegram id.
type User struct {
	ID        int64  `json:"id" db:"id"`
	Username  string `json:"username" db:"username"`
	FirstName string `json:"firstName" db:"first_name"`
	LastName  string `json:"lastName" db:"last_name"`
}

// FullName joins first and last name the way they are shown in transfer history
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
