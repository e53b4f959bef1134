package domain

import (
	"github.com/shopspring/decimal"
)

// Account is the ledger account a recurrence rule posts to.
// The recurrence engine only reads it and applies balance deltas.
type Account struct {
	AccountID    string          `json:"accountID"`
	UserID       string          `json:"userID"` // Owning user
	Name         string          `json:"name"`
	CurrencyCode string          `json:"currencyCode"`
	IsActive     bool            `json:"isActive"`
	Balance      decimal.Decimal `json:"balance"`
	AuditFields
}
