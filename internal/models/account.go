package models

import (
	"github.com/shopspring/decimal"
)

// Account represents a row of the accounts table.
type Account struct {
	AccountID    string          `db:"account_id"`
	UserID       string          `db:"user_id"`
	Name         string          `db:"name"`
	CurrencyCode string          `db:"currency_code"`
	IsActive     bool            `db:"is_active"`
	Balance      decimal.Decimal `db:"balance"`
	AuditFields
}
