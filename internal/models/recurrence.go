package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecurrenceRule represents a row of the recurrence_rules table.
// Date columns are DATE; nullable columns use pointers.
type RecurrenceRule struct {
	RuleID          string          `db:"rule_id"`
	UserID          string          `db:"user_id"`
	AccountID       string          `db:"account_id"`
	CategoryID      *string         `db:"category_id"`
	Description     string          `db:"description"`
	Direction       string          `db:"direction"`
	Amount          decimal.Decimal `db:"amount"`
	CurrencyCode    string          `db:"currency_code"`
	Frequency       string          `db:"frequency"`
	StartDate       time.Time       `db:"start_date"`
	EndDate         *time.Time      `db:"end_date"`
	NextDue         time.Time       `db:"next_due"`
	PausedAt        *time.Time      `db:"paused_at"`
	SkipAfter       *time.Time      `db:"skip_after"`
	SkipThrough     *time.Time      `db:"skip_through"`
	Status          string          `db:"status"`
	SuspendedReason *string         `db:"suspended_reason"`
	Version         int64           `db:"version"`
	AuditFields
}

// MaterializedOccurrence represents a row of the materialized_occurrences table.
type MaterializedOccurrence struct {
	OccurrenceID   string          `db:"occurrence_id"`
	RuleID         string          `db:"rule_id"`
	OccurrenceDate time.Time       `db:"occurrence_date"`
	UserID         string          `db:"user_id"`
	AccountID      string          `db:"account_id"`
	CategoryID     *string         `db:"category_id"`
	Description    string          `db:"description"`
	Direction      string          `db:"direction"`
	Amount         decimal.Decimal `db:"amount"`
	CurrencyCode   string          `db:"currency_code"`
	BalanceAfter   decimal.Decimal `db:"balance_after"`
	CreatedAt      time.Time       `db:"created_at"`
}
