package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaterializedOccurrence is the ledger transaction generated for one due date of a rule.
// Financial fields are copied from the rule at materialization time so later rule
// edits never rewrite history. (RuleID, OccurrenceDate) is unique.
type MaterializedOccurrence struct {
	OccurrenceID   string          `json:"occurrenceID"`
	RuleID         string          `json:"ruleID"`
	OccurrenceDate time.Time       `json:"occurrenceDate"`
	UserID         string          `json:"userID"`
	AccountID      string          `json:"accountID"`
	CategoryID     *string         `json:"categoryID,omitempty"`
	Description    string          `json:"description"`
	Direction      Direction       `json:"direction"`
	Amount         decimal.Decimal `json:"amount"`
	CurrencyCode   string          `json:"currencyCode"`
	BalanceAfter   decimal.Decimal `json:"balanceAfter"` // Account balance right after this delta
	CreatedAt      time.Time       `json:"createdAt"`
}

// OccurrenceWrite is everything the store must apply atomically for one occurrence.
type OccurrenceWrite struct {
	Occurrence MaterializedOccurrence
	// RuleVersion is the rule version the write was derived from.
	RuleVersion int64
	// SignedAmount is added to the account balance.
	SignedAmount decimal.Decimal
	// NextDue is the rule's pointer after this occurrence.
	NextDue time.Time
	// ClearSkipWindow drops the paused window once NextDue has moved beyond it.
	ClearSkipWindow bool
	// Cancel flips the rule to CANCELLED because NextDue is past the end date.
	Cancel bool
	Now    time.Time
}

// DueRule is a rule together with the dates the selector found due for it.
type DueRule struct {
	Rule  RecurrenceRule
	Dates []time.Time // Ascending
	// Exhausted is set when the schedule ran past the end date; the rule
	// should be cancelled once Dates are materialized.
	Exhausted bool
}

// DueCursor is the position of the last rule of a due-rule page.
type DueCursor struct {
	NextDue time.Time
	RuleID  string
}

// Before reports whether rule sorts after the cursor. A nil cursor precedes every rule.
func (c *DueCursor) Before(rule RecurrenceRule) bool {
	if c == nil {
		return true
	}
	if rule.NextDue.Equal(c.NextDue) {
		return rule.RuleID > c.RuleID
	}
	return rule.NextDue.After(c.NextDue)
}

// RunSummary counts what one scheduler pass did.
type RunSummary struct {
	AsOf                time.Time `json:"asOf"`
	RulesSelected       int       `json:"rulesSelected"`
	Materialized        int       `json:"materialized"`
	AlreadyMaterialized int       `json:"alreadyMaterialized"`
	Cancelled           int       `json:"cancelled"`
	Suspended           int       `json:"suspended"`
	Failed              int       `json:"failed"`
}

// MaterializeResult is the outcome of materializing one occurrence.
type MaterializeResult struct {
	Occurrence MaterializedOccurrence
	// Created is false when the occurrence already existed and nothing was written.
	Created bool
	// Rule is the rule as it stands after the call.
	Rule RecurrenceRule
}
