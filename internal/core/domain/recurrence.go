package domain

import (
	"fmt"
	"time"

	"github.com/SscSPs/recurring_ledger/internal/apperrors"
	"github.com/shopspring/decimal"
)

// Frequency is the cadence of a recurrence rule.
type Frequency string

const (
	Daily   Frequency = "DAILY"
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
	Yearly  Frequency = "YEARLY"
)

// IsValid reports whether f is a supported frequency.
func (f Frequency) IsValid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// Direction says whether an occurrence adds money to or takes money from the account.
type Direction string

const (
	Credit Direction = "CREDIT"
	Debit  Direction = "DEBIT"
)

// IsValid reports whether d is a supported direction.
func (d Direction) IsValid() bool {
	return d == Credit || d == Debit
}

// RuleStatus is the lifecycle state of a recurrence rule.
type RuleStatus string

const (
	StatusActive    RuleStatus = "ACTIVE"
	StatusPaused    RuleStatus = "PAUSED"
	StatusCancelled RuleStatus = "CANCELLED"
	// StatusError marks a rule suspended by the scheduler after a terminal failure,
	// for example its account was removed. It is resumable once corrected.
	StatusError RuleStatus = "ERROR"
)

// IsValid reports whether s is a known status.
func (s RuleStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusCancelled, StatusError:
		return true
	}
	return false
}

var allowedTransitions = map[RuleStatus][]RuleStatus{
	StatusActive: {StatusPaused, StatusCancelled, StatusError},
	StatusPaused: {StatusActive, StatusCancelled},
	StatusError:  {StatusActive, StatusCancelled},
	// CANCELLED is terminal.
}

// CanTransitionTo reports whether the state machine allows moving from s to next.
func (s RuleStatus) CanTransitionTo(next RuleStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RecurrenceRule is a user's definition of a recurring transaction.
// All dates are calendar dates stored as midnight UTC.
type RecurrenceRule struct {
	RuleID       string          `json:"ruleID"`
	UserID       string          `json:"userID"`
	AccountID    string          `json:"accountID"`
	CategoryID   *string         `json:"categoryID,omitempty"`
	Description  string          `json:"description"`
	Direction    Direction       `json:"direction"`
	Amount       decimal.Decimal `json:"amount"` // Always positive; Direction carries the sign
	CurrencyCode string          `json:"currencyCode"`
	Frequency    Frequency       `json:"frequency"`
	StartDate    time.Time       `json:"startDate"`
	EndDate      *time.Time      `json:"endDate,omitempty"` // Inclusive
	NextDue      time.Time       `json:"nextDue"`           // Engine-owned
	// PausedAt is the date the rule was last paused; cleared on resume.
	PausedAt *time.Time `json:"pausedAt,omitempty"`
	// SkipAfter and SkipThrough bound the paused window (SkipAfter, SkipThrough]
	// left behind by a resume. Dates inside it are not generated; dates owed
	// from before the pause still are.
	SkipAfter       *time.Time `json:"skipAfter,omitempty"`
	SkipThrough     *time.Time `json:"skipThrough,omitempty"`
	Status          RuleStatus `json:"status"`
	SuspendedReason string     `json:"suspendedReason,omitempty"`
	// Version increases on every write; updates are conditional on it.
	Version int64 `json:"version"`
	AuditFields
}

// AmountScale is the number of decimal places an amount may carry.
const AmountScale = 4

// Validate checks the user-settable terms of the rule.
func (r RecurrenceRule) Validate() error {
	if !r.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", apperrors.ErrValidation)
	}
	if !HasAmountScale(r.Amount) {
		return fmt.Errorf("%w: amount supports at most %d decimal places", apperrors.ErrValidation, AmountScale)
	}
	if !r.Direction.IsValid() {
		return fmt.Errorf("%w: unknown direction %q", apperrors.ErrValidation, r.Direction)
	}
	if !r.Frequency.IsValid() {
		return fmt.Errorf("%w: unknown frequency %q", apperrors.ErrValidation, r.Frequency)
	}
	if len(r.CurrencyCode) != 3 {
		return fmt.Errorf("%w: currency code must be 3 letters", apperrors.ErrValidation)
	}
	if r.AccountID == "" {
		return fmt.Errorf("%w: account is required", apperrors.ErrValidation)
	}
	if r.StartDate.IsZero() {
		return fmt.Errorf("%w: start date is required", apperrors.ErrValidation)
	}
	if r.EndDate != nil && r.EndDate.Before(r.StartDate) {
		return fmt.Errorf("%w: end date %s is before start date %s", apperrors.ErrValidation,
			r.EndDate.Format(time.DateOnly), r.StartDate.Format(time.DateOnly))
	}
	return nil
}

// PastEnd reports whether date lies beyond the rule's inclusive end date.
func (r RecurrenceRule) PastEnd(date time.Time) bool {
	return r.EndDate != nil && date.After(*r.EndDate)
}

// InSkipWindow reports whether date fell inside the rule's paused window.
func (r RecurrenceRule) InSkipWindow(date time.Time) bool {
	if r.SkipThrough == nil || date.After(*r.SkipThrough) {
		return false
	}
	return r.SkipAfter == nil || date.After(*r.SkipAfter)
}

// HasAmountScale reports whether amount fits the stored precision without rounding.
func HasAmountScale(amount decimal.Decimal) bool {
	return amount.Equal(amount.Round(AmountScale))
}

// Selectable reports whether the scheduler may pick the rule up.
func (r RecurrenceRule) Selectable() bool {
	return r.Status == StatusActive
}
