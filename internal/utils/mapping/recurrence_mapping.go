package mapping

import (
	"time"

	"github.com/SscSPs/recurring_ledger/internal/core/domain"
	"github.com/SscSPs/recurring_ledger/internal/models"
	"github.com/SscSPs/recurring_ledger/internal/utils/calendar"
)

// ToModelRule converts a domain RecurrenceRule to a model RecurrenceRule
func ToModelRule(d domain.RecurrenceRule) models.RecurrenceRule {
	m := models.RecurrenceRule{
		RuleID:       d.RuleID,
		UserID:       d.UserID,
		AccountID:    d.AccountID,
		CategoryID:   d.CategoryID,
		Description:  d.Description,
		Direction:    string(d.Direction),
		Amount:       d.Amount,
		CurrencyCode: d.CurrencyCode,
		Frequency:    string(d.Frequency),
		StartDate:    d.StartDate,
		EndDate:      d.EndDate,
		NextDue:      d.NextDue,
		PausedAt:     d.PausedAt,
		SkipAfter:    d.SkipAfter,
		SkipThrough:  d.SkipThrough,
		Status:       string(d.Status),
		Version:      d.Version,
		AuditFields:  toModelAudit(d.AuditFields),
	}
	if d.SuspendedReason != "" {
		reason := d.SuspendedReason
		m.SuspendedReason = &reason
	}
	return m
}

// ToDomainRule converts a model RecurrenceRule to a domain RecurrenceRule.
// Dates are normalized to midnight UTC regardless of how the driver decoded them.
func ToDomainRule(m models.RecurrenceRule) domain.RecurrenceRule {
	d := domain.RecurrenceRule{
		RuleID:       m.RuleID,
		UserID:       m.UserID,
		AccountID:    m.AccountID,
		CategoryID:   m.CategoryID,
		Description:  m.Description,
		Direction:    domain.Direction(m.Direction),
		Amount:       m.Amount,
		CurrencyCode: m.CurrencyCode,
		Frequency:    domain.Frequency(m.Frequency),
		StartDate:    calendar.DateOf(m.StartDate),
		EndDate:      datePtr(m.EndDate),
		NextDue:      calendar.DateOf(m.NextDue),
		PausedAt:     datePtr(m.PausedAt),
		SkipAfter:    datePtr(m.SkipAfter),
		SkipThrough:  datePtr(m.SkipThrough),
		Status:       domain.RuleStatus(m.Status),
		Version:      m.Version,
		AuditFields:  toDomainAudit(m.AuditFields),
	}
	if m.SuspendedReason != nil {
		d.SuspendedReason = *m.SuspendedReason
	}
	return d
}

// ToModelOccurrence converts a domain MaterializedOccurrence to its model
func ToModelOccurrence(d domain.MaterializedOccurrence) models.MaterializedOccurrence {
	return models.MaterializedOccurrence{
		OccurrenceID:   d.OccurrenceID,
		RuleID:         d.RuleID,
		OccurrenceDate: d.OccurrenceDate,
		UserID:         d.UserID,
		AccountID:      d.AccountID,
		CategoryID:     d.CategoryID,
		Description:    d.Description,
		Direction:      string(d.Direction),
		Amount:         d.Amount,
		CurrencyCode:   d.CurrencyCode,
		BalanceAfter:   d.BalanceAfter,
		CreatedAt:      d.CreatedAt,
	}
}

// ToDomainOccurrence converts a model MaterializedOccurrence to its domain type
func ToDomainOccurrence(m models.MaterializedOccurrence) domain.MaterializedOccurrence {
	return domain.MaterializedOccurrence{
		OccurrenceID:   m.OccurrenceID,
		RuleID:         m.RuleID,
		OccurrenceDate: calendar.DateOf(m.OccurrenceDate),
		UserID:         m.UserID,
		AccountID:      m.AccountID,
		CategoryID:     m.CategoryID,
		Description:    m.Description,
		Direction:      domain.Direction(m.Direction),
		Amount:         m.Amount,
		CurrencyCode:   m.CurrencyCode,
		BalanceAfter:   m.BalanceAfter,
		CreatedAt:      m.CreatedAt,
	}
}

func datePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := calendar.DateOf(*t)
	return &d
}
