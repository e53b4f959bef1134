package mapping

import (
	"testing"
	"time"

	"github.com/SscSPs/recurring_ledger/internal/core/domain"
	"github.com/SscSPs/recurring_ledger/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToDomainRule_NormalizesDates(t *testing.T) {
	// Some drivers hand DATE columns back in the session time zone.
	loc := time.FixedZone("UTC+5", 5*3600)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, loc)
	reason := "account unavailable"
	pausedAt := time.Date(2024, 2, 10, 0, 0, 0, 0, loc)

	d := ToDomainRule(models.RecurrenceRule{
		RuleID:          "r1",
		Direction:       "DEBIT",
		Amount:          decimal.RequireFromString("12.50"),
		Frequency:       "MONTHLY",
		StartDate:       time.Date(2024, 1, 31, 0, 0, 0, 0, loc),
		EndDate:         &end,
		NextDue:         time.Date(2024, 2, 29, 0, 0, 0, 0, loc),
		SkipAfter:       &pausedAt,
		Status:          "ERROR",
		SuspendedReason: &reason,
		Version:         7,
	})

	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), d.StartDate)
	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), *d.EndDate)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), d.NextDue)
	assert.Equal(t, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), *d.SkipAfter)
	assert.Nil(t, d.SkipThrough)
	assert.Nil(t, d.PausedAt)
	assert.Equal(t, domain.StatusError, d.Status)
	assert.Equal(t, domain.Debit, d.Direction)
	assert.Equal(t, reason, d.SuspendedReason)
	assert.Equal(t, int64(7), d.Version)
}

func TestToModelRule_EmptyReasonIsNull(t *testing.T) {
	m := ToModelRule(domain.RecurrenceRule{RuleID: "r1", Status: domain.StatusActive})
	assert.Nil(t, m.SuspendedReason)

	m = ToModelRule(domain.RecurrenceRule{RuleID: "r1", Status: domain.StatusError, SuspendedReason: "boom"})
	if assert.NotNil(t, m.SuspendedReason) {
		assert.Equal(t, "boom", *m.SuspendedReason)
	}
}

func TestToDomainAccount_AuditTimesInUTC(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*3600)
	created := time.Date(2024, 3, 1, 21, 0, 0, 0, loc)

	d := ToDomainAccount(models.Account{
		AccountID:   "acc-1",
		AuditFields: models.AuditFields{CreatedAt: created, LastUpdatedAt: created, CreatedBy: "u1"},
	})

	assert.Equal(t, time.UTC, d.CreatedAt.Location())
	assert.True(t, created.Equal(d.CreatedAt))
	assert.Equal(t, "u1", d.CreatedBy)
}
