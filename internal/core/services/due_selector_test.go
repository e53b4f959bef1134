package services_test

import (
	"testing"
	"time"

	"github.com/SscSPs/recurring_ledger/internal/core/domain"
	"github.com/SscSPs/recurring_ledger/internal/core/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ruleWith(id string, freq domain.Frequency, start time.Time) domain.RecurrenceRule {
	return domain.RecurrenceRule{
		RuleID:       id,
		UserID:       "user-1",
		AccountID:    "acc-1",
		Direction:    domain.Debit,
		Amount:       decimal.NewFromInt(10),
		CurrencyCode: "USD",
		Frequency:    freq,
		StartDate:    start,
		NextDue:      start,
		Status:       domain.StatusActive,
		Version:      1,
	}
}

func TestSelectDue_CatchUpIsAnchoredOnStartDate(t *testing.T) {
	rule := ruleWith("r1", domain.Monthly, day(2024, 1, 31))

	due := services.SelectDue([]domain.RecurrenceRule{rule}, day(2024, 4, 30))

	require.Len(t, due, 1)
	assert.Equal(t, []time.Time{day(2024, 1, 31), day(2024, 2, 29), day(2024, 3, 31), day(2024, 4, 30)}, due[0].Dates)
	assert.False(t, due[0].Exhausted)
}

func TestSelectDue_IgnoresTimeOfDayAndLocation(t *testing.T) {
	rule := ruleWith("r1", domain.Daily, day(2024, 6, 1))
	tokyo := time.FixedZone("JST", 9*60*60)

	// 23:30 on June 2nd in Tokyo is still June 2nd for the calendar.
	due := services.SelectDue([]domain.RecurrenceRule{rule}, time.Date(2024, 6, 2, 23, 30, 0, 0, tokyo))

	require.Len(t, due, 1)
	assert.Equal(t, []time.Time{day(2024, 6, 1), day(2024, 6, 2)}, due[0].Dates)
}

func TestSelectDue_SkipsNonActiveAndFutureRules(t *testing.T) {
	active := ruleWith("active", domain.Weekly, day(2024, 1, 1))
	paused := ruleWith("paused", domain.Weekly, day(2024, 1, 1))
	paused.Status = domain.StatusPaused
	cancelled := ruleWith("cancelled", domain.Weekly, day(2024, 1, 1))
	cancelled.Status = domain.StatusCancelled
	errored := ruleWith("errored", domain.Weekly, day(2024, 1, 1))
	errored.Status = domain.StatusError
	future := ruleWith("future", domain.Weekly, day(2024, 3, 1))

	due := services.SelectDue([]domain.RecurrenceRule{active, paused, cancelled, errored, future}, day(2024, 1, 10))

	require.Len(t, due, 1)
	assert.Equal(t, "active", due[0].Rule.RuleID)
	assert.Equal(t, []time.Time{day(2024, 1, 1), day(2024, 1, 8)}, due[0].Dates)
}

func TestSelectDue_StopsAtEndDate(t *testing.T) {
	rule := ruleWith("r1", domain.Weekly, day(2024, 1, 1))
	end := day(2024, 1, 15)
	rule.EndDate = &end

	due := services.SelectDue([]domain.RecurrenceRule{rule}, day(2024, 2, 1))

	require.Len(t, due, 1)
	assert.Equal(t, []time.Time{day(2024, 1, 1), day(2024, 1, 8), day(2024, 1, 15)}, due[0].Dates)
	assert.True(t, due[0].Exhausted)
}

func TestSelectDue_ExhaustedWithNothingLeft(t *testing.T) {
	rule := ruleWith("r1", domain.Monthly, day(2024, 1, 1))
	end := day(2024, 1, 20)
	rule.EndDate = &end
	rule.NextDue = day(2024, 2, 1)

	due := services.SelectDue([]domain.RecurrenceRule{rule}, day(2024, 3, 1))

	require.Len(t, due, 1)
	assert.Empty(t, due[0].Dates)
	assert.True(t, due[0].Exhausted)
}

func TestSelectDue_SkipsPausedWindow(t *testing.T) {
	rule := ruleWith("r1", domain.Monthly, day(2024, 1, 1))
	rule.NextDue = day(2024, 2, 1)
	skip := day(2024, 5, 20)
	rule.SkipThrough = &skip

	due := services.SelectDue([]domain.RecurrenceRule{rule}, day(2024, 7, 2))

	require.Len(t, due, 1)
	assert.Equal(t, []time.Time{day(2024, 2, 1), day(2024, 6, 1), day(2024, 7, 1)}, due[0].Dates)
}

func TestSelectDue_KeepsDatesOwedBeforeThePause(t *testing.T) {
	rule := ruleWith("r1", domain.Daily, day(2024, 1, 1))
	pausedAt, resumed := day(2024, 1, 5), day(2024, 1, 10)
	rule.SkipAfter = &pausedAt
	rule.SkipThrough = &resumed

	due := services.SelectDue([]domain.RecurrenceRule{rule}, day(2024, 1, 12))

	require.Len(t, due, 1)
	assert.Equal(t, []time.Time{
		day(2024, 1, 1), day(2024, 1, 2), day(2024, 1, 3), day(2024, 1, 4), day(2024, 1, 5),
		day(2024, 1, 11), day(2024, 1, 12),
	}, due[0].Dates)
}

func TestSelectDueWithLimit_CapsDatesPerRule(t *testing.T) {
	rule := ruleWith("r1", domain.Daily, day(2024, 1, 1))

	due := services.SelectDueWithLimit([]domain.RecurrenceRule{rule}, day(2024, 12, 31), 10)

	require.Len(t, due, 1)
	assert.Len(t, due[0].Dates, 10)
	assert.Equal(t, day(2024, 1, 10), due[0].Dates[9])
	assert.False(t, due[0].Exhausted)
}

func TestSelectDue_IsPure(t *testing.T) {
	rule := ruleWith("r1", domain.Yearly, day(2020, 2, 29))
	rules := []domain.RecurrenceRule{rule}

	first := services.SelectDue(rules, day(2024, 3, 1))
	second := services.SelectDue(rules, day(2024, 3, 1))

	assert.Equal(t, first, second)
	assert.Equal(t, rule, rules[0])
	require.Len(t, first, 1)
	assert.Equal(t, []time.Time{day(2020, 2, 29), day(2021, 2, 28), day(2022, 2, 28), day(2023, 2, 28), day(2024, 2, 29)}, first[0].Dates)
}
