package services

import (
	"time"

	"github.com/SscSPs/recurring_ledger/internal/core/domain"
	"github.com/SscSPs/recurring_ledger/internal/utils/calendar"
)

// SelectDue returns, for every ACTIVE rule whose next due date is on or before
// asOf's calendar date, all missed occurrence dates in ascending order.
// PAUSED, CANCELLED and ERROR rules are never selected.
func SelectDue(rules []domain.RecurrenceRule, asOf time.Time) []domain.DueRule {
	return SelectDueWithLimit(rules, asOf, 0)
}

// SelectDueWithLimit is SelectDue capped at maxPerRule dates per rule
// (0 means unlimited). Dates beyond the cap are picked up on a later pass.
func SelectDueWithLimit(rules []domain.RecurrenceRule, asOf time.Time, maxPerRule int) []domain.DueRule {
	cutoff := calendar.DateOf(asOf)
	var due []domain.DueRule
	for _, rule := range rules {
		if !rule.Selectable() || rule.NextDue.After(cutoff) {
			continue
		}
		dr := domain.DueRule{Rule: rule}
		for d := rule.NextDue; !d.After(cutoff); d = nextOccurrence(rule, d) {
			if d.IsZero() {
				break
			}
			if rule.PastEnd(d) {
				dr.Exhausted = true
				break
			}
			dr.Dates = append(dr.Dates, d)
			if maxPerRule > 0 && len(dr.Dates) >= maxPerRule {
				break
			}
		}
		if len(dr.Dates) > 0 || dr.Exhausted {
			due = append(due, dr)
		}
	}
	return due
}

// nextOccurrence is the date after occurrence for this rule: anchored on the
// start date and skipping any dates that fell inside a paused window.
func nextOccurrence(rule domain.RecurrenceRule, occurrence time.Time) time.Time {
	next := calendar.NextAnchored(occurrence, rule.Frequency, rule.StartDate)
	for !next.IsZero() && rule.InSkipWindow(next) {
		next = calendar.NextAnchored(next, rule.Frequency, rule.StartDate)
	}
	return next
}

// projectOccurrences lists up to count dates from the rule's next due date,
// stopping at the end date.
func projectOccurrences(rule domain.RecurrenceRule, count int) []time.Time {
	dates := make([]time.Time, 0, count)
	for d := rule.NextDue; len(dates) < count; d = nextOccurrence(rule, d) {
		if d.IsZero() || rule.PastEnd(d) {
			break
		}
		dates = append(dates, d)
	}
	return dates
}
