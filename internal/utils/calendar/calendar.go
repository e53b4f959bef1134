// Package calendar computes recurrence dates. Every function is pure: the same
// inputs always produce the same date, so catch-up loops are reproducible.
package calendar

import (
	"time"

	"github.com/SscSPs/recurring_ledger/internal/core/domain"
)

// DateOf truncates t to its calendar date, taken in t's own location, and
// returns that date as midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Next returns the occurrence following date for the frequency, using date's
// own day-of-month as the anchor. Jan 31 + MONTHLY is Feb 28 (or 29), never Mar 3.
func Next(date time.Time, frequency domain.Frequency) time.Time {
	return NextAnchored(date, frequency, date)
}

// NextAnchored returns the occurrence following date, clamping MONTHLY and
// YEARLY results toward the anchor's day (and month, for YEARLY). Keeping the
// anchor stops a schedule that once clamped (Jan 31 -> Feb 29) from drifting:
// the month after Feb 29 is Mar 31, not Mar 29.
//
// An unknown frequency returns the zero time.
func NextAnchored(date time.Time, frequency domain.Frequency, anchor time.Time) time.Time {
	date = DateOf(date)
	switch frequency {
	case domain.Daily:
		return date.AddDate(0, 0, 1)
	case domain.Weekly:
		return date.AddDate(0, 0, 7)
	case domain.Monthly:
		y, m, _ := date.Date()
		return clamped(y, m+1, anchor.Day())
	case domain.Yearly:
		return clamped(date.Year()+1, anchor.Month(), anchor.Day())
	default:
		return time.Time{}
	}
}

// clamped builds year-month-day, pulling day back to the month's last day when
// the month is shorter. month may overflow (13 -> January next year).
func clamped(year int, month time.Month, day int) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := DaysIn(first.Year(), first.Month())
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// Sequence returns up to limit dates starting at from (inclusive), each derived
// from the previous with NextAnchored, stopping once a date is after until.
// A zero until means no upper bound.
func Sequence(from time.Time, frequency domain.Frequency, anchor, until time.Time, limit int) []time.Time {
	var dates []time.Time
	for d := DateOf(from); len(dates) < limit; d = NextAnchored(d, frequency, anchor) {
		if d.IsZero() || (!until.IsZero() && d.After(until)) {
			break
		}
		dates = append(dates, d)
	}
	return dates
}
