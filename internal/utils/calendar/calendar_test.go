package calendar

import (
	"testing"
	"time"

	"github.com/SscSPs/recurring_ledger/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNext(t *testing.T) {
	tests := []struct {
		name      string
		date      time.Time
		frequency domain.Frequency
		want      time.Time
	}{
		{"daily", day(2024, 2, 28), domain.Daily, day(2024, 2, 29)},
		{"daily across year", day(2023, 12, 31), domain.Daily, day(2024, 1, 1)},
		{"weekly", day(2024, 2, 26), domain.Weekly, day(2024, 3, 4)},
		{"monthly plain", day(2024, 1, 15), domain.Monthly, day(2024, 2, 15)},
		{"monthly clamps in leap year", day(2024, 1, 31), domain.Monthly, day(2024, 2, 29)},
		{"monthly clamps in common year", day(2023, 1, 31), domain.Monthly, day(2023, 2, 28)},
		{"monthly to 30 day month", day(2024, 3, 31), domain.Monthly, day(2024, 4, 30)},
		{"monthly december rolls year", day(2024, 12, 31), domain.Monthly, day(2025, 1, 31)},
		{"yearly plain", day(2024, 6, 1), domain.Yearly, day(2025, 6, 1)},
		{"yearly leap day clamps", day(2024, 2, 29), domain.Yearly, day(2025, 2, 28)},
		{"unknown frequency", day(2024, 1, 1), domain.Frequency("HOURLY"), time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Next(tt.date, tt.frequency))
		})
	}
}

func TestNextAnchored_KeepsAnchorDayAfterClamp(t *testing.T) {
	anchor := day(2024, 1, 31)
	d := anchor
	var got []time.Time
	for i := 0; i < 4; i++ {
		d = NextAnchored(d, domain.Monthly, anchor)
		got = append(got, d)
	}
	assert.Equal(t, []time.Time{
		day(2024, 2, 29),
		day(2024, 3, 31),
		day(2024, 4, 30),
		day(2024, 5, 31),
	}, got)
}

func TestNextAnchored_LeapDayYearly(t *testing.T) {
	anchor := day(2024, 2, 29)
	d := anchor
	var got []time.Time
	for i := 0; i < 4; i++ {
		d = NextAnchored(d, domain.Yearly, anchor)
		got = append(got, d)
	}
	assert.Equal(t, []time.Time{
		day(2025, 2, 28),
		day(2026, 2, 28),
		day(2027, 2, 28),
		day(2028, 2, 29),
	}, got)
}

func TestNext_IsDeterministic(t *testing.T) {
	d := day(2024, 1, 31)
	assert.Equal(t, Next(d, domain.Monthly), Next(d, domain.Monthly))
}

func TestDateOf_UsesOwnLocation(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	// 2024-03-01 02:00 in UTC+10 is still Feb 29 in UTC.
	ts := time.Date(2024, 3, 1, 2, 0, 0, 0, loc)
	assert.Equal(t, day(2024, 3, 1), DateOf(ts))
	assert.Equal(t, day(2024, 2, 29), DateOf(ts.UTC()))
}

func TestSequence(t *testing.T) {
	got := Sequence(day(2024, 1, 15), domain.Monthly, day(2024, 1, 15), day(2024, 3, 15), 10)
	assert.Equal(t, []time.Time{day(2024, 1, 15), day(2024, 2, 15), day(2024, 3, 15)}, got)

	limited := Sequence(day(2024, 1, 1), domain.Daily, day(2024, 1, 1), time.Time{}, 3)
	assert.Len(t, limited, 3)

	assert.Empty(t, Sequence(day(2024, 1, 1), domain.Frequency("X"), day(2024, 1, 1), time.Time{}, 0))
}

func TestDaysIn(t *testing.T) {
	assert.Equal(t, 29, DaysIn(2024, time.February))
	assert.Equal(t, 28, DaysIn(2100, time.February))
	assert.Equal(t, 29, DaysIn(2000, time.February))
	assert.Equal(t, 31, DaysIn(2024, time.December))
}
