package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestInSkipWindow(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC) }
	after, through := d(5), d(10)

	bounded := RecurrenceRule{SkipAfter: &after, SkipThrough: &through}
	assert.False(t, bounded.InSkipWindow(d(5)))
	assert.True(t, bounded.InSkipWindow(d(6)))
	assert.True(t, bounded.InSkipWindow(d(10)))
	assert.False(t, bounded.InSkipWindow(d(11)))

	open := RecurrenceRule{SkipThrough: &through}
	assert.True(t, open.InSkipWindow(d(1)))
	assert.False(t, RecurrenceRule{}.InSkipWindow(d(1)))
}

func TestHasAmountScale(t *testing.T) {
	assert.True(t, HasAmountScale(decimal.RequireFromString("12.3400")))
	assert.True(t, HasAmountScale(decimal.RequireFromString("0.0001")))
	assert.False(t, HasAmountScale(decimal.RequireFromString("0.00001")))
	assert.False(t, HasAmountScale(decimal.RequireFromString("1.23456")))
}
