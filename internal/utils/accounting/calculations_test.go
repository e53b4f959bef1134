package accounting

import (
	"testing"

	"github.com/SscSPs/recurring_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedAmount(t *testing.T) {
	amount := decimal.RequireFromString("12.50")

	credit, err := SignedAmount(domain.Credit, amount)
	require.NoError(t, err)
	assert.True(t, credit.Equal(amount))

	debit, err := SignedAmount(domain.Debit, amount)
	require.NoError(t, err)
	assert.True(t, debit.Equal(amount.Neg()))

	_, err = SignedAmount(domain.Direction("SIDEWAYS"), amount)
	assert.Error(t, err)

	_, err = SignedAmount(domain.Debit, decimal.Zero)
	assert.Error(t, err)
}

func TestNetEffect(t *testing.T) {
	occs := []domain.MaterializedOccurrence{
		{OccurrenceID: "a", Direction: domain.Credit, Amount: decimal.NewFromInt(100)},
		{OccurrenceID: "b", Direction: domain.Debit, Amount: decimal.RequireFromString("33.33")},
		{OccurrenceID: "c", Direction: domain.Debit, Amount: decimal.RequireFromString("33.33")},
	}
	net, err := NetEffect(occs)
	require.NoError(t, err)
	assert.Equal(t, "33.34", net.StringFixed(2))
}
