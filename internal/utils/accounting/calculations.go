package accounting

import (
	"fmt"

	"github.com/SscSPs/recurring_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// SignedAmount turns a rule's positive amount into the delta applied to the
// account balance. CREDIT increases the balance, DEBIT decreases it.
func SignedAmount(direction domain.Direction, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be positive, got %s", amount.String())
	}
	switch direction {
	case domain.Credit:
		return amount, nil
	case domain.Debit:
		return amount.Neg(), nil
	default:
		return decimal.Zero, fmt.Errorf("unknown direction '%s'", direction)
	}
}

// NetEffect sums the signed deltas of a set of occurrences.
func NetEffect(occurrences []domain.MaterializedOccurrence) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, occ := range occurrences {
		signed, err := SignedAmount(occ.Direction, occ.Amount)
		if err != nil {
			return decimal.Zero, fmt.Errorf("occurrence %s: %w", occ.OccurrenceID, err)
		}
		sum = sum.Add(signed)
	}
	return sum, nil
}
