package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/recurring_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// AccountReader defines read operations for account data
type AccountReader interface {
	// FindAccountByID retrieves a specific account by its unique identifier.
	FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error)
}

// AccountWriter defines write operations for account data
type AccountWriter interface {
	// SaveAccount persists a new account.
	SaveAccount(ctx context.Context, account domain.Account) error

	// ApplyDelta atomically adds delta to the balance and returns the updated account.
	// Missing or inactive accounts yield apperrors.ErrAccountUnavailable.
	ApplyDelta(ctx context.Context, accountID string, delta decimal.Decimal, userID string, now time.Time) (*domain.Account, error)

	// DeactivateAccount marks an account inactive. Already inactive accounts yield apperrors.ErrValidation.
	DeactivateAccount(ctx context.Context, accountID string, userID string, now time.Time) error
}

// AccountRepositoryFacade combines all account-related repository interfaces
type AccountRepositoryFacade interface {
	AccountReader
	AccountWriter
}
