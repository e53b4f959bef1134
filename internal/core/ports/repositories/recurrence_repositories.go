package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/recurring_ledger/internal/core/domain"
)

// RuleReader defines read operations for recurrence rules.
type RuleReader interface {
	// FindRuleByID retrieves a rule by id.
	FindRuleByID(ctx context.Context, ruleID string) (*domain.RecurrenceRule, error)

	// ListRulesByUser lists a user's rules, optionally filtered by status, ordered by creation time.
	ListRulesByUser(ctx context.Context, userID string, status *domain.RuleStatus, limit int, offset int) ([]domain.RecurrenceRule, error)

	// ListDueRules returns ACTIVE rules whose next due date is on or before asOf,
	// ordered by (NextDue, RuleID) and starting strictly after the cursor when it is non-nil.
	ListDueRules(ctx context.Context, asOf time.Time, after *domain.DueCursor, limit int) ([]domain.RecurrenceRule, error)
}

// RuleWriter defines write operations for recurrence rules.
type RuleWriter interface {
	// SaveRule persists a new rule.
	SaveRule(ctx context.Context, rule domain.RecurrenceRule) error

	// UpdateRule overwrites the rule if its stored version still equals rule.Version,
	// and bumps the version. A mismatch yields apperrors.ErrConflict.
	UpdateRule(ctx context.Context, rule domain.RecurrenceRule) error
}

// RuleRepositoryFacade combines all rule-related repository interfaces
type RuleRepositoryFacade interface {
	RuleReader
	RuleWriter
}

// OccurrenceReader defines read operations for materialized occurrences.
type OccurrenceReader interface {
	// FindOccurrence returns the occurrence for (ruleID, date) or apperrors.ErrNotFound.
	FindOccurrence(ctx context.Context, ruleID string, occurrenceDate time.Time) (*domain.MaterializedOccurrence, error)

	// ListOccurrencesByRule lists occurrences in ascending date order, strictly after `after` when given.
	ListOccurrencesByRule(ctx context.Context, ruleID string, limit int, after *time.Time) ([]domain.MaterializedOccurrence, error)

	// CountOccurrencesByRule returns how many occurrences a rule has produced.
	CountOccurrencesByRule(ctx context.Context, ruleID string) (int, error)
}

// OccurrenceWriter defines the atomic materialization unit.
type OccurrenceWriter interface {
	// SaveOccurrence inserts the occurrence, applies the balance delta and advances
	// the rule in one atomic unit, returning the stored occurrence and the updated rule.
	// It re-reads the rule under lock and fails with ErrRuleNotActive or
	// ErrStaleOccurrence if the rule moved on, ErrConflict if the rule version
	// changed, ErrDuplicate if the (rule, date) pair already exists and
	// ErrAccountUnavailable if the balance update finds no usable account.
	// Nothing is persisted on any error.
	SaveOccurrence(ctx context.Context, write domain.OccurrenceWrite) (*domain.MaterializedOccurrence, *domain.RecurrenceRule, error)
}

// OccurrenceRepositoryFacade combines all occurrence-related repository interfaces
type OccurrenceRepositoryFacade interface {
	OccurrenceReader
	OccurrenceWriter
}
