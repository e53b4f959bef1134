package services

import (
	"context"
	"time"

	"github.com/SscSPs/recurring_ledger/internal/core/domain"
)

// MaterializerSvc turns one due occurrence into a ledger transaction.
type MaterializerSvc interface {
	// Materialize creates the occurrence for (rule, occurrenceDate) or returns the
	// existing one with Created=false and nothing written.
	Materialize(ctx context.Context, rule domain.RecurrenceRule, occurrenceDate time.Time) (*domain.MaterializeResult, error)
}

// SchedulerSvc runs one pass of the recurrence engine.
type SchedulerSvc interface {
	// RunDue materializes every occurrence due on or before asOf.
	RunDue(ctx context.Context, asOf time.Time) (domain.RunSummary, error)
}
