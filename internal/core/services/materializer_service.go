package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/recurring_ledger/internal/apperrors"
	"github.com/SscSPs/recurring_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/recurring_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/recurring_ledger/internal/core/ports/services"
	"github.com/SscSPs/recurring_ledger/internal/utils/accounting"
	"github.com/SscSPs/recurring_ledger/internal/utils/calendar"
	"github.com/google/uuid"
)

// maxMaterializeAttempts bounds re-reads of a rule that changed under us.
const maxMaterializeAttempts = 3

type materializerService struct {
	BaseService
	ruleRepo       portsrepo.RuleReader
	occurrenceRepo portsrepo.OccurrenceRepositoryFacade
}

// MaterializerOption is a functional option for configuring the materializer
type MaterializerOption func(*materializerService)

// WithMaterializerClock overrides the clock used for audit timestamps.
func WithMaterializerClock(now func() time.Time) MaterializerOption {
	return func(s *materializerService) {
		s.Now = now
	}
}

// NewMaterializerService creates the service that writes occurrences.
func NewMaterializerService(ruleRepo portsrepo.RuleReader, occurrenceRepo portsrepo.OccurrenceRepositoryFacade, options ...MaterializerOption) portssvc.MaterializerSvc {
	svc := &materializerService{
		ruleRepo:       ruleRepo,
		occurrenceRepo: occurrenceRepo,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.MaterializerSvc = (*materializerService)(nil)

func (s *materializerService) Materialize(ctx context.Context, rule domain.RecurrenceRule, occurrenceDate time.Time) (*domain.MaterializeResult, error) {
	occurrenceDate = calendar.DateOf(occurrenceDate)

	for attempt := 1; ; attempt++ {
		existing, err := s.findExisting(ctx, rule, occurrenceDate)
		if err != nil || existing != nil {
			return existing, err
		}

		write, err := s.buildWrite(rule, occurrenceDate)
		if err != nil {
			return nil, err
		}

		occ, updated, err := s.occurrenceRepo.SaveOccurrence(ctx, write)
		switch {
		case err == nil:
			s.LogInfo(ctx, "Occurrence materialized",
				slog.String("rule_id", rule.RuleID),
				slog.String("occurrence_date", occurrenceDate.Format(time.DateOnly)),
				slog.String("next_due", updated.NextDue.Format(time.DateOnly)),
				slog.String("status", string(updated.Status)))
			return &domain.MaterializeResult{Occurrence: *occ, Created: true, Rule: *updated}, nil

		case apperrors.IsBenign(err):
			// Lost the race to another writer, which may also have advanced or
			// cancelled the rule; if the occurrence exists, theirs is the record.
			existing, ferr := s.findExisting(ctx, rule, occurrenceDate)
			if ferr != nil {
				return nil, ferr
			}
			if existing != nil {
				return existing, nil
			}
			if errors.Is(err, apperrors.ErrDuplicate) {
				return nil, fmt.Errorf("occurrence for rule %s on %s reported duplicate but not found: %w",
					rule.RuleID, occurrenceDate.Format(time.DateOnly), apperrors.ErrConflict)
			}
			return nil, err

		case errors.Is(err, apperrors.ErrConflict) && attempt < maxMaterializeAttempts:
			// The rule was edited or advanced since it was read; re-derive from the stored row.
			fresh, ferr := s.ruleRepo.FindRuleByID(ctx, rule.RuleID)
			if ferr != nil {
				return nil, fmt.Errorf("failed to reload rule %s after conflict: %w", rule.RuleID, ferr)
			}
			s.LogDebug(ctx, "Rule changed during materialization, retrying",
				slog.String("rule_id", rule.RuleID),
				slog.Int64("stale_version", rule.Version),
				slog.Int64("current_version", fresh.Version))
			rule = *fresh

		default:
			return nil, err
		}
	}
}

// findExisting returns a non-nil result when (rule, date) is already materialized.
func (s *materializerService) findExisting(ctx context.Context, rule domain.RecurrenceRule, date time.Time) (*domain.MaterializeResult, error) {
	occ, err := s.occurrenceRepo.FindOccurrence(ctx, rule.RuleID, date)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check existing occurrence for rule %s: %w", rule.RuleID, err)
	}
	return &domain.MaterializeResult{Occurrence: *occ, Created: false, Rule: rule}, nil
}

func (s *materializerService) buildWrite(rule domain.RecurrenceRule, date time.Time) (domain.OccurrenceWrite, error) {
	signed, err := accounting.SignedAmount(rule.Direction, rule.Amount)
	if err != nil {
		return domain.OccurrenceWrite{}, fmt.Errorf("%w: rule %s: %v", apperrors.ErrValidation, rule.RuleID, err)
	}
	next := nextOccurrence(rule, date)
	if next.IsZero() {
		return domain.OccurrenceWrite{}, fmt.Errorf("%w: rule %s has unsupported frequency %q", apperrors.ErrValidation, rule.RuleID, rule.Frequency)
	}
	now := s.CurrentTime()
	return domain.OccurrenceWrite{
		Occurrence: domain.MaterializedOccurrence{
			OccurrenceID:   uuid.NewString(),
			RuleID:         rule.RuleID,
			OccurrenceDate: date,
			UserID:         rule.UserID,
			AccountID:      rule.AccountID,
			CategoryID:     rule.CategoryID,
			Description:    rule.Description,
			Direction:      rule.Direction,
			Amount:         rule.Amount,
			CurrencyCode:   rule.CurrencyCode,
			CreatedAt:      now,
		},
		RuleVersion:      rule.Version,
		SignedAmount:     signed,
		NextDue:          next,
		ClearSkipWindow: rule.SkipThrough != nil && next.After(*rule.SkipThrough),
		Cancel:           rule.PastEnd(next),
		Now:              now,
	}, nil
}
