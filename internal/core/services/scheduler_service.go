package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SscSPs/recurring_ledger/internal/apperrors"
	"github.com/SscSPs/recurring_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/recurring_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/recurring_ledger/internal/core/ports/services"
	"github.com/SscSPs/recurring_ledger/internal/utils/calendar"
	"golang.org/x/sync/errgroup"
)

const (
	defaultRuleTimeout = 30 * time.Second
	defaultMaxWorkers  = 4
	defaultBatchSize   = 500
	defaultMaxCatchUp  = 1000
	// statusWriteTimeout bounds cancel/suspend writes, which run outside the rule's own timeout.
	statusWriteTimeout = 5 * time.Second
)

type schedulerService struct {
	BaseService
	ruleRepo     portsrepo.RuleRepositoryFacade
	materializer portssvc.MaterializerSvc
	ruleTimeout  time.Duration
	maxWorkers   int
	batchSize    int
	maxCatchUp   int
}

// SchedulerOption is a functional option for configuring the scheduler service
type SchedulerOption func(*schedulerService)

// WithRuleTimeout bounds the time spent on a single rule per pass.
func WithRuleTimeout(d time.Duration) SchedulerOption {
	return func(s *schedulerService) {
		if d > 0 {
			s.ruleTimeout = d
		}
	}
}

// WithMaxWorkers sets how many rules are materialized concurrently.
func WithMaxWorkers(n int) SchedulerOption {
	return func(s *schedulerService) {
		if n > 0 {
			s.maxWorkers = n
		}
	}
}

// WithBatchSize sets how many due rules are loaded per page.
func WithBatchSize(n int) SchedulerOption {
	return func(s *schedulerService) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithMaxCatchUp caps how many occurrences of one rule a single pass generates.
func WithMaxCatchUp(n int) SchedulerOption {
	return func(s *schedulerService) {
		if n > 0 {
			s.maxCatchUp = n
		}
	}
}

// NewSchedulerService creates the service that runs scheduler passes.
func NewSchedulerService(ruleRepo portsrepo.RuleRepositoryFacade, materializer portssvc.MaterializerSvc, options ...SchedulerOption) portssvc.SchedulerSvc {
	svc := &schedulerService{
		ruleRepo:     ruleRepo,
		materializer: materializer,
		ruleTimeout:  defaultRuleTimeout,
		maxWorkers:   defaultMaxWorkers,
		batchSize:    defaultBatchSize,
		maxCatchUp:   defaultMaxCatchUp,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.SchedulerSvc = (*schedulerService)(nil)

// ruleOutcome is what processing one rule contributed to the pass.
type ruleOutcome struct {
	materialized, already, cancelled, suspended, failed int
}

func (s *schedulerService) RunDue(ctx context.Context, asOf time.Time) (domain.RunSummary, error) {
	summary := domain.RunSummary{AsOf: asOf}
	cutoff := calendar.DateOf(asOf)

	// Rules are paged by (next_due, rule_id). A rule advanced by this pass can
	// sort again past the cursor; seen keeps it to one visit per pass.
	seen := make(map[string]struct{})
	var cursor *domain.DueCursor
	for ctx.Err() == nil {
		rules, err := s.ruleRepo.ListDueRules(ctx, cutoff, cursor, s.batchSize)
		if err != nil {
			s.LogError(ctx, err, "Failed to load due rules")
			return summary, fmt.Errorf("failed to load due rules: %w", err)
		}
		if len(rules) == 0 {
			break
		}
		last := rules[len(rules)-1]
		cursor = &domain.DueCursor{NextDue: last.NextDue, RuleID: last.RuleID}

		fresh := rules[:0:0]
		for _, rule := range rules {
			if _, ok := seen[rule.RuleID]; ok {
				continue
			}
			seen[rule.RuleID] = struct{}{}
			fresh = append(fresh, rule)
		}
		s.processBatch(ctx, SelectDueWithLimit(fresh, asOf, s.maxCatchUp), &summary)

		if len(rules) < s.batchSize {
			break
		}
	}

	s.LogInfo(ctx, "Scheduler pass completed",
		slog.String("as_of", asOf.Format(time.RFC3339)),
		slog.Int("rules_selected", summary.RulesSelected),
		slog.Int("materialized", summary.Materialized),
		slog.Int("already_materialized", summary.AlreadyMaterialized),
		slog.Int("cancelled", summary.Cancelled),
		slog.Int("suspended", summary.Suspended),
		slog.Int("failed", summary.Failed))
	return summary, ctx.Err()
}

// processBatch materializes one page of due rules on the worker pool.
func (s *schedulerService) processBatch(ctx context.Context, due []domain.DueRule, summary *domain.RunSummary) {
	summary.RulesSelected += len(due)
	if len(due) == 0 {
		return
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(s.maxWorkers)
	for _, dr := range due {
		g.Go(func() error {
			out := s.processRule(ctx, dr)
			mu.Lock()
			summary.Materialized += out.materialized
			summary.AlreadyMaterialized += out.already
			summary.Cancelled += out.cancelled
			summary.Suspended += out.suspended
			summary.Failed += out.failed
			mu.Unlock()
			// Rules are independent; one failing never stops the others.
			return nil
		})
	}
	_ = g.Wait()
}

// processRule materializes one rule's dates in ascending order under its own timeout.
// It stops at the first error; whatever is left stays due for the next pass.
func (s *schedulerService) processRule(ctx context.Context, dr domain.DueRule) ruleOutcome {
	var out ruleOutcome
	rctx, cancel := context.WithTimeout(ctx, s.ruleTimeout)
	defer cancel()

	rule := dr.Rule
	for _, date := range dr.Dates {
		res, err := s.materializer.Materialize(rctx, rule, date)
		if err != nil {
			s.handleFailure(ctx, rule, date, err, &out)
			return out
		}
		if res.Created {
			out.materialized++
			if res.Rule.Status == domain.StatusCancelled {
				out.cancelled++
			}
		} else {
			out.already++
		}
		rule = res.Rule
	}

	if dr.Exhausted && rule.Status == domain.StatusActive {
		if err := s.cancelExhausted(ctx, rule); err != nil {
			if !errors.Is(err, apperrors.ErrConflict) {
				out.failed++
			}
			return out
		}
		out.cancelled++
	}
	return out
}

func (s *schedulerService) handleFailure(ctx context.Context, rule domain.RecurrenceRule, date time.Time, err error, out *ruleOutcome) {
	attrs := []any{
		slog.String("rule_id", rule.RuleID),
		slog.String("occurrence_date", date.Format(time.DateOnly)),
	}
	switch {
	case apperrors.IsBenign(err):
		s.LogDebug(ctx, "Occurrence skipped, rule moved on concurrently", append(attrs, slog.String("reason", err.Error()))...)
	case apperrors.IsTerminal(err):
		s.LogError(ctx, err, "Terminal failure materializing occurrence, suspending rule", attrs...)
		if serr := s.suspend(ctx, rule.RuleID, err); serr != nil {
			s.LogError(ctx, serr, "Failed to suspend rule", attrs...)
			out.failed++
			return
		}
		out.suspended++
	default:
		// Transient: nothing was persisted, the occurrence stays due.
		s.LogWarn(ctx, "Retryable failure materializing occurrence", append(attrs, slog.String("error", err.Error()))...)
		out.failed++
	}
}

// cancelExhausted marks a rule whose schedule ran past its end date as CANCELLED.
func (s *schedulerService) cancelExhausted(ctx context.Context, rule domain.RecurrenceRule) error {
	wctx, cancel := context.WithTimeout(ctx, statusWriteTimeout)
	defer cancel()

	rule.Status = domain.StatusCancelled
	rule.LastUpdatedAt = s.CurrentTime()
	rule.LastUpdatedBy = domain.SchedulerActor
	if err := s.ruleRepo.UpdateRule(wctx, rule); err != nil {
		s.LogWarn(ctx, "Failed to cancel exhausted rule", slog.String("rule_id", rule.RuleID), slog.String("error", err.Error()))
		return err
	}
	s.LogInfo(ctx, "Rule reached its end date and was cancelled", slog.String("rule_id", rule.RuleID))
	return nil
}

// suspend moves a rule to ERROR so it is excluded until a user corrects it.
func (s *schedulerService) suspend(ctx context.Context, ruleID string, cause error) error {
	wctx, cancel := context.WithTimeout(ctx, statusWriteTimeout)
	defer cancel()

	rule, err := s.ruleRepo.FindRuleByID(wctx, ruleID)
	if err != nil {
		return fmt.Errorf("failed to reload rule %s for suspension: %w", ruleID, err)
	}
	if !rule.Status.CanTransitionTo(domain.StatusError) {
		return nil
	}
	rule.Status = domain.StatusError
	rule.SuspendedReason = cause.Error()
	rule.LastUpdatedAt = s.CurrentTime()
	rule.LastUpdatedBy = domain.SchedulerActor
	return s.ruleRepo.UpdateRule(wctx, *rule)
}
