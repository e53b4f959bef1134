package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/recurring_ledger/internal/apperrors"
	"github.com/SscSPs/recurring_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/recurring_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/recurring_ledger/internal/core/ports/services"
	"github.com/SscSPs/recurring_ledger/internal/dto"
	"github.com/SscSPs/recurring_ledger/internal/utils/calendar"
	"github.com/SscSPs/recurring_ledger/internal/utils/pagination"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
	maxUpcoming     = 100
)

type ruleService struct {
	BaseService
	ruleRepo       portsrepo.RuleRepositoryFacade
	occurrenceRepo portsrepo.OccurrenceReader
	accountRepo    portsrepo.AccountReader
	validate       *validator.Validate
}

// RuleServiceOption is a functional option for configuring the rule service
type RuleServiceOption func(*ruleService)

// WithRuleClock overrides the clock used for audit timestamps and resume decisions.
func WithRuleClock(now func() time.Time) RuleServiceOption {
	return func(s *ruleService) {
		s.Now = now
	}
}

// NewRuleService creates the service behind the rule endpoints.
func NewRuleService(ruleRepo portsrepo.RuleRepositoryFacade, occurrenceRepo portsrepo.OccurrenceReader, accountRepo portsrepo.AccountReader, options ...RuleServiceOption) portssvc.RuleSvcFacade {
	v := validator.New()
	// Share the tag gin binds with, so requests built outside HTTP get the same checks.
	v.SetTagName("binding")
	svc := &ruleService{
		ruleRepo:       ruleRepo,
		occurrenceRepo: occurrenceRepo,
		accountRepo:    accountRepo,
		validate:       v,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.RuleSvcFacade = (*ruleService)(nil)

func (s *ruleService) CreateRule(ctx context.Context, req dto.CreateRuleRequest, userID string) (*domain.RecurrenceRule, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	start, err := parseDate(req.StartDate, "startDate")
	if err != nil {
		return nil, err
	}
	var end *time.Time
	if req.EndDate != nil {
		e, err := parseDate(*req.EndDate, "endDate")
		if err != nil {
			return nil, err
		}
		end = &e
	}

	now := s.CurrentTime()
	rule := domain.RecurrenceRule{
		RuleID:       uuid.NewString(),
		UserID:       userID,
		AccountID:    req.AccountID,
		CategoryID:   req.CategoryID,
		Description:  req.Description,
		Direction:    req.Direction,
		Amount:       req.Amount,
		CurrencyCode: strings.ToUpper(req.CurrencyCode),
		Frequency:    req.Frequency,
		StartDate:    start,
		EndDate:      end,
		NextDue:      start,
		Status:       domain.StatusActive,
		Version:      1,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkAccount(ctx, rule); err != nil {
		return nil, err
	}

	if err := s.ruleRepo.SaveRule(ctx, rule); err != nil {
		s.LogError(ctx, err, "Failed to save recurrence rule", slog.String("rule_id", rule.RuleID))
		return nil, fmt.Errorf("failed to create rule: %w", err)
	}

	s.LogInfo(ctx, "Recurrence rule created",
		slog.String("rule_id", rule.RuleID),
		slog.String("frequency", string(rule.Frequency)),
		slog.String("next_due", rule.NextDue.Format(time.DateOnly)))
	return &rule, nil
}

func (s *ruleService) UpdateRule(ctx context.Context, ruleID string, req dto.UpdateRuleRequest, userID string) (*domain.RecurrenceRule, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	rule, err := s.GetRule(ctx, ruleID, userID)
	if err != nil {
		return nil, err
	}
	if rule.Status == domain.StatusCancelled {
		return nil, fmt.Errorf("%w: cancelled rules cannot be edited", apperrors.ErrInvalidTransition)
	}
	if req.Version != nil && *req.Version != rule.Version {
		return nil, fmt.Errorf("%w: rule is at version %d, request expected %d", apperrors.ErrConflict, rule.Version, *req.Version)
	}

	if req.AccountID != nil {
		rule.AccountID = *req.AccountID
	}
	if req.CategoryID != nil {
		rule.CategoryID = req.CategoryID
	}
	if req.Description != nil {
		rule.Description = *req.Description
	}
	if req.Direction != nil {
		rule.Direction = *req.Direction
	}
	if req.Amount != nil {
		rule.Amount = *req.Amount
	}
	if req.CurrencyCode != nil {
		rule.CurrencyCode = strings.ToUpper(*req.CurrencyCode)
	}
	if req.Frequency != nil {
		rule.Frequency = *req.Frequency
	}
	if req.StartDate != nil {
		start, err := parseDate(*req.StartDate, "startDate")
		if err != nil {
			return nil, err
		}
		if !start.Equal(rule.StartDate) {
			count, err := s.occurrenceRepo.CountOccurrencesByRule(ctx, rule.RuleID)
			if err != nil {
				return nil, fmt.Errorf("failed to count occurrences for rule %s: %w", rule.RuleID, err)
			}
			if count > 0 {
				return nil, fmt.Errorf("%w: start date cannot change after occurrences were generated", apperrors.ErrValidation)
			}
			rule.StartDate = start
			rule.NextDue = start
		}
	}
	switch {
	case req.ClearEndDate:
		rule.EndDate = nil
	case req.EndDate != nil:
		end, err := parseDate(*req.EndDate, "endDate")
		if err != nil {
			return nil, err
		}
		rule.EndDate = &end
	}

	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if req.AccountID != nil || req.CurrencyCode != nil {
		if err := s.checkAccount(ctx, *rule); err != nil {
			return nil, err
		}
	}
	// An end date moved before the pending occurrence leaves nothing to generate.
	if rule.PastEnd(rule.NextDue) {
		rule.Status = domain.StatusCancelled
	}

	if err := s.save(ctx, rule, userID); err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Recurrence rule updated",
		slog.String("rule_id", rule.RuleID),
		slog.String("status", string(rule.Status)),
		slog.Int64("version", rule.Version))
	return rule, nil
}

func (s *ruleService) GetRule(ctx context.Context, ruleID string, userID string) (*domain.RecurrenceRule, error) {
	rule, err := s.ruleRepo.FindRuleByID(ctx, ruleID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find rule", slog.String("rule_id", ruleID))
		}
		return nil, err
	}
	if err := s.EnsureOwner(ctx, rule.UserID, userID, "rule"); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *ruleService) ListRules(ctx context.Context, userID string, params dto.ListRulesParams) ([]domain.RecurrenceRule, error) {
	var status *domain.RuleStatus
	if params.Status != "" {
		st := domain.RuleStatus(strings.ToUpper(params.Status))
		if !st.IsValid() {
			return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrValidation, params.Status)
		}
		status = &st
	}
	limit := clampLimit(params.Limit)

	rules, err := s.ruleRepo.ListRulesByUser(ctx, userID, status, limit, max(params.Offset, 0))
	if err != nil {
		s.LogError(ctx, err, "Failed to list rules", slog.String("user_id", userID))
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	if rules == nil {
		return []domain.RecurrenceRule{}, nil
	}
	return rules, nil
}

func (s *ruleService) ListOccurrences(ctx context.Context, ruleID string, userID string, params dto.ListOccurrencesParams) (*dto.ListOccurrencesResponse, error) {
	if _, err := s.GetRule(ctx, ruleID, userID); err != nil {
		return nil, err
	}

	var after *time.Time
	if params.NextToken != nil && *params.NextToken != "" {
		d, err := pagination.DecodeToken(*params.NextToken)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		after = &d
	}
	limit := clampLimit(params.Limit)

	// One extra row tells us whether another page exists.
	occs, err := s.occurrenceRepo.ListOccurrencesByRule(ctx, ruleID, limit+1, after)
	if err != nil {
		s.LogError(ctx, err, "Failed to list occurrences", slog.String("rule_id", ruleID))
		return nil, fmt.Errorf("failed to list occurrences: %w", err)
	}

	resp := &dto.ListOccurrencesResponse{}
	if len(occs) > limit {
		occs = occs[:limit]
		token := pagination.EncodeToken(occs[len(occs)-1].OccurrenceDate)
		resp.NextToken = &token
	}
	resp.Occurrences = dto.ToListOccurrenceResponse(occs)
	return resp, nil
}

func (s *ruleService) UpcomingOccurrences(ctx context.Context, ruleID string, userID string, count int) ([]time.Time, error) {
	rule, err := s.GetRule(ctx, ruleID, userID)
	if err != nil {
		return nil, err
	}
	if count <= 0 || count > maxUpcoming {
		return nil, fmt.Errorf("%w: count must be between 1 and %d", apperrors.ErrValidation, maxUpcoming)
	}
	if rule.Status == domain.StatusCancelled {
		return []time.Time{}, nil
	}
	return projectOccurrences(*rule, count), nil
}

func (s *ruleService) PauseRule(ctx context.Context, ruleID string, userID string) (*domain.RecurrenceRule, error) {
	return s.transition(ctx, ruleID, userID, domain.StatusPaused, func(rule *domain.RecurrenceRule) {
		today := calendar.DateOf(s.CurrentTime())
		rule.PausedAt = &today
	})
}

// ResumeRule reactivates a PAUSED or ERROR rule. The frozen next due date and
// any dates owed from before the pause are still generated; later dates up to
// today fell inside the paused window and are skipped.
func (s *ruleService) ResumeRule(ctx context.Context, ruleID string, userID string) (*domain.RecurrenceRule, error) {
	return s.transition(ctx, ruleID, userID, domain.StatusActive, func(rule *domain.RecurrenceRule) {
		if rule.Status == domain.StatusPaused {
			closePausedWindow(rule, calendar.DateOf(s.CurrentTime()))
		}
		rule.PausedAt = nil
		rule.SuspendedReason = ""
	})
}

// closePausedWindow records (max(PausedAt, NextDue), today] as the rule's skip
// window. Rules paused before PausedAt was tracked use NextDue alone.
func closePausedWindow(rule *domain.RecurrenceRule, today time.Time) {
	from := rule.NextDue
	if rule.PausedAt != nil && rule.PausedAt.After(from) {
		from = *rule.PausedAt
	}
	if !from.Before(today) {
		return
	}
	rule.SkipAfter = &from
	rule.SkipThrough = &today
}

func (s *ruleService) CancelRule(ctx context.Context, ruleID string, userID string) (*domain.RecurrenceRule, error) {
	return s.transition(ctx, ruleID, userID, domain.StatusCancelled, nil)
}

// transition applies a lifecycle change; prepare runs before the status flips.
func (s *ruleService) transition(ctx context.Context, ruleID, userID string, to domain.RuleStatus, prepare func(*domain.RecurrenceRule)) (*domain.RecurrenceRule, error) {
	rule, err := s.GetRule(ctx, ruleID, userID)
	if err != nil {
		return nil, err
	}
	from := rule.Status
	if !from.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidTransition, from, to)
	}
	if prepare != nil {
		prepare(rule)
	}
	rule.Status = to

	if err := s.save(ctx, rule, userID); err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Recurrence rule status changed",
		slog.String("rule_id", rule.RuleID),
		slog.String("from", string(from)),
		slog.String("to", string(to)))
	return rule, nil
}

// save writes rule conditionally on its version and mirrors the bump on success.
func (s *ruleService) save(ctx context.Context, rule *domain.RecurrenceRule, userID string) error {
	rule.LastUpdatedAt = s.CurrentTime()
	rule.LastUpdatedBy = userID
	if err := s.ruleRepo.UpdateRule(ctx, *rule); err != nil {
		if !errors.Is(err, apperrors.ErrConflict) {
			s.LogError(ctx, err, "Failed to update rule", slog.String("rule_id", rule.RuleID))
		}
		return err
	}
	rule.Version++
	return nil
}

// checkAccount requires the rule's account to exist, belong to the rule's user,
// be active and use the rule's currency.
func (s *ruleService) checkAccount(ctx context.Context, rule domain.RecurrenceRule) error {
	account, err := s.accountRepo.FindAccountByID(ctx, rule.AccountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: account %s not found", apperrors.ErrValidation, rule.AccountID)
		}
		return fmt.Errorf("failed to load account %s: %w", rule.AccountID, err)
	}
	if account.UserID != rule.UserID {
		return fmt.Errorf("%w: account %s not found", apperrors.ErrValidation, rule.AccountID)
	}
	if !account.IsActive {
		return fmt.Errorf("%w: account %s is inactive", apperrors.ErrValidation, rule.AccountID)
	}
	if !strings.EqualFold(account.CurrencyCode, rule.CurrencyCode) {
		return fmt.Errorf("%w: rule currency %s does not match account currency %s",
			apperrors.ErrValidation, rule.CurrencyCode, account.CurrencyCode)
	}
	return nil
}

func parseDate(value, field string) (time.Time, error) {
	d, err := time.Parse(dto.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", apperrors.ErrValidation, field)
	}
	return calendar.DateOf(d), nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	return min(limit, maxPageSize)
}
