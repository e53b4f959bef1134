package services

import (
	"context"
	"time"

	"github.com/SscSPs/recurring_ledger/internal/core/domain"
	"github.com/SscSPs/recurring_ledger/internal/dto"
)

// RuleReaderSvc defines read operations on recurrence rules.
type RuleReaderSvc interface {
	// GetRule retrieves a rule owned by userID.
	GetRule(ctx context.Context, ruleID string, userID string) (*domain.RecurrenceRule, error)

	// ListRules lists userID's rules.
	ListRules(ctx context.Context, userID string, params dto.ListRulesParams) ([]domain.RecurrenceRule, error)

	// ListOccurrences returns a page of the rule's materialized occurrences, oldest first.
	ListOccurrences(ctx context.Context, ruleID string, userID string, params dto.ListOccurrencesParams) (*dto.ListOccurrencesResponse, error)

	// UpcomingOccurrences projects the next count dates without writing anything.
	UpcomingOccurrences(ctx context.Context, ruleID string, userID string, count int) ([]time.Time, error)
}

// RuleWriterSvc defines user-facing rule mutations.
type RuleWriterSvc interface {
	// CreateRule validates and stores a new ACTIVE rule with nextDue = startDate.
	CreateRule(ctx context.Context, req dto.CreateRuleRequest, userID string) (*domain.RecurrenceRule, error)

	// UpdateRule edits the user-settable terms of a rule.
	UpdateRule(ctx context.Context, ruleID string, req dto.UpdateRuleRequest, userID string) (*domain.RecurrenceRule, error)
}

// RuleLifecycleSvc moves rules through ACTIVE, PAUSED, ERROR and CANCELLED.
type RuleLifecycleSvc interface {
	PauseRule(ctx context.Context, ruleID string, userID string) (*domain.RecurrenceRule, error)
	ResumeRule(ctx context.Context, ruleID string, userID string) (*domain.RecurrenceRule, error)
	CancelRule(ctx context.Context, ruleID string, userID string) (*domain.RecurrenceRule, error)
}

// RuleSvcFacade combines all rule-related service interfaces
type RuleSvcFacade interface {
	RuleReaderSvc
	RuleWriterSvc
	RuleLifecycleSvc
}
