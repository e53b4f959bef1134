package dto

import (
	"time"

	"github.com/SscSPs/recurring_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = time.DateOnly

// CreateRuleRequest defines the data needed to create a recurrence rule.
type CreateRuleRequest struct {
	AccountID    string           `json:"accountID" binding:"required"`
	CategoryID   *string          `json:"categoryID"` // Optional
	Description  string           `json:"description" binding:"max=255"`
	Direction    domain.Direction `json:"direction" binding:"required,oneof=CREDIT DEBIT"`
	Amount       decimal.Decimal  `json:"amount" swaggertype:"string" example:"100.00"` // Positivity is checked by the service
	CurrencyCode string           `json:"currencyCode" binding:"required,len=3"`
	Frequency    domain.Frequency `json:"frequency" binding:"required,oneof=DAILY WEEKLY MONTHLY YEARLY"`
	StartDate    string           `json:"startDate" binding:"required,datetime=2006-01-02"`
	EndDate      *string          `json:"endDate" binding:"omitempty,datetime=2006-01-02"`
}

// UpdateRuleRequest carries the user-editable terms of a rule.
// Use pointers to distinguish between zero-value updates and fields not provided.
// NextDue is engine-owned and deliberately absent.
type UpdateRuleRequest struct {
	AccountID    *string           `json:"accountID"`
	CategoryID   *string           `json:"categoryID"`
	Description  *string           `json:"description" binding:"omitempty,max=255"`
	Direction    *domain.Direction `json:"direction" binding:"omitempty,oneof=CREDIT DEBIT"`
	Amount       *decimal.Decimal  `json:"amount" swaggertype:"string" example:"100.00"`
	CurrencyCode *string           `json:"currencyCode" binding:"omitempty,len=3"`
	Frequency    *domain.Frequency `json:"frequency" binding:"omitempty,oneof=DAILY WEEKLY MONTHLY YEARLY"`
	StartDate    *string           `json:"startDate" binding:"omitempty,datetime=2006-01-02"`
	EndDate      *string           `json:"endDate" binding:"omitempty,datetime=2006-01-02"`
	ClearEndDate bool              `json:"clearEndDate"` // Removes the end date
	// Version, when set, must match the stored rule (optimistic concurrency).
	Version *int64 `json:"version"`
}

// ListRulesParams defines query parameters for listing rules.
type ListRulesParams struct {
	Status string `form:"status" binding:"omitempty,oneof=ACTIVE PAUSED CANCELLED ERROR"`
	Limit  int    `form:"limit,default=20" binding:"min=0,max=200"`
	Offset int    `form:"offset,default=0" binding:"min=0"`
}

// ListOccurrencesParams defines query parameters for listing a rule's occurrences.
type ListOccurrencesParams struct {
	Limit     int     `form:"limit,default=20" binding:"min=0,max=200"`
	NextToken *string `form:"nextToken"`
}

// UpcomingParams defines query parameters for the projection endpoint.
type UpcomingParams struct {
	Count int `form:"count,default=5" binding:"min=1,max=100"`
}

// RuleResponse defines the data returned for a rule.
type RuleResponse struct {
	RuleID          string            `json:"ruleID"`
	UserID          string            `json:"userID"`
	AccountID       string            `json:"accountID"`
	CategoryID      *string           `json:"categoryID,omitempty"`
	Description     string            `json:"description"`
	Direction       domain.Direction  `json:"direction"`
	Amount          decimal.Decimal   `json:"amount" swaggertype:"string" example:"100.00"`
	CurrencyCode    string            `json:"currencyCode"`
	Frequency       domain.Frequency  `json:"frequency"`
	StartDate       string            `json:"startDate"`
	EndDate         *string           `json:"endDate,omitempty"`
	NextDue         string            `json:"nextDue"`
	PausedAt        *string           `json:"pausedAt,omitempty"`
	Status          domain.RuleStatus `json:"status"`
	SuspendedReason string            `json:"suspendedReason,omitempty"`
	Version         int64             `json:"version"`
	CreatedAt       time.Time         `json:"createdAt"`
	LastUpdatedAt   time.Time         `json:"lastUpdatedAt"`
}

// OccurrenceResponse defines the data returned for a materialized occurrence.
type OccurrenceResponse struct {
	OccurrenceID   string           `json:"occurrenceID"`
	RuleID         string           `json:"ruleID"`
	OccurrenceDate string           `json:"occurrenceDate"`
	AccountID      string           `json:"accountID"`
	CategoryID     *string          `json:"categoryID,omitempty"`
	Description    string           `json:"description"`
	Direction      domain.Direction `json:"direction"`
	Amount         decimal.Decimal  `json:"amount" swaggertype:"string" example:"100.00"`
	CurrencyCode   string           `json:"currencyCode"`
	BalanceAfter   decimal.Decimal  `json:"balanceAfter" swaggertype:"string" example:"100.00"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// ListOccurrencesResponse is a page of occurrences.
type ListOccurrencesResponse struct {
	Occurrences []OccurrenceResponse `json:"occurrences"`
	NextToken   *string              `json:"nextToken,omitempty"`
}

// UpcomingResponse lists projected dates that have not been materialized yet.
type UpcomingResponse struct {
	RuleID string   `json:"ruleID"`
	Dates  []string `json:"dates"`
}

// ToRuleResponse converts a domain.RecurrenceRule to RuleResponse DTO
func ToRuleResponse(r *domain.RecurrenceRule) RuleResponse {
	res := RuleResponse{
		RuleID:          r.RuleID,
		UserID:          r.UserID,
		AccountID:       r.AccountID,
		CategoryID:      r.CategoryID,
		Description:     r.Description,
		Direction:       r.Direction,
		Amount:          r.Amount,
		CurrencyCode:    r.CurrencyCode,
		Frequency:       r.Frequency,
		StartDate:       r.StartDate.Format(DateLayout),
		NextDue:         r.NextDue.Format(DateLayout),
		Status:          r.Status,
		SuspendedReason: r.SuspendedReason,
		Version:         r.Version,
		CreatedAt:       r.CreatedAt,
		LastUpdatedAt:   r.LastUpdatedAt,
	}
	if r.EndDate != nil {
		end := r.EndDate.Format(DateLayout)
		res.EndDate = &end
	}
	if r.PausedAt != nil {
		paused := r.PausedAt.Format(DateLayout)
		res.PausedAt = &paused
	}
	return res
}

// ToListRuleResponse converts a slice of rules.
func ToListRuleResponse(rules []domain.RecurrenceRule) []RuleResponse {
	res := make([]RuleResponse, len(rules))
	for i := range rules {
		res[i] = ToRuleResponse(&rules[i])
	}
	return res
}

// ToOccurrenceResponse converts a domain.MaterializedOccurrence to its DTO.
func ToOccurrenceResponse(o *domain.MaterializedOccurrence) OccurrenceResponse {
	return OccurrenceResponse{
		OccurrenceID:   o.OccurrenceID,
		RuleID:         o.RuleID,
		OccurrenceDate: o.OccurrenceDate.Format(DateLayout),
		AccountID:      o.AccountID,
		CategoryID:     o.CategoryID,
		Description:    o.Description,
		Direction:      o.Direction,
		Amount:         o.Amount,
		CurrencyCode:   o.CurrencyCode,
		BalanceAfter:   o.BalanceAfter,
		CreatedAt:      o.CreatedAt,
	}
}

// ToListOccurrenceResponse converts a slice of occurrences.
func ToListOccurrenceResponse(occs []domain.MaterializedOccurrence) []OccurrenceResponse {
	res := make([]OccurrenceResponse, len(occs))
	for i := range occs {
		res[i] = ToOccurrenceResponse(&occs[i])
	}
	return res
}
