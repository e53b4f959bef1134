package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/SscSPs/recurring_ledger/internal/apperrors"
	"github.com/SscSPs/recurring_ledger/internal/core/domain"
	"github.com/SscSPs/recurring_ledger/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type RuleServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	e       *engine
	account *domain.Account
}

func (suite *RuleServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.e = newEngine(time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC))
	acc, err := suite.e.accounts.CreateAccount(suite.ctx, dto.CreateAccountRequest{Name: "Checking", CurrencyCode: "USD"}, testUser)
	suite.Require().NoError(err)
	suite.account = acc
}

func (suite *RuleServiceTestSuite) request() dto.CreateRuleRequest {
	return dto.CreateRuleRequest{
		AccountID:    suite.account.AccountID,
		Description:  "Gym",
		Direction:    domain.Debit,
		Amount:       decimal.RequireFromString("39.99"),
		CurrencyCode: "usd",
		Frequency:    domain.Monthly,
		StartDate:    "2024-01-15",
	}
}

func (suite *RuleServiceTestSuite) TestCreateRule_Success() {
	rule, err := suite.e.rules.CreateRule(suite.ctx, suite.request(), testUser)

	suite.Require().NoError(err)
	suite.NotEmpty(rule.RuleID)
	suite.Equal(domain.StatusActive, rule.Status)
	suite.Equal(day(2024, 1, 15), rule.StartDate)
	suite.Equal(rule.StartDate, rule.NextDue)
	suite.Equal("USD", rule.CurrencyCode)
	suite.Equal(int64(1), rule.Version)
	suite.Equal(testUser, rule.CreatedBy)

	stored, err := suite.e.rules.GetRule(suite.ctx, rule.RuleID, testUser)
	suite.Require().NoError(err)
	suite.Equal(rule.RuleID, stored.RuleID)
}

func (suite *RuleServiceTestSuite) TestCreateRule_Rejections() {
	other, err := suite.e.accounts.CreateAccount(suite.ctx, dto.CreateAccountRequest{Name: "Theirs", CurrencyCode: "USD"}, "user-2")
	suite.Require().NoError(err)
	euro, err := suite.e.accounts.CreateAccount(suite.ctx, dto.CreateAccountRequest{Name: "Euro", CurrencyCode: "EUR"}, testUser)
	suite.Require().NoError(err)

	testCases := []struct {
		name   string
		mutate func(*dto.CreateRuleRequest)
	}{
		{"zero amount", func(r *dto.CreateRuleRequest) { r.Amount = decimal.Zero }},
		{"negative amount", func(r *dto.CreateRuleRequest) { r.Amount = decimal.NewFromInt(-5) }},
		{"more than four decimal places", func(r *dto.CreateRuleRequest) { r.Amount = decimal.RequireFromString("1.23456") }},
		{"positive but below storage precision", func(r *dto.CreateRuleRequest) { r.Amount = decimal.RequireFromString("0.00001") }},
		{"unknown frequency", func(r *dto.CreateRuleRequest) { r.Frequency = "HOURLY" }},
		{"unknown direction", func(r *dto.CreateRuleRequest) { r.Direction = "SIDEWAYS" }},
		{"malformed start date", func(r *dto.CreateRuleRequest) { r.StartDate = "15/01/2024" }},
		{"end before start", func(r *dto.CreateRuleRequest) {
			end := "2024-01-01"
			r.EndDate = &end
		}},
		{"missing account", func(r *dto.CreateRuleRequest) { r.AccountID = "does-not-exist" }},
		{"someone else's account", func(r *dto.CreateRuleRequest) { r.AccountID = other.AccountID }},
		{"currency mismatch", func(r *dto.CreateRuleRequest) { r.AccountID = euro.AccountID }},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			req := suite.request()
			tc.mutate(&req)
			rule, err := suite.e.rules.CreateRule(suite.ctx, req, testUser)
			suite.Nil(rule)
			suite.ErrorIs(err, apperrors.ErrValidation)
		})
	}
}

func (suite *RuleServiceTestSuite) TestGetRule_HidesOtherUsersRules() {
	rule, err := suite.e.rules.CreateRule(suite.ctx, suite.request(), testUser)
	suite.Require().NoError(err)

	_, err = suite.e.rules.GetRule(suite.ctx, rule.RuleID, "user-2")
	suite.ErrorIs(err, apperrors.ErrNotFound)

	_, err = suite.e.rules.PauseRule(suite.ctx, rule.RuleID, "user-2")
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *RuleServiceTestSuite) TestUpdateRule_EditsTermsAndBumpsVersion() {
	rule, err := suite.e.rules.CreateRule(suite.ctx, suite.request(), testUser)
	suite.Require().NoError(err)

	amount := decimal.NewFromInt(45)
	desc := "Gym (new plan)"
	version := rule.Version
	updated, err := suite.e.rules.UpdateRule(suite.ctx, rule.RuleID, dto.UpdateRuleRequest{
		Amount: &amount, Description: &desc, Version: &version,
	}, testUser)

	suite.Require().NoError(err)
	suite.True(amount.Equal(updated.Amount))
	suite.Equal(desc, updated.Description)
	suite.Equal(int64(2), updated.Version)

	stored, err := suite.e.store.FindRuleByID(suite.ctx, rule.RuleID)
	suite.Require().NoError(err)
	suite.Equal(int64(2), stored.Version)

	// The old version no longer matches.
	_, err = suite.e.rules.UpdateRule(suite.ctx, rule.RuleID, dto.UpdateRuleRequest{Amount: &amount, Version: &version}, testUser)
	suite.ErrorIs(err, apperrors.ErrConflict)
}

func (suite *RuleServiceTestSuite) TestUpdateRule_RejectsSubUnitAmount() {
	rule, err := suite.e.rules.CreateRule(suite.ctx, suite.request(), testUser)
	suite.Require().NoError(err)

	amount := decimal.RequireFromString("45.12345")
	_, err = suite.e.rules.UpdateRule(suite.ctx, rule.RuleID, dto.UpdateRuleRequest{Amount: &amount}, testUser)
	suite.ErrorIs(err, apperrors.ErrValidation)

	stored, err := suite.e.store.FindRuleByID(suite.ctx, rule.RuleID)
	suite.Require().NoError(err)
	suite.True(rule.Amount.Equal(stored.Amount))
	suite.Equal(rule.Version, stored.Version)
}

func (suite *RuleServiceTestSuite) TestUpdateRule_StartDateLockedOnceOccurrencesExist() {
	rule, err := suite.e.rules.CreateRule(suite.ctx, suite.request(), testUser)
	suite.Require().NoError(err)

	newStart := "2024-01-20"
	moved, err := suite.e.rules.UpdateRule(suite.ctx, rule.RuleID, dto.UpdateRuleRequest{StartDate: &newStart}, testUser)
	suite.Require().NoError(err)
	suite.Equal(day(2024, 1, 20), moved.NextDue)

	_, err = suite.e.scheduler.RunDue(suite.ctx, day(2024, 1, 25))
	suite.Require().NoError(err)

	later := "2024-02-01"
	_, err = suite.e.rules.UpdateRule(suite.ctx, rule.RuleID, dto.UpdateRuleRequest{StartDate: &later}, testUser)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *RuleServiceTestSuite) TestUpdateRule_EndDateBeforeNextDueCancels() {
	rule, err := suite.e.rules.CreateRule(suite.ctx, suite.request(), testUser)
	suite.Require().NoError(err)
	_, err = suite.e.scheduler.RunDue(suite.ctx, day(2024, 1, 20))
	suite.Require().NoError(err)

	end := "2024-02-01"
	updated, err := suite.e.rules.UpdateRule(suite.ctx, rule.RuleID, dto.UpdateRuleRequest{EndDate: &end}, testUser)

	suite.Require().NoError(err)
	suite.Equal(domain.StatusCancelled, updated.Status)

	_, err = suite.e.rules.UpdateRule(suite.ctx, rule.RuleID, dto.UpdateRuleRequest{ClearEndDate: true}, testUser)
	suite.ErrorIs(err, apperrors.ErrInvalidTransition)
}

func (suite *RuleServiceTestSuite) TestLifecycleTransitions() {
	rule, err := suite.e.rules.CreateRule(suite.ctx, suite.request(), testUser)
	suite.Require().NoError(err)

	_, err = suite.e.rules.ResumeRule(suite.ctx, rule.RuleID, testUser)
	suite.ErrorIs(err, apperrors.ErrInvalidTransition, "already active")

	paused, err := suite.e.rules.PauseRule(suite.ctx, rule.RuleID, testUser)
	suite.Require().NoError(err)
	suite.Equal(domain.StatusPaused, paused.Status)

	_, err = suite.e.rules.PauseRule(suite.ctx, rule.RuleID, testUser)
	suite.ErrorIs(err, apperrors.ErrInvalidTransition)

	cancelled, err := suite.e.rules.CancelRule(suite.ctx, rule.RuleID, testUser)
	suite.Require().NoError(err)
	suite.Equal(domain.StatusCancelled, cancelled.Status)

	for _, op := range []func(context.Context, string, string) (*domain.RecurrenceRule, error){
		suite.e.rules.PauseRule, suite.e.rules.ResumeRule, suite.e.rules.CancelRule,
	} {
		_, err = op(suite.ctx, rule.RuleID, testUser)
		suite.ErrorIs(err, apperrors.ErrInvalidTransition)
	}
}

func (suite *RuleServiceTestSuite) TestResumeBeforeNextDueDoesNotSkip() {
	rule, err := suite.e.rules.CreateRule(suite.ctx, suite.request(), testUser)
	suite.Require().NoError(err)

	_, err = suite.e.rules.PauseRule(suite.ctx, rule.RuleID, testUser)
	suite.Require().NoError(err)
	resumed, err := suite.e.rules.ResumeRule(suite.ctx, rule.RuleID, testUser)

	suite.Require().NoError(err)
	suite.Nil(resumed.SkipThrough)
	suite.Equal(day(2024, 1, 15), resumed.NextDue)
}

func (suite *RuleServiceTestSuite) TestListRules_FiltersByStatus() {
	first, err := suite.e.rules.CreateRule(suite.ctx, suite.request(), testUser)
	suite.Require().NoError(err)
	_, err = suite.e.rules.CreateRule(suite.ctx, suite.request(), testUser)
	suite.Require().NoError(err)
	_, err = suite.e.rules.PauseRule(suite.ctx, first.RuleID, testUser)
	suite.Require().NoError(err)

	all, err := suite.e.rules.ListRules(suite.ctx, testUser, dto.ListRulesParams{})
	suite.Require().NoError(err)
	suite.Len(all, 2)

	paused, err := suite.e.rules.ListRules(suite.ctx, testUser, dto.ListRulesParams{Status: "paused"})
	suite.Require().NoError(err)
	suite.Require().Len(paused, 1)
	suite.Equal(first.RuleID, paused[0].RuleID)

	none, err := suite.e.rules.ListRules(suite.ctx, "user-2", dto.ListRulesParams{})
	suite.Require().NoError(err)
	suite.NotNil(none)
	suite.Empty(none)

	_, err = suite.e.rules.ListRules(suite.ctx, testUser, dto.ListRulesParams{Status: "DORMANT"})
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *RuleServiceTestSuite) TestListOccurrences_Paginates() {
	req := suite.request()
	req.Frequency = domain.Weekly
	req.StartDate = "2024-01-01"
	rule, err := suite.e.rules.CreateRule(suite.ctx, req, testUser)
	suite.Require().NoError(err)
	_, err = suite.e.scheduler.RunDue(suite.ctx, day(2024, 2, 5))
	suite.Require().NoError(err)

	page1, err := suite.e.rules.ListOccurrences(suite.ctx, rule.RuleID, testUser, dto.ListOccurrencesParams{Limit: 4})
	suite.Require().NoError(err)
	suite.Len(page1.Occurrences, 4)
	suite.Equal("2024-01-01", page1.Occurrences[0].OccurrenceDate)
	suite.Require().NotNil(page1.NextToken)

	page2, err := suite.e.rules.ListOccurrences(suite.ctx, rule.RuleID, testUser, dto.ListOccurrencesParams{Limit: 4, NextToken: page1.NextToken})
	suite.Require().NoError(err)
	suite.Require().Len(page2.Occurrences, 2)
	suite.Equal("2024-01-29", page2.Occurrences[0].OccurrenceDate)
	suite.Equal("2024-02-05", page2.Occurrences[1].OccurrenceDate)
	suite.Nil(page2.NextToken)

	bad := "not-a-token"
	_, err = suite.e.rules.ListOccurrences(suite.ctx, rule.RuleID, testUser, dto.ListOccurrencesParams{NextToken: &bad})
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *RuleServiceTestSuite) TestUpcomingOccurrences() {
	req := suite.request()
	req.StartDate = "2024-01-31"
	end := "2024-05-15"
	req.EndDate = &end
	rule, err := suite.e.rules.CreateRule(suite.ctx, req, testUser)
	suite.Require().NoError(err)

	dates, err := suite.e.rules.UpcomingOccurrences(suite.ctx, rule.RuleID, testUser, 10)
	suite.Require().NoError(err)
	suite.Equal([]time.Time{day(2024, 1, 31), day(2024, 2, 29), day(2024, 3, 31), day(2024, 4, 30)}, dates)

	// Projection writes nothing.
	count, err := suite.e.store.CountOccurrencesByRule(suite.ctx, rule.RuleID)
	suite.Require().NoError(err)
	suite.Zero(count)

	_, err = suite.e.rules.UpcomingOccurrences(suite.ctx, rule.RuleID, testUser, 0)
	suite.ErrorIs(err, apperrors.ErrValidation)

	_, err = suite.e.rules.CancelRule(suite.ctx, rule.RuleID, testUser)
	suite.Require().NoError(err)
	dates, err = suite.e.rules.UpcomingOccurrences(suite.ctx, rule.RuleID, testUser, 3)
	suite.Require().NoError(err)
	suite.Empty(dates)
}

func TestRuleService(t *testing.T) {
	suite.Run(t, new(RuleServiceTestSuite))
}
