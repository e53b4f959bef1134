package services_test

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/SscSPs/recurring_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

func init() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

// --- MockAccountRepository ---

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) ApplyDelta(ctx context.Context, accountID string, delta decimal.Decimal, userID string, now time.Time) (*domain.Account, error) {
	args := m.Called(ctx, accountID, delta, userID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) DeactivateAccount(ctx context.Context, accountID string, userID string, now time.Time) error {
	args := m.Called(ctx, accountID, userID, now)
	return args.Error(0)
}

// --- MockRuleRepository ---

type MockRuleRepository struct {
	mock.Mock
}

func (m *MockRuleRepository) FindRuleByID(ctx context.Context, ruleID string) (*domain.RecurrenceRule, error) {
	args := m.Called(ctx, ruleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RecurrenceRule), args.Error(1)
}

func (m *MockRuleRepository) ListRulesByUser(ctx context.Context, userID string, status *domain.RuleStatus, limit int, offset int) ([]domain.RecurrenceRule, error) {
	args := m.Called(ctx, userID, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RecurrenceRule), args.Error(1)
}

func (m *MockRuleRepository) ListDueRules(ctx context.Context, asOf time.Time, after *domain.DueCursor, limit int) ([]domain.RecurrenceRule, error) {
	args := m.Called(ctx, asOf, after, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RecurrenceRule), args.Error(1)
}

func (m *MockRuleRepository) SaveRule(ctx context.Context, rule domain.RecurrenceRule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

func (m *MockRuleRepository) UpdateRule(ctx context.Context, rule domain.RecurrenceRule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

// --- MockOccurrenceRepository ---

type MockOccurrenceRepository struct {
	mock.Mock
}

func (m *MockOccurrenceRepository) FindOccurrence(ctx context.Context, ruleID string, occurrenceDate time.Time) (*domain.MaterializedOccurrence, error) {
	args := m.Called(ctx, ruleID, occurrenceDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MaterializedOccurrence), args.Error(1)
}

func (m *MockOccurrenceRepository) ListOccurrencesByRule(ctx context.Context, ruleID string, limit int, after *time.Time) ([]domain.MaterializedOccurrence, error) {
	args := m.Called(ctx, ruleID, limit, after)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MaterializedOccurrence), args.Error(1)
}

func (m *MockOccurrenceRepository) CountOccurrencesByRule(ctx context.Context, ruleID string) (int, error) {
	args := m.Called(ctx, ruleID)
	return args.Int(0), args.Error(1)
}

func (m *MockOccurrenceRepository) SaveOccurrence(ctx context.Context, write domain.OccurrenceWrite) (*domain.MaterializedOccurrence, *domain.RecurrenceRule, error) {
	args := m.Called(ctx, write)
	var occ *domain.MaterializedOccurrence
	var rule *domain.RecurrenceRule
	if v := args.Get(0); v != nil {
		occ = v.(*domain.MaterializedOccurrence)
	}
	if v := args.Get(1); v != nil {
		rule = v.(*domain.RecurrenceRule)
	}
	return occ, rule, args.Error(2)
}

// --- MockMaterializer ---

type MockMaterializer struct {
	mock.Mock
}

func (m *MockMaterializer) Materialize(ctx context.Context, rule domain.RecurrenceRule, occurrenceDate time.Time) (*domain.MaterializeResult, error) {
	args := m.Called(ctx, rule, occurrenceDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MaterializeResult), args.Error(1)
}

// --- fixtures ---

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// clock is a settable clock shared by services in behavioral tests.
type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }
