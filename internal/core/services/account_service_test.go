package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/recurring_ledger/internal/apperrors"
	"github.com/SscSPs/recurring_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/recurring_ledger/internal/core/ports/services"
	"github.com/SscSPs/recurring_ledger/internal/core/services"
	"github.com/SscSPs/recurring_ledger/internal/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Test Suite Setup ---

type AccountServiceTestSuite struct {
	suite.Suite
	mockRepo *MockAccountRepository
	now      time.Time
	service  portssvc.AccountSvcFacade
}

func (suite *AccountServiceTestSuite) SetupTest() {
	suite.mockRepo = new(MockAccountRepository)
	suite.now = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)
	suite.service = services.NewAccountService(suite.mockRepo, services.WithAccountClock(fixedClock(suite.now)))
}

// --- Test Cases ---

func (suite *AccountServiceTestSuite) TestCreateAccount_Success() {
	ctx := context.Background()
	userID := uuid.NewString()
	opening := decimal.RequireFromString("250.75")
	req := dto.CreateAccountRequest{
		Name:           "Checking",
		CurrencyCode:   "usd",
		InitialBalance: &opening,
	}

	suite.mockRepo.On("SaveAccount", ctx, mock.AnythingOfType("domain.Account")).Return(nil).Once()

	created, err := suite.service.CreateAccount(ctx, req, userID)

	suite.Require().NoError(err)
	suite.Require().NotNil(created)
	suite.NotEmpty(created.AccountID)
	suite.Equal(userID, created.UserID)
	suite.Equal("USD", created.CurrencyCode)
	suite.True(created.IsActive)
	suite.True(opening.Equal(created.Balance))
	suite.Equal(suite.now, created.CreatedAt)
	suite.Equal(userID, created.CreatedBy)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestCreateAccount_DefaultsToZeroBalance() {
	ctx := context.Background()
	suite.mockRepo.On("SaveAccount", ctx, mock.MatchedBy(func(a domain.Account) bool {
		return a.Balance.IsZero()
	})).Return(nil).Once()

	created, err := suite.service.CreateAccount(ctx, dto.CreateAccountRequest{Name: "Cash", CurrencyCode: "EUR"}, "user-1")

	suite.Require().NoError(err)
	suite.True(created.Balance.IsZero())
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestCreateAccount_RejectsSubUnitBalance() {
	opening := decimal.RequireFromString("10.00005")

	created, err := suite.service.CreateAccount(context.Background(), dto.CreateAccountRequest{
		Name: "Cash", CurrencyCode: "EUR", InitialBalance: &opening,
	}, "user-1")

	suite.Nil(created)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockRepo.AssertNotCalled(suite.T(), "SaveAccount", mock.Anything, mock.Anything)
}

func (suite *AccountServiceTestSuite) TestCreateAccount_SaveError() {
	ctx := context.Background()
	dbErr := errors.New("connection reset")
	suite.mockRepo.On("SaveAccount", ctx, mock.AnythingOfType("domain.Account")).Return(dbErr).Once()

	created, err := suite.service.CreateAccount(ctx, dto.CreateAccountRequest{Name: "Cash", CurrencyCode: "EUR"}, "user-1")

	suite.Nil(created)
	suite.ErrorIs(err, dbErr)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestGetAccountByID() {
	ctx := context.Background()
	account := &domain.Account{AccountID: "acc-1", UserID: "owner", CurrencyCode: "USD", IsActive: true}

	suite.Run("owner sees the account", func() {
		suite.mockRepo.On("FindAccountByID", ctx, "acc-1").Return(account, nil).Once()
		got, err := suite.service.GetAccountByID(ctx, "acc-1", "owner")
		suite.Require().NoError(err)
		suite.Equal(account, got)
	})

	suite.Run("other users get not found", func() {
		suite.mockRepo.On("FindAccountByID", ctx, "acc-1").Return(account, nil).Once()
		got, err := suite.service.GetAccountByID(ctx, "acc-1", "intruder")
		suite.Nil(got)
		suite.ErrorIs(err, apperrors.ErrNotFound)
	})

	suite.Run("missing account", func() {
		suite.mockRepo.On("FindAccountByID", ctx, "nope").Return(nil, apperrors.ErrNotFound).Once()
		_, err := suite.service.GetAccountByID(ctx, "nope", "owner")
		suite.ErrorIs(err, apperrors.ErrNotFound)
	})

	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestDeactivateAccount() {
	ctx := context.Background()
	account := &domain.Account{AccountID: "acc-1", UserID: "owner", IsActive: true}

	suite.mockRepo.On("FindAccountByID", ctx, "acc-1").Return(account, nil).Once()
	suite.mockRepo.On("DeactivateAccount", ctx, "acc-1", "owner", suite.now).Return(nil).Once()

	suite.Require().NoError(suite.service.DeactivateAccount(ctx, "acc-1", "owner"))
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestDeactivateAccount_NotOwner() {
	ctx := context.Background()
	account := &domain.Account{AccountID: "acc-1", UserID: "owner", IsActive: true}
	suite.mockRepo.On("FindAccountByID", ctx, "acc-1").Return(account, nil).Once()

	err := suite.service.DeactivateAccount(ctx, "acc-1", "intruder")

	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.mockRepo.AssertNotCalled(suite.T(), "DeactivateAccount", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// --- Run Test Suite ---

func TestAccountService(t *testing.T) {
	suite.Run(t, new(AccountServiceTestSuite))
}
