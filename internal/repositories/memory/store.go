// Package memory is an in-process store with the same atomicity and uniqueness
// guarantees as the PostgreSQL repositories. It backs STORE_DRIVER=memory and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SscSPs/recurring_ledger/internal/apperrors"
	"github.com/SscSPs/recurring_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/recurring_ledger/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
)

type occurrenceKey struct {
	ruleID string
	date   string
}

// Store keeps accounts, rules and occurrences behind a single mutex so that
// SaveOccurrence is all-or-nothing.
type Store struct {
	mu          sync.RWMutex
	accounts    map[string]domain.Account
	rules       map[string]domain.RecurrenceRule
	occurrences map[occurrenceKey]domain.MaterializedOccurrence
	byRule      map[string][]occurrenceKey
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		accounts:    make(map[string]domain.Account),
		rules:       make(map[string]domain.RecurrenceRule),
		occurrences: make(map[occurrenceKey]domain.MaterializedOccurrence),
		byRule:      make(map[string][]occurrenceKey),
	}
}

// NewRepositoryProvider wires one store into every repository slot.
func NewRepositoryProvider(store *Store) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		AccountRepo:    store,
		RuleRepo:       store,
		OccurrenceRepo: store,
	}
}

var (
	_ portsrepo.AccountRepositoryFacade    = (*Store)(nil)
	_ portsrepo.RuleRepositoryFacade       = (*Store)(nil)
	_ portsrepo.OccurrenceRepositoryFacade = (*Store)(nil)
)

func keyOf(ruleID string, date time.Time) occurrenceKey {
	return occurrenceKey{ruleID: ruleID, date: date.Format(time.DateOnly)}
}

// --- accounts ---

func (s *Store) SaveAccount(_ context.Context, account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.AccountID]; ok {
		return fmt.Errorf("account %s: %w", account.AccountID, apperrors.ErrDuplicate)
	}
	s.accounts[account.AccountID] = account
	return nil
}

func (s *Store) FindAccountByID(_ context.Context, accountID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[accountID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &acc, nil
}

func (s *Store) ApplyDelta(_ context.Context, accountID string, delta decimal.Decimal, userID string, now time.Time) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyDeltaLocked(accountID, delta, userID, now)
}

func (s *Store) applyDeltaLocked(accountID string, delta decimal.Decimal, userID string, now time.Time) (*domain.Account, error) {
	acc, ok := s.accounts[accountID]
	if !ok || !acc.IsActive {
		return nil, fmt.Errorf("account %s: %w", accountID, apperrors.ErrAccountUnavailable)
	}
	acc.Balance = acc.Balance.Add(delta)
	acc.LastUpdatedAt = now
	acc.LastUpdatedBy = userID
	s.accounts[accountID] = acc
	return &acc, nil
}

func (s *Store) DeactivateAccount(_ context.Context, accountID string, userID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[accountID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if !acc.IsActive {
		return fmt.Errorf("account %s is already inactive: %w", accountID, apperrors.ErrValidation)
	}
	acc.IsActive = false
	acc.LastUpdatedAt = now
	acc.LastUpdatedBy = userID
	s.accounts[accountID] = acc
	return nil
}

// --- rules ---

func (s *Store) SaveRule(_ context.Context, rule domain.RecurrenceRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[rule.RuleID]; ok {
		return fmt.Errorf("rule %s: %w", rule.RuleID, apperrors.ErrDuplicate)
	}
	s.rules[rule.RuleID] = rule
	return nil
}

func (s *Store) UpdateRule(_ context.Context, rule domain.RecurrenceRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.rules[rule.RuleID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if stored.Version != rule.Version {
		return fmt.Errorf("rule %s at version %d, write based on %d: %w",
			rule.RuleID, stored.Version, rule.Version, apperrors.ErrConflict)
	}
	rule.Version++
	rule.CreatedAt = stored.CreatedAt
	rule.CreatedBy = stored.CreatedBy
	s.rules[rule.RuleID] = rule
	return nil
}

func (s *Store) FindRuleByID(_ context.Context, ruleID string) (*domain.RecurrenceRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rule, ok := s.rules[ruleID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &rule, nil
}

func (s *Store) ListRulesByUser(_ context.Context, userID string, status *domain.RuleStatus, limit int, offset int) ([]domain.RecurrenceRule, error) {
	s.mu.RLock()
	var rules []domain.RecurrenceRule
	for _, r := range s.rules {
		if r.UserID != userID || (status != nil && r.Status != *status) {
			continue
		}
		rules = append(rules, r)
	}
	s.mu.RUnlock()

	sort.Slice(rules, func(i, j int) bool {
		if rules[i].CreatedAt.Equal(rules[j].CreatedAt) {
			return rules[i].RuleID < rules[j].RuleID
		}
		return rules[i].CreatedAt.Before(rules[j].CreatedAt)
	})
	return page(rules, limit, offset), nil
}

func (s *Store) ListDueRules(_ context.Context, asOf time.Time, after *domain.DueCursor, limit int) ([]domain.RecurrenceRule, error) {
	s.mu.RLock()
	var rules []domain.RecurrenceRule
	for _, r := range s.rules {
		if r.Status == domain.StatusActive && !r.NextDue.After(asOf) && after.Before(r) {
			rules = append(rules, r)
		}
	}
	s.mu.RUnlock()

	sort.Slice(rules, func(i, j int) bool {
		if rules[i].NextDue.Equal(rules[j].NextDue) {
			return rules[i].RuleID < rules[j].RuleID
		}
		return rules[i].NextDue.Before(rules[j].NextDue)
	})
	return page(rules, limit, 0), nil
}

// --- occurrences ---

func (s *Store) FindOccurrence(_ context.Context, ruleID string, occurrenceDate time.Time) (*domain.MaterializedOccurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	occ, ok := s.occurrences[keyOf(ruleID, occurrenceDate)]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &occ, nil
}

func (s *Store) ListOccurrencesByRule(_ context.Context, ruleID string, limit int, after *time.Time) ([]domain.MaterializedOccurrence, error) {
	s.mu.RLock()
	var occs []domain.MaterializedOccurrence
	for _, k := range s.byRule[ruleID] {
		occ := s.occurrences[k]
		if after != nil && !occ.OccurrenceDate.After(*after) {
			continue
		}
		occs = append(occs, occ)
	}
	s.mu.RUnlock()

	sort.Slice(occs, func(i, j int) bool { return occs[i].OccurrenceDate.Before(occs[j].OccurrenceDate) })
	return page(occs, limit, 0), nil
}

func (s *Store) CountOccurrencesByRule(_ context.Context, ruleID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byRule[ruleID]), nil
}

func (s *Store) SaveOccurrence(_ context.Context, write domain.OccurrenceWrite) (*domain.MaterializedOccurrence, *domain.RecurrenceRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	occ := write.Occurrence
	rule, ok := s.rules[occ.RuleID]
	if !ok {
		return nil, nil, fmt.Errorf("rule %s: %w", occ.RuleID, apperrors.ErrNotFound)
	}
	key := keyOf(occ.RuleID, occ.OccurrenceDate)
	if _, exists := s.occurrences[key]; exists {
		return nil, nil, fmt.Errorf("occurrence %s on %s: %w", occ.RuleID, key.date, apperrors.ErrDuplicate)
	}
	if rule.Status != domain.StatusActive {
		return nil, nil, fmt.Errorf("rule %s is %s: %w", rule.RuleID, rule.Status, apperrors.ErrRuleNotActive)
	}
	if !rule.NextDue.Equal(occ.OccurrenceDate) {
		return nil, nil, fmt.Errorf("rule %s next due %s, got %s: %w", rule.RuleID,
			rule.NextDue.Format(time.DateOnly), key.date, apperrors.ErrStaleOccurrence)
	}
	if rule.Version != write.RuleVersion {
		return nil, nil, fmt.Errorf("rule %s at version %d, write based on %d: %w",
			rule.RuleID, rule.Version, write.RuleVersion, apperrors.ErrConflict)
	}

	// Balance first: it is the only step that can still fail, and nothing has been written yet.
	acc, err := s.applyDeltaLocked(occ.AccountID, write.SignedAmount, domain.SchedulerActor, write.Now)
	if err != nil {
		return nil, nil, err
	}

	occ.BalanceAfter = acc.Balance
	s.occurrences[key] = occ
	s.byRule[occ.RuleID] = append(s.byRule[occ.RuleID], key)

	rule.NextDue = write.NextDue
	if write.ClearSkipWindow {
		rule.SkipAfter = nil
		rule.SkipThrough = nil
	}
	if write.Cancel {
		rule.Status = domain.StatusCancelled
	}
	rule.Version++
	rule.LastUpdatedAt = write.Now
	rule.LastUpdatedBy = domain.SchedulerActor
	s.rules[rule.RuleID] = rule

	return &occ, &rule, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
