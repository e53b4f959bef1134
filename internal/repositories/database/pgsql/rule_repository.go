package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/recurring_ledger/internal/apperrors"
	"github.com/SscSPs/recurring_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/recurring_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/recurring_ledger/internal/models"
	"github.com/SscSPs/recurring_ledger/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const ruleColumns = `rule_id, user_id, account_id, category_id, description, direction, amount, currency_code,
	frequency, start_date, end_date, next_due, paused_at, skip_after, skip_through, status, suspended_reason, version,
	created_at, created_by, last_updated_at, last_updated_by`

type PgxRuleRepository struct {
	BaseRepository
}

func newPgxRuleRepository(pool *pgxpool.Pool) *PgxRuleRepository {
	return &PgxRuleRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.RuleRepositoryFacade = (*PgxRuleRepository)(nil)

func scanRule(row pgx.Row) (*domain.RecurrenceRule, error) {
	var m models.RecurrenceRule
	err := row.Scan(
		&m.RuleID,
		&m.UserID,
		&m.AccountID,
		&m.CategoryID,
		&m.Description,
		&m.Direction,
		&m.Amount,
		&m.CurrencyCode,
		&m.Frequency,
		&m.StartDate,
		&m.EndDate,
		&m.NextDue,
		&m.PausedAt,
		&m.SkipAfter,
		&m.SkipThrough,
		&m.Status,
		&m.SuspendedReason,
		&m.Version,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	d := mapping.ToDomainRule(m)
	return &d, nil
}

func collectRules(rows pgx.Rows) ([]domain.RecurrenceRule, error) {
	defer rows.Close()
	rules := []domain.RecurrenceRule{}
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule row: %w", err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rule rows: %w", err)
	}
	return rules, nil
}

// SaveRule inserts a new rule.
func (r *PgxRuleRepository) SaveRule(ctx context.Context, rule domain.RecurrenceRule) error {
	m := mapping.ToModelRule(rule)
	query := `
		INSERT INTO recurrence_rules (` + ruleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.RuleID, m.UserID, m.AccountID, m.CategoryID, m.Description, m.Direction, m.Amount, m.CurrencyCode,
		m.Frequency, m.StartDate, m.EndDate, m.NextDue, m.PausedAt, m.SkipAfter, m.SkipThrough,
		m.Status, m.SuspendedReason, m.Version,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return fmt.Errorf("%w: rule with ID %s already exists", apperrors.ErrDuplicate, m.RuleID)
		}
		return fmt.Errorf("failed to save rule %s: %w", m.RuleID, err)
	}
	return nil
}

// UpdateRule overwrites the mutable columns when the stored version matches.
func (r *PgxRuleRepository) UpdateRule(ctx context.Context, rule domain.RecurrenceRule) error {
	m := mapping.ToModelRule(rule)
	query := `
		UPDATE recurrence_rules
		SET account_id = $3, category_id = $4, description = $5, direction = $6, amount = $7,
			currency_code = $8, frequency = $9, start_date = $10, end_date = $11, next_due = $12,
			paused_at = $13, skip_after = $14, skip_through = $15, status = $16, suspended_reason = $17,
			last_updated_at = $18, last_updated_by = $19, version = version + 1
		WHERE rule_id = $1 AND version = $2;
	`
	cmdTag, err := r.Pool.Exec(ctx, query,
		m.RuleID, m.Version,
		m.AccountID, m.CategoryID, m.Description, m.Direction, m.Amount,
		m.CurrencyCode, m.Frequency, m.StartDate, m.EndDate, m.NextDue,
		m.PausedAt, m.SkipAfter, m.SkipThrough, m.Status, m.SuspendedReason,
		m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule %s: %w", m.RuleID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		if _, findErr := r.FindRuleByID(ctx, m.RuleID); findErr != nil {
			return findErr
		}
		return fmt.Errorf("rule %s changed since version %d: %w", m.RuleID, m.Version, apperrors.ErrConflict)
	}
	return nil
}

// FindRuleByID retrieves a rule by its ID.
func (r *PgxRuleRepository) FindRuleByID(ctx context.Context, ruleID string) (*domain.RecurrenceRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM recurrence_rules WHERE rule_id = $1;`
	rule, err := scanRule(r.Pool.QueryRow(ctx, query, ruleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find rule %s: %w", ruleID, err)
	}
	return rule, nil
}

// ListRulesByUser lists a user's rules, oldest first.
func (r *PgxRuleRepository) ListRulesByUser(ctx context.Context, userID string, status *domain.RuleStatus, limit int, offset int) ([]domain.RecurrenceRule, error) {
	var statusArg *string
	if status != nil {
		s := string(*status)
		statusArg = &s
	}
	query := `
		SELECT ` + ruleColumns + `
		FROM recurrence_rules
		WHERE user_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at, rule_id
		LIMIT $3 OFFSET $4;
	`
	rows, err := r.Pool.Query(ctx, query, userID, statusArg, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules for user %s: %w", userID, err)
	}
	return collectRules(rows)
}

// ListDueRules returns ACTIVE rules due on or before asOf ordered by (next_due, rule_id),
// starting strictly after the cursor when one is given.
func (r *PgxRuleRepository) ListDueRules(ctx context.Context, asOf time.Time, after *domain.DueCursor, limit int) ([]domain.RecurrenceRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM recurrence_rules
		WHERE status = $1 AND next_due <= $2
		ORDER BY next_due, rule_id
		LIMIT $3;
	`
	args := []any{string(domain.StatusActive), asOf, limit}
	if after != nil {
		query = `
			SELECT ` + ruleColumns + `
			FROM recurrence_rules
			WHERE status = $1 AND next_due <= $2 AND (next_due, rule_id) > ($4, $5)
			ORDER BY next_due, rule_id
			LIMIT $3;
		`
		args = append(args, after.NextDue, after.RuleID)
	}
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list due rules: %w", err)
	}
	return collectRules(rows)
}
