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

const occurrenceColumns = `occurrence_id, rule_id, occurrence_date, user_id, account_id, category_id,
	description, direction, amount, currency_code, balance_after, created_at`

// occurrenceUniqueConstraint guards one occurrence per (rule, date).
const occurrenceUniqueConstraint = "materialized_occurrences_rule_date_key"

type PgxOccurrenceRepository struct {
	BaseRepository
}

func newPgxOccurrenceRepository(pool *pgxpool.Pool) *PgxOccurrenceRepository {
	return &PgxOccurrenceRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.OccurrenceRepositoryFacade = (*PgxOccurrenceRepository)(nil)

func scanOccurrence(row pgx.Row) (*domain.MaterializedOccurrence, error) {
	var m models.MaterializedOccurrence
	err := row.Scan(
		&m.OccurrenceID,
		&m.RuleID,
		&m.OccurrenceDate,
		&m.UserID,
		&m.AccountID,
		&m.CategoryID,
		&m.Description,
		&m.Direction,
		&m.Amount,
		&m.CurrencyCode,
		&m.BalanceAfter,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	d := mapping.ToDomainOccurrence(m)
	return &d, nil
}

// FindOccurrence returns the occurrence for (ruleID, date).
func (r *PgxOccurrenceRepository) FindOccurrence(ctx context.Context, ruleID string, occurrenceDate time.Time) (*domain.MaterializedOccurrence, error) {
	query := `SELECT ` + occurrenceColumns + ` FROM materialized_occurrences WHERE rule_id = $1 AND occurrence_date = $2;`
	occ, err := scanOccurrence(r.Pool.QueryRow(ctx, query, ruleID, occurrenceDate))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find occurrence for rule %s: %w", ruleID, err)
	}
	return occ, nil
}

// ListOccurrencesByRule lists occurrences in ascending date order.
func (r *PgxOccurrenceRepository) ListOccurrencesByRule(ctx context.Context, ruleID string, limit int, after *time.Time) ([]domain.MaterializedOccurrence, error) {
	query := `
		SELECT ` + occurrenceColumns + `
		FROM materialized_occurrences
		WHERE rule_id = $1 AND ($2::date IS NULL OR occurrence_date > $2)
		ORDER BY occurrence_date
		LIMIT $3;
	`
	rows, err := r.Pool.Query(ctx, query, ruleID, after, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list occurrences for rule %s: %w", ruleID, err)
	}
	defer rows.Close()

	occs := []domain.MaterializedOccurrence{}
	for rows.Next() {
		occ, err := scanOccurrence(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan occurrence row: %w", err)
		}
		occs = append(occs, *occ)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating occurrence rows: %w", err)
	}
	return occs, nil
}

// CountOccurrencesByRule counts a rule's occurrences.
func (r *PgxOccurrenceRepository) CountOccurrencesByRule(ctx context.Context, ruleID string) (int, error) {
	var count int
	err := r.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM materialized_occurrences WHERE rule_id = $1;`, ruleID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count occurrences for rule %s: %w", ruleID, err)
	}
	return count, nil
}

// SaveOccurrence runs the whole materialization in one transaction: lock the
// rule, verify it still expects this date, move the balance, record the
// occurrence and advance the rule.
func (r *PgxOccurrenceRepository) SaveOccurrence(ctx context.Context, write domain.OccurrenceWrite) (_ *domain.MaterializedOccurrence, _ *domain.RecurrenceRule, err error) {
	occ := write.Occurrence

	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if err != nil {
			_ = r.Rollback(ctx, tx)
		}
	}()

	rule, err := scanRule(tx.QueryRow(ctx,
		`SELECT `+ruleColumns+` FROM recurrence_rules WHERE rule_id = $1 FOR UPDATE;`, occ.RuleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, fmt.Errorf("rule %s: %w", occ.RuleID, apperrors.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("failed to lock rule %s: %w", occ.RuleID, err)
	}
	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM materialized_occurrences WHERE rule_id = $1 AND occurrence_date = $2);`,
		occ.RuleID, occ.OccurrenceDate).Scan(&exists)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check occurrence for rule %s: %w", occ.RuleID, err)
	}
	if err = checkWritable(rule, write, exists); err != nil {
		return nil, nil, err
	}

	acc, err := applyDelta(ctx, tx, occ.AccountID, write.SignedAmount, domain.SchedulerActor, write.Now)
	if err != nil {
		return nil, nil, err
	}
	occ.BalanceAfter = acc.Balance

	m := mapping.ToModelOccurrence(occ)
	_, err = tx.Exec(ctx, `
		INSERT INTO materialized_occurrences (`+occurrenceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);`,
		m.OccurrenceID, m.RuleID, m.OccurrenceDate, m.UserID, m.AccountID, m.CategoryID,
		m.Description, m.Direction, m.Amount, m.CurrencyCode, m.BalanceAfter, m.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, occurrenceUniqueConstraint) {
			return nil, nil, fmt.Errorf("occurrence for rule %s on %s: %w",
				occ.RuleID, occ.OccurrenceDate.Format(time.DateOnly), apperrors.ErrDuplicate)
		}
		return nil, nil, fmt.Errorf("failed to insert occurrence for rule %s: %w", occ.RuleID, err)
	}

	rule.NextDue = write.NextDue
	if write.ClearSkipWindow {
		rule.SkipAfter = nil
		rule.SkipThrough = nil
	}
	if write.Cancel {
		rule.Status = domain.StatusCancelled
	}
	rule.LastUpdatedAt = write.Now
	rule.LastUpdatedBy = domain.SchedulerActor
	rm := mapping.ToModelRule(*rule)
	_, err = tx.Exec(ctx, `
		UPDATE recurrence_rules
		SET next_due = $2, skip_after = $3, skip_through = $4, status = $5,
			last_updated_at = $6, last_updated_by = $7, version = version + 1
		WHERE rule_id = $1;`,
		rm.RuleID, rm.NextDue, rm.SkipAfter, rm.SkipThrough, rm.Status, rm.LastUpdatedAt, rm.LastUpdatedBy,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to advance rule %s: %w", rule.RuleID, err)
	}
	rule.Version++

	if err = r.Commit(ctx, tx); err != nil {
		return nil, nil, err
	}
	return &occ, rule, nil
}

// checkWritable verifies, under the row lock, that the rule still expects this
// occurrence. The order matches the in-memory store: duplicate, status, next due, version.
func checkWritable(rule *domain.RecurrenceRule, write domain.OccurrenceWrite, exists bool) error {
	date := write.Occurrence.OccurrenceDate
	switch {
	case exists:
		return fmt.Errorf("occurrence for rule %s on %s: %w",
			rule.RuleID, date.Format(time.DateOnly), apperrors.ErrDuplicate)
	case rule.Status != domain.StatusActive:
		return fmt.Errorf("rule %s is %s: %w", rule.RuleID, rule.Status, apperrors.ErrRuleNotActive)
	case !rule.NextDue.Equal(date):
		return fmt.Errorf("rule %s next due %s, got %s: %w", rule.RuleID,
			rule.NextDue.Format(time.DateOnly), date.Format(time.DateOnly), apperrors.ErrStaleOccurrence)
	case rule.Version != write.RuleVersion:
		return fmt.Errorf("rule %s at version %d, write based on %d: %w",
			rule.RuleID, rule.Version, write.RuleVersion, apperrors.ErrConflict)
	}
	return nil
}
