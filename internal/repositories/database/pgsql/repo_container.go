package pgsql

import (
	portsrepo "github.com/SscSPs/recurring_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRepositoryProvider builds the PostgreSQL-backed repositories.
func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		AccountRepo:    newPgxAccountRepository(dbPool),
		RuleRepo:       newPgxRuleRepository(dbPool),
		OccurrenceRepo: newPgxOccurrenceRepository(dbPool),
	}
}
