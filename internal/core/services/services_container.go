package services

import (
	portsrepo "github.com/SscSPs/recurring_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/recurring_ledger/internal/core/ports/services"
	"github.com/SscSPs/recurring_ledger/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	container.Account = NewAccountService(repos.AccountRepo)
	container.Rule = NewRuleService(repos.RuleRepo, repos.OccurrenceRepo, repos.AccountRepo)

	// The materializer is internal to the scheduler; nothing else writes occurrences.
	materializer := NewMaterializerService(repos.RuleRepo, repos.OccurrenceRepo)
	container.Scheduler = NewSchedulerService(
		repos.RuleRepo,
		materializer,
		WithRuleTimeout(cfg.Scheduler.RuleTimeout),
		WithMaxWorkers(cfg.Scheduler.MaxWorkers),
		WithBatchSize(cfg.Scheduler.BatchSize),
		WithMaxCatchUp(cfg.Scheduler.MaxCatchUp),
	)

	return container
}
