package app

import (
	"context"
	"errors"

	"retail-bank-core/internal/cache"
	"retail-bank-core/internal/config"
	"retail-bank-core/internal/database"
	"retail-bank-core/internal/logger"
	"retail-bank-core/internal/repository"
	"retail-bank-core/internal/repository/memory"
	"retail-bank-core/internal/repository/postgres"
	"retail-bank-core/internal/security"
	"retail-bank-core/internal/service"
)

// App holds the wired services shared by the server and cronjob binaries.
type App struct {
	Store            repository.Store
	Ledger           service.LedgerService
	Loans            service.LoanService
	Pseudonymization service.PseudonymizationService

	closers []func() error
}

// New builds the store and services described by cfg. Secrets are checked before any
// connection is opened.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	enc, err := security.NewFieldEncryptor(cfg.Security.EncryptionKey)
	if err != nil {
		return nil, err
	}
	hasher, err := security.NewValueHasher(cfg.Security.PseudonymSalt)
	if err != nil {
		return nil, err
	}

	a := &App{}

	switch cfg.Database.Driver {
	case config.DriverMemory:
		logger.Warn("Using in-memory store; data is lost on exit")
		a.Store = memory.NewStore()
	default:
		if cfg.Database.AutoMigrate {
			if err := database.MigrateUp(cfg.GetDatabaseConnectionString()); err != nil {
				return nil, err
			}
		}
		db, err := database.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		a.Store = postgres.NewStore(db, enc)
	}

	tokenCache, closeCache, err := cache.FromConfig(ctx, cfg.Redis)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, closeCache)

	transferLimit, withdrawalLimit := cfg.DailyLimits()
	a.Ledger = service.NewLedgerService(a.Store, service.AccountDefaults{
		DailyTransferLimit:   transferLimit,
		DailyWithdrawalLimit: withdrawalLimit,
	})
	a.Loans = service.NewLoanService(a.Store)
	a.Pseudonymization = service.NewPseudonymizationService(a.Store.Mappings(), enc, hasher, tokenCache, cfg.Security.PseudonymPrefix)

	return a, nil
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
