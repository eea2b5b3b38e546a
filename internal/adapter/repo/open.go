package repo

import (
	"context"
	"fmt"

	"promptvault/internal/domain"
	"promptvault/internal/infra"
)

// Backend is the opened persistence layer. SQL is set only for the postgres
// driver; integration tokens live there.
type Backend struct {
	Prompts domain.PromptRepository
	SQL     infra.SQLExecutor
	Driver  string
	close   func()
}

// Open connects the store selected by cfg.StoreDriver and makes sure the
// schema exists.
func Open(ctx context.Context, cfg *infra.Config, logger infra.Logger) (*Backend, error) {
	switch cfg.StoreDriver {
	case infra.StoreDriverSQLite:
		store, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("driver", cfg.StoreDriver).Str("path", cfg.SQLitePath).Msg("prompt store ready")
		return &Backend{
			Prompts: store,
			Driver:  cfg.StoreDriver,
			close:   func() { _ = store.Close() },
		}, nil
	case infra.StoreDriverPostgres:
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		runner := infra.NewSQLRunner(pool, logger)
		store := NewPromptRepository(runner)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info().Str("driver", cfg.StoreDriver).Msg("prompt store ready")
		return &Backend{
			Prompts: store,
			SQL:     runner,
			Driver:  cfg.StoreDriver,
			close:   pool.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

// Close releases the underlying connections.
func (b *Backend) Close() {
	if b != nil && b.close != nil {
		b.close()
	}
}
