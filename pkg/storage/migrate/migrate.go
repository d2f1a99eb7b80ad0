// Package migrate runs the schema migrations of the SQL datastores.
package migrate

import (
	"context"
	"fmt"
	"sync"

	"github.com/kgview/kgview/pkg/logger"
	"github.com/kgview/kgview/pkg/storage"
	"github.com/kgview/kgview/pkg/storage/mysql"
	"github.com/kgview/kgview/pkg/storage/postgres"
	"github.com/kgview/kgview/pkg/storage/sqlite"
)

// MigrationConfig contains the configuration needed for running migrations.
type MigrationConfig = storage.MigrationConfig

var (
	defaultRegistry *storage.MigratorRegistry
	registryOnce    sync.Once
)

func initDefaultRegistry() {
	registryOnce.Do(func() {
		defaultRegistry = storage.NewMigratorRegistry()
		defaultRegistry.RegisterProvider("postgres", postgres.NewPostgresMigrationProvider())
		defaultRegistry.RegisterProvider("mysql", mysql.NewMySQLMigrationProvider())
		defaultRegistry.RegisterProvider("sqlite", sqlite.NewSQLiteMigrationProvider())
	})
}

// GetDefaultRegistry returns the registry holding the built-in providers.
func GetDefaultRegistry() *storage.MigratorRegistry {
	initDefaultRegistry()
	return defaultRegistry
}

// RunMigrationsWithRegistry runs the migrations of cfg.Engine using the
// provider registered for it. Engines without a schema (memory, postgrest)
// have nothing to migrate.
func RunMigrationsWithRegistry(ctx context.Context, registry *storage.MigratorRegistry, cfg storage.MigrationConfig) error {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoopLogger()
	}

	switch cfg.Engine {
	case "memory", "postgrest":
		cfg.Logger.Info(fmt.Sprintf("no migrations to run for `%s` datastore", cfg.Engine))
		return nil
	}

	provider, exists := registry.GetProvider(cfg.Engine)
	if !exists {
		return fmt.Errorf("no migration provider registered for engine: %s", cfg.Engine)
	}

	return provider.RunMigrations(ctx, cfg)
}

// RunMigrations runs the migrations for cfg using the default registry.
func RunMigrations(ctx context.Context, cfg storage.MigrationConfig) error {
	return RunMigrationsWithRegistry(ctx, GetDefaultRegistry(), cfg)
}
