package postgres

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/kgview/kgview/assets"
	"github.com/kgview/kgview/pkg/storage"
	"github.com/kgview/kgview/pkg/storage/sqlcommon"
)

// PostgresMigrationProvider implements MigrationProvider for PostgreSQL.
type PostgresMigrationProvider struct{}

func NewPostgresMigrationProvider() *PostgresMigrationProvider {
	return &PostgresMigrationProvider{}
}

// GetSupportedEngine returns the database engine this provider supports.
func (p *PostgresMigrationProvider) GetSupportedEngine() string {
	return engine
}

// RunMigrations executes PostgreSQL database migrations.
func (p *PostgresMigrationProvider) RunMigrations(ctx context.Context, config storage.MigrationConfig) error {
	provider, closeDB, err := p.open(ctx, config)
	if err != nil {
		return err
	}
	defer closeDB()

	return sqlcommon.Migrate(ctx, provider, engine, config)
}

// GetCurrentVersion returns the current migration version.
func (p *PostgresMigrationProvider) GetCurrentVersion(ctx context.Context, config storage.MigrationConfig) (int64, error) {
	provider, closeDB, err := p.open(ctx, config)
	if err != nil {
		return 0, err
	}
	defer closeDB()

	return provider.GetDBVersion(ctx)
}

func (p *PostgresMigrationProvider) open(ctx context.Context, config storage.MigrationConfig) (*goose.Provider, func(), error) {
	uri, err := PrepareURI(config.URI, config.Username, config.Password)
	if err != nil {
		return nil, nil, err
	}

	db, err := goose.OpenDBWithDriver("pgx", uri)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := sqlcommon.WaitForDB(ctx, db, engine, config); err != nil {
		db.Close()
		return nil, nil, err
	}

	provider, err := sqlcommon.NewMigrationProvider(db, goose.DialectPostgres, assets.PostgresMigrationDir, config.Verbose)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	return provider, func() { db.Close() }, nil
}
