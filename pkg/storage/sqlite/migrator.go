package sqlite

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/kgview/kgview/assets"
	"github.com/kgview/kgview/pkg/storage"
	"github.com/kgview/kgview/pkg/storage/sqlcommon"
)

// SQLiteMigrationProvider implements MigrationProvider for SQLite.
type SQLiteMigrationProvider struct{}

func NewSQLiteMigrationProvider() *SQLiteMigrationProvider {
	return &SQLiteMigrationProvider{}
}

// GetSupportedEngine returns the database engine this provider supports.
func (s *SQLiteMigrationProvider) GetSupportedEngine() string {
	return engine
}

// RunMigrations executes SQLite database migrations.
func (s *SQLiteMigrationProvider) RunMigrations(ctx context.Context, config storage.MigrationConfig) error {
	provider, closeDB, err := s.open(ctx, config)
	if err != nil {
		return err
	}
	defer closeDB()

	return sqlcommon.Migrate(ctx, provider, engine, config)
}

// GetCurrentVersion returns the current migration version.
func (s *SQLiteMigrationProvider) GetCurrentVersion(ctx context.Context, config storage.MigrationConfig) (int64, error) {
	provider, closeDB, err := s.open(ctx, config)
	if err != nil {
		return 0, err
	}
	defer closeDB()

	return provider.GetDBVersion(ctx)
}

func (s *SQLiteMigrationProvider) open(ctx context.Context, config storage.MigrationConfig) (*goose.Provider, func(), error) {
	uri, err := PrepareDSN(config.URI)
	if err != nil {
		return nil, nil, err
	}

	db, err := goose.OpenDBWithDriver("sqlite", uri)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open sqlite connection: %w", err)
	}

	if err := sqlcommon.WaitForDB(ctx, db, engine, config); err != nil {
		db.Close()
		return nil, nil, err
	}

	provider, err := sqlcommon.NewMigrationProvider(db, goose.DialectSQLite3, assets.SqliteMigrationDir, config.Verbose)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	return provider, func() { db.Close() }, nil
}
