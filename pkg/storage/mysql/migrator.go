package mysql

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/kgview/kgview/assets"
	"github.com/kgview/kgview/pkg/storage"
	"github.com/kgview/kgview/pkg/storage/sqlcommon"
)

// MySQLMigrationProvider implements MigrationProvider for MySQL.
type MySQLMigrationProvider struct{}

func NewMySQLMigrationProvider() *MySQLMigrationProvider {
	return &MySQLMigrationProvider{}
}

// GetSupportedEngine returns the database engine this provider supports.
func (m *MySQLMigrationProvider) GetSupportedEngine() string {
	return engine
}

// RunMigrations executes MySQL database migrations.
func (m *MySQLMigrationProvider) RunMigrations(ctx context.Context, config storage.MigrationConfig) error {
	provider, closeDB, err := m.open(ctx, config)
	if err != nil {
		return err
	}
	defer closeDB()

	return sqlcommon.Migrate(ctx, provider, engine, config)
}

// GetCurrentVersion returns the current migration version.
func (m *MySQLMigrationProvider) GetCurrentVersion(ctx context.Context, config storage.MigrationConfig) (int64, error) {
	provider, closeDB, err := m.open(ctx, config)
	if err != nil {
		return 0, err
	}
	defer closeDB()

	return provider.GetDBVersion(ctx)
}

func (m *MySQLMigrationProvider) open(ctx context.Context, config storage.MigrationConfig) (*goose.Provider, func(), error) {
	dsn, err := PrepareDSN(config.URI, config.Username, config.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid mysql database uri: %w", err)
	}

	db, err := goose.OpenDBWithDriver("mysql", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open mysql connection: %w", err)
	}

	if err := sqlcommon.WaitForDB(ctx, db, engine, config); err != nil {
		db.Close()
		return nil, nil, err
	}

	provider, err := sqlcommon.NewMigrationProvider(db, goose.DialectMySQL, assets.MySQLMigrationDir, config.Verbose)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	return provider, func() { db.Close() }, nil
}
