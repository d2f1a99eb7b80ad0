package sqlcommon

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/cenkalti/backoff/v4"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/kgview/kgview/assets"
	"github.com/kgview/kgview/pkg/logger"
	"github.com/kgview/kgview/pkg/storage"
)

// NewMigrationProvider returns a goose provider over the embedded migrations
// in dir.
func NewMigrationProvider(db *sql.DB, dialect goose.Dialect, dir string, verbose bool) (*goose.Provider, error) {
	migrations, err := fs.Sub(assets.EmbedMigrations, dir)
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations %s: %w", dir, err)
	}

	provider, err := goose.NewProvider(dialect, db, migrations, goose.WithVerbose(verbose))
	if err != nil {
		return nil, fmt.Errorf("failed to create goose provider: %w", err)
	}
	return provider, nil
}

// WaitForDB pings db with exponential backoff for at most config.Timeout.
func WaitForDB(ctx context.Context, db *sql.DB, engine string, config storage.MigrationConfig) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = config.Timeout
	err := backoff.Retry(func() error {
		return db.PingContext(ctx)
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		return fmt.Errorf("failed to initialize %s connection: %w", engine, err)
	}
	return nil
}

// Migrate moves the database to config.TargetVersion, or to the latest
// version when it is 0.
func Migrate(ctx context.Context, provider *goose.Provider, engine string, config storage.MigrationConfig) error {
	log := config.Logger
	if log == nil {
		log = logger.NewNoopLogger()
	}

	currentVersion, err := provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get %s db version: %w", engine, err)
	}

	log.Info("current schema version", zap.String("engine", engine), zap.Int64("version", currentVersion))

	if config.TargetVersion == 0 {
		log.Info("running all migrations", zap.String("engine", engine))
		if _, err := provider.Up(ctx); err != nil {
			return fmt.Errorf("failed to run %s migrations: %w", engine, err)
		}
		log.Info("migration done", zap.String("engine", engine))
		return nil
	}

	target := int64(config.TargetVersion)
	log.Info("migrating", zap.String("engine", engine), zap.Int64("target_version", target))

	switch {
	case target < currentVersion:
		if _, err := provider.DownTo(ctx, target); err != nil {
			return fmt.Errorf("failed to run %s migrations down to %v: %w", engine, target, err)
		}
	case target > currentVersion:
		if _, err := provider.UpTo(ctx, target); err != nil {
			return fmt.Errorf("failed to run %s migrations up to %v: %w", engine, target, err)
		}
	default:
		log.Info("nothing to do", zap.String("engine", engine))
		return nil
	}

	log.Info("migration done", zap.String("engine", engine))
	return nil
}
