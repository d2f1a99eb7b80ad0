package migrate

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/kgview/kgview/cmd"
	"github.com/kgview/kgview/cmd/util"
	"github.com/kgview/kgview/pkg/storage"
	"github.com/kgview/kgview/pkg/storage/sqlite"
)

const defaultDuration = 1 * time.Minute

func TestMigrateCommandNoConfigDefaultValues(t *testing.T) {
	util.PrepareTempConfigDir(t)
	migrateCmd := NewMigrateCommand()
	migrateCmd.RunE = func(cmd *cobra.Command, _ []string) error {
		require.Empty(t, viper.GetString(datastoreEngineFlag))
		require.Empty(t, viper.GetString(datastoreURIFlag))
		require.Empty(t, viper.GetString(datastoreUsernameFlag))
		require.Empty(t, viper.GetString(datastorePasswordFlag))
		require.Equal(t, uint(0), viper.GetUint(versionFlag))
		require.Equal(t, defaultDuration, viper.GetDuration(timeoutFlag))
		require.False(t, viper.GetBool(verboseMigrationFlag))
		require.Equal(t, "text", viper.GetString(logFormatFlag))
		require.Equal(t, "info", viper.GetString(logLevelFlag))
		return nil
	}

	cmd := cmd.NewRootCommand()
	cmd.AddCommand(migrateCmd)
	cmd.SetArgs([]string{"migrate"})
	require.NoError(t, cmd.Execute())
}

func TestMigrateCommandConfigIsMerged(t *testing.T) {
	config := `datastore:
    engine: sqlite
`
	util.PrepareTempConfigFile(t, config)

	t.Setenv("KGVIEW_DATASTORE_URI", "file:kgview.db")
	t.Setenv("KGVIEW_VERBOSE", "true")
	t.Setenv("KGVIEW_LOG_FORMAT", "json")

	migrateCmd := NewMigrateCommand()
	migrateCmd.RunE = func(cmd *cobra.Command, _ []string) error {
		require.Equal(t, "sqlite", viper.GetString(datastoreEngineFlag))
		require.Equal(t, "file:kgview.db", viper.GetString(datastoreURIFlag))
		require.Equal(t, uint(0), viper.GetUint(versionFlag))
		require.Equal(t, defaultDuration, viper.GetDuration(timeoutFlag))
		require.True(t, viper.GetBool(verboseMigrationFlag))
		require.Equal(t, "json", viper.GetString(logFormatFlag))
		return nil
	}

	cmd := cmd.NewRootCommand()
	cmd.AddCommand(migrateCmd)
	cmd.SetArgs([]string{"migrate"})
	require.NoError(t, cmd.Execute())
}

func TestMigrateCommandRunsSQLiteMigrations(t *testing.T) {
	util.PrepareTempConfigDir(t)
	uri := filepath.Join(t.TempDir(), "kgview.db")

	rootCmd := cmd.NewRootCommand()
	rootCmd.AddCommand(NewMigrateCommand())
	rootCmd.SetArgs([]string{"migrate", "--datastore-engine", "sqlite", "--datastore-uri", uri, "--timeout", "5s"})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	version, err := sqlite.NewSQLiteMigrationProvider().GetCurrentVersion(context.Background(), storage.MigrationConfig{
		Engine:  "sqlite",
		URI:     uri,
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	require.Positive(t, version)
}

func TestMigrateCommandErrors(t *testing.T) {
	tests := map[string]struct {
		args    []string
		wantErr string
	}{
		`unknown_engine`: {
			args:    []string{"migrate", "--datastore-engine", "mssql"},
			wantErr: "no migration provider registered for engine: mssql",
		},
		`bad_log_level`: {
			args:    []string{"migrate", "--datastore-engine", "sqlite", "--log-level", "verbose"},
			wantErr: "unknown log level",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			util.PrepareTempConfigDir(t)

			rootCmd := cmd.NewRootCommand()
			rootCmd.AddCommand(NewMigrateCommand())
			rootCmd.SetArgs(test.args)
			rootCmd.SilenceUsage = true
			rootCmd.SilenceErrors = true
			require.ErrorContains(t, rootCmd.Execute(), test.wantErr)
		})
	}
}

func TestMigrateCommandMemoryIsNoop(t *testing.T) {
	util.PrepareTempConfigDir(t)

	rootCmd := cmd.NewRootCommand()
	rootCmd.AddCommand(NewMigrateCommand())
	rootCmd.SetArgs([]string{"migrate", "--datastore-engine", "memory"})
	require.NoError(t, rootCmd.Execute())
}
