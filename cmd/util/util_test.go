package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestMustBindPFlag(t *testing.T) {
	t.Cleanup(viper.Reset)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("cache-ttl", "60s", "")
	require.NoError(t, flags.Parse([]string{"--cache-ttl=5s"}))

	MustBindPFlag("cache.ttl", flags.Lookup("cache-ttl"))
	require.Equal(t, "5s", viper.GetString("cache.ttl"))

	require.Panics(t, func() {
		MustBindPFlag("cache.ttl", nil)
	})
}

func TestMustBindEnv(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("KGVIEW_CACHE_TTL", "7s")

	MustBindEnv("cache.ttl", "KGVIEW_CACHE_TTL")
	require.Equal(t, "7s", viper.GetString("cache.ttl"))

	require.Panics(t, func() {
		MustBindEnv()
	})
}

func TestPrepareTempConfigFile(t *testing.T) {
	PrepareTempConfigFile(t, "log:\n  level: debug\n")

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(home, ".kgview", "config.yaml"))
	require.NoError(t, err)
	require.Equal(t, "log:\n  level: debug\n", string(data))
}
