package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kgview/kgview/pkg/graph"
	"github.com/kgview/kgview/pkg/request"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Verify())

	require.Equal(t, request.DefaultDefaults(), cfg.Graph.Defaults())
	require.Equal(t, graph.DefaultSizeParams(), cfg.Graph.SizeParams())
	require.Equal(t, 60*time.Second, cfg.Cache.TTL)
	require.EqualValues(t, 512, cfg.Cache.Local.MaxItems)
}

func TestVerify(t *testing.T) {
	tests := map[string]struct {
		mutate  func(cfg *Config)
		wantErr string
	}{
		`bad_log_format`: {
			mutate:  func(cfg *Config) { cfg.Log.Format = "xml" },
			wantErr: "log.format",
		},
		`bad_log_level`: {
			mutate:  func(cfg *Config) { cfg.Log.Level = "verbose" },
			wantErr: "log.level",
		},
		`unknown_engine`: {
			mutate:  func(cfg *Config) { cfg.Datastore.Engine = "mssql" },
			wantErr: "datastore.engine",
		},
		`sql_engine_without_uri`: {
			mutate:  func(cfg *Config) { cfg.Datastore.Engine = EnginePostgres },
			wantErr: "requires 'datastore.uri'",
		},
		`postgrest_without_key`: {
			mutate: func(cfg *Config) {
				cfg.Datastore.Engine = EnginePostgREST
				cfg.Datastore.URI = "https://example.supabase.co"
			},
			wantErr: "postgrest.apiKey",
		},
		`postgrest_bad_timeout`: {
			mutate: func(cfg *Config) {
				cfg.Datastore.Engine = EnginePostgREST
				cfg.Datastore.URI = "https://example.supabase.co"
				cfg.Datastore.PostgREST.APIKey = "anon"
				cfg.Datastore.PostgREST.Timeout = 0
			},
			wantErr: "postgrest.timeout",
		},
		`zero_cache_ttl`: {
			mutate:  func(cfg *Config) { cfg.Cache.TTL = 0 },
			wantErr: "cache.ttl",
		},
		`zero_local_items`: {
			mutate:  func(cfg *Config) { cfg.Cache.Local.MaxItems = 0 },
			wantErr: "cache.local.maxItems",
		},
		`redis_without_addr`: {
			mutate: func(cfg *Config) {
				cfg.Cache.Redis.Enabled = true
				cfg.Cache.Redis.Addr = ""
			},
			wantErr: "cache.redis.addr",
		},
		`tls_without_cert`: {
			mutate:  func(cfg *Config) { cfg.HTTP.TLS.Enabled = true },
			wantErr: "http.tls.cert",
		},
		`zero_request_timeout`: {
			mutate:  func(cfg *Config) { cfg.RequestTimeout = 0 },
			wantErr: "requestTimeout",
		},
		`graph_defaults_out_of_range`: {
			mutate:  func(cfg *Config) { cfg.Graph.MaxNodes = 0 },
			wantErr: "max_nodes must be at least 1",
		},
		`negative_size_scale`: {
			mutate:  func(cfg *Config) { cfg.Graph.SizeScale = -1 },
			wantErr: "graph.sizeScale",
		},
		`bad_sample_ratio`: {
			mutate: func(cfg *Config) {
				cfg.Trace.Enabled = true
				cfg.Trace.SampleRatio = 2
			},
			wantErr: "trace.sampleRatio",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			test.mutate(cfg)
			require.ErrorContains(t, cfg.Verify(), test.wantErr)
		})
	}
}

func TestVerifyAcceptsConfiguredEngines(t *testing.T) {
	for _, engine := range []string{EnginePostgres, EngineMySQL, EngineSQLite} {
		cfg := DefaultConfig()
		cfg.Datastore.Engine = engine
		cfg.Datastore.URI = "file:kgview.db"
		require.NoError(t, cfg.Verify(), engine)
	}

	cfg := DefaultConfig()
	cfg.Datastore.Engine = EnginePostgREST
	cfg.Datastore.URI = "https://example.supabase.co"
	cfg.Datastore.PostgREST.APIKey = "anon"
	require.NoError(t, cfg.Verify())
}
