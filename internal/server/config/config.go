// Package config contains all knobs and defaults used to configure kgview
// when running as a standalone server.
package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/kgview/kgview/pkg/graph"
	"github.com/kgview/kgview/pkg/request"
)

const (
	DefaultCacheTTL           = 60 * time.Second
	DefaultLocalCacheMaxItems = 512
	DefaultRedisAddr          = "redis://localhost:6379/0"
	DefaultRedisDialTimeout   = 2 * time.Second
	DefaultRedisReadTimeout   = time.Second

	DefaultRequestTimeout   = 30 * time.Second
	DefaultRetryAfter       = 5 * time.Second
	DefaultPostgRESTTimeout = 15 * time.Second
	DefaultPostgRESTRetries = 2
	DefaultPostgRESTFunc    = "get_graph_membros"
)

// Supported datastore engines.
const (
	EngineMemory    = "memory"
	EnginePostgres  = "postgres"
	EngineMySQL     = "mysql"
	EngineSQLite    = "sqlite"
	EnginePostgREST = "postgrest"
)

var engines = []string{EngineMemory, EnginePostgres, EngineMySQL, EngineSQLite, EnginePostgREST}

type DatastoreMetricsConfig struct {
	// Enabled enables export of the Datastore metrics.
	Enabled bool
}

// PostgRESTConfig configures the 'postgrest' engine, which calls a stored
// function through a PostgREST (e.g. Supabase) endpoint found at the
// datastore URI.
type PostgRESTConfig struct {
	APIKey   string `mapstructure:"apiKey"`
	Function string
	Timeout  time.Duration
	RetryMax int
}

// DatastoreConfig defines kgview server configurations for datastore specific settings.
type DatastoreConfig struct {
	// Engine is the datastore engine to use (e.g. 'memory', 'postgres', 'mysql', 'sqlite', 'postgrest')
	Engine   string
	URI      string
	Username string
	Password string

	// SeedFile is a YAML or JSON dataset loaded into the 'memory' engine on start.
	SeedFile string

	// MaxOpenConns is the maximum number of open connections to the database.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of connections to the datastore in the idle connection
	// pool.
	MaxIdleConns int

	// ConnMaxIdleTime is the maximum amount of time a connection to the datastore may be idle.
	ConnMaxIdleTime time.Duration

	// ConnMaxLifetime is the maximum amount of time a connection to the datastore may be reused.
	ConnMaxLifetime time.Duration

	// QueryTimeout bounds a single extraction query. Zero leaves it to the request timeout.
	QueryTimeout time.Duration

	// Metrics is configuration for the Datastore metrics.
	Metrics DatastoreMetricsConfig

	PostgREST PostgRESTConfig `mapstructure:"postgrest"`
}

type LocalCacheConfig struct {
	MaxItems int64
}

// RedisCacheConfig configures the distributed cache tier. Addr is either a
// comma separated host:port list or a redis:// url.
type RedisCacheConfig struct {
	Enabled     bool
	Addr        string
	Username    string
	Password    string
	DB          int
	DialTimeout time.Duration
	ReadTimeout time.Duration
}

// CacheConfig defines the caching of assembled graphs. The local tier is
// always on; with redis enabled it only serves when redis is unreachable.
type CacheConfig struct {
	TTL   time.Duration
	Local LocalCacheConfig
	Redis RedisCacheConfig
}

// HTTPConfig defines kgview server configurations for HTTP server specific settings.
type HTTPConfig struct {
	Addr string
	TLS  *TLSConfig

	CORSAllowedOrigins []string
	CORSAllowedHeaders []string

	// RetryAfter is the hint given to clients when the data source is unavailable.
	RetryAfter time.Duration
}

// TLSConfig defines configuration specific to Transport Layer Security (TLS) settings.
type TLSConfig struct {
	Enabled  bool
	CertPath string `mapstructure:"cert"`
	KeyPath  string `mapstructure:"key"`
}

// GraphConfig holds the defaults of graph requests and the sizing of nodes.
type GraphConfig struct {
	IncludeCoOccurrence bool
	MaxInferredPairs    int
	MaxNodes            int
	MaxEdges            int
	SizeFloor           float64
	SizeScale           float64
}

// Defaults returns the request defaults.
func (g GraphConfig) Defaults() request.Defaults {
	return request.Defaults{
		IncludeCoOccurrence: g.IncludeCoOccurrence,
		MaxInferredPairs:    g.MaxInferredPairs,
		MaxNodes:            g.MaxNodes,
		MaxEdges:            g.MaxEdges,
	}
}

func (g GraphConfig) SizeParams() graph.SizeParams {
	return graph.SizeParams{Floor: g.SizeFloor, Scale: g.SizeScale}
}

// LogConfig defines kgview server configurations for log specific settings. For production we
// recommend using the 'json' log format.
type LogConfig struct {
	// Format is the log format to use in the log output (e.g. 'text' or 'json')
	Format string

	// Level is the log level to use in the log output (e.g. 'none', 'debug', or 'info')
	Level string
}

type TraceConfig struct {
	Enabled     bool
	OTLP        OTLPTraceConfig `mapstructure:"otlp"`
	SampleRatio float64
	ServiceName string

	// TailLatency, when set, only exports traces slower than it.
	TailLatency time.Duration
}

type OTLPTraceConfig struct {
	Endpoint string
}

// ProfilerConfig defines server configurations specific to pprof profiling.
type ProfilerConfig struct {
	Enabled bool
	Addr    string
}

// MetricConfig defines configurations for serving custom metrics from kgview.
type MetricConfig struct {
	Enabled bool
	Addr    string
}

type Config struct {
	// RequestTimeout bounds the handling of one request, including a shared
	// assembly it waits on.
	RequestTimeout time.Duration

	Datastore DatastoreConfig
	Cache     CacheConfig
	HTTP      HTTPConfig
	Graph     GraphConfig
	Log       LogConfig
	Trace     TraceConfig
	Profiler  ProfilerConfig
	Metrics   MetricConfig
}

func (cfg *Config) Verify() error {
	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		return fmt.Errorf("config 'log.format' must be one of ['text', 'json']")
	}

	if !slices.Contains([]string{"none", "debug", "info", "warn", "error", "panic", "fatal"}, cfg.Log.Level) {
		return fmt.Errorf(
			"config 'log.level' must be one of ['none', 'debug', 'info', 'warn', 'error', 'panic', 'fatal']",
		)
	}

	if err := cfg.verifyDatastore(); err != nil {
		return err
	}

	if cfg.Cache.TTL <= 0 {
		return errors.New("config 'cache.ttl' must be a positive duration")
	}

	if cfg.Cache.Local.MaxItems <= 0 {
		return errors.New("config 'cache.local.maxItems' must be a positive integer")
	}

	if cfg.Cache.Redis.Enabled && cfg.Cache.Redis.Addr == "" {
		return errors.New("config 'cache.redis.addr' must be set when redis is enabled")
	}

	if cfg.HTTP.TLS != nil && cfg.HTTP.TLS.Enabled {
		if cfg.HTTP.TLS.CertPath == "" || cfg.HTTP.TLS.KeyPath == "" {
			return errors.New("'http.tls.cert' and 'http.tls.key' configs must be set")
		}
	}

	if cfg.RequestTimeout <= 0 {
		return errors.New("config 'requestTimeout' must be a positive duration")
	}

	defaults := cfg.Graph.Defaults()
	spec := request.RequestSpec{
		MaxInferredPairs: &defaults.MaxInferredPairs,
		MaxNodes:         &defaults.MaxNodes,
		MaxEdges:         &defaults.MaxEdges,
	}
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("config 'graph' defaults: %w", err)
	}

	if cfg.Graph.SizeFloor < 0 || cfg.Graph.SizeScale < 0 {
		return errors.New("config 'graph.sizeFloor' and 'graph.sizeScale' must not be negative")
	}

	if cfg.Trace.Enabled && (cfg.Trace.SampleRatio < 0 || cfg.Trace.SampleRatio > 1) {
		return errors.New("config 'trace.sampleRatio' must be between 0 and 1")
	}

	return nil
}

func (cfg *Config) verifyDatastore() error {
	ds := cfg.Datastore
	if !slices.Contains(engines, ds.Engine) {
		return fmt.Errorf("config 'datastore.engine' must be one of %v", engines)
	}

	switch ds.Engine {
	case EngineMemory:
		return nil
	case EnginePostgREST:
		if ds.URI == "" || ds.PostgREST.APIKey == "" {
			return errors.New("the 'postgrest' engine requires 'datastore.uri' and 'datastore.postgrest.apiKey'")
		}
		if ds.PostgREST.Timeout <= 0 {
			return errors.New("config 'datastore.postgrest.timeout' must be a positive duration")
		}
		if ds.PostgREST.RetryMax < 0 {
			return errors.New("config 'datastore.postgrest.retryMax' must not be negative")
		}
	default:
		if ds.URI == "" {
			return fmt.Errorf("the '%s' engine requires 'datastore.uri'", ds.Engine)
		}
	}

	return nil
}

// DefaultConfig is the kgview server default configurations.
func DefaultConfig() *Config {
	return &Config{
		RequestTimeout: DefaultRequestTimeout,
		Datastore: DatastoreConfig{
			Engine:       EngineMemory,
			MaxIdleConns: 10,
			MaxOpenConns: 30,
			PostgREST: PostgRESTConfig{
				Function: DefaultPostgRESTFunc,
				Timeout:  DefaultPostgRESTTimeout,
				RetryMax: DefaultPostgRESTRetries,
			},
		},
		Cache: CacheConfig{
			TTL:   DefaultCacheTTL,
			Local: LocalCacheConfig{MaxItems: DefaultLocalCacheMaxItems},
			Redis: RedisCacheConfig{
				Enabled:     false,
				Addr:        DefaultRedisAddr,
				DialTimeout: DefaultRedisDialTimeout,
				ReadTimeout: DefaultRedisReadTimeout,
			},
		},
		HTTP: HTTPConfig{
			Addr:               "0.0.0.0:8080",
			TLS:                &TLSConfig{Enabled: false},
			CORSAllowedOrigins: []string{"*"},
			CORSAllowedHeaders: []string{"*"},
			RetryAfter:         DefaultRetryAfter,
		},
		Graph: GraphConfig{
			IncludeCoOccurrence: request.DefaultIncludeCoOccurrence,
			MaxInferredPairs:    request.DefaultMaxInferredPairs,
			MaxNodes:            request.DefaultMaxNodes,
			MaxEdges:            request.DefaultMaxEdges,
			SizeFloor:           graph.DefaultSizeFloor,
			SizeScale:           graph.DefaultSizeScale,
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
		Trace: TraceConfig{
			Enabled: false,
			OTLP: OTLPTraceConfig{
				Endpoint: "0.0.0.0:4317",
			},
			SampleRatio: 0.2,
			ServiceName: "kgview",
		},
		Profiler: ProfilerConfig{
			Enabled: false,
			Addr:    ":3001",
		},
		Metrics: MetricConfig{
			Enabled: true,
			Addr:    "0.0.0.0:2112",
		},
	}
}
