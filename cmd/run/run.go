// Package run contains the command to run a kgview server.
package run

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	goruntime "runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/kgview/kgview/internal/build"
	serverconfig "github.com/kgview/kgview/internal/server/config"
	"github.com/kgview/kgview/pkg/assembly"
	"github.com/kgview/kgview/pkg/cache"
	"github.com/kgview/kgview/pkg/cache/local"
	"github.com/kgview/kgview/pkg/cache/redis"
	"github.com/kgview/kgview/pkg/logger"
	"github.com/kgview/kgview/pkg/middleware"
	"github.com/kgview/kgview/pkg/middleware/logging"
	"github.com/kgview/kgview/pkg/middleware/recovery"
	"github.com/kgview/kgview/pkg/middleware/requestid"
	"github.com/kgview/kgview/pkg/server"
	"github.com/kgview/kgview/pkg/storage"
	"github.com/kgview/kgview/pkg/storage/memory"
	"github.com/kgview/kgview/pkg/storage/mysql"
	"github.com/kgview/kgview/pkg/storage/postgres"
	"github.com/kgview/kgview/pkg/storage/postgrest"
	"github.com/kgview/kgview/pkg/storage/sqlcommon"
	"github.com/kgview/kgview/pkg/storage/sqlite"
	"github.com/kgview/kgview/pkg/telemetry"
)

func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the kgview server",
		Long:  "Run the kgview server.",
		Run:   run,
		Args:  cobra.NoArgs,
	}

	defaultConfig := serverconfig.DefaultConfig()
	flags := cmd.Flags()

	flags.Duration("request-timeout", defaultConfig.RequestTimeout, "the timeout duration for a graph request, including a shared assembly it waits on")

	flags.String("http-addr", defaultConfig.HTTP.Addr, "the host:port address to serve the HTTP server on")

	flags.Bool("http-tls-enabled", defaultConfig.HTTP.TLS.Enabled, "enable/disable transport layer security (TLS)")

	flags.String("http-tls-cert", defaultConfig.HTTP.TLS.CertPath, "the (absolute) file path of the certificate to use for the TLS connection")

	flags.String("http-tls-key", defaultConfig.HTTP.TLS.KeyPath, "the (absolute) file path of the TLS key that should be used for the TLS connection")

	flags.StringSlice("http-cors-allowed-origins", defaultConfig.HTTP.CORSAllowedOrigins, "specifies the CORS allowed origins")

	flags.StringSlice("http-cors-allowed-headers", defaultConfig.HTTP.CORSAllowedHeaders, "specifies the CORS allowed headers")

	flags.Duration("http-retry-after", defaultConfig.HTTP.RetryAfter, "the Retry-After hint sent when the datastore is unavailable")

	flags.String("datastore-engine", defaultConfig.Datastore.Engine, "the datastore engine the graph is read from ('memory', 'postgres', 'mysql', 'sqlite' or 'postgrest')")

	flags.String("datastore-uri", defaultConfig.Datastore.URI, "the connection uri to use to connect to the datastore (for any engine other than 'memory')")

	flags.String("datastore-username", "", "the connection username to use to connect to the datastore (overwrites any username provided in the connection uri)")

	flags.String("datastore-password", "", "the connection password to use to connect to the datastore (overwrites any password provided in the connection uri)")

	flags.String("datastore-seed-file", defaultConfig.Datastore.SeedFile, "a YAML or JSON dataset loaded into the 'memory' datastore on start")

	flags.Int("datastore-max-open-conns", defaultConfig.Datastore.MaxOpenConns, "the maximum number of open connections to the datastore")

	flags.Int("datastore-max-idle-conns", defaultConfig.Datastore.MaxIdleConns, "the maximum number of connections to the datastore in the idle connection pool")

	flags.Duration("datastore-conn-max-idle-time", defaultConfig.Datastore.ConnMaxIdleTime, "the maximum amount of time a connection to the datastore may be idle")

	flags.Duration("datastore-conn-max-lifetime", defaultConfig.Datastore.ConnMaxLifetime, "the maximum amount of time a connection to the datastore may be reused")

	flags.Duration("datastore-query-timeout", defaultConfig.Datastore.QueryTimeout, "the timeout of a single extraction query (0 leaves it to the request timeout)")

	flags.Bool("datastore-metrics-enabled", defaultConfig.Datastore.Metrics.Enabled, "enable/disable sql metrics")

	flags.String("datastore-postgrest-api-key", defaultConfig.Datastore.PostgREST.APIKey, "the api key sent to the PostgREST endpoint")

	flags.String("datastore-postgrest-function", defaultConfig.Datastore.PostgREST.Function, "the stored function returning the direct graph")

	flags.Duration("datastore-postgrest-timeout", defaultConfig.Datastore.PostgREST.Timeout, "the timeout of one PostgREST call")

	flags.Int("datastore-postgrest-retry-max", defaultConfig.Datastore.PostgREST.RetryMax, "how many times a failed PostgREST call is retried")

	flags.Duration("cache-ttl", defaultConfig.Cache.TTL, "how long an assembled graph is served from the cache")

	flags.Int64("cache-local-max-items", defaultConfig.Cache.Local.MaxItems, "the maximum number of graphs held by the in-process cache")

	flags.Bool("cache-redis-enabled", defaultConfig.Cache.Redis.Enabled, "enable/disable the redis cache tier")

	flags.String("cache-redis-addr", defaultConfig.Cache.Redis.Addr, "a redis:// url or a comma separated list of host:port addresses")

	flags.String("cache-redis-username", defaultConfig.Cache.Redis.Username, "the redis username")

	flags.String("cache-redis-password", defaultConfig.Cache.Redis.Password, "the redis password")

	flags.Int("cache-redis-db", defaultConfig.Cache.Redis.DB, "the redis database")

	flags.Duration("cache-redis-dial-timeout", defaultConfig.Cache.Redis.DialTimeout, "the timeout for establishing a redis connection")

	flags.Duration("cache-redis-read-timeout", defaultConfig.Cache.Redis.ReadTimeout, "the timeout of a redis read or write")

	flags.Bool("graph-include-co-occurrence", defaultConfig.Graph.IncludeCoOccurrence, "infer co-group and co-role edges unless a request says otherwise")

	flags.Int("graph-max-inferred-pairs", defaultConfig.Graph.MaxInferredPairs, "the default budget of inferred edges per request")

	flags.Int("graph-max-nodes", defaultConfig.Graph.MaxNodes, "the default maximum number of nodes in a graph")

	flags.Int("graph-max-edges", defaultConfig.Graph.MaxEdges, "the default maximum number of edges in a graph")

	flags.Float64("graph-size-floor", defaultConfig.Graph.SizeFloor, "the size of a node without edges")

	flags.Float64("graph-size-scale", defaultConfig.Graph.SizeScale, "how fast the node size grows with its degree")

	flags.String("log-format", defaultConfig.Log.Format, "the log format to output logs in")

	flags.String("log-level", defaultConfig.Log.Level, "the log level to use")

	flags.Bool("trace-enabled", defaultConfig.Trace.Enabled, "enable tracing")

	flags.String("trace-otlp-endpoint", defaultConfig.Trace.OTLP.Endpoint, "the endpoint of the trace collector")

	flags.Float64("trace-sample-ratio", defaultConfig.Trace.SampleRatio, "the fraction of traces to sample. 1 means all, 0 means none.")

	flags.String("trace-service-name", defaultConfig.Trace.ServiceName, "the service name included in sampled traces.")

	flags.Duration("trace-tail-latency", defaultConfig.Trace.TailLatency, "only export traces slower than this (0 exports all sampled traces)")

	flags.Bool("profiler-enabled", defaultConfig.Profiler.Enabled, "enable/disable pprof profiling")

	flags.String("profiler-addr", defaultConfig.Profiler.Addr, "the host:port address to serve the pprof profiler server on")

	flags.Bool("metrics-enabled", defaultConfig.Metrics.Enabled, "enable/disable prometheus metrics on the '/metrics' endpoint")

	flags.String("metrics-addr", defaultConfig.Metrics.Addr, "the host:port address to serve the prometheus metrics server on")

	// NOTE: if you add a new flag here, update the function below, too

	cmd.PreRun = bindRunFlagsFunc(flags)

	return cmd
}

// ReadConfig returns the kgview server configuration based on the values provided in the server's 'config.yaml' file.
// The 'config.yaml' file is loaded from '/etc/kgview', '$HOME/.kgview', or the current working directory. If no configuration
// file is present, the default values are returned.
func ReadConfig() (*serverconfig.Config, error) {
	config := serverconfig.DefaultConfig()

	viper.SetTypeByDefaultValue(true)
	err := viper.ReadInConfig()
	if err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("failed to load server config: %w", err)
		}
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal server config: %w", err)
	}

	return config, nil
}

func run(_ *cobra.Command, _ []string) {
	config, err := ReadConfig()
	if err != nil {
		panic(err)
	}

	if err := config.Verify(); err != nil {
		panic(err)
	}

	logger := logger.MustNewLogger(config.Log.Format, config.Log.Level)
	serverCtx := &ServerContext{Logger: logger}
	if err := serverCtx.Run(context.Background(), config); err != nil {
		panic(err)
	}
}

type ServerContext struct {
	Logger logger.Logger
}

// telemetryConfig returns the function that must be called to shut down tracing.
func (s *ServerContext) telemetryConfig(ctx context.Context, config *serverconfig.Config) (func() error, error) {
	if !config.Trace.Enabled {
		otel.SetTracerProvider(telemetry.Noop())
		return func() error { return nil }, nil
	}

	s.Logger.Info(fmt.Sprintf("🕵 tracing enabled: sampling ratio is %v and sending traces to '%s'", config.Trace.SampleRatio, config.Trace.OTLP.Endpoint))

	tp, err := telemetry.NewTracerProvider(ctx,
		telemetry.WithOTLPEndpoint(config.Trace.OTLP.Endpoint),
		telemetry.WithServiceName(config.Trace.ServiceName),
		telemetry.WithAttributes(attribute.String("kgview.datastore.engine", config.Datastore.Engine)),
		telemetry.WithSamplingRatio(config.Trace.SampleRatio),
		telemetry.WithTailLatency(config.Trace.TailLatency),
	)
	if err != nil {
		return nil, fmt.Errorf("initialize tracing: %w", err)
	}

	return func() error {
		// the batch span processor can take up to 5 seconds to flush
		ctx, cancel := context.WithTimeout(context.Background(), 6*time.Second)
		defer cancel()
		return tp.Close(ctx)
	}, nil
}

func (s *ServerContext) datastoreConfig(config *serverconfig.Config) (storage.GraphReader, error) {
	datastoreOptions := []sqlcommon.DatastoreOption{
		sqlcommon.WithUsername(config.Datastore.Username),
		sqlcommon.WithPassword(config.Datastore.Password),
		sqlcommon.WithLogger(s.Logger),
		sqlcommon.WithMaxOpenConns(config.Datastore.MaxOpenConns),
		sqlcommon.WithMaxIdleConns(config.Datastore.MaxIdleConns),
		sqlcommon.WithConnMaxIdleTime(config.Datastore.ConnMaxIdleTime),
		sqlcommon.WithConnMaxLifetime(config.Datastore.ConnMaxLifetime),
		sqlcommon.WithQueryTimeout(config.Datastore.QueryTimeout),
	}

	if config.Datastore.Metrics.Enabled {
		datastoreOptions = append(datastoreOptions, sqlcommon.WithMetrics())
	}

	dsCfg := sqlcommon.NewConfig(datastoreOptions...)

	var datastore storage.GraphReader
	var err error
	switch config.Datastore.Engine {
	case serverconfig.EngineMemory:
		if config.Datastore.SeedFile == "" {
			s.Logger.Warn("memory datastore started without a seed file, every graph will be empty")
			return memory.New(), nil
		}
		datastore, err = memory.LoadFile(config.Datastore.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("initialize memory datastore: %w", err)
		}
	case serverconfig.EngineMySQL:
		datastore, err = mysql.New(config.Datastore.URI, dsCfg)
		if err != nil {
			return nil, fmt.Errorf("initialize mysql datastore: %w", err)
		}
	case serverconfig.EnginePostgres:
		datastore, err = postgres.New(config.Datastore.URI, dsCfg)
		if err != nil {
			return nil, fmt.Errorf("initialize postgres datastore: %w", err)
		}
	case serverconfig.EngineSQLite:
		datastore, err = sqlite.New(config.Datastore.URI, dsCfg)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite datastore: %w", err)
		}
	case serverconfig.EnginePostgREST:
		datastore, err = postgrest.New(config.Datastore.URI,
			postgrest.WithAPIKey(config.Datastore.PostgREST.APIKey),
			postgrest.WithFunction(config.Datastore.PostgREST.Function),
			postgrest.WithTimeout(config.Datastore.PostgREST.Timeout),
			postgrest.WithRetryMax(config.Datastore.PostgREST.RetryMax),
			postgrest.WithLogger(s.Logger),
		)
		if err != nil {
			return nil, fmt.Errorf("initialize postgrest datastore: %w", err)
		}
	default:
		return nil, fmt.Errorf("storage engine '%s' is unsupported", config.Datastore.Engine)
	}

	s.Logger.Info(fmt.Sprintf("using '%v' storage engine", config.Datastore.Engine))

	return datastore, nil
}

// cacheConfig returns the graph cache. With redis enabled it is tiered over
// the in-process cache, and the returned check reports whether redis answers.
func (s *ServerContext) cacheConfig(config *serverconfig.Config) (cache.Cache, server.ReadinessCheck, error) {
	localCache, err := local.New(
		local.WithMaxEntries(config.Cache.Local.MaxItems),
		local.WithTTL(config.Cache.TTL),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize local cache: %w", err)
	}

	if !config.Cache.Redis.Enabled {
		return localCache, nil, nil
	}

	redisCache, err := redis.New(
		redis.WithAddr(config.Cache.Redis.Addr),
		redis.WithUserCredential(config.Cache.Redis.Username),
		redis.WithPassCredential(config.Cache.Redis.Password),
		redis.WithDatabase(config.Cache.Redis.DB),
		redis.WithDialTimeout(config.Cache.Redis.DialTimeout),
		redis.WithReadTimeout(config.Cache.Redis.ReadTimeout),
		redis.WithTTL(config.Cache.TTL),
	)
	if err != nil {
		_ = localCache.Close()
		return nil, nil, fmt.Errorf("initialize redis cache: %w", err)
	}

	s.Logger.Info("graph cache is tiered: redis, then local")

	tiered := cache.NewTiered(redisCache, localCache,
		cache.WithTieredLogger(s.Logger),
		cache.WithTierNames("redis", "local"),
	)
	return tiered, redisCache.Ping, nil
}

// buildHandler wraps the API in the middleware chain. The request timeout is
// applied innermost so the logged duration includes waiting on it.
func (s *ServerContext) buildHandler(config *serverconfig.Config, svr *server.Server) http.Handler {
	handler := svr.Handler()
	handler = middleware.NewTimeoutHandler(config.RequestTimeout).Handler(handler)
	handler = logging.HTTPHandler(handler, s.Logger)
	handler = requestid.HTTPHandler(handler)

	if config.Trace.Enabled {
		handler = telemetry.HTTPHandler(handler, build.ProjectName)
	} else {
		handler = telemetry.HTTPServerTraceExtractor(handler)
	}

	handler = cors.New(cors.Options{
		AllowedOrigins:   config.HTTP.CORSAllowedOrigins,
		AllowCredentials: true,
		AllowedHeaders:   config.HTTP.CORSAllowedHeaders,
		AllowedMethods:   []string{http.MethodGet, http.MethodHead},
		ExposedHeaders:   []string{"ETag", "Retry-After", requestid.RequestIDHeader},
	}).Handler(handler)

	return recovery.HTTPPanicRecoveryHandler(handler, s.Logger)
}

func (s *ServerContext) runHTTPServer(config *serverconfig.Config, handler http.Handler) (*http.Server, error) {
	httpServer := &http.Server{
		Addr:              config.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 30 * time.Second,
	}

	listener, err := net.Listen("tcp", config.HTTP.Addr)
	if err != nil {
		return nil, err
	}

	tlsEnabled := config.HTTP.TLS != nil && config.HTTP.TLS.Enabled
	if tlsEnabled {
		s.Logger.Info("HTTP TLS is enabled, serving connections using the provided certificate")
	} else {
		s.Logger.Warn("HTTP TLS is disabled, serving connections using insecure plaintext")
	}

	go func() {
		s.Logger.Info(fmt.Sprintf("🚀 starting HTTP server on '%s'...", listener.Addr().String()))

		var err error
		if tlsEnabled {
			err = httpServer.ServeTLS(listener, config.HTTP.TLS.CertPath, config.HTTP.TLS.KeyPath)
		} else {
			err = httpServer.Serve(listener)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Fatal("HTTP server closed with unexpected error", zap.Error(err))
		}
		s.Logger.Info("HTTP server shut down.")
	}()

	return httpServer, nil
}

// Run returns an error if the server was unable to start successfully.
// If it started and terminated successfully, it returns a nil error.
func (s *ServerContext) Run(ctx context.Context, config *serverconfig.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracerProviderCloser, err := s.telemetryConfig(ctx, config)
	if err != nil {
		return err
	}

	datastore, err := s.datastoreConfig(config)
	if err != nil {
		return err
	}

	graphCache, cacheCheck, err := s.cacheConfig(config)
	if err != nil {
		datastore.Close()
		return err
	}

	var profilerServer *http.Server
	if config.Profiler.Enabled {
		mux := http.NewServeMux()
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

		profilerServer = &http.Server{Addr: config.Profiler.Addr, Handler: mux, ReadHeaderTimeout: 30 * time.Second}

		go func() {
			s.Logger.Info(fmt.Sprintf("🔬 starting pprof profiler on '%s'", config.Profiler.Addr))

			if err := profilerServer.ListenAndServe(); err != nil {
				if !errors.Is(err, http.ErrServerClosed) {
					s.Logger.Fatal("failed to start pprof profiler", zap.Error(err))
				}
			}
			s.Logger.Info("profiler shut down.")
		}()
	}

	var metricsServer *http.Server
	if config.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())

		metricsServer = &http.Server{Addr: config.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 30 * time.Second}

		go func() {
			s.Logger.Info(fmt.Sprintf("📈 starting prometheus metrics server on '%s'", config.Metrics.Addr))
			if err := metricsServer.ListenAndServe(); err != nil {
				if !errors.Is(err, http.ErrServerClosed) {
					s.Logger.Fatal("failed to start prometheus metrics server", zap.Error(err))
				}
			}
			s.Logger.Info("metrics server shut down.")
		}()
	}

	pipeline := assembly.NewAssembler(datastore,
		assembly.WithCache(graphCache, config.Cache.TTL),
		assembly.WithDefaults(config.Graph.Defaults()),
		assembly.WithSizing(config.Graph.SizeParams()),
		assembly.WithTimeout(config.RequestTimeout),
		assembly.WithLogger(s.Logger),
	)

	serverOpts := []server.ServerOption{
		server.WithLogger(s.Logger),
		server.WithCacheTTL(pipeline.CacheTTL()),
		server.WithRetryAfter(config.HTTP.RetryAfter),
	}
	if cacheCheck != nil {
		serverOpts = append(serverOpts, server.WithReadinessCheck("redis", cacheCheck))
	}
	svr := server.NewServer(pipeline, serverOpts...)

	s.Logger.Info(
		"starting kgview service...",
		zap.String("version", build.Version),
		zap.String("date", build.Date),
		zap.String("commit", build.Commit),
		zap.String("go-version", goruntime.Version()),
		zap.String("datastore", config.Datastore.Engine),
		zap.Duration("cache-ttl", config.Cache.TTL),
		zap.Bool("redis", config.Cache.Redis.Enabled),
	)

	httpServer, err := s.runHTTPServer(config, s.buildHandler(config, svr))
	if err != nil {
		pipeline.Close()
		_ = graphCache.Close()
		datastore.Close()
		return err
	}

	// wait for cancellation signal
	<-ctx.Done()
	s.Logger.Info("attempting to shutdown gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		s.Logger.Info("failed to shutdown the http server", zap.Error(err))
	}

	if profilerServer != nil {
		if err := profilerServer.Shutdown(ctx); err != nil {
			s.Logger.Info("failed to shutdown the profiler", zap.Error(err))
		}
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			s.Logger.Info("failed to shutdown the prometheus metrics server", zap.Error(err))
		}
	}

	pipeline.Close()

	if err := graphCache.Close(); err != nil {
		s.Logger.Warn("failed to close the graph cache", zap.Error(err))
	}

	datastore.Close()

	if err := tracerProviderCloser(); err != nil {
		s.Logger.Error("failed to shutdown tracing", zap.Error(err))
	}

	s.Logger.Info("server exited. goodbye 👋")

	return nil
}
