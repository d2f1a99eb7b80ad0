package run

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kgview/kgview/cmd/util"
)

// bindRunFlagsFunc binds the cobra cmd flags to the equivalent config value being managed
// by viper. This bridges the config between cobra flags and viper flags.
func bindRunFlagsFunc(flags *pflag.FlagSet) func(*cobra.Command, []string) {
	return func(command *cobra.Command, _ []string) {
		util.MustBindPFlag("requestTimeout", flags.Lookup("request-timeout"))
		util.MustBindEnv("requestTimeout", "KGVIEW_REQUEST_TIMEOUT", "KGVIEW_REQUESTTIMEOUT")

		util.MustBindPFlag("http.addr", flags.Lookup("http-addr"))
		util.MustBindEnv("http.addr", "KGVIEW_HTTP_ADDR")

		util.MustBindPFlag("http.tls.enabled", flags.Lookup("http-tls-enabled"))
		util.MustBindEnv("http.tls.enabled", "KGVIEW_HTTP_TLS_ENABLED")

		util.MustBindPFlag("http.tls.cert", flags.Lookup("http-tls-cert"))
		util.MustBindEnv("http.tls.cert", "KGVIEW_HTTP_TLS_CERT")

		util.MustBindPFlag("http.tls.key", flags.Lookup("http-tls-key"))
		util.MustBindEnv("http.tls.key", "KGVIEW_HTTP_TLS_KEY")

		command.MarkFlagsRequiredTogether("http-tls-enabled", "http-tls-cert", "http-tls-key")

		util.MustBindPFlag("http.corsAllowedOrigins", flags.Lookup("http-cors-allowed-origins"))
		util.MustBindEnv("http.corsAllowedOrigins", "KGVIEW_HTTP_CORS_ALLOWED_ORIGINS", "KGVIEW_HTTP_CORSALLOWEDORIGINS")

		util.MustBindPFlag("http.corsAllowedHeaders", flags.Lookup("http-cors-allowed-headers"))
		util.MustBindEnv("http.corsAllowedHeaders", "KGVIEW_HTTP_CORS_ALLOWED_HEADERS", "KGVIEW_HTTP_CORSALLOWEDHEADERS")

		util.MustBindPFlag("http.retryAfter", flags.Lookup("http-retry-after"))
		util.MustBindEnv("http.retryAfter", "KGVIEW_HTTP_RETRY_AFTER", "KGVIEW_HTTP_RETRYAFTER")

		util.MustBindPFlag("datastore.engine", flags.Lookup("datastore-engine"))
		util.MustBindEnv("datastore.engine", "KGVIEW_DATASTORE_ENGINE")

		util.MustBindPFlag("datastore.uri", flags.Lookup("datastore-uri"))
		util.MustBindEnv("datastore.uri", "KGVIEW_DATASTORE_URI")

		util.MustBindPFlag("datastore.username", flags.Lookup("datastore-username"))
		util.MustBindEnv("datastore.username", "KGVIEW_DATASTORE_USERNAME")

		util.MustBindPFlag("datastore.password", flags.Lookup("datastore-password"))
		util.MustBindEnv("datastore.password", "KGVIEW_DATASTORE_PASSWORD")

		util.MustBindPFlag("datastore.seedFile", flags.Lookup("datastore-seed-file"))
		util.MustBindEnv("datastore.seedFile", "KGVIEW_DATASTORE_SEED_FILE", "KGVIEW_DATASTORE_SEEDFILE")

		util.MustBindPFlag("datastore.maxOpenConns", flags.Lookup("datastore-max-open-conns"))
		util.MustBindEnv("datastore.maxOpenConns", "KGVIEW_DATASTORE_MAX_OPEN_CONNS", "KGVIEW_DATASTORE_MAXOPENCONNS")

		util.MustBindPFlag("datastore.maxIdleConns", flags.Lookup("datastore-max-idle-conns"))
		util.MustBindEnv("datastore.maxIdleConns", "KGVIEW_DATASTORE_MAX_IDLE_CONNS", "KGVIEW_DATASTORE_MAXIDLECONNS")

		util.MustBindPFlag("datastore.connMaxIdleTime", flags.Lookup("datastore-conn-max-idle-time"))
		util.MustBindEnv("datastore.connMaxIdleTime", "KGVIEW_DATASTORE_CONN_MAX_IDLE_TIME", "KGVIEW_DATASTORE_CONNMAXIDLETIME")

		util.MustBindPFlag("datastore.connMaxLifetime", flags.Lookup("datastore-conn-max-lifetime"))
		util.MustBindEnv("datastore.connMaxLifetime", "KGVIEW_DATASTORE_CONN_MAX_LIFETIME", "KGVIEW_DATASTORE_CONNMAXLIFETIME")

		util.MustBindPFlag("datastore.queryTimeout", flags.Lookup("datastore-query-timeout"))
		util.MustBindEnv("datastore.queryTimeout", "KGVIEW_DATASTORE_QUERY_TIMEOUT", "KGVIEW_DATASTORE_QUERYTIMEOUT")

		util.MustBindPFlag("datastore.metrics.enabled", flags.Lookup("datastore-metrics-enabled"))
		util.MustBindEnv("datastore.metrics.enabled", "KGVIEW_DATASTORE_METRICS_ENABLED")

		util.MustBindPFlag("datastore.postgrest.apiKey", flags.Lookup("datastore-postgrest-api-key"))
		util.MustBindEnv("datastore.postgrest.apiKey", "KGVIEW_DATASTORE_POSTGREST_API_KEY", "KGVIEW_DATASTORE_POSTGREST_APIKEY")

		util.MustBindPFlag("datastore.postgrest.function", flags.Lookup("datastore-postgrest-function"))
		util.MustBindEnv("datastore.postgrest.function", "KGVIEW_DATASTORE_POSTGREST_FUNCTION")

		util.MustBindPFlag("datastore.postgrest.timeout", flags.Lookup("datastore-postgrest-timeout"))
		util.MustBindEnv("datastore.postgrest.timeout", "KGVIEW_DATASTORE_POSTGREST_TIMEOUT")

		util.MustBindPFlag("datastore.postgrest.retryMax", flags.Lookup("datastore-postgrest-retry-max"))
		util.MustBindEnv("datastore.postgrest.retryMax", "KGVIEW_DATASTORE_POSTGREST_RETRY_MAX", "KGVIEW_DATASTORE_POSTGREST_RETRYMAX")

		util.MustBindPFlag("cache.ttl", flags.Lookup("cache-ttl"))
		util.MustBindEnv("cache.ttl", "KGVIEW_CACHE_TTL")

		util.MustBindPFlag("cache.local.maxItems", flags.Lookup("cache-local-max-items"))
		util.MustBindEnv("cache.local.maxItems", "KGVIEW_CACHE_LOCAL_MAX_ITEMS", "KGVIEW_CACHE_LOCAL_MAXITEMS")

		util.MustBindPFlag("cache.redis.enabled", flags.Lookup("cache-redis-enabled"))
		util.MustBindEnv("cache.redis.enabled", "KGVIEW_CACHE_REDIS_ENABLED")

		util.MustBindPFlag("cache.redis.addr", flags.Lookup("cache-redis-addr"))
		util.MustBindEnv("cache.redis.addr", "KGVIEW_CACHE_REDIS_ADDR")

		util.MustBindPFlag("cache.redis.username", flags.Lookup("cache-redis-username"))
		util.MustBindEnv("cache.redis.username", "KGVIEW_CACHE_REDIS_USERNAME")

		util.MustBindPFlag("cache.redis.password", flags.Lookup("cache-redis-password"))
		util.MustBindEnv("cache.redis.password", "KGVIEW_CACHE_REDIS_PASSWORD")

		util.MustBindPFlag("cache.redis.db", flags.Lookup("cache-redis-db"))
		util.MustBindEnv("cache.redis.db", "KGVIEW_CACHE_REDIS_DB")

		util.MustBindPFlag("cache.redis.dialTimeout", flags.Lookup("cache-redis-dial-timeout"))
		util.MustBindEnv("cache.redis.dialTimeout", "KGVIEW_CACHE_REDIS_DIAL_TIMEOUT", "KGVIEW_CACHE_REDIS_DIALTIMEOUT")

		util.MustBindPFlag("cache.redis.readTimeout", flags.Lookup("cache-redis-read-timeout"))
		util.MustBindEnv("cache.redis.readTimeout", "KGVIEW_CACHE_REDIS_READ_TIMEOUT", "KGVIEW_CACHE_REDIS_READTIMEOUT")

		util.MustBindPFlag("graph.includeCoOccurrence", flags.Lookup("graph-include-co-occurrence"))
		util.MustBindEnv("graph.includeCoOccurrence", "KGVIEW_GRAPH_INCLUDE_CO_OCCURRENCE", "KGVIEW_GRAPH_INCLUDECOOCCURRENCE")

		util.MustBindPFlag("graph.maxInferredPairs", flags.Lookup("graph-max-inferred-pairs"))
		util.MustBindEnv("graph.maxInferredPairs", "KGVIEW_GRAPH_MAX_INFERRED_PAIRS", "KGVIEW_GRAPH_MAXINFERREDPAIRS")

		util.MustBindPFlag("graph.maxNodes", flags.Lookup("graph-max-nodes"))
		util.MustBindEnv("graph.maxNodes", "KGVIEW_GRAPH_MAX_NODES", "KGVIEW_GRAPH_MAXNODES")

		util.MustBindPFlag("graph.maxEdges", flags.Lookup("graph-max-edges"))
		util.MustBindEnv("graph.maxEdges", "KGVIEW_GRAPH_MAX_EDGES", "KGVIEW_GRAPH_MAXEDGES")

		util.MustBindPFlag("graph.sizeFloor", flags.Lookup("graph-size-floor"))
		util.MustBindEnv("graph.sizeFloor", "KGVIEW_GRAPH_SIZE_FLOOR", "KGVIEW_GRAPH_SIZEFLOOR")

		util.MustBindPFlag("graph.sizeScale", flags.Lookup("graph-size-scale"))
		util.MustBindEnv("graph.sizeScale", "KGVIEW_GRAPH_SIZE_SCALE", "KGVIEW_GRAPH_SIZESCALE")

		util.MustBindPFlag("log.format", flags.Lookup("log-format"))
		util.MustBindEnv("log.format", "KGVIEW_LOG_FORMAT")

		util.MustBindPFlag("log.level", flags.Lookup("log-level"))
		util.MustBindEnv("log.level", "KGVIEW_LOG_LEVEL")

		util.MustBindPFlag("trace.enabled", flags.Lookup("trace-enabled"))
		util.MustBindEnv("trace.enabled", "KGVIEW_TRACE_ENABLED")

		util.MustBindPFlag("trace.otlp.endpoint", flags.Lookup("trace-otlp-endpoint"))
		util.MustBindEnv("trace.otlp.endpoint", "KGVIEW_TRACE_OTLP_ENDPOINT")

		util.MustBindPFlag("trace.sampleRatio", flags.Lookup("trace-sample-ratio"))
		util.MustBindEnv("trace.sampleRatio", "KGVIEW_TRACE_SAMPLE_RATIO", "KGVIEW_TRACE_SAMPLERATIO")

		util.MustBindPFlag("trace.serviceName", flags.Lookup("trace-service-name"))
		util.MustBindEnv("trace.serviceName", "KGVIEW_TRACE_SERVICE_NAME", "KGVIEW_TRACE_SERVICENAME")

		util.MustBindPFlag("trace.tailLatency", flags.Lookup("trace-tail-latency"))
		util.MustBindEnv("trace.tailLatency", "KGVIEW_TRACE_TAIL_LATENCY", "KGVIEW_TRACE_TAILLATENCY")

		util.MustBindPFlag("profiler.enabled", flags.Lookup("profiler-enabled"))
		util.MustBindEnv("profiler.enabled", "KGVIEW_PROFILER_ENABLED")

		util.MustBindPFlag("profiler.addr", flags.Lookup("profiler-addr"))
		util.MustBindEnv("profiler.addr", "KGVIEW_PROFILER_ADDRESS")

		util.MustBindPFlag("metrics.enabled", flags.Lookup("metrics-enabled"))
		util.MustBindEnv("metrics.enabled", "KGVIEW_METRICS_ENABLED")

		util.MustBindPFlag("metrics.addr", flags.Lookup("metrics-addr"))
		util.MustBindEnv("metrics.addr", "KGVIEW_METRICS_ADDR")
	}
}
