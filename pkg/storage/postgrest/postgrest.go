// Package postgrest reads the direct graph from a database function exposed
// through a PostgREST endpoint (as served by Supabase): POST
// {url}/rest/v1/rpc/{function} with the project key as apikey and bearer token.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/kgview/kgview/pkg/logger"
	"github.com/kgview/kgview/pkg/storage"
)

const (
	engine = "postgrest"

	DefaultFunction = "get_graph_membros"
	DefaultTimeout  = 15 * time.Second
	DefaultRetryMax = 2

	// maxErrorBody bounds how much of a failed response ends up in the error.
	maxErrorBody = 512
)

var tracer = otel.Tracer("kgview/pkg/storage/postgrest")

// Config defines the configuration of a [Datastore].
type Config struct {
	// URL is the project base url, e.g. https://xyz.supabase.co.
	URL      string
	APIKey   string
	Function string
	Timeout  time.Duration
	RetryMax int
	Logger   logger.Logger
}

// Option defines a function type used for configuring a Config.
type Option func(*Config)

func WithAPIKey(key string) Option {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithFunction sets the name of the database function to call.
func WithFunction(fn string) Option {
	return func(c *Config) {
		c.Function = fn
	}
}

// WithTimeout bounds each attempt of the call.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithRetryMax sets how many times a failed call is retried.
func WithRetryMax(n int) Option {
	return func(c *Config) {
		c.RetryMax = n
	}
}

func WithLogger(l logger.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// Datastore is a [storage.GraphReader] backed by a PostgREST function.
type Datastore struct {
	endpoint string
	apiKey   string
	client   *retryablehttp.Client
	logger   logger.Logger
}

var _ storage.GraphReader = (*Datastore)(nil)

// New creates a new [Datastore] calling the configured function under baseURL.
func New(baseURL string, opts ...Option) (*Datastore, error) {
	cfg := &Config{
		URL:      baseURL,
		Function: DefaultFunction,
		Timeout:  DefaultTimeout,
		RetryMax: DefaultRetryMax,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoopLogger()
	}

	if cfg.URL == "" {
		return nil, fmt.Errorf("postgrest url is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("postgrest api key is required")
	}
	if cfg.Function == "" {
		return nil, fmt.Errorf("postgrest function name is required")
	}

	client := retryablehttp.NewClient()
	client.Logger = &leveledLogger{cfg.Logger}
	client.RetryMax = cfg.RetryMax
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = cfg.Timeout
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Datastore{
		endpoint: strings.TrimRight(cfg.URL, "/") + "/rest/v1/rpc/" + cfg.Function,
		apiKey:   cfg.APIKey,
		client:   client,
		logger:   cfg.Logger,
	}, nil
}

// Close see [storage.GraphReader].Close.
func (d *Datastore) Close() {
	d.client.HTTPClient.CloseIdleConnections()
}

type rpcArgs struct {
	GroupID *int64 `json:"faccao_id"`
}

// FetchDirectGraph see [storage.GraphReader].FetchDirectGraph.
func (d *Datastore) FetchDirectGraph(ctx context.Context, filter storage.GroupFilter) (*storage.RawGraph, error) {
	ctx, span := tracer.Start(ctx, "postgrest.FetchDirectGraph")
	defer span.End()
	span.SetAttributes(attribute.String("group", filter.String()))

	var args rpcArgs
	if id, ok := filter.GroupID(); ok {
		args.GroupID = &id
	}
	body, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode rpc arguments: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build rpc request: %w", err)
	}
	req.Header.Set("apikey", d.apiKey)
	req.Header.Set("Authorization", "Bearer "+d.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, storage.Unavailable(engine, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, storage.Unavailable(engine, fmt.Errorf("read rpc response: %w", err))
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, storage.Unavailable(engine, fmt.Errorf("rpc returned %d: %s", resp.StatusCode, truncate(payload, maxErrorBody)))
	}

	out, skipped, err := ParseGraph(payload)
	if err != nil {
		return nil, storage.Unavailable(engine, err)
	}
	if skipped > 0 {
		d.logger.DebugWithContext(ctx, "skipped unrecognized rpc rows", zap.Int("rows", skipped))
	}

	span.SetAttributes(attribute.Int("nodes", len(out.Nodes)), attribute.Int("edges", len(out.Edges)))
	return out, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// leveledLogger adapts a [logger.Logger] to retryablehttp.LeveledLogger.
type leveledLogger struct {
	logger logger.Logger
}

var _ retryablehttp.LeveledLogger = (*leveledLogger)(nil)

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, fields(keysAndValues)...)
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, fields(keysAndValues)...)
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, fields(keysAndValues)...)
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, fields(keysAndValues)...)
}

func fields(keysAndValues []interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		out = append(out, zap.Any(key, keysAndValues[i+1]))
	}
	return out
}
