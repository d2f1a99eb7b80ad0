package sqlcommon

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/kgview/kgview/internal/build"
	"github.com/kgview/kgview/pkg/graph"
	"github.com/kgview/kgview/pkg/logger"
	"github.com/kgview/kgview/pkg/storage"
)

var tracer = otel.Tracer("kgview/pkg/storage/sqlcommon")

const (
	defaultPingTimeout = 1 * time.Minute

	rowTypeNode = "node"
	rowTypeEdge = "edge"
)

// Config defines the configuration parameters
// for setting up and managing a sql connection.
type Config struct {
	Username string
	Password string
	Logger   logger.Logger

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration

	// QueryTimeout bounds each extraction. Zero means the caller's context
	// is the only bound.
	QueryTimeout time.Duration

	// PingTimeout bounds how long a new datastore waits for the database.
	PingTimeout time.Duration

	ExportMetrics bool
}

// DatastoreOption defines a function type
// used for configuring a Config object.
type DatastoreOption func(*Config)

// WithUsername returns a DatastoreOption that sets the username in the Config.
func WithUsername(username string) DatastoreOption {
	return func(config *Config) {
		config.Username = username
	}
}

// WithPassword returns a DatastoreOption that sets the password in the Config.
func WithPassword(password string) DatastoreOption {
	return func(config *Config) {
		config.Password = password
	}
}

// WithLogger returns a DatastoreOption that sets the Logger in the Config.
func WithLogger(l logger.Logger) DatastoreOption {
	return func(cfg *Config) {
		cfg.Logger = l
	}
}

func WithMaxOpenConns(c int) DatastoreOption {
	return func(cfg *Config) {
		cfg.MaxOpenConns = c
	}
}

func WithMaxIdleConns(c int) DatastoreOption {
	return func(cfg *Config) {
		cfg.MaxIdleConns = c
	}
}

func WithConnMaxIdleTime(d time.Duration) DatastoreOption {
	return func(cfg *Config) {
		cfg.ConnMaxIdleTime = d
	}
}

func WithConnMaxLifetime(d time.Duration) DatastoreOption {
	return func(cfg *Config) {
		cfg.ConnMaxLifetime = d
	}
}

// WithQueryTimeout returns a DatastoreOption that bounds every extraction query.
func WithQueryTimeout(d time.Duration) DatastoreOption {
	return func(cfg *Config) {
		cfg.QueryTimeout = d
	}
}

// WithPingTimeout returns a DatastoreOption that bounds the initial readiness wait.
func WithPingTimeout(d time.Duration) DatastoreOption {
	return func(cfg *Config) {
		cfg.PingTimeout = d
	}
}

// WithMetrics returns a DatastoreOption that
// enables the export of metrics in the Config.
func WithMetrics() DatastoreOption {
	return func(cfg *Config) {
		cfg.ExportMetrics = true
	}
}

// NewConfig creates a new Config instance with default values
// and applies any provided DatastoreOption modifications.
func NewConfig(opts ...DatastoreOption) *Config {
	cfg := &Config{}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoopLogger()
	}

	if cfg.PingTimeout == 0 {
		cfg.PingTimeout = defaultPingTimeout
	}

	return cfg
}

// ApplyPoolSettings sets the connection pool limits of cfg on db. Zero values
// keep the driver defaults.
func ApplyPoolSettings(db *sql.DB, cfg *Config) {
	if cfg.MaxOpenConns != 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns != 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime != 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifetime != 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
}

// ConfigureDB waits for db to answer pings and, if enabled, registers its
// pool statistics with prometheus.
func ConfigureDB(db *sql.DB, cfg *Config) (prometheus.Collector, error) {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = cfg.PingTimeout
	attempt := 1
	err := backoff.Retry(func() error {
		err := db.PingContext(context.Background())
		if err != nil {
			cfg.Logger.Info("waiting for database", zap.Int("attempt", attempt))
			attempt++
			return err
		}
		return nil
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	var collector prometheus.Collector
	if cfg.ExportMetrics {
		collector = collectors.NewDBStatsCollector(db, build.ProjectName)
		if err := prometheus.Register(collector); err != nil {
			return nil, fmt.Errorf("initialize metrics: %w", err)
		}
	}

	return collector, nil
}

type errorHandlerFn func(error, ...interface{}) error

// DBInfo encapsulates DB information for use in common method.
type DBInfo struct {
	db             *sql.DB
	placeholder    sq.PlaceholderFormat
	queryTimeout   time.Duration
	HandleSQLError errorHandlerFn
}

// NewDBInfo constructs a [DBInfo] object.
func NewDBInfo(db *sql.DB, placeholder sq.PlaceholderFormat, errorHandler errorHandlerFn, queryTimeout time.Duration) *DBInfo {
	return &DBInfo{
		db:             db,
		placeholder:    placeholder,
		queryTimeout:   queryTimeout,
		HandleSQLError: errorHandler,
	}
}

// DirectGraphQuery builds the single statement that returns every node and
// direct edge visible under filter. Each row is either a node
// (row_type='node', kind, source_id=id, label, group_id, size) or an edge
// (row_type='edge', kind=relation, source_id, target_id).
func DirectGraphQuery(filter storage.GroupFilter, placeholder sq.PlaceholderFormat) (string, []interface{}, error) {
	gid, filtered := filter.GroupID()

	groups := sq.Select(
		lit(rowTypeNode, "row_type"), lit(graph.KindGroup.String(), "kind"),
		"g.id AS source_id", "NULL AS target_id", "g.name AS label", "NULL AS group_id", "g.size AS size",
	).From("kg_groups g")

	actors := sq.Select(
		lit(rowTypeNode, "row_type"), lit(graph.KindActor.String(), "kind"),
		"a.id", "NULL", "a.name", "a.group_id", "a.size",
	).From("kg_actors a")

	roles := sq.Select(
		lit(rowTypeNode, "row_type"), lit(graph.KindRole.String(), "kind"),
		"r.id", "NULL", "r.name", "r.group_id", "NULL",
	).From("kg_roles r")

	belongsTo := sq.Select(
		lit(rowTypeEdge, "row_type"), lit(graph.BelongsTo.String(), "kind"),
		"a.id", "a.group_id", "NULL", "a.group_id", "NULL",
	).From("kg_actors a").Where(sq.NotEq{"a.group_id": nil})

	roleOf := sq.Select(
		lit(rowTypeEdge, "row_type"), lit(graph.RoleOf.String(), "kind"),
		"r.id", "r.group_id", "NULL", "r.group_id", "NULL",
	).From("kg_roles r").Where(sq.NotEq{"r.group_id": nil})

	holds := sq.Select(
		lit(rowTypeEdge, "row_type"), lit(graph.Holds.String(), "kind"),
		"ar.actor_id", "ar.role_id", "NULL", "a.group_id", "NULL",
	).From("kg_actor_roles ar").
		Join("kg_actors a ON a.id = ar.actor_id").
		Join("kg_roles r ON r.id = ar.role_id")

	if filtered {
		groups = groups.Where(sq.Eq{"g.id": gid})
		actors = actors.Where(sq.Eq{"a.group_id": gid})
		roles = roles.Where(sq.Eq{"r.group_id": gid})
		belongsTo = belongsTo.Where(sq.Eq{"a.group_id": gid})
		roleOf = roleOf.Where(sq.Eq{"r.group_id": gid})
		holds = holds.Where(sq.Eq{"a.group_id": gid, "r.group_id": gid})
	}

	// groups and belongsTo lead: between them every column gets a concrete
	// type, and postgres resolves UNION column types pairwise from the left.
	parts := make([]string, 0, 6)
	var args []interface{}
	for _, b := range []sq.SelectBuilder{groups, belongsTo, actors, roles, roleOf, holds} {
		stmt, stmtArgs, err := b.ToSql()
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, stmt)
		args = append(args, stmtArgs...)
	}

	query, err := placeholder.ReplacePlaceholders(strings.Join(parts, " UNION ALL "))
	if err != nil {
		return "", nil, err
	}

	return query, args, nil
}

func lit(value, alias string) string {
	return "'" + value + "' AS " + alias
}

type directGraphRow struct {
	rowType  string
	kind     string
	sourceID int64
	targetID sql.NullInt64
	label    sql.NullString
	groupID  sql.NullInt64
	size     sql.NullFloat64
}

// FetchDirectGraph provides the common extraction across sql storage.
func FetchDirectGraph(ctx context.Context, dbInfo *DBInfo, filter storage.GroupFilter) (*storage.RawGraph, error) {
	ctx, span := tracer.Start(ctx, "sqlcommon.FetchDirectGraph")
	defer span.End()
	span.SetAttributes(attribute.String("group", filter.String()))

	if dbInfo.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, dbInfo.queryTimeout)
		defer cancel()
	}

	query, args, err := DirectGraphQuery(filter, dbInfo.placeholder)
	if err != nil {
		return nil, fmt.Errorf("build direct graph query: %w", err)
	}

	rows, err := dbInfo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbInfo.HandleSQLError(err)
	}
	defer rows.Close()

	out := &storage.RawGraph{Nodes: []storage.RawNode{}, Edges: []storage.RawEdge{}}
	for rows.Next() {
		var r directGraphRow
		if err := rows.Scan(&r.rowType, &r.kind, &r.sourceID, &r.targetID, &r.label, &r.groupID, &r.size); err != nil {
			return nil, dbInfo.HandleSQLError(err)
		}
		if err := r.appendTo(out); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, dbInfo.HandleSQLError(err)
	}

	span.SetAttributes(attribute.Int("nodes", len(out.Nodes)), attribute.Int("edges", len(out.Edges)))
	return out, nil
}

func (r directGraphRow) appendTo(out *storage.RawGraph) error {
	switch r.rowType {
	case rowTypeNode:
		kind, err := graph.ParseKind(r.kind)
		if err != nil {
			return err
		}
		node := storage.RawNode{
			ID:      strconv.FormatInt(r.sourceID, 10),
			Label:   r.label.String,
			Kind:    kind,
			GroupID: r.groupID.Int64,
		}
		if r.size.Valid {
			size := r.size.Float64
			node.Size = &size
		}
		out.Nodes = append(out.Nodes, node)
	case rowTypeEdge:
		rel, err := graph.ParseRelation(r.kind)
		if err != nil {
			return err
		}
		if !r.targetID.Valid {
			return nil
		}
		out.Edges = append(out.Edges, storage.RawEdge{
			Source:   strconv.FormatInt(r.sourceID, 10),
			Target:   strconv.FormatInt(r.targetID.Int64, 10),
			Weight:   rel.DefaultWeight(),
			Relation: rel,
		})
	default:
		return fmt.Errorf("unexpected row type %q", r.rowType)
	}
	return nil
}
