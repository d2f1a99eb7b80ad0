package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/kgview/kgview/pkg/logger"
	"github.com/kgview/kgview/pkg/storage"
	"github.com/kgview/kgview/pkg/storage/sqlcommon"
)

const engine = "mysql"

// MySQL error numbers for statements stopped before completion.
const (
	errQueryInterrupted = 1317
	errQueryTimeout     = 3024
)

var tracer = otel.Tracer("kgview/pkg/storage/mysql")

func startTrace(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "mysql."+name)
}

// MySQL provides a MySQL based implementation of [storage.GraphReader].
type MySQL struct {
	db               *sql.DB
	dbInfo           *sqlcommon.DBInfo
	logger           logger.Logger
	dbStatsCollector prometheus.Collector
}

// Ensures that MySQL implements the GraphReader interface.
var _ storage.GraphReader = (*MySQL)(nil)

// PrepareDSN applies the username and password overrides to dsn.
func PrepareDSN(dsn, username, password string) (string, error) {
	if username == "" && password == "" {
		return dsn, nil
	}

	dsnCfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("failed to parse mysql connection dsn: %w", err)
	}

	if username != "" {
		dsnCfg.User = username
	}
	if password != "" {
		dsnCfg.Passwd = password
	}

	return dsnCfg.FormatDSN(), nil
}

// New creates a new [MySQL] storage.
func New(uri string, cfg *sqlcommon.Config) (*MySQL, error) {
	uri, err := PrepareDSN(uri, cfg.Username, cfg.Password)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", uri)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mysql connection: %w", err)
	}
	sqlcommon.ApplyPoolSettings(db, cfg)

	return NewWithDB(db, cfg)
}

// NewWithDB creates a new [MySQL] storage with the provided database connection.
func NewWithDB(db *sql.DB, cfg *sqlcommon.Config) (*MySQL, error) {
	collector, err := sqlcommon.ConfigureDB(db, cfg)
	if err != nil {
		return nil, fmt.Errorf("configure db: %w", err)
	}

	return &MySQL{
		db:               db,
		dbInfo:           sqlcommon.NewDBInfo(db, sq.Question, HandleSQLError, cfg.QueryTimeout),
		logger:           cfg.Logger,
		dbStatsCollector: collector,
	}, nil
}

// Close see [storage.GraphReader].Close.
func (m *MySQL) Close() {
	if m.dbStatsCollector != nil {
		prometheus.Unregister(m.dbStatsCollector)
	}
	m.db.Close()
}

// FetchDirectGraph see [storage.GraphReader].FetchDirectGraph.
func (m *MySQL) FetchDirectGraph(ctx context.Context, filter storage.GroupFilter) (*storage.RawGraph, error) {
	ctx, span := startTrace(ctx, "FetchDirectGraph")
	defer span.End()

	return sqlcommon.FetchDirectGraph(ctx, m.dbInfo, filter)
}

// HandleSQLError processes an SQL error and converts it into a more
// specific error type based on the nature of the SQL error.
func HandleSQLError(err error, _ ...interface{}) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}

	var me *mysql.MySQLError
	if errors.As(err, &me) && (me.Number == errQueryTimeout || me.Number == errQueryInterrupted) {
		return storage.Unavailable(engine, fmt.Errorf("%w: %w", context.DeadlineExceeded, err))
	}

	return storage.Unavailable(engine, err)
}
