package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver.
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/kgview/kgview/pkg/logger"
	"github.com/kgview/kgview/pkg/storage"
	"github.com/kgview/kgview/pkg/storage/sqlcommon"
)

const engine = "postgres"

// queryCanceled is the SQLSTATE of a statement cancelled by statement_timeout
// or an explicit cancel request.
const queryCanceled = "57014"

var tracer = otel.Tracer("kgview/pkg/storage/postgres")

func startTrace(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "postgres."+name)
}

// Datastore provides a PostgreSQL based implementation of [storage.GraphReader].
type Datastore struct {
	db               *sql.DB
	dbInfo           *sqlcommon.DBInfo
	logger           logger.Logger
	dbStatsCollector prometheus.Collector
}

// Ensures that Datastore implements the GraphReader interface.
var _ storage.GraphReader = (*Datastore)(nil)

// PrepareURI applies the username and password overrides to uri. Overrides
// win over the credentials embedded in uri.
func PrepareURI(uri, username, password string) (string, error) {
	if username == "" && password == "" {
		return uri, nil
	}

	parsed, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse postgres connection uri: %w", err)
	}

	if username == "" && parsed.User != nil {
		username = parsed.User.Username()
	}

	switch {
	case password != "":
		parsed.User = url.UserPassword(username, password)
	case parsed.User != nil:
		if existing, ok := parsed.User.Password(); ok {
			parsed.User = url.UserPassword(username, existing)
		} else {
			parsed.User = url.User(username)
		}
	default:
		parsed.User = url.User(username)
	}

	return parsed.String(), nil
}

// New creates a new [Datastore] storage.
func New(uri string, cfg *sqlcommon.Config) (*Datastore, error) {
	uri, err := PrepareURI(uri, cfg.Username, cfg.Password)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", uri)
	if err != nil {
		return nil, fmt.Errorf("initialize postgres connection: %w", err)
	}
	sqlcommon.ApplyPoolSettings(db, cfg)

	return NewWithDB(db, cfg)
}

// NewWithDB creates a new [Datastore] storage with the provided database connection.
func NewWithDB(db *sql.DB, cfg *sqlcommon.Config) (*Datastore, error) {
	collector, err := sqlcommon.ConfigureDB(db, cfg)
	if err != nil {
		return nil, fmt.Errorf("configure db: %w", err)
	}

	return &Datastore{
		db:               db,
		dbInfo:           sqlcommon.NewDBInfo(db, sq.Dollar, HandleSQLError, cfg.QueryTimeout),
		logger:           cfg.Logger,
		dbStatsCollector: collector,
	}, nil
}

// Close see [storage.GraphReader].Close.
func (s *Datastore) Close() {
	if s.dbStatsCollector != nil {
		prometheus.Unregister(s.dbStatsCollector)
	}
	s.db.Close()
}

// FetchDirectGraph see [storage.GraphReader].FetchDirectGraph.
func (s *Datastore) FetchDirectGraph(ctx context.Context, filter storage.GroupFilter) (*storage.RawGraph, error) {
	ctx, span := startTrace(ctx, "FetchDirectGraph")
	defer span.End()

	return sqlcommon.FetchDirectGraph(ctx, s.dbInfo, filter)
}

// HandleSQLError processes an SQL error and converts it into a more
// specific error type based on the nature of the SQL error.
func HandleSQLError(err error, _ ...interface{}) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == queryCanceled {
		return storage.Unavailable(engine, fmt.Errorf("%w: %w", context.DeadlineExceeded, err))
	}

	return storage.Unavailable(engine, err)
}
