package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

type Config struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// Store bundles the ent SQL driver with the pgx pool backing it (nil for SQLite).
type Store struct {
	Driver *entsql.Driver
	Pool   *pgxpool.Pool
}

// Dialect reports the SQL dialect of the underlying driver.
func (s *Store) Dialect() string {
	return s.Driver.Dialect()
}

// Open picks the backend from the DSN: postgres:// and postgresql:// go through
// pgx, sqlite: and file: go through modernc SQLite.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	switch {
	case strings.HasPrefix(cfg.DSN, "postgres://"), strings.HasPrefix(cfg.DSN, "postgresql://"):
		return OpenPostgres(ctx, cfg, logger)
	case strings.HasPrefix(cfg.DSN, "sqlite:"):
		return OpenSQLite(ctx, strings.TrimPrefix(cfg.DSN, "sqlite:"), logger)
	case strings.HasPrefix(cfg.DSN, "file:"):
		return OpenSQLite(ctx, cfg.DSN, logger)
	default:
		return nil, fmt.Errorf("unsupported database dsn scheme: %q", cfg.DSN)
	}
}

// OpenPostgres creates a pgx pool and wraps it for ent's SQL driver.
func OpenPostgres(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	logger.Info("connecting to database", zap.String("dialect", dialect.Postgres))
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database dsn", zap.Error(err))
		return nil, err
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "foodgram"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprint(cfg.StatementTimeout.Milliseconds())
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", zap.Error(err))
		return nil, err
	}

	db := stdlib.OpenDBFromPool(pool)
	logger.Info("successfully connected to database")
	return &Store{Driver: entsql.OpenDB(dialect.Postgres, db), Pool: pool}, nil
}

// OpenSQLite opens (creating if needed) a SQLite database file.
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn += sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	logger.Info("connecting to database", zap.String("dialect", dialect.SQLite), zap.String("path", path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		logger.Error("failed to open sqlite database", zap.Error(err))
		return nil, err
	}
	// SQLite serialises writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		logger.Error("failed to connect to database", zap.Error(err))
		return nil, err
	}
	return &Store{Driver: entsql.OpenDB(dialect.SQLite, db)}, nil
}

// Close closes the database connections gracefully
func (s *Store) Close(logger *zap.Logger) {
	logger.Info("closing database connections")
	if s.Driver != nil {
		if err := s.Driver.Close(); err != nil {
			logger.Error("failed to close sql driver", zap.Error(err))
		}
	}
	if s.Pool != nil {
		s.Pool.Close()
	}
	logger.Info("database connections closed")
}

// HealthCheck pings the database to catch DSN issues early.
func (s *Store) HealthCheck(ctx context.Context, timeout time.Duration, logger *zap.Logger) error {
	logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	var err error
	if s.Pool != nil {
		err = s.Pool.Ping(ctx)
	} else {
		err = s.Driver.DB().PingContext(ctx)
	}
	if err != nil {
		logger.Error("database ping failed", zap.Error(err))
		return err
	}
	logger.Debug("database ping successful")
	return nil
}

// WithTx runs fn inside a transaction, rolling back when fn fails.
func (s *Store) WithTx(ctx context.Context, fn func(tx dialect.ExecQuerier) error) error {
	tx, err := s.Driver.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rerr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// builder returns a SQL builder for the store's dialect.
func (s *Store) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.Driver.Dialect())
}

// querier is anything that can run a built query, a driver or a transaction.
type querier = dialect.ExecQuerier

type builtQuery interface {
	Query() (string, []any)
}

func queryRows(ctx context.Context, q querier, b builtQuery, scan func(rows *entsql.Rows) error) error {
	query, args := b.Query()
	var rows entsql.Rows
	if err := q.Query(ctx, query, args, &rows); err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(&rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func exec(ctx context.Context, q querier, b builtQuery) (int64, error) {
	query, args := b.Query()
	var res sql.Result
	if err := q.Exec(ctx, query, args, &res); err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func count(ctx context.Context, q querier, b builtQuery) (int, error) {
	var n int
	err := queryRows(ctx, q, b, func(rows *entsql.Rows) error {
		return rows.Scan(&n)
	})
	return n, err
}

var lastNano atomic.Int64

// nowNano returns a timestamp that strictly increases within the process so
// rows written back to back keep their insertion order.
func nowNano() int64 {
	for {
		now := time.Now().UTC().UnixNano()
		last := lastNano.Load()
		if now <= last {
			now = last + 1
		}
		if lastNano.CompareAndSwap(last, now) {
			return now
		}
	}
}

func fromNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
