// Package postgres stores battle reports in PostgreSQL using pgx v5.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"go.uber.org/zap"

	"github.com/cory-johannsen/warsim/internal/config"
)

// ApplicationName is reported to the server for every connection.
const ApplicationName = "warsim"

// Pool wraps a pgx connection pool with health-check and lifecycle methods.
type Pool struct {
	pool *pgxpool.Pool
}

type poolOptions struct {
	logger   *zap.Logger
	logLevel tracelog.LogLevel
}

// PoolOption configures NewPool.
type PoolOption func(*poolOptions)

// WithQueryLogger traces queries at level and above to logger.
func WithQueryLogger(logger *zap.Logger, level tracelog.LogLevel) PoolOption {
	return func(o *poolOptions) {
		o.logger = logger
		o.logLevel = level
	}
}

// NewPool creates a new PostgreSQL connection pool from the given configuration.
//
// Precondition: cfg must contain valid database connection parameters.
// Postcondition: Returns a connected Pool or a non-nil error. The pool is ready
// for queries upon successful return.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, opts ...PoolOption) (*Pool, error) {
	var o poolOptions
	for _, opt := range opts {
		opt(&o)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.ConnConfig.RuntimeParams["application_name"] = ApplicationName
	if o.logger != nil {
		poolCfg.ConnConfig.Tracer = &tracelog.TraceLog{
			Logger:   queryLogger(o.logger),
			LogLevel: o.logLevel,
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Pool{pool: pool}, nil
}

func queryLogger(logger *zap.Logger) tracelog.Logger {
	return tracelog.LoggerFunc(func(_ context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
		fields := make([]zap.Field, 0, len(data))
		for k, v := range data {
			fields = append(fields, zap.Any(k, v))
		}
		switch level {
		case tracelog.LogLevelError:
			logger.Error(msg, fields...)
		case tracelog.LogLevelWarn:
			logger.Warn(msg, fields...)
		case tracelog.LogLevelInfo:
			logger.Info(msg, fields...)
		default:
			logger.Debug(msg, fields...)
		}
	})
}

// Health checks that the database is reachable within the given timeout.
//
// Precondition: The pool must not be closed.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.pool.Ping(ctx)
}

// Close releases all pool resources.
func (p *Pool) Close() {
	p.pool.Close()
}

// DB returns the underlying pgxpool.Pool for repositories.
func (p *Pool) DB() *pgxpool.Pool {
	return p.pool
}
