package infra

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
)

const maxPoolConnections = 50

// NewPostgresConnectionPool builds the process-wide pgx pool with the
// otel tracer attached to every connection.
func NewPostgresConnectionPool(ctx context.Context, connectionString string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(connectionString)
	if err != nil {
		return nil, errors.Wrap(err, "invalid postgres connection string")
	}
	config.ConnConfig.Tracer = otelpgx.NewTracer()
	config.MaxConns = maxPoolConnections

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, errors.Wrap(err, "can't create postgres connection pool")
	}
	return pool, nil
}
