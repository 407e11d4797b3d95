package repositories

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
)

// connectionPool is satisfied by *pgxpool.Pool and by pgxmock pools in
// tests.
type connectionPool interface {
	TransactionOrPool
	Begin(ctx context.Context) (pgx.Tx, error)
}

type ExecutorGetter struct {
	pool connectionPool
}

func NewExecutorGetter(pool connectionPool) ExecutorGetter {
	return ExecutorGetter{pool: pool}
}

// Executor returns a pool-backed executor for standalone statements.
func (g ExecutorGetter) Executor() Executor {
	return PgExecutor{exec: g.pool}
}

// Transaction runs fn inside one transaction on one dedicated
// connection. Any error from fn rolls everything back.
func (g ExecutorGetter) Transaction(ctx context.Context, fn func(tx Transaction) error) error {
	err := pgx.BeginFunc(ctx, g.pool, func(tx pgx.Tx) error {
		return fn(PgTx{tx: tx})
	})
	return errors.Wrap(err, "error executing transaction")
}

// NewQueryBuilder returns the statement builder every repository uses:
// dollar placeholders, matching the store's wire protocol.
func NewQueryBuilder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

type AnyBuilder interface {
	ToSql() (string, []interface{}, error)
}

// ExecBuilder builds and executes a statement, returning the affected
// row count.
func ExecBuilder(ctx context.Context, exec TransactionOrPool, builder AnyBuilder) (int64, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "can't build sql query")
	}
	tag, err := exec.Exec(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrapf(err, "error executing sql query: %s", query)
	}
	return tag.RowsAffected(), nil
}
