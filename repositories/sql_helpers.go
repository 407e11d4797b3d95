package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"

	"github.com/latticehq/lattice-backend/models"
)

// SqlToListOfModels executes the query and adapts every row through the
// dbmodel adapter.
func SqlToListOfModels[DBModel, Model any](
	ctx context.Context,
	exec TransactionOrPool,
	query squirrel.Sqlizer,
	adapter func(dbModel DBModel) (Model, error),
) ([]Model, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "can't build sql query")
	}
	rows, err := exec.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "error executing sql query")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Model, error) {
		dbModel, err := pgx.RowToStructByName[DBModel](row)
		if err != nil {
			var zero Model
			return zero, errors.Wrap(err, fmt.Sprintf("error scanning row to struct %T", dbModel))
		}
		return adapter(dbModel)
	})
}

// SqlToModel is SqlToListOfModels for exactly one expected row; no row
// is a NotFoundError.
func SqlToModel[DBModel, Model any](
	ctx context.Context,
	exec TransactionOrPool,
	query squirrel.Sqlizer,
	adapter func(dbModel DBModel) (Model, error),
) (Model, error) {
	var zero Model
	list, err := SqlToListOfModels(ctx, exec, query, adapter)
	if err != nil {
		return zero, err
	}
	if len(list) == 0 {
		return zero, errors.Wrap(models.NotFoundError, "no row found")
	}
	if len(list) > 1 {
		return zero, errors.Newf("expected 1 or 0 %T, got %d rows", zero, len(list))
	}
	return list[0], nil
}
