package repositories

import (
	"context"
	"sort"

	"github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"

	"github.com/latticehq/lattice-backend/models"
)

// RelationRow is one link between a source and a target record, tagged
// with both sides' field codes so one physical relation table can serve
// many logical field pairs.
type RelationRow struct {
	RelationTable   string
	SourceTable     string
	TargetTable     string
	FieldCode       string
	SourceUid       int64
	TargetUid       int64
	MirrorFieldCode string
}

// RecordRepository executes data-level statements against entity and
// relation tables. All identifiers come from the schema registry and are
// sanitized here; all values are parameterized.
type RecordRepository interface {
	InsertRecord(ctx context.Context, exec TransactionOrPool, table, entityType string, values map[string]any) (models.RecordRef, error)
	UpdateRecord(ctx context.Context, exec TransactionOrPool, table, entityType string, uid int64, values map[string]any) (models.RecordRef, error)
	ArchiveRecord(ctx context.Context, exec TransactionOrPool, table string, uid int64) error
	DeleteRecord(ctx context.Context, exec TransactionOrPool, table string, uid int64) error
	SelectColumnValue(ctx context.Context, exec TransactionOrPool, table, column string, uid int64) (any, error)
	InsertRelationRow(ctx context.Context, exec TransactionOrPool, row RelationRow) error
	DeleteRelationRows(ctx context.Context, exec TransactionOrPool, relationTable, sourceTable, fieldCode string, sourceUid int64) error
	DeleteRelationRowsForField(ctx context.Context, exec TransactionOrPool, relationTable, sourceTable, fieldCode string) error
	QueryRecords(ctx context.Context, exec TransactionOrPool, sql string, args []any) ([]map[string]any, error)
	QueryCount(ctx context.Context, exec TransactionOrPool, sql string, args []any) (int64, error)
}

type RecordRepositoryPostgresql struct{}

func (repo RecordRepositoryPostgresql) InsertRecord(ctx context.Context, exec TransactionOrPool, table, entityType string, values map[string]any) (models.RecordRef, error) {
	if len(values) == 0 {
		sql := "INSERT INTO " + sanitizeIdentifier(table) + " DEFAULT VALUES RETURNING $1::text AS type, uid"
		var ref models.RecordRef
		if err := exec.QueryRow(ctx, sql, entityType).Scan(&ref.Type, &ref.Uid); err != nil {
			return models.RecordRef{}, errors.Wrapf(err, "error inserting into %s", table)
		}
		return ref, nil
	}

	columns := make([]string, 0, len(values))
	for column := range values {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	quoted := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, column := range columns {
		quoted[i] = sanitizeIdentifier(column)
		args[i] = values[column]
	}
	builder := NewQueryBuilder().
		Insert(sanitizeIdentifier(table)).
		Columns(quoted...).
		Values(args...).
		Suffix("RETURNING ?::text AS type, uid", entityType)

	sql, sqlArgs, err := builder.ToSql()
	if err != nil {
		return models.RecordRef{}, errors.Wrap(err, "can't build sql query")
	}

	var ref models.RecordRef
	if err := exec.QueryRow(ctx, sql, sqlArgs...).Scan(&ref.Type, &ref.Uid); err != nil {
		return models.RecordRef{}, errors.Wrapf(err, "error inserting into %s", table)
	}
	return ref, nil
}

func (repo RecordRepositoryPostgresql) UpdateRecord(ctx context.Context, exec TransactionOrPool, table, entityType string, uid int64, values map[string]any) (models.RecordRef, error) {
	quoted := make(map[string]any, len(values))
	for column, value := range values {
		quoted[sanitizeIdentifier(column)] = value
	}

	sql, args, err := NewQueryBuilder().
		Update(sanitizeIdentifier(table)).
		SetMap(quoted).
		Where(squirrel.Eq{models.ColumnUid: uid}).
		Suffix("RETURNING ?::text AS type, uid", entityType).
		ToSql()
	if err != nil {
		return models.RecordRef{}, errors.Wrap(err, "can't build sql query")
	}

	var ref models.RecordRef
	if err := exec.QueryRow(ctx, sql, args...).Scan(&ref.Type, &ref.Uid); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.RecordRef{}, errors.Wrapf(models.NotFoundError, "no record %d in %s", uid, table)
		}
		return models.RecordRef{}, errors.Wrapf(err, "error updating %s", table)
	}
	return ref, nil
}

func (repo RecordRepositoryPostgresql) ArchiveRecord(ctx context.Context, exec TransactionOrPool, table string, uid int64) error {
	_, err := ExecBuilder(ctx, exec, NewQueryBuilder().
		Update(sanitizeIdentifier(table)).
		Set(models.ColumnArchived, true).
		Where(squirrel.Eq{models.ColumnUid: uid}))
	return err
}

// DeleteRecord removes the row; relation rows referencing it go with it
// through the relation tables' FK cascades.
func (repo RecordRepositoryPostgresql) DeleteRecord(ctx context.Context, exec TransactionOrPool, table string, uid int64) error {
	_, err := ExecBuilder(ctx, exec, NewQueryBuilder().
		Delete(sanitizeIdentifier(table)).
		Where(squirrel.Eq{models.ColumnUid: uid}))
	return err
}

func (repo RecordRepositoryPostgresql) SelectColumnValue(ctx context.Context, exec TransactionOrPool, table, column string, uid int64) (any, error) {
	sql, args, err := NewQueryBuilder().
		Select(sanitizeIdentifier(column)).
		From(sanitizeIdentifier(table)).
		Where(squirrel.Eq{models.ColumnUid: uid}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "can't build sql query")
	}
	var value any
	if err := exec.QueryRow(ctx, sql, args...).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrapf(models.NotFoundError, "no record %d in %s", uid, table)
		}
		return nil, errors.Wrapf(err, "error reading %s.%s", table, column)
	}
	return value, nil
}

func (repo RecordRepositoryPostgresql) InsertRelationRow(ctx context.Context, exec TransactionOrPool, row RelationRow) error {
	_, err := ExecBuilder(ctx, exec, NewQueryBuilder().
		Insert(sanitizeIdentifier(row.RelationTable)).
		Columns(
			sanitizeIdentifier(row.SourceTable+"_col"),
			sanitizeIdentifier("fk_"+row.SourceTable),
			sanitizeIdentifier("fk_"+row.TargetTable),
			sanitizeIdentifier(row.TargetTable+"_col"),
		).
		Values(row.FieldCode, row.SourceUid, row.TargetUid, row.MirrorFieldCode))
	return err
}

// DeleteRelationRows wipes every relation row of one (source row, source
// field) pair. Full replacement is cheaper and simpler than diffing the
// small relation sets.
func (repo RecordRepositoryPostgresql) DeleteRelationRows(ctx context.Context, exec TransactionOrPool, relationTable, sourceTable, fieldCode string, sourceUid int64) error {
	_, err := ExecBuilder(ctx, exec, NewQueryBuilder().
		Delete(sanitizeIdentifier(relationTable)).
		Where(squirrel.Eq{
			sanitizeIdentifier(sourceTable + "_col"): fieldCode,
			sanitizeIdentifier("fk_" + sourceTable):  sourceUid,
		}))
	return err
}

// DeleteRelationRowsForField wipes every relation row carried by one
// logical field, across all source records. Used when the field itself
// is dropped; the shared relation table stays in place for the other
// field pairs it serves.
func (repo RecordRepositoryPostgresql) DeleteRelationRowsForField(ctx context.Context, exec TransactionOrPool, relationTable, sourceTable, fieldCode string) error {
	_, err := ExecBuilder(ctx, exec, NewQueryBuilder().
		Delete(sanitizeIdentifier(relationTable)).
		Where(squirrel.Eq{
			sanitizeIdentifier(sourceTable + "_col"): fieldCode,
		}))
	return err
}

// QueryRecords runs a compiled read statement and returns generic rows
// keyed by output column name.
func (repo RecordRepositoryPostgresql) QueryRecords(ctx context.Context, exec TransactionOrPool, sql string, args []any) ([]map[string]any, error) {
	rows, err := exec.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "error executing read query")
	}
	defer rows.Close()

	records := []map[string]any{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, errors.Wrap(err, "error reading row values")
		}
		record := make(map[string]any, len(values))
		for i, description := range rows.FieldDescriptions() {
			record[description.Name] = values[i]
		}
		records = append(records, record)
	}
	return records, errors.Wrap(rows.Err(), "error iterating over rows")
}

func (repo RecordRepositoryPostgresql) QueryCount(ctx context.Context, exec TransactionOrPool, sql string, args []any) (int64, error) {
	var total int64
	if err := exec.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, errors.Wrap(err, "error executing count query")
	}
	return total, nil
}
