package repositories

import (
	"context"
	"encoding/json"

	"github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/latticehq/lattice-backend/models"
	"github.com/latticehq/lattice-backend/repositories/dbmodels"
)

// CatalogRepository reads and mutates the metadata tables describing
// schemas, entities and fields. It never touches entity data tables.
type CatalogRepository interface {
	ListSchemas(ctx context.Context, exec TransactionOrPool) ([]models.Schema, error)
	ListEntities(ctx context.Context, exec TransactionOrPool, schemaId int64) ([]models.Entity, error)
	ListFields(ctx context.Context, exec TransactionOrPool, entityId int64) ([]models.Field, error)
	CreateEntity(ctx context.Context, exec TransactionOrPool, schemaId int64, input models.CreateEntityInput) (int64, error)
	CreateField(ctx context.Context, exec TransactionOrPool, entityId int64, input models.CreateFieldInput) (int64, error)
	UpdateFieldParams(ctx context.Context, exec TransactionOrPool, fieldId int64, params models.FieldParams) error
	ArchiveField(ctx context.Context, exec TransactionOrPool, fieldId int64) error
	ArchiveEntity(ctx context.Context, exec TransactionOrPool, entityId int64) error
	SetSchemaArchived(ctx context.Context, exec TransactionOrPool, schemaId int64, archived bool) error
	DeleteField(ctx context.Context, exec TransactionOrPool, fieldId int64) error
	DeleteEntity(ctx context.Context, exec TransactionOrPool, entityId int64) error
}

type CatalogRepositoryPostgresql struct{}

func (repo CatalogRepositoryPostgresql) ListSchemas(ctx context.Context, exec TransactionOrPool) ([]models.Schema, error) {
	return SqlToListOfModels(
		ctx,
		exec,
		NewQueryBuilder().
			Select(dbmodels.SelectSchemaColumns...).
			From(dbmodels.TABLE_SCHEMAS).
			OrderBy("uid"),
		dbmodels.AdaptSchema,
	)
}

func (repo CatalogRepositoryPostgresql) ListEntities(ctx context.Context, exec TransactionOrPool, schemaId int64) ([]models.Entity, error) {
	return SqlToListOfModels(
		ctx,
		exec,
		NewQueryBuilder().
			Select(dbmodels.SelectEntityColumns...).
			From(dbmodels.TABLE_ENTITIES).
			InnerJoin(dbmodels.TABLE_ENTITIES_SCHEMAS+" ON _ss_entities_schemas.fk_entities = entities.uid").
			Where(squirrel.Eq{"_ss_entities_schemas.fk_schemas": schemaId}).
			OrderBy("entities.uid"),
		dbmodels.AdaptEntity,
	)
}

func (repo CatalogRepositoryPostgresql) ListFields(ctx context.Context, exec TransactionOrPool, entityId int64) ([]models.Field, error) {
	return SqlToListOfModels(
		ctx,
		exec,
		NewQueryBuilder().
			Select(dbmodels.SelectFieldColumns...).
			From(dbmodels.TABLE_FIELDS).
			InnerJoin(dbmodels.TABLE_FIELDS_ENTITIES+" ON _ss_fields_entities.fk_fields = fields.uid").
			Where(squirrel.Eq{"_ss_fields_entities.fk_entities": entityId}).
			OrderBy("fields.uid"),
		dbmodels.AdaptField,
	)
}

func (repo CatalogRepositoryPostgresql) CreateEntity(ctx context.Context, exec TransactionOrPool, schemaId int64, input models.CreateEntityInput) (int64, error) {
	query, args, err := NewQueryBuilder().
		Insert(dbmodels.TABLE_ENTITIES).
		Columns("code", "soloname", "multiname", "display_name_col").
		Values(input.Code, input.SoloName, input.MultiName, models.ColumnCode).
		Suffix("RETURNING uid").
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "can't build sql query")
	}
	var entityId int64
	if err := exec.QueryRow(ctx, query, args...).Scan(&entityId); err != nil {
		return 0, adaptCatalogError(err, "entity", input.Code)
	}

	_, err = ExecBuilder(ctx, exec, NewQueryBuilder().
		Insert(dbmodels.TABLE_ENTITIES_SCHEMAS).
		Columns("entities_col", "fk_entities", "fk_schemas", "schemas_col").
		Values("schema", entityId, schemaId, "entities"))
	if err != nil {
		return 0, err
	}
	return entityId, nil
}

func (repo CatalogRepositoryPostgresql) CreateField(ctx context.Context, exec TransactionOrPool, entityId int64, input models.CreateFieldInput) (int64, error) {
	params, err := json.Marshal(input.Params)
	if err != nil {
		return 0, errors.Wrap(err, "unable to marshal field params")
	}

	query, args, err := NewQueryBuilder().
		Insert(dbmodels.TABLE_FIELDS).
		Columns("code", "name", "field_type", "indexed", "params").
		Values(input.Code, input.Name, input.Type.String(), input.Indexed, params).
		Suffix("RETURNING uid").
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "can't build sql query")
	}
	var fieldId int64
	if err := exec.QueryRow(ctx, query, args...).Scan(&fieldId); err != nil {
		return 0, adaptCatalogError(err, "field", input.Code)
	}

	_, err = ExecBuilder(ctx, exec, NewQueryBuilder().
		Insert(dbmodels.TABLE_FIELDS_ENTITIES).
		Columns("fields_col", "fk_fields", "fk_entities", "entities_col").
		Values("entity", fieldId, entityId, "fields"))
	if err != nil {
		return 0, err
	}
	return fieldId, nil
}

func (repo CatalogRepositoryPostgresql) UpdateFieldParams(ctx context.Context, exec TransactionOrPool, fieldId int64, params models.FieldParams) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return errors.Wrap(err, "unable to marshal field params")
	}
	_, err = ExecBuilder(ctx, exec, NewQueryBuilder().
		Update(dbmodels.TABLE_FIELDS).
		Set("params", raw).
		Where(squirrel.Eq{"uid": fieldId}))
	return err
}

func (repo CatalogRepositoryPostgresql) ArchiveField(ctx context.Context, exec TransactionOrPool, fieldId int64) error {
	_, err := ExecBuilder(ctx, exec, NewQueryBuilder().
		Update(dbmodels.TABLE_FIELDS).
		Set(models.ColumnArchived, true).
		Where(squirrel.Eq{"uid": fieldId}))
	return err
}

func (repo CatalogRepositoryPostgresql) ArchiveEntity(ctx context.Context, exec TransactionOrPool, entityId int64) error {
	_, err := ExecBuilder(ctx, exec, NewQueryBuilder().
		Update(dbmodels.TABLE_ENTITIES).
		Set(models.ColumnArchived, true).
		Where(squirrel.Eq{"uid": entityId}))
	return err
}

func (repo CatalogRepositoryPostgresql) SetSchemaArchived(ctx context.Context, exec TransactionOrPool, schemaId int64, archived bool) error {
	_, err := ExecBuilder(ctx, exec, NewQueryBuilder().
		Update(dbmodels.TABLE_SCHEMAS).
		Set(models.ColumnArchived, archived).
		Where(squirrel.Eq{"uid": schemaId}))
	return err
}

// DeleteField removes the field row; the membership row in
// _ss_fields_entities goes with it through the FK cascade.
func (repo CatalogRepositoryPostgresql) DeleteField(ctx context.Context, exec TransactionOrPool, fieldId int64) error {
	_, err := ExecBuilder(ctx, exec, NewQueryBuilder().
		Delete(dbmodels.TABLE_FIELDS).
		Where(squirrel.Eq{"uid": fieldId}))
	return err
}

func (repo CatalogRepositoryPostgresql) DeleteEntity(ctx context.Context, exec TransactionOrPool, entityId int64) error {
	_, err := ExecBuilder(ctx, exec, NewQueryBuilder().
		Delete(dbmodels.TABLE_ENTITIES).
		Where(squirrel.Eq{"uid": entityId}))
	return err
}

func adaptCatalogError(err error, kind, code string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return errors.Wrapf(models.ConflictError, "%s %s already exists", kind, code)
	}
	return errors.Wrapf(err, "error creating %s %s", kind, code)
}
