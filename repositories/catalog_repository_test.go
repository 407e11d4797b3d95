package repositories

import (
	"regexp"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticehq/lattice-backend/models"
)

func newMockExecutor(t *testing.T) (pgxmock.PgxPoolIface, Executor) {
	t.Helper()
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool, NewExecutorGetter(pool).Executor()
}

func TestListSchemas(t *testing.T) {
	pool, exec := newMockExecutor(t)
	repo := CatalogRepositoryPostgresql{}

	pool.ExpectQuery(regexp.QuoteMeta(
		`SELECT uid, code, name, host, db_type, _ss_archived FROM schemas ORDER BY uid`)).
		WillReturnRows(pgxmock.NewRows([]string{"uid", "code", "name", "host", "db_type", "_ss_archived"}).
			AddRow(int64(1), "library", "Library", "localhost", "postgres", false))

	schemas, err := repo.ListSchemas(t.Context(), exec)
	require.NoError(t, err)
	require.Len(t, schemas, 1)
	assert.Equal(t, "library", schemas[0].Code)
	assert.Equal(t, "postgres", schemas[0].StoreType)
	assert.NotNil(t, schemas[0].Entities)
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestListEntities(t *testing.T) {
	pool, exec := newMockExecutor(t)
	repo := CatalogRepositoryPostgresql{}

	pool.ExpectQuery(regexp.QuoteMeta(
		`SELECT entities.uid, entities.code, entities.soloname, entities.multiname, `+
			`entities.display_name_col, entities._ss_archived `+
			`FROM entities `+
			`INNER JOIN _ss_entities_schemas ON _ss_entities_schemas.fk_entities = entities.uid `+
			`WHERE _ss_entities_schemas.fk_schemas = $1 ORDER BY entities.uid`)).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{
			"uid", "code", "soloname", "multiname", "display_name_col", "_ss_archived",
		}).AddRow(int64(10), "books", "book", "books", "title", false))

	entities, err := repo.ListEntities(t.Context(), exec, 1)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "book", entities[0].SoloName)
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestListFieldsDecodesParams(t *testing.T) {
	pool, exec := newMockExecutor(t)
	repo := CatalogRepositoryPostgresql{}

	params := []byte(`{"targets": {"people": {"relation": "_ss_books_people", "table": "people", "col": "books"}}}`)
	pool.ExpectQuery(`SELECT fields.uid, .* FROM fields`).
		WithArgs(int64(10)).
		WillReturnRows(pgxmock.NewRows([]string{
			"uid", "code", "name", "field_type", "indexed", "params", "_ss_archived",
		}).
			AddRow(int64(101), "title", "Title", "TEXT", false, []byte(nil), false).
			AddRow(int64(104), "author", "Author", "ENTITY", false, params, false))

	fields, err := repo.ListFields(t.Context(), exec, 10)
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, models.FieldTypeText, fields[0].Type)
	assert.Equal(t, models.FieldTypeEntity, fields[1].Type)
	assert.Equal(t, models.RelationTarget{
		RelationTable:   "_ss_books_people",
		TargetTable:     "people",
		MirrorFieldCode: "books",
	}, fields[1].Params.Targets["people"])
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestCreateEntityInsertsMembership(t *testing.T) {
	pool, exec := newMockExecutor(t)
	repo := CatalogRepositoryPostgresql{}

	pool.ExpectQuery(regexp.QuoteMeta(
		`INSERT INTO entities (code,soloname,multiname,display_name_col) `+
			`VALUES ($1,$2,$3,$4) RETURNING uid`)).
		WithArgs("venues", "venue", "venues", "code").
		WillReturnRows(pgxmock.NewRows([]string{"uid"}).AddRow(int64(12)))
	pool.ExpectExec(regexp.QuoteMeta(
		`INSERT INTO _ss_entities_schemas (entities_col,fk_entities,fk_schemas,schemas_col) `+
			`VALUES ($1,$2,$3,$4)`)).
		WithArgs("schema", int64(12), int64(1), "entities").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	entityId, err := repo.CreateEntity(t.Context(), exec, 1, models.CreateEntityInput{
		Code:      "venues",
		SoloName:  "venue",
		MultiName: "venues",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12), entityId)
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestCreateEntityDuplicateCode(t *testing.T) {
	pool, exec := newMockExecutor(t)
	repo := CatalogRepositoryPostgresql{}

	pool.ExpectQuery(`INSERT INTO entities`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

	_, err := repo.CreateEntity(t.Context(), exec, 1, models.CreateEntityInput{Code: "books"})
	assert.True(t, errors.Is(err, models.ConflictError))
}

func TestCreateFieldMarshalsParams(t *testing.T) {
	pool, exec := newMockExecutor(t)
	repo := CatalogRepositoryPostgresql{}

	pool.ExpectQuery(regexp.QuoteMeta(
		`INSERT INTO fields (code,name,field_type,indexed,params) `+
			`VALUES ($1,$2,$3,$4,$5) RETURNING uid`)).
		WithArgs("genre", "Genre", "LIST", false,
			[]byte(`{"options":["fiction","nonfiction"]}`)).
		WillReturnRows(pgxmock.NewRows([]string{"uid"}).AddRow(int64(102)))
	pool.ExpectExec(`INSERT INTO _ss_fields_entities`).
		WithArgs("entity", int64(102), int64(10), "fields").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	fieldId, err := repo.CreateField(t.Context(), exec, 10, models.CreateFieldInput{
		Code: "genre",
		Name: "Genre",
		Type: models.FieldTypeList,
		Params: models.FieldParams{
			Options: []string{"fiction", "nonfiction"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(102), fieldId)
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestArchiveField(t *testing.T) {
	pool, exec := newMockExecutor(t)
	repo := CatalogRepositoryPostgresql{}

	pool.ExpectExec(regexp.QuoteMeta(
		`UPDATE fields SET _ss_archived = $1 WHERE uid = $2`)).
		WithArgs(true, int64(102)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.ArchiveField(t.Context(), exec, 102))
	require.NoError(t, pool.ExpectationsWereMet())
}
