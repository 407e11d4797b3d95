package usecases

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/latticehq/lattice-backend/models"
)

func TestSchemaRegistryLoad(t *testing.T) {
	fixture := newTestCatalog(t)

	schema, err := fixture.registry.SchemaByCode("library")
	require.NoError(t, err)
	assert.Len(t, schema.Entities, 2)

	entity, err := fixture.registry.EntityByCode("library", "books")
	require.NoError(t, err)
	assert.Equal(t, "book", entity.SoloName)
	assert.Len(t, entity.Fields, 6)

	field, err := fixture.registry.FieldByCode("library", "books", "author")
	require.NoError(t, err)
	assert.Equal(t, models.FieldTypeEntity, field.Type)
	assert.Equal(t, "_ss_books_people", field.Params.Targets["people"].RelationTable)
}

func TestSchemaRegistryNotFound(t *testing.T) {
	fixture := newTestCatalog(t)

	_, err := fixture.registry.SchemaByCode("warehouse")
	assert.True(t, errors.Is(err, models.NotFoundError))

	_, err = fixture.registry.EntityByCode("library", "movies")
	assert.True(t, errors.Is(err, models.NotFoundError))

	_, err = fixture.registry.FieldByCode("library", "books", "isbn")
	assert.True(t, errors.Is(err, models.NotFoundError))
}

func TestSchemaRegistryEntityRefresh(t *testing.T) {
	fixture := newTestCatalog(t)

	// Replace the books field list and refresh only that entity.
	for _, call := range fixture.catalog.ExpectedCalls {
		if call.Method == "ListFields" && call.Arguments[2] == int64(10) {
			call.Unset()
			break
		}
	}
	fixture.catalog.On("ListFields", mock.Anything, mock.Anything, int64(10)).
		Return(append(bookTestFields(),
			models.Field{Id: 106, Code: "isbn", Name: "ISBN", Type: models.FieldTypeText}), nil)

	require.NoError(t, fixture.registry.Refresh(t.Context(), models.RefreshEvent{
		Level:  models.RefreshEntity,
		Schema: "library",
		Entity: "books",
	}))

	_, err := fixture.registry.FieldByCode("library", "books", "isbn")
	require.NoError(t, err)

	// The sibling entity kept its old view.
	entity, err := fixture.registry.EntityByCode("library", "people")
	require.NoError(t, err)
	assert.Len(t, entity.Fields, 3)
}

func TestSchemaRegistryEntityRefreshFallsBackToSchema(t *testing.T) {
	fixture := newTestCatalog(t)

	require.NoError(t, fixture.registry.Refresh(t.Context(), models.RefreshEvent{
		Level:  models.RefreshEntity,
		Schema: "library",
		Entity: "venues",
	}))

	// Unknown entity code falls back to a schema reload; known codes are
	// still resolvable afterwards.
	_, err := fixture.registry.EntityByCode("library", "books")
	require.NoError(t, err)
}
