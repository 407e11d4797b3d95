package usecases

import (
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/latticehq/lattice-backend/mocks"
	"github.com/latticehq/lattice-backend/models"
	"github.com/latticehq/lattice-backend/repositories"
)

// testCatalog is the fixture every usecase test loads: one schema with a
// books entity linked to a people entity through the author field and
// its auto-generated mirror.
type testCatalog struct {
	pool     pgxmock.PgxPoolIface
	getter   repositories.ExecutorGetter
	catalog  *mocks.CatalogRepository
	bus      *mocks.InvalidationBus
	registry *SchemaRegistry

	bookFields   []models.Field
	peopleFields []models.Field
}

func bookTestFields() []models.Field {
	return []models.Field{
		{Id: 100, Code: "uid", Name: "Uid", Type: models.FieldTypeInt},
		{Id: 101, Code: "title", Name: "Title", Type: models.FieldTypeText},
		{Id: 102, Code: "genre", Name: "Genre", Type: models.FieldTypeList, Params: models.FieldParams{
			Options: []string{"fiction", "nonfiction"},
		}},
		{Id: 103, Code: "cover", Name: "Cover", Type: models.FieldTypeMedia},
		{Id: 104, Code: "author", Name: "Author", Type: models.FieldTypeEntity, Params: models.FieldParams{
			Targets: map[string]models.RelationTarget{
				"people": {RelationTable: "_ss_books_people", TargetTable: "people", MirrorFieldCode: "books"},
			},
		}},
		{Id: 105, Code: "secret", Name: "Secret", Type: models.FieldTypePassword},
	}
}

func peopleTestFields() []models.Field {
	return []models.Field{
		{Id: 110, Code: "uid", Name: "Uid", Type: models.FieldTypeInt},
		{Id: 111, Code: "name", Name: "Name", Type: models.FieldTypeText},
		{Id: 112, Code: "books", Name: "books <-> people", Type: models.FieldTypeMultiEntity, Params: models.FieldParams{
			Targets: map[string]models.RelationTarget{
				"books": {RelationTable: "_ss_books_people", TargetTable: "books", MirrorFieldCode: "author"},
			},
		}},
	}
}

func newTestCatalog(t *testing.T) *testCatalog {
	t.Helper()

	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	fixture := &testCatalog{
		pool:         pool,
		getter:       repositories.NewExecutorGetter(pool),
		catalog:      new(mocks.CatalogRepository),
		bus:          new(mocks.InvalidationBus),
		bookFields:   bookTestFields(),
		peopleFields: peopleTestFields(),
	}

	fixture.catalog.On("ListSchemas", mock.Anything, mock.Anything).
		Return([]models.Schema{{Id: 1, Code: "library", Name: "Library"}}, nil)
	fixture.catalog.On("ListEntities", mock.Anything, mock.Anything, int64(1)).
		Return([]models.Entity{
			{Id: 10, Code: "books", SoloName: "book", MultiName: "books", DisplayNameCol: "title"},
			{Id: 11, Code: "people", SoloName: "person", MultiName: "people", DisplayNameCol: "name"},
		}, nil)
	fixture.catalog.On("ListFields", mock.Anything, mock.Anything, int64(10)).
		Return(fixture.bookFields, nil)
	fixture.catalog.On("ListFields", mock.Anything, mock.Anything, int64(11)).
		Return(fixture.peopleFields, nil)

	fixture.registry = NewSchemaRegistry(fixture.getter, fixture.catalog, fixture.bus)
	require.NoError(t, fixture.registry.Load(t.Context()))
	return fixture
}
