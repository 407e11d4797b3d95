package usecases

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/latticehq/lattice-backend/mocks"
	"github.com/latticehq/lattice-backend/models"
	"github.com/latticehq/lattice-backend/repositories"
)

func newMutatorFixture(t *testing.T) (*RecordMutatorUsecase, *testCatalog, *mocks.RecordRepository) {
	fixture := newTestCatalog(t)
	records := new(mocks.RecordRepository)
	mutator := NewRecordMutatorUsecase(fixture.getter, records, fixture.registry, t.TempDir())
	return mutator, fixture, records
}

func TestCreateRecordWithRelation(t *testing.T) {
	mutator, fixture, records := newMutatorFixture(t)

	fixture.pool.ExpectBegin()
	fixture.pool.ExpectCommit()
	fixture.pool.ExpectRollback()

	records.On("InsertRecord", mock.Anything, mock.Anything, "books", "book",
		map[string]any{"title": "Go", "genre": "nonfiction"}).
		Return(models.RecordRef{Type: "book", Uid: 9}, nil)
	// The author's mirror is multi-valued, so linking needs no purge.
	records.On("InsertRelationRow", mock.Anything, mock.Anything, repositories.RelationRow{
		RelationTable:   "_ss_books_people",
		SourceTable:     "books",
		TargetTable:     "people",
		FieldCode:       "author",
		SourceUid:       9,
		TargetUid:       5,
		MirrorFieldCode: "books",
	}).Return(nil)

	ref, err := mutator.Create(t.Context(), "library", "books", map[string]any{
		"title":  "Go",
		"genre":  "nonfiction",
		"author": map[string]any{"type": "person", "uid": float64(5)},
	})
	require.NoError(t, err)
	assert.Equal(t, models.RecordRef{Type: "book", Uid: 9}, ref)

	records.AssertExpectations(t)
	records.AssertNotCalled(t, "DeleteRelationRows",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	require.NoError(t, fixture.pool.ExpectationsWereMet())
}

func TestUpdateRecordWipesRelationsAndPurgesSingleMirror(t *testing.T) {
	mutator, fixture, records := newMutatorFixture(t)

	fixture.pool.ExpectBegin()
	fixture.pool.ExpectCommit()
	fixture.pool.ExpectRollback()

	// Relinking a person to books goes through the single-valued author
	// mirror: the target book's existing author link must be purged.
	records.On("DeleteRelationRows", mock.Anything, mock.Anything,
		"_ss_books_people", "people", "books", int64(5)).Return(nil)
	records.On("DeleteRelationRows", mock.Anything, mock.Anything,
		"_ss_books_people", "books", "author", int64(9)).Return(nil)
	records.On("InsertRelationRow", mock.Anything, mock.Anything, repositories.RelationRow{
		RelationTable:   "_ss_books_people",
		SourceTable:     "people",
		TargetTable:     "books",
		FieldCode:       "books",
		SourceUid:       5,
		TargetUid:       9,
		MirrorFieldCode: "author",
	}).Return(nil)

	ref, err := mutator.Update(t.Context(), "library", "people", 5, map[string]any{
		"books": []any{map[string]any{"type": "book", "uid": float64(9)}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.RecordRef{Type: "person", Uid: 5}, ref)

	records.AssertExpectations(t)
	// No scalar columns changed, so no row update happened.
	records.AssertNotCalled(t, "UpdateRecord",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	require.NoError(t, fixture.pool.ExpectationsWereMet())
}

func TestSingleMirrorPurgeCoversEveryRelationTable(t *testing.T) {
	mutator, fixture, records := newMutatorFixture(t)

	// The author mirror now spans two relation tables; relinking through
	// one of them must purge both.
	for i, field := range fixture.bookFields {
		if field.Code == "author" {
			fixture.bookFields[i].Params.Targets["aliens"] = models.RelationTarget{
				RelationTable:   "_ss_books_aliens",
				TargetTable:     "aliens",
				MirrorFieldCode: "books",
			}
		}
	}
	require.NoError(t, fixture.registry.Refresh(t.Context(), models.RefreshEvent{
		Level:  models.RefreshEntity,
		Schema: "library",
		Entity: "books",
	}))

	fixture.pool.ExpectBegin()
	fixture.pool.ExpectCommit()
	fixture.pool.ExpectRollback()

	records.On("DeleteRelationRows", mock.Anything, mock.Anything,
		"_ss_books_people", "people", "books", int64(5)).Return(nil)
	records.On("DeleteRelationRows", mock.Anything, mock.Anything,
		"_ss_books_people", "books", "author", int64(9)).Return(nil)
	records.On("DeleteRelationRows", mock.Anything, mock.Anything,
		"_ss_books_aliens", "books", "author", int64(9)).Return(nil)
	records.On("InsertRelationRow", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := mutator.Update(t.Context(), "library", "people", 5, map[string]any{
		"books": []any{map[string]any{"type": "book", "uid": float64(9)}},
	})
	require.NoError(t, err)

	records.AssertExpectations(t)
	require.NoError(t, fixture.pool.ExpectationsWereMet())
}

func TestUpdateRecordClearsRelationWithEmptyList(t *testing.T) {
	mutator, fixture, records := newMutatorFixture(t)

	fixture.pool.ExpectBegin()
	fixture.pool.ExpectCommit()
	fixture.pool.ExpectRollback()

	records.On("DeleteRelationRows", mock.Anything, mock.Anything,
		"_ss_books_people", "people", "books", int64(5)).Return(nil)

	_, err := mutator.Update(t.Context(), "library", "people", 5, map[string]any{
		"books": []any{},
	})
	require.NoError(t, err)

	records.AssertExpectations(t)
	records.AssertNotCalled(t, "InsertRelationRow", mock.Anything, mock.Anything, mock.Anything)
	require.NoError(t, fixture.pool.ExpectationsWereMet())
}

func TestCreateRecordInvalidListOptionRollsBack(t *testing.T) {
	mutator, fixture, records := newMutatorFixture(t)

	fixture.pool.ExpectBegin()
	fixture.pool.ExpectRollback()
	fixture.pool.ExpectRollback()

	_, err := mutator.Create(t.Context(), "library", "books", map[string]any{
		"genre": "romance",
	})
	assert.True(t, errors.Is(err, models.ErrTransactionAborted))
	assert.True(t, errors.Is(err, models.ErrInvalidOption))

	records.AssertNotCalled(t, "InsertRecord",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	require.NoError(t, fixture.pool.ExpectationsWereMet())
}

func TestCreateRecordHashesPassword(t *testing.T) {
	mutator, fixture, records := newMutatorFixture(t)

	fixture.pool.ExpectBegin()
	fixture.pool.ExpectCommit()
	fixture.pool.ExpectRollback()

	records.On("InsertRecord", mock.Anything, mock.Anything, "books", "book",
		mock.MatchedBy(func(values map[string]any) bool {
			hash, ok := values["secret"].(string)
			return ok && hash != "hunter2" && len(hash) > 0
		})).Return(models.RecordRef{Type: "book", Uid: 9}, nil)

	_, err := mutator.Create(t.Context(), "library", "books", map[string]any{
		"secret": "hunter2",
	})
	require.NoError(t, err)
	records.AssertExpectations(t)
}

func TestDeleteRecordArchivesByDefault(t *testing.T) {
	mutator, fixture, records := newMutatorFixture(t)

	fixture.pool.ExpectBegin()
	fixture.pool.ExpectCommit()
	fixture.pool.ExpectRollback()

	records.On("ArchiveRecord", mock.Anything, mock.Anything, "books", int64(9)).Return(nil)

	ref, err := mutator.Delete(t.Context(), "library", "books", 9, false)
	require.NoError(t, err)
	assert.Equal(t, models.RecordRef{Type: "book", Uid: 9}, ref)

	records.AssertExpectations(t)
	records.AssertNotCalled(t, "DeleteRecord", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPermanentDeleteRemovesRow(t *testing.T) {
	mutator, fixture, records := newMutatorFixture(t)

	fixture.pool.ExpectBegin()
	fixture.pool.ExpectCommit()
	fixture.pool.ExpectRollback()

	records.On("SelectColumnValue", mock.Anything, mock.Anything, "books", "cover", int64(9)).
		Return(nil, nil)
	records.On("DeleteRecord", mock.Anything, mock.Anything, "books", int64(9)).Return(nil)

	_, err := mutator.Delete(t.Context(), "library", "books", 9, true)
	require.NoError(t, err)
	records.AssertExpectations(t)
}

func TestBatchAbortsOnFirstFailure(t *testing.T) {
	mutator, fixture, records := newMutatorFixture(t)

	fixture.pool.ExpectBegin()
	fixture.pool.ExpectRollback()
	fixture.pool.ExpectRollback()

	records.On("InsertRecord", mock.Anything, mock.Anything, "books", "book",
		map[string]any{"title": "Go"}).
		Return(models.RecordRef{Type: "book", Uid: 9}, nil)

	refs, err := mutator.Batch(t.Context(), "library", []models.WriteOperation{
		{Type: models.OperationCreate, Entity: "books", Data: map[string]any{"title": "Go"}},
		{Type: models.OperationCreate, Entity: "movies", Data: map[string]any{}},
	})
	assert.Nil(t, refs)
	assert.True(t, errors.Is(err, models.ErrTransactionAborted))
	assert.True(t, errors.Is(err, models.NotFoundError))
	require.NoError(t, fixture.pool.ExpectationsWereMet())
}
