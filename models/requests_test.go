package models

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRefFrom(t *testing.T) {
	ref, err := RecordRefFrom(map[string]any{"type": "person", "uid": float64(7)})
	require.NoError(t, err)
	assert.Equal(t, RecordRef{Type: "person", Uid: 7}, ref)

	ref, err = RecordRefFrom(RecordRef{Type: "person", Uid: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(3), ref.Uid)

	_, err = RecordRefFrom("person:7")
	assert.True(t, errors.Is(err, ErrTypeMismatch))

	_, err = RecordRefFrom(map[string]any{"uid": 7})
	assert.True(t, errors.Is(err, ErrTypeMismatch))
}

func TestRecordRefsFrom(t *testing.T) {
	refs, err := RecordRefsFrom([]any{
		map[string]any{"type": "tag", "uid": float64(1)},
		map[string]any{"type": "tag", "uid": float64(2)},
	})
	require.NoError(t, err)
	assert.Len(t, refs, 2)

	refs, err = RecordRefsFrom(nil)
	require.NoError(t, err)
	assert.Empty(t, refs)

	_, err = RecordRefsFrom("tags")
	assert.True(t, errors.Is(err, ErrTypeMismatch))
}

func TestReadQueryWithDefaults(t *testing.T) {
	query := ReadQuery{}.WithDefaults()
	assert.Equal(t, 1, query.Page)
	assert.Equal(t, DefaultPageSize, query.PageSize)
	assert.Equal(t, ColumnUid, query.Order)

	query = ReadQuery{Page: 4, PageSize: 50, Order: "title"}.WithDefaults()
	assert.Equal(t, 4, query.Page)
	assert.Equal(t, 50, query.PageSize)
	assert.Equal(t, "title", query.Order)
}
