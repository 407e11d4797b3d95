package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReturnFieldSetKeepsInsertionOrder(t *testing.T) {
	set := NewReturnFieldSet("",
		PresetField{Name: "type", Value: "book"},
		ColumnField{Table: "books", Name: "uid"},
		ColumnField{Table: "books", Name: "title"},
	)

	names := []string{}
	for _, field := range set.Fields() {
		names = append(names, field.FieldName())
	}
	assert.Equal(t, []string{"type", "uid", "title"}, names)
}

func TestReturnFieldSetDuplicateKeepsFirst(t *testing.T) {
	set := NewReturnFieldSet("")
	set.Put(ColumnField{Table: "books", Name: "title"})
	set.Put(ColumnField{Table: "other", Name: "title"})

	assert.Len(t, set.Fields(), 1)
	assert.Equal(t, ColumnField{Table: "books", Name: "title"}, set.Get("title"))
}

func TestReturnFieldSetMergesNestedSets(t *testing.T) {
	set := NewReturnFieldSet("")
	set.Put(NewReturnFieldSet("author",
		PresetField{Name: "type", Value: "person"},
		ColumnField{Table: "people", Name: "name"},
	))
	set.Put(NewReturnFieldSet("author",
		PresetField{Name: "type", Value: "person"},
		ColumnField{Table: "people", Name: "email"},
	))

	assert.Len(t, set.Fields(), 1)
	author, ok := set.Get("author").(*ReturnFieldSet)
	assert.True(t, ok)
	assert.Len(t, author.Fields(), 3)
	assert.NotNil(t, author.Get("name"))
	assert.NotNil(t, author.Get("email"))
}

func TestJoinSetDeduplicates(t *testing.T) {
	joins := JoinSet{}
	join := SingleJoin{
		RelationTable: "_ss_books_people",
		SourceTable:   "books",
		FieldCode:     "author",
		TargetTable:   "people",
	}
	joins.AddSingle(join)
	joins.AddSingle(join)
	assert.Len(t, joins.Single, 1)

	multi := MultiJoin{
		RelationTable: "_ss_books_tags",
		SourceTable:   "books",
		FieldCode:     "tags",
		TargetType:    "tag",
		TargetTable:   "tags",
		DisplayCol:    "name",
	}
	joins.AddMulti(multi)
	joins.AddMulti(multi)
	assert.Len(t, joins.Multi, 1)
}
