package dbmodels

import (
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/latticehq/lattice-backend/models"
)

type DBField struct {
	Uid       int64  `db:"uid"`
	Code      string `db:"code"`
	Name      string `db:"name"`
	FieldType string `db:"field_type"`
	Indexed   bool   `db:"indexed"`
	Params    []byte `db:"params"`
	Archived  bool   `db:"_ss_archived"`
}

const (
	TABLE_FIELDS          = "fields"
	TABLE_FIELDS_ENTITIES = "_ss_fields_entities"
)

var SelectFieldColumns = []string{
	"fields.uid", "fields.code", "fields.name", "fields.field_type",
	"fields.indexed", "fields.params", "fields._ss_archived",
}

func AdaptField(db DBField) (models.Field, error) {
	field := models.Field{
		Id:       db.Uid,
		Code:     db.Code,
		Name:     db.Name,
		Type:     models.FieldTypeFrom(db.FieldType),
		Indexed:  db.Indexed,
		Archived: db.Archived,
	}
	if len(db.Params) > 0 {
		if err := json.Unmarshal(db.Params, &field.Params); err != nil {
			return models.Field{}, errors.Wrapf(err, "unable to unmarshal params of field %s", db.Code)
		}
	}
	return field, nil
}
