package dbmodels

import (
	"github.com/guregu/null/v5"

	"github.com/latticehq/lattice-backend/models"
)

type DBSchema struct {
	Uid      int64       `db:"uid"`
	Code     string      `db:"code"`
	Name     string      `db:"name"`
	Host     null.String `db:"host"`
	DbType   null.String `db:"db_type"`
	Archived bool        `db:"_ss_archived"`
}

const TABLE_SCHEMAS = "schemas"

var SelectSchemaColumns = []string{"uid", "code", "name", "host", "db_type", "_ss_archived"}

func AdaptSchema(db DBSchema) (models.Schema, error) {
	return models.Schema{
		Id:        db.Uid,
		Code:      db.Code,
		Name:      db.Name,
		Host:      db.Host.String,
		StoreType: db.DbType.String,
		Archived:  db.Archived,
		Entities:  make(map[string]models.Entity),
	}, nil
}
