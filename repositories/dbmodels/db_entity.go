package dbmodels

import (
	"github.com/latticehq/lattice-backend/models"
)

type DBEntity struct {
	Uid            int64  `db:"uid"`
	Code           string `db:"code"`
	SoloName       string `db:"soloname"`
	MultiName      string `db:"multiname"`
	DisplayNameCol string `db:"display_name_col"`
	Archived       bool   `db:"_ss_archived"`
}

const (
	TABLE_ENTITIES         = "entities"
	TABLE_ENTITIES_SCHEMAS = "_ss_entities_schemas"
)

var SelectEntityColumns = []string{
	"entities.uid", "entities.code", "entities.soloname", "entities.multiname",
	"entities.display_name_col", "entities._ss_archived",
}

func AdaptEntity(db DBEntity) (models.Entity, error) {
	return models.Entity{
		Id:             db.Uid,
		Code:           db.Code,
		SoloName:       db.SoloName,
		MultiName:      db.MultiName,
		DisplayNameCol: db.DisplayNameCol,
		Archived:       db.Archived,
		Fields:         make(map[string]models.Field),
	}, nil
}
