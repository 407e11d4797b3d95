package models

// ///////////////////////////////
// Field Type
// ///////////////////////////////

type FieldType int

const (
	UnknownFieldType FieldType = iota - 1
	FieldTypeText
	FieldTypePassword
	FieldTypeMedia
	FieldTypeInt
	FieldTypeFloat
	FieldTypeBool
	FieldTypeJSON
	FieldTypeDate
	FieldTypeList
	FieldTypeEntity
	FieldTypeMultiEntity
)

func (t FieldType) String() string {
	switch t {
	case FieldTypeText:
		return "TEXT"
	case FieldTypePassword:
		return "PASSWORD"
	case FieldTypeMedia:
		return "MEDIA"
	case FieldTypeInt:
		return "INT"
	case FieldTypeFloat:
		return "FLOAT"
	case FieldTypeBool:
		return "BOOL"
	case FieldTypeJSON:
		return "JSON"
	case FieldTypeDate:
		return "DATE"
	case FieldTypeList:
		return "LIST"
	case FieldTypeEntity:
		return "ENTITY"
	case FieldTypeMultiEntity:
		return "MULTIENTITY"
	}
	return "unknown"
}

func FieldTypeFrom(s string) FieldType {
	switch s {
	case "TEXT":
		return FieldTypeText
	case "PASSWORD":
		return FieldTypePassword
	case "MEDIA":
		return FieldTypeMedia
	case "INT":
		return FieldTypeInt
	case "FLOAT":
		return FieldTypeFloat
	case "BOOL":
		return FieldTypeBool
	case "JSON":
		return FieldTypeJSON
	case "DATE":
		return FieldTypeDate
	case "LIST":
		return FieldTypeList
	case "ENTITY":
		return FieldTypeEntity
	case "MULTIENTITY":
		return FieldTypeMultiEntity
	}
	return UnknownFieldType
}

// IsRelation reports whether values of this type live in relation tables
// rather than in a column of the entity table.
func (t FieldType) IsRelation() bool {
	return t == FieldTypeEntity || t == FieldTypeMultiEntity
}

///////////////////////////////
// Catalog tree
///////////////////////////////

// Schema is one registered tenant database. Entities are keyed by entity
// code (the physical table name).
type Schema struct {
	Id        int64
	Code      string
	Name      string
	Host      string
	StoreType string
	Archived  bool
	Entities  map[string]Entity
}

// Entity is one logical record type, backed by one physical table named
// after its code. Every entity table carries the three mandatory columns
// uid, code and _ss_archived.
type Entity struct {
	Id             int64
	Code           string
	SoloName       string
	MultiName      string
	DisplayNameCol string
	Archived       bool
	Fields         map[string]Field
}

type Field struct {
	Id       int64
	Code     string
	Name     string
	Type     FieldType
	Indexed  bool
	Archived bool
	Params   FieldParams
}

// FieldParams is the type-specific part of a field definition, persisted
// as JSON in the catalog. LIST fields carry Options; ENTITY and
// MULTIENTITY fields carry one RelationTarget per linkable entity type.
type FieldParams struct {
	Options []string                  `json:"options,omitempty"`
	Targets map[string]RelationTarget `json:"targets,omitempty"`
}

// RelationTarget describes how one relation field reaches one target
// entity type. The relation table holds rows for both directions of the
// mirrored field pair; MirrorFieldCode is the auto-generated reverse
// field on the target entity.
type RelationTarget struct {
	RelationTable   string `json:"relation"`
	TargetTable     string `json:"table"`
	MirrorFieldCode string `json:"col"`
}

// Mandatory columns of every entity table.
const (
	ColumnUid      = "uid"
	ColumnCode     = "code"
	ColumnArchived = "_ss_archived"
)

// RelationTableName returns the shared relation table name for a
// source/target entity pair.
func RelationTableName(sourceTable, targetTable string) string {
	return "_ss_" + sourceTable + "_" + targetTable
}

type CreateFieldInput struct {
	Code    string
	Name    string
	Type    FieldType
	Indexed bool
	Params  FieldParams
}

type CreateEntityInput struct {
	Code      string
	SoloName  string
	MultiName string
}
