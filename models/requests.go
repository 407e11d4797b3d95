package models

import (
	"github.com/cockroachdb/errors"
	"github.com/guregu/null/v5"
)

const (
	DefaultPageSize = 25
	DefaultOrder    = ColumnUid
)

// ReadQuery is a logical read request against one entity. Return fields
// may be dotted paths descending single relations (e.g. "author.name").
type ReadQuery struct {
	Schema       string
	Entity       string
	ReturnFields []string
	Filters      *Filter
	Page         int
	PageSize     int
	Order        string
	IncludeCount bool
}

// WithDefaults fills the implicit read behavior: first page of 25 rows
// ordered by uid.
func (q ReadQuery) WithDefaults() ReadQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.Order == "" {
		q.Order = DefaultOrder
	}
	return q
}

// RecordPage is one page of read results. TotalCount is only set when
// the request asked for it.
type RecordPage struct {
	Records    []map[string]any
	TotalCount null.Int
}

type OperationType string

const (
	OperationCreate OperationType = "create"
	OperationUpdate OperationType = "update"
	OperationDelete OperationType = "delete"
)

// WriteOperation is one create, update or delete inside a batch.
// Permanent selects hard delete over archival.
type WriteOperation struct {
	Type      OperationType
	Entity    string
	EntityId  int64
	Data      map[string]any
	Permanent bool
}

// RecordRef identifies one record by entity type and uid. It is both the
// result envelope of mutations and the payload shape of relation fields.
type RecordRef struct {
	Type string `json:"type"`
	Uid  int64  `json:"uid"`
}

// RecordRefFrom coerces a relation field payload into a RecordRef.
// Accepts RecordRef itself and the decoded-JSON object shape
// {"type": ..., "uid": ...}.
func RecordRefFrom(value any) (RecordRef, error) {
	switch v := value.(type) {
	case RecordRef:
		return v, nil
	case map[string]any:
		typ, ok := v["type"].(string)
		if !ok {
			return RecordRef{}, errors.Wrap(ErrTypeMismatch, "relation object has no type")
		}
		var uid int64
		switch id := v["uid"].(type) {
		case int64:
			uid = id
		case int:
			uid = int64(id)
		case float64:
			uid = int64(id)
		default:
			return RecordRef{}, errors.Wrap(ErrTypeMismatch, "relation object has no uid")
		}
		return RecordRef{Type: typ, Uid: uid}, nil
	default:
		return RecordRef{}, errors.Wrapf(ErrTypeMismatch, "unexpected relation payload %T", value)
	}
}

// RecordRefsFrom coerces a MULTIENTITY payload into a list of refs. A
// nil payload is an empty target set.
func RecordRefsFrom(value any) ([]RecordRef, error) {
	if value == nil {
		return nil, nil
	}
	items, ok := value.([]any)
	if !ok {
		if refs, ok := value.([]RecordRef); ok {
			return refs, nil
		}
		return nil, errors.Wrapf(ErrTypeMismatch, "unexpected relation list payload %T", value)
	}
	refs := make([]RecordRef, 0, len(items))
	for _, item := range items {
		ref, err := RecordRefFrom(item)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

type SchemaPart string

const (
	PartField  SchemaPart = "field"
	PartEntity SchemaPart = "entity"
	PartSchema SchemaPart = "schema"
)

// SchemaChangeRequest is one administrative catalog mutation.
type SchemaChangeRequest struct {
	Part        SchemaPart
	RequestType OperationType
	Schema      string
	Entity      string
	Data        SchemaChangeData
}

// SchemaChangeData carries the part-specific payload. Options holds LIST
// allowed values, or target entity codes for relation fields.
type SchemaChangeData struct {
	Code      string
	Name      string
	Type      FieldType
	SoloName  string
	MultiName string
	Options   []string
}
