package models

// ReturnField is one node of the requested-output tree handed to the
// query compiler. A node is either a direct column reference, a preset
// literal, or a nested set representing a joined single relation.
type ReturnField interface {
	FieldName() string
}

// ColumnField selects table.name directly. For multi relations, Table is
// the aggregating derived table and Name its json array column.
type ColumnField struct {
	Table string
	Name  string
}

func (f ColumnField) FieldName() string { return f.Name }

// PresetField emits a constant under the given name, e.g. the `type`
// discriminator injected on every record.
type PresetField struct {
	Name  string
	Value any
}

func (f PresetField) FieldName() string { return f.Name }

// ReturnFieldSet is an ordered, name-keyed set of return fields. Nested
// sets compile to one json object per relation level.
type ReturnFieldSet struct {
	Name string

	fields []ReturnField
	byName map[string]int
}

func (s *ReturnFieldSet) FieldName() string { return s.Name }

func NewReturnFieldSet(name string, fields ...ReturnField) *ReturnFieldSet {
	s := &ReturnFieldSet{Name: name, byName: make(map[string]int)}
	for _, f := range fields {
		s.Put(f)
	}
	return s
}

// Put inserts a field, keeping insertion order. Inserting a set whose
// name is already held by another set merges the children into the
// existing subtree; any other duplicate keeps the first entry, so tree
// construction is idempotent.
func (s *ReturnFieldSet) Put(field ReturnField) {
	idx, dup := s.byName[field.FieldName()]
	if !dup {
		s.byName[field.FieldName()] = len(s.fields)
		s.fields = append(s.fields, field)
		return
	}
	existing, existingIsSet := s.fields[idx].(*ReturnFieldSet)
	incoming, incomingIsSet := field.(*ReturnFieldSet)
	if existingIsSet && incomingIsSet {
		for _, child := range incoming.Fields() {
			existing.Put(child)
		}
	}
}

// Fields returns the children in insertion order.
func (s *ReturnFieldSet) Fields() []ReturnField {
	return s.fields
}

// Get returns the child with the given name, or nil.
func (s *ReturnFieldSet) Get(name string) ReturnField {
	if idx, ok := s.byName[name]; ok {
		return s.fields[idx]
	}
	return nil
}

// SingleJoin is one LEFT JOIN pair (relation table + target table)
// serving a single-valued relation field, discriminated on the relation
// table's source column.
type SingleJoin struct {
	RelationTable string
	SourceTable   string
	FieldCode     string
	TargetTable   string
}

// MultiJoin is one aggregating derived table serving a multi-valued
// relation field for one target entity type. The derived table is
// grouped by the source foreign key so fan-out never multiplies the base
// row set.
type MultiJoin struct {
	RelationTable string
	SourceTable   string
	FieldCode     string
	TargetType    string
	TargetTable   string
	DisplayCol    string
}

// JoinSet collects the joins a resolved request needs, deduplicated.
type JoinSet struct {
	Single []SingleJoin
	Multi  []MultiJoin
}

func (j *JoinSet) AddSingle(join SingleJoin) {
	for _, existing := range j.Single {
		if existing == join {
			return
		}
	}
	j.Single = append(j.Single, join)
}

func (j *JoinSet) AddMulti(join MultiJoin) {
	for _, existing := range j.Multi {
		if existing == join {
			return
		}
	}
	j.Multi = append(j.Multi, join)
}
