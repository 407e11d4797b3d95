package models

// BooleanOperator combines the children of a filter node.
type BooleanOperator string

const (
	FilterAnd BooleanOperator = "AND"
	FilterOr  BooleanOperator = "OR"
)

// FilterOperator is a leaf comparison. The string values are the wire
// format accepted from the request layer.
type FilterOperator string

const (
	FilterIs          FilterOperator = "is"
	FilterIsNot       FilterOperator = "is_not"
	FilterContains    FilterOperator = "contains"
	FilterNotContains FilterOperator = "not_contains"
	FilterStartsWith  FilterOperator = "starts_with"
	FilterEndsWith    FilterOperator = "ends_with"
	FilterGreaterThan FilterOperator = "greater_than"
	FilterLessThan    FilterOperator = "less_than"
)

// FilterNode is either a *Filter (combinator) or a FilterLeaf.
type FilterNode interface {
	isFilterNode()
}

// Filter combines nested filters and leaf predicates with one boolean
// operator. Children are parenthesized as a group when compiled.
type Filter struct {
	Operator BooleanOperator
	Children []FilterNode
}

func (*Filter) isFilterNode() {}

// FilterLeaf is one predicate on a field of the base table. Table may
// override the target table on the wire, but cross-table filtering is
// unsupported: the compiler always receives leaves resolved to the base
// table.
type FilterLeaf struct {
	Field    string
	Operator FilterOperator
	Value    any
	Table    string
}

func (FilterLeaf) isFilterNode() {}
