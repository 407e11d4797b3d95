package repositories

import (
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"

	"github.com/latticehq/lattice-backend/models"
)

// QuerySpec is a fully resolved read request: every field classified and
// every join registered by the resolver, no registry lookups left.
type QuerySpec struct {
	Table    string
	Fields   *models.ReturnFieldSet
	Joins    models.JoinSet
	Filters  *models.Filter
	Order    string
	Page     int
	PageSize int
}

// BuildRecordQuery compiles a resolved read request into one SQL
// statement. Pure translation: no statement is executed here, every
// identifier is quoted and every literal parameterized.
func BuildRecordQuery(spec QuerySpec) (string, []any, error) {
	table := sanitizeIdentifier(spec.Table)

	builder := NewQueryBuilder().Select().From(table)

	for _, field := range spec.Fields.Fields() {
		expr, err := selectExpression(field)
		if err != nil {
			return "", nil, err
		}
		builder = builder.Column(expr)
	}

	builder = appendJoins(builder, spec.Joins)

	builder, err := appendFilters(builder, spec.Table, spec.Filters)
	if err != nil {
		return "", nil, err
	}

	builder = builder.
		OrderBy(table + "." + sanitizeIdentifier(spec.Order)).
		Limit(uint64(spec.PageSize)).
		Offset(uint64(spec.PageSize * (spec.Page - 1)))

	sql, args, err := builder.ToSql()
	return sql, args, errors.Wrap(err, "can't build read query")
}

// BuildCountQuery compiles the same filter logic without joins or
// pagination, for total-row counts.
func BuildCountQuery(table string, filters *models.Filter) (string, []any, error) {
	builder := NewQueryBuilder().
		Select("count(*) AS total_count").
		From(sanitizeIdentifier(table))

	builder, err := appendFilters(builder, table, filters)
	if err != nil {
		return "", nil, err
	}

	sql, args, err := builder.ToSql()
	return sql, args, errors.Wrap(err, "can't build count query")
}

func selectExpression(field models.ReturnField) (squirrel.Sqlizer, error) {
	switch f := field.(type) {
	case models.ColumnField:
		return squirrel.Expr(qualifiedColumn(f.Table, f.Name)), nil
	case models.PresetField:
		return squirrel.Expr("? AS "+sanitizeIdentifier(f.Name), f.Value), nil
	case *models.ReturnFieldSet:
		sql, args, err := jsonObjectExpression(f)
		if err != nil {
			return nil, err
		}
		return squirrel.Expr(sql+" AS "+sanitizeIdentifier(f.Name), args...), nil
	default:
		return nil, errors.Wrapf(models.BadParameterError, "unexpected return field %T", field)
	}
}

// jsonObjectExpression renders one relation level as a json object,
// recursing for deeper relation chains. Keys are parameterized, column
// values stay identifiers.
func jsonObjectExpression(set *models.ReturnFieldSet) (string, []any, error) {
	parts := make([]string, 0, 2*len(set.Fields()))
	args := make([]any, 0, 2*len(set.Fields()))

	for _, field := range set.Fields() {
		switch f := field.(type) {
		case models.PresetField:
			parts = append(parts, "?", "?")
			args = append(args, f.Name, f.Value)
		case models.ColumnField:
			parts = append(parts, "?", qualifiedColumn(f.Table, f.Name))
			args = append(args, f.Name)
		case *models.ReturnFieldSet:
			nestedSql, nestedArgs, err := jsonObjectExpression(f)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, "?", nestedSql)
			args = append(args, f.Name)
			args = append(args, nestedArgs...)
		default:
			return "", nil, errors.Wrapf(models.BadParameterError, "unexpected return field %T", field)
		}
	}
	return "json_build_object(" + strings.Join(parts, ", ") + ")", args, nil
}

func appendJoins(builder squirrel.SelectBuilder, joins models.JoinSet) squirrel.SelectBuilder {
	for _, join := range joins.Single {
		relation := sanitizeIdentifier(join.RelationTable)
		source := sanitizeIdentifier(join.SourceTable)
		target := sanitizeIdentifier(join.TargetTable)

		builder = builder.LeftJoin(fmt.Sprintf("%s ON %s.%s = %s.uid AND %s.%s = ?",
			relation,
			relation, sanitizeIdentifier("fk_"+join.SourceTable),
			source,
			relation, sanitizeIdentifier(join.SourceTable+"_col"),
		), join.FieldCode)
		builder = builder.LeftJoin(fmt.Sprintf("%s ON %s.%s = %s.uid",
			target,
			relation, sanitizeIdentifier("fk_"+join.TargetTable),
			target,
		))
	}

	// Multi-valued relations aggregate in a derived table grouped by the
	// source foreign key, so fan-out on one field never multiplies the
	// base row set or another relation's rows.
	for _, join := range joins.Multi {
		relation := sanitizeIdentifier(join.RelationTable)
		source := sanitizeIdentifier(join.SourceTable)
		target := sanitizeIdentifier(join.TargetTable)
		fkSource := sanitizeIdentifier("fk_" + join.SourceTable)
		fkTarget := sanitizeIdentifier("fk_" + join.TargetTable)

		builder = builder.LeftJoin(fmt.Sprintf(
			"(SELECT %s.%s, json_agg(json_build_object('type', ?, 'uid', %s.uid, ?, %s.%s)) AS %s "+
				"FROM %s LEFT JOIN %s ON %s.%s = %s.uid WHERE %s.%s = ? GROUP BY %s.%s) %s ON %s.%s = %s.uid",
			relation, fkSource,
			target, target, sanitizeIdentifier(join.DisplayCol),
			sanitizeIdentifier(join.FieldCode),
			relation, target, relation, fkTarget, target,
			relation, sanitizeIdentifier(join.SourceTable+"_col"),
			relation, fkSource,
			relation, relation, fkSource, source,
		), join.TargetType, join.DisplayCol, join.FieldCode)
	}
	return builder
}

func appendFilters(builder squirrel.SelectBuilder, baseTable string, filters *models.Filter) (squirrel.SelectBuilder, error) {
	// Archived records are excluded from every read.
	builder = builder.Where(fmt.Sprintf("NOT %s.%s",
		sanitizeIdentifier(baseTable), sanitizeIdentifier(models.ColumnArchived)))

	if filters == nil {
		return builder, nil
	}
	compiled, err := compileFilterNode(filters, baseTable)
	if err != nil {
		return builder, err
	}
	return builder.Where(compiled), nil
}

func compileFilterNode(node models.FilterNode, baseTable string) (squirrel.Sqlizer, error) {
	switch n := node.(type) {
	case *models.Filter:
		children := make([]squirrel.Sqlizer, 0, len(n.Children))
		for _, child := range n.Children {
			compiled, err := compileFilterNode(child, baseTable)
			if err != nil {
				return nil, err
			}
			children = append(children, compiled)
		}
		switch n.Operator {
		case models.FilterAnd:
			return squirrel.And(children), nil
		case models.FilterOr:
			return squirrel.Or(children), nil
		default:
			return nil, errors.Wrapf(models.ErrInvalidOption, "unknown boolean operator %q", n.Operator)
		}
	case models.FilterLeaf:
		return compileFilterLeaf(n, baseTable)
	default:
		return nil, errors.Wrapf(models.BadParameterError, "unexpected filter node %T", node)
	}
}

func compileFilterLeaf(leaf models.FilterLeaf, baseTable string) (squirrel.Sqlizer, error) {
	// Cross-table filtering is unsupported; leaves always resolve to the
	// base table.
	table := leaf.Table
	if table == "" {
		table = baseTable
	}
	column := qualifiedColumn(table, leaf.Field)

	switch leaf.Operator {
	case models.FilterIs:
		if leaf.Value == nil {
			return squirrel.Expr(column + " IS NULL"), nil
		}
		return squirrel.Expr(column+" = ?", leaf.Value), nil
	case models.FilterIsNot:
		if leaf.Value == nil {
			return squirrel.Expr(column + " IS NOT NULL"), nil
		}
		return squirrel.Expr(column+" != ?", leaf.Value), nil
	case models.FilterContains:
		return squirrel.Expr(column+" ILIKE ?", "%"+valueString(leaf.Value)+"%"), nil
	case models.FilterNotContains:
		return squirrel.Expr(column+" NOT ILIKE ?", "%"+valueString(leaf.Value)+"%"), nil
	case models.FilterStartsWith:
		return squirrel.Expr(column+" ILIKE ?", valueString(leaf.Value)+"%"), nil
	case models.FilterEndsWith:
		return squirrel.Expr(column+" ILIKE ?", "%"+valueString(leaf.Value)), nil
	case models.FilterGreaterThan:
		return squirrel.Expr(column+" > ?", leaf.Value), nil
	case models.FilterLessThan:
		return squirrel.Expr(column+" < ?", leaf.Value), nil
	default:
		return nil, errors.Wrapf(models.ErrInvalidOption, "unknown filter operator %q", leaf.Operator)
	}
}

func qualifiedColumn(table, column string) string {
	return sanitizeIdentifier(table) + "." + sanitizeIdentifier(column)
}

func valueString(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}
