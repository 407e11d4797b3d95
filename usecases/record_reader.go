package usecases

import (
	"context"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/guregu/null/v5"

	"github.com/latticehq/lattice-backend/models"
	"github.com/latticehq/lattice-backend/repositories"
)

// RecordReaderUsecase resolves logical read requests against the schema
// registry and runs the compiled statement. One request, however deep
// its relation paths, becomes exactly one SQL query (plus one count
// query when asked for).
type RecordReaderUsecase struct {
	executorGetter   repositories.ExecutorGetter
	recordRepository repositories.RecordRepository
	registry         *SchemaRegistry
}

func NewRecordReaderUsecase(
	executorGetter repositories.ExecutorGetter,
	recordRepository repositories.RecordRepository,
	registry *SchemaRegistry,
) *RecordReaderUsecase {
	return &RecordReaderUsecase{
		executorGetter:   executorGetter,
		recordRepository: recordRepository,
		registry:         registry,
	}
}

func (usecase *RecordReaderUsecase) Read(ctx context.Context, query models.ReadQuery) (models.RecordPage, error) {
	query = query.WithDefaults()

	entity, err := usecase.registry.EntityByCode(query.Schema, query.Entity)
	if err != nil {
		return models.RecordPage{}, err
	}
	if entity.Archived {
		return models.RecordPage{}, models.NewNotFoundError("entity " + entity.Code)
	}

	spec, err := usecase.resolve(entity, query)
	if err != nil {
		return models.RecordPage{}, err
	}

	sql, args, err := repositories.BuildRecordQuery(spec)
	if err != nil {
		return models.RecordPage{}, err
	}

	exec := usecase.executorGetter.Executor()
	records, err := usecase.recordRepository.QueryRecords(ctx, exec, sql, args)
	if err != nil {
		return models.RecordPage{}, err
	}

	page := models.RecordPage{Records: records}
	if query.IncludeCount {
		countSql, countArgs, err := repositories.BuildCountQuery(spec.Table, spec.Filters)
		if err != nil {
			return models.RecordPage{}, err
		}
		total, err := usecase.recordRepository.QueryCount(ctx, exec, countSql, countArgs)
		if err != nil {
			return models.RecordPage{}, err
		}
		page.TotalCount = null.IntFrom(total)
	}
	return page, nil
}

// resolve turns the requested paths into the compiler's input: a return
// field tree plus the joins it needs.
func (usecase *RecordReaderUsecase) resolve(entity models.Entity, query models.ReadQuery) (repositories.QuerySpec, error) {
	root := models.NewReturnFieldSet("")
	joins := models.JoinSet{}

	// Every record carries its discriminator and uid, requested or not.
	root.Put(models.PresetField{Name: "type", Value: entity.SoloName})
	root.Put(models.ColumnField{Table: entity.Code, Name: models.ColumnUid})

	paths := query.ReturnFields
	if len(paths) == 0 {
		paths = defaultReturnFields(entity)
	}
	for _, path := range paths {
		if err := usecase.resolvePath(root, &joins, query.Schema, entity, strings.Split(path, ".")); err != nil {
			return repositories.QuerySpec{}, err
		}
	}

	filters, err := resolveFilters(entity, query.Filters)
	if err != nil {
		return repositories.QuerySpec{}, err
	}
	if _, err := scalarField(entity, query.Order); err != nil {
		return repositories.QuerySpec{}, err
	}

	return repositories.QuerySpec{
		Table:    entity.Code,
		Fields:   root,
		Joins:    joins,
		Filters:  filters,
		Order:    query.Order,
		Page:     query.Page,
		PageSize: query.PageSize,
	}, nil
}

// defaultReturnFields selects every readable scalar field when the
// request names none.
func defaultReturnFields(entity models.Entity) []string {
	fields := make([]string, 0, len(entity.Fields))
	for code, field := range entity.Fields {
		if field.Archived || field.Type.IsRelation() || field.Type == models.FieldTypePassword {
			continue
		}
		fields = append(fields, code)
	}
	sort.Strings(fields)
	return fields
}

func (usecase *RecordReaderUsecase) resolvePath(
	set *models.ReturnFieldSet,
	joins *models.JoinSet,
	schemaCode string,
	entity models.Entity,
	parts []string,
) error {
	field, ok := entity.Fields[parts[0]]
	if !ok || field.Archived {
		return models.NewNotFoundError("field " + parts[0] + " on " + entity.Code)
	}

	switch field.Type {
	case models.FieldTypePassword:
		// Secrets never leave the store.
		return nil
	case models.FieldTypeMultiEntity:
		if len(parts) > 1 {
			return errors.Wrapf(models.BadParameterError,
				"cannot descend through multi relation %s", field.Code)
		}
		return usecase.resolveMultiRelation(set, joins, schemaCode, entity, field)
	case models.FieldTypeEntity:
		return usecase.resolveSingleRelation(set, joins, schemaCode, entity, field, parts[1:])
	default:
		if len(parts) > 1 {
			return errors.Wrapf(models.BadParameterError,
				"field %s is not a relation", field.Code)
		}
		set.Put(models.ColumnField{Table: entity.Code, Name: field.Code})
		return nil
	}
}

func (usecase *RecordReaderUsecase) resolveMultiRelation(
	set *models.ReturnFieldSet,
	joins *models.JoinSet,
	schemaCode string,
	entity models.Entity,
	field models.Field,
) error {
	for _, targetCode := range sortedTargets(field.Params.Targets) {
		relation := field.Params.Targets[targetCode]
		target, err := usecase.registry.EntityByCode(schemaCode, targetCode)
		if err != nil {
			return err
		}
		joins.AddMulti(models.MultiJoin{
			RelationTable: relation.RelationTable,
			SourceTable:   entity.Code,
			FieldCode:     field.Code,
			TargetType:    target.SoloName,
			TargetTable:   target.Code,
			DisplayCol:    displayColumn(target),
		})
		set.Put(models.ColumnField{Table: relation.RelationTable, Name: field.Code})
	}
	return nil
}

// resolveSingleRelation nests the target as a json object. Without a
// deeper path the object carries the target's discriminator, uid and
// display column; with one, resolution recurses into the target entity.
func (usecase *RecordReaderUsecase) resolveSingleRelation(
	set *models.ReturnFieldSet,
	joins *models.JoinSet,
	schemaCode string,
	entity models.Entity,
	field models.Field,
	rest []string,
) error {
	for _, targetCode := range sortedTargets(field.Params.Targets) {
		relation := field.Params.Targets[targetCode]
		target, err := usecase.registry.EntityByCode(schemaCode, targetCode)
		if err != nil {
			return err
		}
		joins.AddSingle(models.SingleJoin{
			RelationTable: relation.RelationTable,
			SourceTable:   entity.Code,
			FieldCode:     field.Code,
			TargetTable:   target.Code,
		})

		subtree := models.NewReturnFieldSet(field.Code,
			models.PresetField{Name: "type", Value: target.SoloName},
			models.ColumnField{Table: target.Code, Name: models.ColumnUid},
		)
		if len(rest) == 0 {
			subtree.Put(models.ColumnField{Table: target.Code, Name: displayColumn(target)})
		} else if err := usecase.resolvePath(subtree, joins, schemaCode, target, rest); err != nil {
			return err
		}
		set.Put(subtree)
	}
	return nil
}

// resolveFilters checks every leaf against the entity's fields and pins
// it to the base table.
func resolveFilters(entity models.Entity, node *models.Filter) (*models.Filter, error) {
	if node == nil {
		return nil, nil
	}
	resolved := &models.Filter{Operator: node.Operator}
	for _, child := range node.Children {
		switch c := child.(type) {
		case *models.Filter:
			nested, err := resolveFilters(entity, c)
			if err != nil {
				return nil, err
			}
			resolved.Children = append(resolved.Children, nested)
		case models.FilterLeaf:
			field, err := scalarField(entity, c.Field)
			if err != nil {
				return nil, err
			}
			c.Field = field.Code
			c.Table = entity.Code
			resolved.Children = append(resolved.Children, c)
		default:
			return nil, errors.Wrapf(models.BadParameterError, "unexpected filter node %T", child)
		}
	}
	return resolved, nil
}

func scalarField(entity models.Entity, code string) (models.Field, error) {
	field, ok := entity.Fields[code]
	if !ok || field.Archived {
		return models.Field{}, models.NewNotFoundError("field " + code + " on " + entity.Code)
	}
	if field.Type.IsRelation() {
		return models.Field{}, errors.Wrapf(models.BadParameterError,
			"field %s is a relation", code)
	}
	return field, nil
}

func displayColumn(entity models.Entity) string {
	if entity.DisplayNameCol != "" {
		return entity.DisplayNameCol
	}
	return models.ColumnCode
}

func sortedTargets(targets map[string]models.RelationTarget) []string {
	codes := make([]string, 0, len(targets))
	for code := range targets {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
