package usecases

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/latticehq/lattice-backend/models"
	"github.com/latticehq/lattice-backend/repositories"
	"github.com/latticehq/lattice-backend/utils"
)

// SchemaAdminUsecase applies catalog mutations: entity and field
// lifecycle, with the physical DDL each one implies. Statements run in
// autocommit order, DDL first; if a metadata write fails after its DDL
// already ran, the error is marked so callers know the catalog and the
// physical schema may have diverged.
type SchemaAdminUsecase struct {
	executorGetter    repositories.ExecutorGetter
	catalogRepository repositories.CatalogRepository
	ddlRepository     repositories.SchemaDDLRepository
	recordRepository  repositories.RecordRepository
	registry          *SchemaRegistry
	bus               repositories.InvalidationBus
}

func NewSchemaAdminUsecase(
	executorGetter repositories.ExecutorGetter,
	catalogRepository repositories.CatalogRepository,
	ddlRepository repositories.SchemaDDLRepository,
	recordRepository repositories.RecordRepository,
	registry *SchemaRegistry,
	bus repositories.InvalidationBus,
) *SchemaAdminUsecase {
	return &SchemaAdminUsecase{
		executorGetter:    executorGetter,
		catalogRepository: catalogRepository,
		ddlRepository:     ddlRepository,
		recordRepository:  recordRepository,
		registry:          registry,
		bus:               bus,
	}
}

// Apply executes one catalog mutation, refreshes the local registry and
// broadcasts the matching invalidation event.
func (usecase *SchemaAdminUsecase) Apply(ctx context.Context, request models.SchemaChangeRequest) error {
	var event models.RefreshEvent
	var err error

	switch request.Part {
	case models.PartField:
		event = models.RefreshEvent{
			Level:  models.RefreshEntity,
			Schema: request.Schema,
			Entity: request.Entity,
		}
		// Mirror fields live on the target entities, so relation field
		// changes invalidate the whole schema.
		if usecase.touchesMirrors(request) {
			event = models.RefreshEvent{Level: models.RefreshSchema, Schema: request.Schema}
		}
		switch request.RequestType {
		case models.OperationCreate:
			err = usecase.createField(ctx, request)
		case models.OperationUpdate:
			err = usecase.updateField(ctx, request)
		case models.OperationDelete:
			err = usecase.deleteField(ctx, request)
		default:
			err = errors.Wrapf(models.BadParameterError, "unknown request type %q", request.RequestType)
		}
	case models.PartEntity:
		event = models.RefreshEvent{Level: models.RefreshSchema, Schema: request.Schema}
		switch request.RequestType {
		case models.OperationCreate:
			err = usecase.createEntity(ctx, request)
		case models.OperationDelete:
			err = usecase.deleteEntity(ctx, request)
		case models.OperationUpdate:
			err = errors.Wrap(models.UnimplementedError, "entity update is not supported")
		default:
			err = errors.Wrapf(models.BadParameterError, "unknown request type %q", request.RequestType)
		}
	case models.PartSchema:
		event = models.RefreshEvent{Level: models.RefreshAll}
		switch request.RequestType {
		case models.OperationDelete:
			err = usecase.toggleSchemaArchived(ctx, request)
		default:
			err = errors.Wrapf(models.UnimplementedError, "schema %s is not supported", request.RequestType)
		}
	default:
		err = errors.Wrapf(models.BadParameterError, "unknown schema part %q", request.Part)
	}
	if err != nil {
		return err
	}

	if err := usecase.registry.Refresh(ctx, event); err != nil {
		return err
	}
	if err := usecase.bus.Publish(ctx, event); err != nil {
		// Other instances converge on their next full reload; the local
		// mutation itself succeeded.
		utils.LoggerFromContext(ctx).ErrorContext(ctx, "could not broadcast refresh event",
			"error", err.Error())
	}
	return nil
}

// touchesMirrors reports whether the field mutation reaches beyond its
// own entity: creating a relation field adds mirrors on the targets,
// and deleting one archives or unwinds them.
func (usecase *SchemaAdminUsecase) touchesMirrors(request models.SchemaChangeRequest) bool {
	if request.Data.Type.IsRelation() {
		return true
	}
	field, err := usecase.registry.FieldByCode(request.Schema, request.Entity, request.Data.Code)
	return err == nil && field.Type.IsRelation()
}

func (usecase *SchemaAdminUsecase) createField(ctx context.Context, request models.SchemaChangeRequest) error {
	entity, err := usecase.registry.EntityByCode(request.Schema, request.Entity)
	if err != nil {
		return err
	}
	if _, taken := entity.Fields[request.Data.Code]; taken {
		return errors.Wrapf(models.ConflictError, "field %s already exists on %s", request.Data.Code, entity.Code)
	}

	exec := usecase.executorGetter.Executor()
	input := models.CreateFieldInput{
		Code: request.Data.Code,
		Name: request.Data.Name,
		Type: request.Data.Type,
	}

	switch {
	case request.Data.Type == models.UnknownFieldType:
		return errors.Wrapf(models.BadParameterError, "unknown field type for %s", request.Data.Code)
	case request.Data.Type.IsRelation():
		return usecase.createRelationField(ctx, request, entity, input)
	case request.Data.Type == models.FieldTypeList:
		input.Params.Options = request.Data.Options
		fallthrough
	default:
		if err := usecase.ddlRepository.AddColumn(ctx, exec, entity.Code, input.Code, input.Type); err != nil {
			return err
		}
		if _, err := usecase.catalogRepository.CreateField(ctx, exec, entity.Id, input); err != nil {
			return errors.Mark(err, models.ErrSchemaDrift)
		}
		return nil
	}
}

// createRelationField creates a forward relation field plus one
// auto-generated mirror field on every target entity. Both directions
// share one relation table per source/target pair.
func (usecase *SchemaAdminUsecase) createRelationField(
	ctx context.Context,
	request models.SchemaChangeRequest,
	entity models.Entity,
	input models.CreateFieldInput,
) error {
	exec := usecase.executorGetter.Executor()
	ddlDone := false
	input.Params.Targets = make(map[string]models.RelationTarget, len(request.Data.Options))

	for _, targetCode := range request.Data.Options {
		target, err := usecase.registry.EntityByCode(request.Schema, targetCode)
		if err != nil {
			return err
		}
		relationTable := models.RelationTableName(entity.Code, target.Code)

		if err := usecase.ddlRepository.CreateRelationTable(ctx, exec, relationTable, entity.Code, target.Code); err != nil {
			return markDrift(err, ddlDone)
		}
		ddlDone = true

		mirrorCode := mirrorFieldCode(entity.Code, target)
		mirror := models.CreateFieldInput{
			Code: mirrorCode,
			Name: fmt.Sprintf("%s <-> %s", entity.MultiName, target.MultiName),
			Type: models.FieldTypeMultiEntity,
			Params: models.FieldParams{
				Targets: map[string]models.RelationTarget{
					entity.Code: {
						RelationTable:   relationTable,
						TargetTable:     entity.Code,
						MirrorFieldCode: input.Code,
					},
				},
			},
		}
		if _, err := usecase.catalogRepository.CreateField(ctx, exec, target.Id, mirror); err != nil {
			return models.MarkDrift(err)
		}

		input.Params.Targets[target.Code] = models.RelationTarget{
			RelationTable:   relationTable,
			TargetTable:     target.Code,
			MirrorFieldCode: mirrorCode,
		}
	}

	if _, err := usecase.catalogRepository.CreateField(ctx, exec, entity.Id, input); err != nil {
		return markDrift(err, ddlDone)
	}
	return nil
}

// mirrorFieldCode names the auto-generated reverse field after the
// source table, suffixed with a counter when the target already has a
// field by that name.
func mirrorFieldCode(sourceTable string, target models.Entity) string {
	code := sourceTable
	for i := 1; ; i++ {
		if _, taken := target.Fields[code]; !taken {
			return code
		}
		code = fmt.Sprintf("%s_%d", sourceTable, i)
	}
}

// updateField supports replacing a LIST field's allowed values. Changing
// a field's type or targets would require rewriting stored data and is
// intentionally not supported.
func (usecase *SchemaAdminUsecase) updateField(ctx context.Context, request models.SchemaChangeRequest) error {
	field, err := usecase.registry.FieldByCode(request.Schema, request.Entity, request.Data.Code)
	if err != nil {
		return err
	}
	if field.Type != models.FieldTypeList {
		return errors.Wrapf(models.UnimplementedError, "cannot update a %s field", field.Type)
	}

	params := field.Params
	params.Options = request.Data.Options
	return usecase.catalogRepository.UpdateFieldParams(ctx, usecase.executorGetter.Executor(), field.Id, params)
}

// deleteField is two-phase. The first delete archives the field, hiding
// it from reads and writes while keeping its data. Deleting an archived
// field destroys the column or relation rows for good.
func (usecase *SchemaAdminUsecase) deleteField(ctx context.Context, request models.SchemaChangeRequest) error {
	entity, err := usecase.registry.EntityByCode(request.Schema, request.Entity)
	if err != nil {
		return err
	}
	field, ok := entity.Fields[request.Data.Code]
	if !ok {
		return models.NewNotFoundError("field " + request.Data.Code)
	}

	exec := usecase.executorGetter.Executor()
	if !field.Archived {
		return usecase.catalogRepository.ArchiveField(ctx, exec, field.Id)
	}

	if field.Type.IsRelation() {
		if err := usecase.dropRelationField(ctx, request.Schema, entity, field); err != nil {
			return err
		}
	} else {
		if err := usecase.ddlRepository.DropColumn(ctx, exec, entity.Code, field.Code); err != nil {
			return err
		}
	}
	return models.MarkDrift(usecase.catalogRepository.DeleteField(ctx, exec, field.Id))
}

// dropRelationField removes the field's relation rows and unwinds the
// mirror field on each target: the mirror is deleted outright when this
// was its only remaining pair, otherwise the pair is removed from its
// target set.
func (usecase *SchemaAdminUsecase) dropRelationField(ctx context.Context, schemaCode string, entity models.Entity, field models.Field) error {
	exec := usecase.executorGetter.Executor()

	for targetCode, relation := range field.Params.Targets {
		if err := usecase.recordRepository.DeleteRelationRowsForField(ctx, exec,
			relation.RelationTable, entity.Code, field.Code); err != nil {
			return err
		}

		target, err := usecase.registry.EntityByCode(schemaCode, targetCode)
		if err != nil {
			return models.MarkDrift(err)
		}
		mirror, ok := target.Fields[relation.MirrorFieldCode]
		if !ok {
			continue
		}
		if len(mirror.Params.Targets) <= 1 {
			if err := usecase.catalogRepository.DeleteField(ctx, exec, mirror.Id); err != nil {
				return models.MarkDrift(err)
			}
			continue
		}
		params := mirror.Params
		params.Targets = make(map[string]models.RelationTarget, len(mirror.Params.Targets)-1)
		for code, t := range mirror.Params.Targets {
			if code != entity.Code {
				params.Targets[code] = t
			}
		}
		if err := usecase.catalogRepository.UpdateFieldParams(ctx, exec, mirror.Id, params); err != nil {
			return models.MarkDrift(err)
		}
	}
	return nil
}

func (usecase *SchemaAdminUsecase) createEntity(ctx context.Context, request models.SchemaChangeRequest) error {
	schema, err := usecase.registry.SchemaByCode(request.Schema)
	if err != nil {
		return err
	}
	if _, taken := schema.Entities[request.Data.Code]; taken {
		return errors.Wrapf(models.ConflictError, "entity %s already exists", request.Data.Code)
	}

	exec := usecase.executorGetter.Executor()
	if err := usecase.ddlRepository.CreateEntityTable(ctx, exec, request.Data.Code); err != nil {
		return err
	}

	entityId, err := usecase.catalogRepository.CreateEntity(ctx, exec, schema.Id, models.CreateEntityInput{
		Code:      request.Data.Code,
		SoloName:  request.Data.SoloName,
		MultiName: request.Data.MultiName,
	})
	if err != nil {
		return models.MarkDrift(err)
	}

	// The mandatory columns get catalog rows too, so they resolve like
	// any other field.
	for _, field := range []models.CreateFieldInput{
		{Code: models.ColumnUid, Name: "ID", Type: models.FieldTypeInt, Indexed: true},
		{Code: models.ColumnCode, Name: "Display Name", Type: models.FieldTypeText},
	} {
		if _, err := usecase.catalogRepository.CreateField(ctx, exec, entityId, field); err != nil {
			return models.MarkDrift(err)
		}
	}
	return nil
}

// deleteEntity mirrors the field lifecycle: archive first, destroy the
// table and its catalog rows on a repeated delete.
func (usecase *SchemaAdminUsecase) deleteEntity(ctx context.Context, request models.SchemaChangeRequest) error {
	entity, err := usecase.registry.EntityByCode(request.Schema, request.Data.Code)
	if err != nil {
		return err
	}

	exec := usecase.executorGetter.Executor()
	if !entity.Archived {
		return usecase.catalogRepository.ArchiveEntity(ctx, exec, entity.Id)
	}

	if err := usecase.ddlRepository.DropEntityTable(ctx, exec, entity.Code); err != nil {
		return err
	}
	for _, field := range entity.Fields {
		if err := usecase.catalogRepository.DeleteField(ctx, exec, field.Id); err != nil {
			return models.MarkDrift(err)
		}
	}
	return models.MarkDrift(usecase.catalogRepository.DeleteEntity(ctx, exec, entity.Id))
}

// toggleSchemaArchived flips a schema in and out of the archived state
// instead of destroying tenant data.
func (usecase *SchemaAdminUsecase) toggleSchemaArchived(ctx context.Context, request models.SchemaChangeRequest) error {
	schema, err := usecase.registry.SchemaByCode(request.Schema)
	if err != nil {
		return err
	}
	return usecase.catalogRepository.SetSchemaArchived(ctx, usecase.executorGetter.Executor(), schema.Id, !schema.Archived)
}

func markDrift(err error, ddlDone bool) error {
	if err != nil && ddlDone {
		return errors.Mark(err, models.ErrSchemaDrift)
	}
	return err
}
