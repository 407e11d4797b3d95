package usecases

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-set/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/latticehq/lattice-backend/models"
	"github.com/latticehq/lattice-backend/repositories"
	"github.com/latticehq/lattice-backend/utils"
)

// RecordMutatorUsecase applies record batches. A batch runs inside one
// transaction on one connection: either every operation lands or none
// does. Relation fields are reconciled by wiping and reinserting the
// affected rows, with single-valued mirrors purged so exclusivity
// holds on both sides.
type RecordMutatorUsecase struct {
	executorGetter   repositories.ExecutorGetter
	recordRepository repositories.RecordRepository
	registry         *SchemaRegistry
	mediaRoot        string
}

func NewRecordMutatorUsecase(
	executorGetter repositories.ExecutorGetter,
	recordRepository repositories.RecordRepository,
	registry *SchemaRegistry,
	mediaRoot string,
) *RecordMutatorUsecase {
	return &RecordMutatorUsecase{
		executorGetter:   executorGetter,
		recordRepository: recordRepository,
		registry:         registry,
		mediaRoot:        mediaRoot,
	}
}

// Batch applies the operations in order within one transaction and
// returns one ref per operation. Any failure aborts the whole batch.
func (usecase *RecordMutatorUsecase) Batch(ctx context.Context, schemaCode string, operations []models.WriteOperation) ([]models.RecordRef, error) {
	refs := make([]models.RecordRef, len(operations))

	// Stale media files are only removed once the whole batch has
	// committed; a rollback must not lose files.
	var staleFiles []string

	err := usecase.executorGetter.Transaction(ctx, func(tx repositories.Transaction) error {
		for i, operation := range operations {
			ref, err := usecase.applyOperation(ctx, tx, schemaCode, operation, &staleFiles)
			if err != nil {
				return errors.Wrapf(err, "operation %d (%s %s)", i, operation.Type, operation.Entity)
			}
			refs[i] = ref
		}
		return nil
	})
	if err != nil {
		return nil, errors.Mark(err, models.ErrTransactionAborted)
	}

	removeFiles(ctx, usecase.mediaRoot, staleFiles)
	return refs, nil
}

func (usecase *RecordMutatorUsecase) Create(ctx context.Context, schemaCode, entityCode string, data map[string]any) (models.RecordRef, error) {
	return usecase.single(ctx, schemaCode, models.WriteOperation{
		Type:   models.OperationCreate,
		Entity: entityCode,
		Data:   data,
	})
}

func (usecase *RecordMutatorUsecase) Update(ctx context.Context, schemaCode, entityCode string, uid int64, data map[string]any) (models.RecordRef, error) {
	return usecase.single(ctx, schemaCode, models.WriteOperation{
		Type:     models.OperationUpdate,
		Entity:   entityCode,
		EntityId: uid,
		Data:     data,
	})
}

func (usecase *RecordMutatorUsecase) Delete(ctx context.Context, schemaCode, entityCode string, uid int64, permanent bool) (models.RecordRef, error) {
	return usecase.single(ctx, schemaCode, models.WriteOperation{
		Type:      models.OperationDelete,
		Entity:    entityCode,
		EntityId:  uid,
		Permanent: permanent,
	})
}

func (usecase *RecordMutatorUsecase) single(ctx context.Context, schemaCode string, operation models.WriteOperation) (models.RecordRef, error) {
	refs, err := usecase.Batch(ctx, schemaCode, []models.WriteOperation{operation})
	if err != nil {
		return models.RecordRef{}, err
	}
	return refs[0], nil
}

func (usecase *RecordMutatorUsecase) applyOperation(ctx context.Context, tx repositories.Transaction, schemaCode string, operation models.WriteOperation, staleFiles *[]string) (models.RecordRef, error) {
	entity, err := usecase.registry.EntityByCode(schemaCode, operation.Entity)
	if err != nil {
		return models.RecordRef{}, err
	}
	if entity.Archived {
		return models.RecordRef{}, models.NewNotFoundError("entity " + entity.Code)
	}

	switch operation.Type {
	case models.OperationCreate:
		return usecase.create(ctx, tx, schemaCode, entity, operation)
	case models.OperationUpdate:
		return usecase.update(ctx, tx, schemaCode, entity, operation, staleFiles)
	case models.OperationDelete:
		return usecase.delete(ctx, tx, entity, operation, staleFiles)
	default:
		return models.RecordRef{}, errors.Wrapf(models.BadParameterError, "unknown operation type %q", operation.Type)
	}
}

// relationWrite is one relation field's full target set for one record.
type relationWrite struct {
	field models.Field
	refs  []models.RecordRef
}

type classifiedValues struct {
	scalars    map[string]any
	relations  []relationWrite
	staleMedia []string
}

// classify splits the payload into scalar column values and relation
// writes, validating and transforming each value by its field type.
func (usecase *RecordMutatorUsecase) classify(ctx context.Context, tx repositories.Transaction, entity models.Entity, operation models.WriteOperation) (classifiedValues, error) {
	out := classifiedValues{scalars: map[string]any{}}

	for key, value := range operation.Data {
		field, ok := entity.Fields[key]
		if !ok || field.Archived {
			return out, models.NewNotFoundError("field " + key + " on " + entity.Code)
		}

		switch field.Type {
		case models.FieldTypeList:
			if value != nil {
				option, ok := value.(string)
				if !ok || !set.From(field.Params.Options).Contains(option) {
					return out, errors.Wrapf(models.ErrInvalidOption,
						"%v is not an allowed value of %s", value, field.Code)
				}
			}
			out.scalars[key] = value
		case models.FieldTypePassword:
			secret, ok := value.(string)
			if !ok {
				return out, errors.Wrapf(models.ErrTypeMismatch, "field %s expects a string", field.Code)
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
			if err != nil {
				return out, errors.Wrap(err, "can't hash password value")
			}
			out.scalars[key] = string(hash)
		case models.FieldTypeMedia:
			stale, err := usecase.classifyMedia(ctx, tx, entity, field, operation, value, &out)
			if err != nil {
				return out, err
			}
			out.staleMedia = append(out.staleMedia, stale...)
		case models.FieldTypeEntity:
			refs := []models.RecordRef{}
			if value != nil {
				ref, err := models.RecordRefFrom(value)
				if err != nil {
					return out, errors.Wrapf(err, "field %s", field.Code)
				}
				refs = append(refs, ref)
			}
			out.relations = append(out.relations, relationWrite{field: field, refs: refs})
		case models.FieldTypeMultiEntity:
			refs, err := models.RecordRefsFrom(value)
			if err != nil {
				return out, errors.Wrapf(err, "field %s", field.Code)
			}
			out.relations = append(out.relations, relationWrite{field: field, refs: refs})
		default:
			out.scalars[key] = value
		}
	}
	return out, nil
}

// classifyMedia validates an uploaded file path, or schedules the prior
// file for removal when the value is cleared or replaced.
func (usecase *RecordMutatorUsecase) classifyMedia(
	ctx context.Context,
	tx repositories.Transaction,
	entity models.Entity,
	field models.Field,
	operation models.WriteOperation,
	value any,
	out *classifiedValues,
) ([]string, error) {
	var stale []string
	if operation.Type == models.OperationUpdate {
		prior, err := usecase.recordRepository.SelectColumnValue(ctx, tx, entity.Code, field.Code, operation.EntityId)
		if err != nil {
			return nil, err
		}
		if path, ok := prior.(string); ok && path != "" {
			stale = append(stale, path)
		}
	}

	if value == nil {
		out.scalars[field.Code] = nil
		return stale, nil
	}
	path, ok := value.(string)
	if !ok {
		return nil, errors.Wrapf(models.ErrTypeMismatch, "field %s expects a file path", field.Code)
	}
	if _, err := os.Stat(filepath.Join(usecase.mediaRoot, path)); err != nil {
		return nil, errors.Wrapf(models.BadParameterError, "no uploaded file at %s", path)
	}
	out.scalars[field.Code] = path
	return stale, nil
}

func (usecase *RecordMutatorUsecase) create(ctx context.Context, tx repositories.Transaction, schemaCode string, entity models.Entity, operation models.WriteOperation) (models.RecordRef, error) {
	classified, err := usecase.classify(ctx, tx, entity, operation)
	if err != nil {
		return models.RecordRef{}, err
	}

	ref, err := usecase.recordRepository.InsertRecord(ctx, tx, entity.Code, entity.SoloName, classified.scalars)
	if err != nil {
		return models.RecordRef{}, err
	}

	if err := usecase.writeRelations(ctx, tx, schemaCode, entity, ref.Uid, classified.relations, false); err != nil {
		return models.RecordRef{}, err
	}
	return ref, nil
}

func (usecase *RecordMutatorUsecase) update(ctx context.Context, tx repositories.Transaction, schemaCode string, entity models.Entity, operation models.WriteOperation, staleFiles *[]string) (models.RecordRef, error) {
	classified, err := usecase.classify(ctx, tx, entity, operation)
	if err != nil {
		return models.RecordRef{}, err
	}

	ref := models.RecordRef{Type: entity.SoloName, Uid: operation.EntityId}
	if len(classified.scalars) > 0 {
		ref, err = usecase.recordRepository.UpdateRecord(ctx, tx, entity.Code, entity.SoloName, operation.EntityId, classified.scalars)
		if err != nil {
			return models.RecordRef{}, err
		}
	}

	if err := usecase.writeRelations(ctx, tx, schemaCode, entity, operation.EntityId, classified.relations, true); err != nil {
		return models.RecordRef{}, err
	}

	*staleFiles = append(*staleFiles, classified.staleMedia...)
	return ref, nil
}

func (usecase *RecordMutatorUsecase) delete(ctx context.Context, tx repositories.Transaction, entity models.Entity, operation models.WriteOperation, staleFiles *[]string) (models.RecordRef, error) {
	ref := models.RecordRef{Type: entity.SoloName, Uid: operation.EntityId}

	if !operation.Permanent {
		return ref, usecase.recordRepository.ArchiveRecord(ctx, tx, entity.Code, operation.EntityId)
	}

	var files []string
	for _, field := range entity.Fields {
		if field.Type != models.FieldTypeMedia {
			continue
		}
		value, err := usecase.recordRepository.SelectColumnValue(ctx, tx, entity.Code, field.Code, operation.EntityId)
		if err != nil {
			return models.RecordRef{}, err
		}
		if path, ok := value.(string); ok && path != "" {
			files = append(files, path)
		}
	}

	if err := usecase.recordRepository.DeleteRecord(ctx, tx, entity.Code, operation.EntityId); err != nil {
		return models.RecordRef{}, err
	}
	*staleFiles = append(*staleFiles, files...)
	return ref, nil
}

// writeRelations replaces each relation field's rows with the new target
// set. On update the prior rows are wiped first; an empty target set is
// therefore a plain unlink.
func (usecase *RecordMutatorUsecase) writeRelations(
	ctx context.Context,
	tx repositories.Transaction,
	schemaCode string,
	entity models.Entity,
	uid int64,
	relations []relationWrite,
	wipe bool,
) error {
	for _, write := range relations {
		if wipe {
			for _, relation := range write.field.Params.Targets {
				if err := usecase.recordRepository.DeleteRelationRows(ctx, tx,
					relation.RelationTable, entity.Code, write.field.Code, uid); err != nil {
					return err
				}
			}
		}

		for _, ref := range write.refs {
			targetCode, relation, err := usecase.targetByType(schemaCode, write.field, ref.Type)
			if err != nil {
				return err
			}
			target, err := usecase.registry.EntityByCode(schemaCode, targetCode)
			if err != nil {
				return err
			}

			// A single-valued mirror means the target record may hold at
			// most one link through it; purge every relation table the
			// mirror reaches before linking.
			if mirror, ok := target.Fields[relation.MirrorFieldCode]; ok && mirror.Type == models.FieldTypeEntity {
				for _, mirrorRelation := range mirror.Params.Targets {
					if err := usecase.recordRepository.DeleteRelationRows(ctx, tx,
						mirrorRelation.RelationTable, target.Code, relation.MirrorFieldCode, ref.Uid); err != nil {
						return err
					}
				}
			}

			if err := usecase.recordRepository.InsertRelationRow(ctx, tx, repositories.RelationRow{
				RelationTable:   relation.RelationTable,
				SourceTable:     entity.Code,
				TargetTable:     target.Code,
				FieldCode:       write.field.Code,
				SourceUid:       uid,
				TargetUid:       ref.Uid,
				MirrorFieldCode: relation.MirrorFieldCode,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// targetByType finds the relation target whose entity type matches the
// ref's discriminator.
func (usecase *RecordMutatorUsecase) targetByType(schemaCode string, field models.Field, refType string) (string, models.RelationTarget, error) {
	for targetCode, relation := range field.Params.Targets {
		target, err := usecase.registry.EntityByCode(schemaCode, targetCode)
		if err != nil {
			continue
		}
		if target.SoloName == refType || target.Code == refType {
			return targetCode, relation, nil
		}
	}
	return "", models.RelationTarget{}, errors.Wrapf(models.ErrTypeMismatch,
		"field %s cannot link records of type %s", field.Code, refType)
}

func removeFiles(ctx context.Context, root string, paths []string) {
	for _, path := range paths {
		if err := os.Remove(filepath.Join(root, path)); err != nil && !os.IsNotExist(err) {
			utils.LoggerFromContext(ctx).WarnContext(ctx, "could not remove stale media file",
				"path", path, "error", err.Error())
		}
	}
}
