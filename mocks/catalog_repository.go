package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/latticehq/lattice-backend/models"
	"github.com/latticehq/lattice-backend/repositories"
)

type CatalogRepository struct {
	mock.Mock
}

func (m *CatalogRepository) ListSchemas(ctx context.Context, exec repositories.TransactionOrPool) ([]models.Schema, error) {
	args := m.Called(ctx, exec)
	return args.Get(0).([]models.Schema), args.Error(1)
}

func (m *CatalogRepository) ListEntities(ctx context.Context, exec repositories.TransactionOrPool, schemaId int64) ([]models.Entity, error) {
	args := m.Called(ctx, exec, schemaId)
	return args.Get(0).([]models.Entity), args.Error(1)
}

func (m *CatalogRepository) ListFields(ctx context.Context, exec repositories.TransactionOrPool, entityId int64) ([]models.Field, error) {
	args := m.Called(ctx, exec, entityId)
	return args.Get(0).([]models.Field), args.Error(1)
}

func (m *CatalogRepository) CreateEntity(ctx context.Context, exec repositories.TransactionOrPool, schemaId int64, input models.CreateEntityInput) (int64, error) {
	args := m.Called(ctx, exec, schemaId, input)
	return args.Get(0).(int64), args.Error(1)
}

func (m *CatalogRepository) CreateField(ctx context.Context, exec repositories.TransactionOrPool, entityId int64, input models.CreateFieldInput) (int64, error) {
	args := m.Called(ctx, exec, entityId, input)
	return args.Get(0).(int64), args.Error(1)
}

func (m *CatalogRepository) UpdateFieldParams(ctx context.Context, exec repositories.TransactionOrPool, fieldId int64, params models.FieldParams) error {
	args := m.Called(ctx, exec, fieldId, params)
	return args.Error(0)
}

func (m *CatalogRepository) ArchiveField(ctx context.Context, exec repositories.TransactionOrPool, fieldId int64) error {
	args := m.Called(ctx, exec, fieldId)
	return args.Error(0)
}

func (m *CatalogRepository) ArchiveEntity(ctx context.Context, exec repositories.TransactionOrPool, entityId int64) error {
	args := m.Called(ctx, exec, entityId)
	return args.Error(0)
}

func (m *CatalogRepository) SetSchemaArchived(ctx context.Context, exec repositories.TransactionOrPool, schemaId int64, archived bool) error {
	args := m.Called(ctx, exec, schemaId, archived)
	return args.Error(0)
}

func (m *CatalogRepository) DeleteField(ctx context.Context, exec repositories.TransactionOrPool, fieldId int64) error {
	args := m.Called(ctx, exec, fieldId)
	return args.Error(0)
}

func (m *CatalogRepository) DeleteEntity(ctx context.Context, exec repositories.TransactionOrPool, entityId int64) error {
	args := m.Called(ctx, exec, entityId)
	return args.Error(0)
}
