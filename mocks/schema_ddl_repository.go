package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/latticehq/lattice-backend/models"
	"github.com/latticehq/lattice-backend/repositories"
)

type SchemaDDLRepository struct {
	mock.Mock
}

func (m *SchemaDDLRepository) CreateEntityTable(ctx context.Context, exec repositories.TransactionOrPool, table string) error {
	args := m.Called(ctx, exec, table)
	return args.Error(0)
}

func (m *SchemaDDLRepository) DropEntityTable(ctx context.Context, exec repositories.TransactionOrPool, table string) error {
	args := m.Called(ctx, exec, table)
	return args.Error(0)
}

func (m *SchemaDDLRepository) AddColumn(ctx context.Context, exec repositories.TransactionOrPool, table, column string, fieldType models.FieldType) error {
	args := m.Called(ctx, exec, table, column, fieldType)
	return args.Error(0)
}

func (m *SchemaDDLRepository) DropColumn(ctx context.Context, exec repositories.TransactionOrPool, table, column string) error {
	args := m.Called(ctx, exec, table, column)
	return args.Error(0)
}

func (m *SchemaDDLRepository) CreateRelationTable(ctx context.Context, exec repositories.TransactionOrPool, relation, sourceTable, targetTable string) error {
	args := m.Called(ctx, exec, relation, sourceTable, targetTable)
	return args.Error(0)
}
