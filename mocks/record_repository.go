package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/latticehq/lattice-backend/models"
	"github.com/latticehq/lattice-backend/repositories"
)

type RecordRepository struct {
	mock.Mock
}

func (m *RecordRepository) InsertRecord(ctx context.Context, exec repositories.TransactionOrPool, table, entityType string, values map[string]any) (models.RecordRef, error) {
	args := m.Called(ctx, exec, table, entityType, values)
	return args.Get(0).(models.RecordRef), args.Error(1)
}

func (m *RecordRepository) UpdateRecord(ctx context.Context, exec repositories.TransactionOrPool, table, entityType string, uid int64, values map[string]any) (models.RecordRef, error) {
	args := m.Called(ctx, exec, table, entityType, uid, values)
	return args.Get(0).(models.RecordRef), args.Error(1)
}

func (m *RecordRepository) ArchiveRecord(ctx context.Context, exec repositories.TransactionOrPool, table string, uid int64) error {
	args := m.Called(ctx, exec, table, uid)
	return args.Error(0)
}

func (m *RecordRepository) DeleteRecord(ctx context.Context, exec repositories.TransactionOrPool, table string, uid int64) error {
	args := m.Called(ctx, exec, table, uid)
	return args.Error(0)
}

func (m *RecordRepository) SelectColumnValue(ctx context.Context, exec repositories.TransactionOrPool, table, column string, uid int64) (any, error) {
	args := m.Called(ctx, exec, table, column, uid)
	return args.Get(0), args.Error(1)
}

func (m *RecordRepository) InsertRelationRow(ctx context.Context, exec repositories.TransactionOrPool, row repositories.RelationRow) error {
	args := m.Called(ctx, exec, row)
	return args.Error(0)
}

func (m *RecordRepository) DeleteRelationRows(ctx context.Context, exec repositories.TransactionOrPool, relationTable, sourceTable, fieldCode string, sourceUid int64) error {
	args := m.Called(ctx, exec, relationTable, sourceTable, fieldCode, sourceUid)
	return args.Error(0)
}

func (m *RecordRepository) DeleteRelationRowsForField(ctx context.Context, exec repositories.TransactionOrPool, relationTable, sourceTable, fieldCode string) error {
	args := m.Called(ctx, exec, relationTable, sourceTable, fieldCode)
	return args.Error(0)
}

func (m *RecordRepository) QueryRecords(ctx context.Context, exec repositories.TransactionOrPool, sql string, queryArgs []any) ([]map[string]any, error) {
	args := m.Called(ctx, exec, sql, queryArgs)
	return args.Get(0).([]map[string]any), args.Error(1)
}

func (m *RecordRepository) QueryCount(ctx context.Context, exec repositories.TransactionOrPool, sql string, queryArgs []any) (int64, error) {
	args := m.Called(ctx, exec, sql, queryArgs)
	return args.Get(0).(int64), args.Error(1)
}
