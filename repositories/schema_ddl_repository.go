package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"

	"github.com/latticehq/lattice-backend/models"
)

// SchemaDDLRepository executes the physical DDL counterpart of catalog
// mutations. Identifiers are sanitized here; callers pass raw codes.
type SchemaDDLRepository interface {
	CreateEntityTable(ctx context.Context, exec TransactionOrPool, table string) error
	DropEntityTable(ctx context.Context, exec TransactionOrPool, table string) error
	AddColumn(ctx context.Context, exec TransactionOrPool, table, column string, fieldType models.FieldType) error
	DropColumn(ctx context.Context, exec TransactionOrPool, table, column string) error
	CreateRelationTable(ctx context.Context, exec TransactionOrPool, relation, sourceTable, targetTable string) error
}

type SchemaDDLRepositoryPostgresql struct{}

func (repo SchemaDDLRepositoryPostgresql) CreateEntityTable(ctx context.Context, exec TransactionOrPool, table string) error {
	sql := fmt.Sprintf(`CREATE TABLE %s (
	uid INT PRIMARY KEY GENERATED ALWAYS AS IDENTITY,
	code TEXT NOT NULL,
	_ss_archived BOOLEAN NOT NULL DEFAULT false
)`, sanitizeIdentifier(table))

	_, err := exec.Exec(ctx, sql)
	return errors.Wrapf(err, "error creating table %s", table)
}

func (repo SchemaDDLRepositoryPostgresql) DropEntityTable(ctx context.Context, exec TransactionOrPool, table string) error {
	sql := fmt.Sprintf("DROP TABLE %s CASCADE", sanitizeIdentifier(table))

	_, err := exec.Exec(ctx, sql)
	return errors.Wrapf(err, "error dropping table %s", table)
}

func (repo SchemaDDLRepositoryPostgresql) AddColumn(ctx context.Context, exec TransactionOrPool, table, column string, fieldType models.FieldType) error {
	columnType, err := toPgColumnType(fieldType)
	if err != nil {
		return err
	}

	builder := strings.Builder{}
	fmt.Fprintf(&builder, "ALTER TABLE %s ADD COLUMN %s %s",
		sanitizeIdentifier(table), sanitizeIdentifier(column), columnType)
	// SQL booleans are ternary; keep them two-valued.
	if fieldType == models.FieldTypeBool {
		builder.WriteString(" NOT NULL DEFAULT false")
	}

	_, err = exec.Exec(ctx, builder.String())
	return errors.Wrapf(err, "error adding column %s to table %s", column, table)
}

func (repo SchemaDDLRepositoryPostgresql) DropColumn(ctx context.Context, exec TransactionOrPool, table, column string) error {
	sql := fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s",
		sanitizeIdentifier(table), sanitizeIdentifier(column))

	_, err := exec.Exec(ctx, sql)
	return errors.Wrapf(err, "error dropping column %s from table %s", column, table)
}

// CreateRelationTable creates the shared five-column relation table for
// a mirrored field pair. One physical table serves every logical field
// pair between the two entities, discriminated by the *_col values.
func (repo SchemaDDLRepositoryPostgresql) CreateRelationTable(ctx context.Context, exec TransactionOrPool, relation, sourceTable, targetTable string) error {
	sql := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s TEXT NOT NULL,
	%s INT NOT NULL REFERENCES %s (uid) ON DELETE CASCADE,
	uid INT GENERATED ALWAYS AS IDENTITY,
	%s INT NOT NULL REFERENCES %s (uid) ON DELETE CASCADE,
	%s TEXT NOT NULL
)`,
		sanitizeIdentifier(relation),
		sanitizeIdentifier(sourceTable+"_col"),
		sanitizeIdentifier("fk_"+sourceTable),
		sanitizeIdentifier(sourceTable),
		sanitizeIdentifier("fk_"+targetTable),
		sanitizeIdentifier(targetTable),
		sanitizeIdentifier(targetTable+"_col"),
	)

	_, err := exec.Exec(ctx, sql)
	return errors.Wrapf(err, "error creating relation table %s", relation)
}

func toPgColumnType(fieldType models.FieldType) (string, error) {
	switch fieldType {
	case models.FieldTypeText, models.FieldTypePassword, models.FieldTypeMedia, models.FieldTypeList:
		return "TEXT", nil
	case models.FieldTypeInt:
		return "BIGINT", nil
	case models.FieldTypeFloat:
		return "DOUBLE PRECISION", nil
	case models.FieldTypeBool:
		return "BOOLEAN", nil
	case models.FieldTypeJSON:
		return "JSONB", nil
	case models.FieldTypeDate:
		return "DATE", nil
	case models.FieldTypeEntity, models.FieldTypeMultiEntity:
		return "", errors.Wrapf(models.BadParameterError,
			"relation type %s has no physical column", fieldType)
	default:
		return "", errors.Wrapf(models.BadParameterError, "unknown field type %d", fieldType)
	}
}

func sanitizeIdentifier(name string) string {
	return pgx.Identifier{name}.Sanitize()
}
