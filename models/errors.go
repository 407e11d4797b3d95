package models

import "github.com/cockroachdb/errors"

// Base errors, one per failure class surfaced to callers.
var (
	// BadParameterError covers malformed or unsupported request input.
	BadParameterError = errors.New("bad parameter")

	// NotFoundError covers unknown schema, entity or field codes and
	// missing records.
	NotFoundError = errors.New("not found")

	// ConflictError covers duplicate entity or field codes on create.
	ConflictError = errors.New("duplicate value")

	// UnimplementedError covers administrative operations that are
	// intentionally not supported, such as altering a field's type.
	UnimplementedError = errors.New("not implemented")
)

var (
	// ErrInvalidOption: a value outside a LIST field's allowed set, or an
	// unrecognized filter operator.
	ErrInvalidOption = errors.Wrap(BadParameterError, "invalid option")

	// ErrTypeMismatch: a relation field given a non-object (ENTITY) or
	// non-array (MULTIENTITY) payload.
	ErrTypeMismatch = errors.Wrap(BadParameterError, "relation payload type mismatch")

	// ErrTransactionAborted marks any failure inside a mutation batch.
	// The whole transaction is rolled back; no partial results exist.
	ErrTransactionAborted = errors.New("transaction aborted")

	// ErrSchemaDrift marks an administrative operation that failed after
	// its physical DDL already ran. The catalog tables and the physical
	// schema may now diverge; this is surfaced, never hidden.
	ErrSchemaDrift = errors.New("catalog and physical schema may have diverged")
)

func NewNotFoundError(what string) error {
	return errors.Wrap(NotFoundError, what)
}

// MarkDrift tags an error as occurring after physical DDL already ran.
func MarkDrift(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrSchemaDrift)
}
