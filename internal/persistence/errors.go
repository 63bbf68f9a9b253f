package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a write collides with a unique index.
	ErrDuplicate = errors.New("persistence: duplicate")
	// ErrConflict is returned when a version-guarded write lost the race
	// against a concurrent mutation.
	ErrConflict = errors.New("persistence: version conflict")
	// ErrConstraintViolation is returned when a stored check constraint fails.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKeyViolation is returned when a write references a missing record.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
)
