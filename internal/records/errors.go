package records

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Kind classifies every error surfaced by the store.
type Kind string

const (
	KindSchemaMismatch      Kind = "schema_mismatch"
	KindNotFound            Kind = "not_found"
	KindUniqueConstraint    Kind = "unique_constraint"
	KindForeignKeyViolation Kind = "foreign_key_violation"
	KindCanceled            Kind = "canceled"
	KindStorageFailure      Kind = "storage_failure"
)

// Error carries the kind, the failing operation, and the statement that was
// executing when the engine reported the failure.
type Error struct {
	Kind      Kind
	Operation string
	Statement string
	Err       error
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrSchemaMismatch      = &Error{Kind: KindSchemaMismatch}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrUniqueConstraint    = &Error{Kind: KindUniqueConstraint}
	ErrForeignKeyViolation = &Error{Kind: KindForeignKeyViolation}
	ErrCanceled            = &Error{Kind: KindCanceled}
	ErrStorageFailure      = &Error{Kind: KindStorageFailure}
)

func (e *Error) Error() string {
	code := e.Code()
	if e.Err == nil {
		return code
	}
	return fmt.Sprintf("%s: %v", code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Code returns the operation-qualified kind, e.g. "customers.insert.unique_constraint".
func (e *Error) Code() string {
	if e.Operation == "" {
		return string(e.Kind)
	}
	return e.Operation + "." + string(e.Kind)
}

// Is matches sentinels by kind.
func (e *Error) Is(target error) bool {
	sentinel, ok := target.(*Error)
	if !ok {
		return false
	}
	return sentinel.Operation == "" && sentinel.Kind == e.Kind
}

// KindOf extracts the kind of err, or StorageFailure for foreign errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var storeErr *Error
	if errors.As(err, &storeErr) {
		return storeErr.Kind
	}
	return classify(err)
}

// NewError builds an *Error for callers outside this package.
func NewError(kind Kind, operation string, cause error) error {
	return &Error{Kind: kind, Operation: operation, Err: cause}
}

func newError(operation string, statement string, cause error) *Error {
	return &Error{
		Kind:      classify(cause),
		Operation: operation,
		Statement: statement,
		Err:       cause,
	}
}

func classify(err error) Kind {
	var storeErr *Error
	switch {
	case errors.As(err, &storeErr):
		return storeErr.Kind
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return KindUniqueConstraint
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return KindForeignKeyViolation
	case errors.Is(err, gorm.ErrRecordNotFound):
		return KindNotFound
	}

	message := err.Error()
	switch {
	case strings.Contains(message, "UNIQUE constraint failed"),
		strings.Contains(message, "PRIMARY KEY constraint failed"):
		return KindUniqueConstraint
	case strings.Contains(message, "FOREIGN KEY constraint failed"):
		return KindForeignKeyViolation
	case strings.Contains(message, "interrupted"):
		return KindCanceled
	}
	return KindStorageFailure
}
