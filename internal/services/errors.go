// internal/services/errors.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("duplicate record")
	ErrInvalidReference  = errors.New("invalid reference")
	ErrValidation        = errors.New("validation failed")
	ErrTimeout           = errors.New("request timed out, please retry")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrForbidden         = errors.New("forbidden")
)

// WorkflowError pairs a sentinel classification with a user-facing message.
// errors.Is matches both the sentinel and the underlying cause.
type WorkflowError struct {
	Kind    error
	Message string
	Err     error
}

func (e *WorkflowError) Error() string {
	return e.Message
}

func (e *WorkflowError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, message string) error {
	return &WorkflowError{Kind: kind, Message: message}
}

func notFound(resource string) error {
	return newError(ErrNotFound, resource+" not found")
}

func validationError(format string, args ...interface{}) error {
	return newError(ErrValidation, fmt.Sprintf(format, args...))
}

// constraintMessages holds the user-facing text for each constraint class.
type constraintMessages struct {
	Duplicate string
	Reference string
	Check     string
}

var defaultConstraintMessages = constraintMessages{
	Duplicate: "record already exists",
	Reference: "invalid reference",
	Check:     "validation failed",
}

// classifyDBError maps store errors to the service sentinels.
func classifyDBError(err error, msgs constraintMessages) error {
	if err == nil {
		return nil
	}

	var wfErr *WorkflowError
	if errors.As(err, &wfErr) {
		return err
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &WorkflowError{Kind: ErrTimeout, Message: ErrTimeout.Error(), Err: err}
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &WorkflowError{Kind: ErrNotFound, Message: "record not found", Err: err}
	}

	switch constraintKind(err) {
	case ErrDuplicate:
		return &WorkflowError{Kind: ErrDuplicate, Message: msgs.Duplicate, Err: err}
	case ErrInvalidReference:
		return &WorkflowError{Kind: ErrInvalidReference, Message: msgs.Reference, Err: err}
	case ErrValidation:
		return &WorkflowError{Kind: ErrValidation, Message: msgs.Check, Err: err}
	}

	return fmt.Errorf("database error: %w", err)
}

func constraintKind(err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrInvalidReference
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return ErrValidation
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return sqlStateKind(pgErr.Code)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return sqlStateKind(string(pqErr.Code))
	}

	// sqlite reports check violations only as text
	if strings.Contains(err.Error(), "CHECK constraint failed") {
		return ErrValidation
	}

	return nil
}

func sqlStateKind(code string) error {
	switch code {
	case "23505":
		return ErrDuplicate
	case "23503":
		return ErrInvalidReference
	case "23514":
		return ErrValidation
	}
	return nil
}

// lookupError converts a single-row lookup failure, keeping not-found distinct.
func lookupError(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(resource)
	}
	return classifyDBError(err, defaultConstraintMessages)
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// boundedContext caps a write workflow at the configured timeout.
func boundedContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// classifyWriteError is classifyDBError that also reports an expired bounded
// context as a timeout, whatever error the driver surfaced.
func classifyWriteError(ctx context.Context, err error, msgs constraintMessages) error {
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &WorkflowError{Kind: ErrTimeout, Message: ErrTimeout.Error(), Err: err}
	}
	return classifyDBError(err, msgs)
}
