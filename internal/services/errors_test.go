package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

var testMessages = constraintMessages{
	Duplicate: "partner already exists",
	Reference: "invalid partner information",
	Check:     "validation failed",
}

func TestClassifyDBError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		kind    error
		message string
	}{
		{"gorm duplicate", gorm.ErrDuplicatedKey, ErrDuplicate, "partner already exists"},
		{"gorm foreign key", gorm.ErrForeignKeyViolated, ErrInvalidReference, "invalid partner information"},
		{"gorm check", gorm.ErrCheckConstraintViolated, ErrValidation, "validation failed"},
		{"pgconn unique", &pgconn.PgError{Code: "23505"}, ErrDuplicate, "partner already exists"},
		{"pgconn foreign key", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23503"}), ErrInvalidReference, "invalid partner information"},
		{"pq check", &pq.Error{Code: "23514"}, ErrValidation, "validation failed"},
		{"sqlite check text", errors.New("CHECK constraint failed: chk_partners_status"), ErrValidation, "validation failed"},
		{"deadline", context.DeadlineExceeded, ErrTimeout, "request timed out, please retry"},
		{"not found", gorm.ErrRecordNotFound, ErrNotFound, "record not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyDBError(tt.err, testMessages)
			assert.ErrorIs(t, got, tt.kind)
			assert.Equal(t, tt.message, got.Error())
		})
	}
}

func TestClassifyDBError_UnknownWrapsRawMessage(t *testing.T) {
	raw := errors.New("connection reset by peer")

	got := classifyDBError(raw, testMessages)

	assert.ErrorIs(t, got, raw)
	assert.Equal(t, "database error: connection reset by peer", got.Error())
	assert.False(t, errors.Is(got, ErrDuplicate))
}

func TestClassifyDBError_KeepsWorkflowErrors(t *testing.T) {
	original := notFound("partner")
	assert.Same(t, original, classifyDBError(original, testMessages))
	assert.Nil(t, classifyDBError(nil, testMessages))
}

func TestLookupError(t *testing.T) {
	err := lookupError(gorm.ErrRecordNotFound, "application")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "application not found", err.Error())
}
