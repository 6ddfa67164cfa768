package storage

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"gitlab.com/timkado/api/daisi-lead-sync/internal/apperrors"
)

// Note on SQL Query Matching in Tests:
// ----------------------------------
// GORM generates SQL queries with additional clauses like ORDER BY and LIMIT
// that can make exact SQL string matching brittle. Queries here are matched
// with the equal matcher against the exact statement GORM produces, and
// sqlmock.AnyArg()/AnyTime{} cover parameters that vary between runs.

const testTenantID = "tenant-test-123"

// Placeholder for AnyTime argument matcher
type AnyTime struct{}

// Match satisfies sqlmock.Argument interface
func (a AnyTime) Match(v driver.Value) bool {
	_, ok := v.(time.Time)
	return ok
}

// AnyJSON matches jsonb parameters regardless of representation.
type AnyJSON struct{}

// Match satisfies sqlmock.Argument interface
func (a AnyJSON) Match(v driver.Value) bool {
	switch v.(type) {
	case []byte, string, nil:
		return true
	default:
		return false
	}
}

// newMockDB creates a mock DB and GORM instance for testing.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
		// Prevent GORM from trying to ping the database
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		// Skip default transaction to avoid unexpected BEGIN/COMMIT
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	teardown := func() {
		assert.NoError(t, mock.ExpectationsWereMet())
	}

	return gormDB, mock, teardown
}

func TestIsTransientError(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "Nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "Context deadline exceeded",
			err:      context.DeadlineExceeded,
			expected: true,
		},
		{
			name:     "Wrapped context deadline exceeded",
			err:      fmt.Errorf("operation failed: %w", context.DeadlineExceeded),
			expected: true,
		},
		{
			name:     "GORM record not found",
			err:      gorm.ErrRecordNotFound,
			expected: false,
		},
		{
			name:     "PG connection exception (08000)",
			err:      &pgconn.PgError{Code: "08000"},
			expected: true,
		},
		{
			name:     "PG insufficient resources (53100)",
			err:      &pgconn.PgError{Code: "53100"},
			expected: true,
		},
		{
			name:     "PG deadlock detected (40P01)",
			err:      &pgconn.PgError{Code: "40P01"},
			expected: true,
		},
		{
			name:     "PG serialization failure (40001)",
			err:      &pgconn.PgError{Code: "40001"},
			expected: true,
		},
		{
			name:     "PG syntax error (42601)",
			err:      &pgconn.PgError{Code: "42601"},
			expected: false,
		},
		{
			name:     "Network connection refused",
			err:      errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"),
			expected: true,
		},
		{
			name:     "Network i/o timeout",
			err:      errors.New("read tcp 10.0.0.1:1234->10.0.0.2:5432: i/o timeout"),
			expected: true,
		},
		{
			name:     "Database starting up",
			err:      errors.New("pq: the database system is starting up"),
			expected: true,
		},
		{
			name:     "Generic non-transient error",
			err:      errors.New("some other database error"),
			expected: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actual := isTransientError(tc.err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestCheckConstraintViolation(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected error
	}{
		{
			name:     "Nil error",
			err:      nil,
			expected: nil,
		},
		{
			name:     "Record not found",
			err:      gorm.ErrRecordNotFound,
			expected: apperrors.ErrNotFound,
		},
		{
			name:     "Unique violation",
			err:      &pgconn.PgError{Code: "23505", ConstraintName: "idx_leads_company_phone"},
			expected: apperrors.ErrDuplicate,
		},
		{
			name:     "Foreign key violation",
			err:      &pgconn.PgError{Code: "23503", ConstraintName: "fk_leads_campaign"},
			expected: apperrors.ErrBadRequest,
		},
		{
			name:     "Not null violation",
			err:      &pgconn.PgError{Code: "23502", ColumnName: "company_id"},
			expected: apperrors.ErrBadRequest,
		},
		{
			name:     "Value too long",
			err:      &pgconn.PgError{Code: "22001", ColumnName: "config_name"},
			expected: apperrors.ErrBadRequest,
		},
		{
			name:     "Deadlock",
			err:      &pgconn.PgError{Code: "40P01"},
			expected: apperrors.ErrDatabase,
		},
		{
			name:     "Connection exception",
			err:      &pgconn.PgError{Code: "08006"},
			expected: apperrors.ErrDatabase,
		},
		{
			name:     "Generic error",
			err:      errors.New("boom"),
			expected: apperrors.ErrDatabase,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actual := checkConstraintViolation(tc.err)
			if tc.expected == nil {
				assert.NoError(t, actual)
				return
			}
			assert.ErrorIs(t, actual, tc.expected)
		})
	}
}
