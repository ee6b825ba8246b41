package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClassifyViolation(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		ok         bool
		kind       string
		constraint string
	}{
		{
			name:       "postgres unique",
			err:        fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "ux_participants_primary_per_role"}),
			ok:         true,
			kind:       ViolationUnique,
			constraint: "ux_participants_primary_per_role",
		},
		{
			name:       "postgres check",
			err:        &pgconn.PgError{Code: "23514", ConstraintName: "ck_participants_commission_rate"},
			ok:         true,
			kind:       ViolationCheck,
			constraint: "ck_participants_commission_rate",
		},
		{
			name: "postgres other code",
			err:  &pgconn.PgError{Code: "40001"},
			ok:   false,
		},
		{
			name:       "sqlite unique",
			err:        errors.New("constraint failed: UNIQUE constraint failed: opportunity_participants.opportunity_id, opportunity_participants.role (2067)"),
			ok:         true,
			kind:       ViolationUnique,
			constraint: "opportunity_participants.opportunity_id, opportunity_participants.role",
		},
		{
			name:       "sqlite check",
			err:        errors.New("constraint failed: CHECK constraint failed: ck_participants_commission_rate (275)"),
			ok:         true,
			kind:       ViolationCheck,
			constraint: "ck_participants_commission_rate",
		},
		{
			name:       "mysql duplicate entry",
			err:        errors.New("Error 1062 (23000): Duplicate entry '10-principal' for key 'opportunity_participants.ux_participants_primary_per_role'"),
			ok:         true,
			kind:       ViolationUnique,
			constraint: "opportunity_participants.ux_participants_primary_per_role",
		},
		{
			name:       "mysql check",
			err:        errors.New("Error 3819 (HY000): Check constraint 'ck_participants_commission_rate' is violated."),
			ok:         true,
			kind:       ViolationCheck,
			constraint: "ck_participants_commission_rate",
		},
		{
			name: "plain error",
			err:  errors.New("connection refused"),
			ok:   false,
		},
		{
			name: "nil",
			err:  nil,
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := ClassifyViolation(tt.err)
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.kind, v.Kind)
			assert.Equal(t, tt.constraint, v.Constraint)
		})
	}
}

func TestIsLockTimeout(t *testing.T) {
	assert.True(t, IsLockTimeout(&pgconn.PgError{Code: "55P03"}))
	assert.True(t, IsLockTimeout(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "40001"})))
	assert.False(t, IsLockTimeout(errors.New("boom")))
}
