package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	ViolationUnique     = "unique"
	ViolationCheck      = "check"
	ViolationForeignKey = "foreign_key"
)

// Violation describes a constraint the database refused to let a write break.
// Constraint holds the constraint name when the driver reports one, otherwise the
// driver's description of the offending columns.
type Violation struct {
	Kind       string
	Constraint string
}

func IsDuplicateKeyErr(err error) bool {
	v, ok := ClassifyViolation(err)
	return ok && v.Kind == ViolationUnique
}

// ClassifyViolation maps driver errors from postgres, mysql and sqlite onto a Violation.
func ClassifyViolation(err error) (Violation, bool) {
	if err == nil {
		return Violation{}, false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return Violation{Kind: ViolationUnique, Constraint: pgErr.ConstraintName}, true
		case "23514":
			return Violation{Kind: ViolationCheck, Constraint: pgErr.ConstraintName}, true
		case "23503":
			return Violation{Kind: ViolationForeignKey, Constraint: pgErr.ConstraintName}, true
		}
		return Violation{}, false
	}

	msg := err.Error()
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return Violation{Kind: ViolationUnique, Constraint: msg}, true
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return Violation{Kind: ViolationUnique, Constraint: after(msg, "UNIQUE constraint failed:")}, true
	case strings.Contains(msg, "CHECK constraint failed"):
		return Violation{Kind: ViolationCheck, Constraint: after(msg, "CHECK constraint failed:")}, true
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return Violation{Kind: ViolationForeignKey, Constraint: msg}, true
	case strings.Contains(msg, "Error 1062"):
		// mysql: Duplicate entry '...' for key 'table.constraint'
		return Violation{Kind: ViolationUnique, Constraint: quoted(msg, "for key")}, true
	case strings.Contains(msg, "Error 3819"):
		// mysql: Check constraint 'name' is violated.
		return Violation{Kind: ViolationCheck, Constraint: quoted(msg, "Check constraint")}, true
	}
	return Violation{}, false
}

// IsLockTimeout reports lock_not_available and serialization failures from postgres.
func IsLockTimeout(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "55P03" || pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

func after(msg, marker string) string {
	idx := strings.Index(msg, marker)
	if idx < 0 {
		return strings.TrimSpace(msg)
	}
	rest := strings.TrimSpace(msg[idx+len(marker):])
	if cut := strings.Index(rest, " ("); cut > 0 {
		rest = rest[:cut]
	}
	return strings.Trim(rest, "'\"")
}

// quoted returns the first single-quoted name following marker.
func quoted(msg, marker string) string {
	rest := after(msg, marker)
	rest = strings.TrimLeft(rest, "'")
	if end := strings.Index(rest, "'"); end >= 0 {
		rest = rest[:end]
	}
	return rest
}
