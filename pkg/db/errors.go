package db

import (
	"strings"

	pkgerrors "github.com/angelmondragon/grovetrace/pkg/errors"
)

// IsUniqueViolation reports whether err is a unique constraint violation.
// Postgres errors are matched on SQLSTATE and constraint name; SQLite only
// exposes its message, so constraintName is matched against the text there.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	dump := pkgerrors.Dump(err)
	if dump.Postgres.Code != "" {
		if dump.Postgres.Code != pkgerrors.PGUniqueViolation {
			return false
		}
		return constraintName == "" || dump.Postgres.Constraint == constraintName
	}

	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") && !strings.Contains(msg, "duplicate key value") {
		return false
	}
	return constraintName == "" || strings.Contains(msg, constraintName)
}
