package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/enrollment-backend/pkg/errors"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether the provided error references a unique
// violation on Postgres or SQLite. When constraintName is provided, the helper
// looks for the constraint text in the error message. SQLite reports the
// offending columns rather than the index name, so callers may pass either.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if pg, ok := pkgerrors.PostgresDetails(err); ok {
		if pg.Code != pgUniqueViolation {
			return false
		}
		return constraintName == "" || pg.Constraint == constraintName ||
			strings.Contains(pg.Detail, constraintName) || strings.Contains(pg.Message, constraintName)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) && constraintName == "" {
		return true
	}
	msg := err.Error()
	isUnique := strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "SQLSTATE 23505")
	if constraintName != "" {
		return isUnique && strings.Contains(msg, constraintName)
	}
	return isUnique
}
