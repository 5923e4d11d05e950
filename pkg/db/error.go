package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// IsDuplicateKeyErr reports whether err is a unique-constraint violation on any supported dialect.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := err.Error()

	// PostgreSQL (23505)
	if strings.Contains(msg, "duplicate key value violates unique constraint") || strings.Contains(msg, "SQLSTATE 23505") {
		return true
	}

	// MySQL (1062)
	if strings.Contains(msg, "Error 1062") {
		return true
	}

	// SQLite (2067)
	if strings.Contains(msg, "UNIQUE constraint failed") {
		return true
	}

	return false
}

// IsForeignKeyErr reports whether err is a foreign-key violation.
func IsForeignKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "violates foreign key constraint") ||
		strings.Contains(msg, "Error 1451") ||
		strings.Contains(msg, "FOREIGN KEY constraint failed")
}
