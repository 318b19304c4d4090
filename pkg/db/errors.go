package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	pkgerrors "github.com/medok/medok-backend/pkg/errors"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique-key conflict, optionally
// on the named constraint. Postgres errors are matched by SQLSTATE; sqlite
// only exposes the message text.
func IsUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return constraint == ""
	}
	if pg := pkgerrors.Inspect(err).Postgres; pg != nil {
		return pg.Code == pgUniqueViolation && (constraint == "" || pg.Constraint == constraint)
	}

	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") && !strings.Contains(msg, "duplicate key value") {
		return false
	}
	return constraint == "" || strings.Contains(msg, constraint)
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
