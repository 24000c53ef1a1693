package repository

import (
	"errors"

	"github.com/lib/pq"

	appErrors "github.com/edusuite/school-api/pkg/errors"
)

const uniqueViolationCode = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode
}

// translateUnique maps Postgres unique violations onto the conflict error so
// services and handlers never inspect driver internals.
func translateUnique(err error, message string) error {
	if isUniqueViolation(err) {
		return appErrors.Clone(appErrors.ErrConflict, message)
	}
	return err
}
