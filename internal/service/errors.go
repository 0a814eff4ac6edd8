package service

import (
	"database/sql"
	"errors"

	appErrors "github.com/noah-isme/cohort-ledger-api/pkg/errors"
)

// internal keeps typed errors as they are and wraps everything else as INTERNAL_ERROR.
func internal(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// lookupErr maps a missing row to NOT_FOUND.
func lookupErr(err error, notFound, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return internal(err, message)
}
