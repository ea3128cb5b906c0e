// Package service implements the application use cases on top of the
// repository layer.
package service

import (
	"database/sql"
	"errors"

	"github.com/classmate-app/homework-api/internal/models"
	appErrors "github.com/classmate-app/homework-api/pkg/errors"
)

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// wrapStore maps a repository read failure onto the API error space. A
// row that decoded but failed its boundary check surfaces as a
// malformed-record error instead of a generic internal one.
func wrapStore(err error, message string) error {
	if errors.Is(err, models.ErrMissingFields) {
		return appErrors.Wrap(err, appErrors.ErrMalformedRecord.Code, appErrors.ErrMalformedRecord.Status, message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
