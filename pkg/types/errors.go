package types

import "errors"

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrSchemeNotFound      = errors.New("scheme not found")
	ErrApplicationNotFound = errors.New("application not found")

	// ErrMalformedRow is returned when a row read from the record store
	// does not satisfy the invariants of its record type.
	ErrMalformedRow = errors.New("malformed row")

	ErrUnknownStatus = errors.New("unknown application status")

	// ErrStaleStatus is returned when a conditional status update finds the
	// row no longer in the expected status.
	ErrStaleStatus = errors.New("application status changed concurrently")
)
