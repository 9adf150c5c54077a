package model

import "errors"

var (
	// ErrInvalidInput reports a missing value or an inadmissible instant.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidFormat reports a raw tail key that is not 19 decimal digits
	// within the tick range.
	ErrInvalidFormat = errors.New("invalid format")
	// ErrNotFound is returned by repositories when a row does not exist.
	ErrNotFound = errors.New("not found")
)
