package errors

import "errors"

var (
	ErrNotFound = errors.New("promotion not found")

	ErrInvalidID = errors.New("invalid promotion ID format")

	ErrCodeTaken = errors.New("promotion code already exists")

	ErrExhausted = errors.New("promotion usage cap reached")
)
