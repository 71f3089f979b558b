package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	ErrAssetUnavailable = errors.New("asset is not bookable")

	ErrOverlap = errors.New("asset already booked for the requested window")

	ErrInvalidTimeRange = errors.New("end time must be after start time")

	ErrLockHeld = errors.New("asset lock is held by another request")

	ErrStaleStatus = errors.New("booking status changed concurrently")
)
