package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrStatusChanged means a conditional status update matched no document:
	// the booking left the expected state after it was read.
	ErrStatusChanged = errors.New("booking status changed concurrently")

	ErrApprovalNotFound = errors.New("booking approval not found")
)
