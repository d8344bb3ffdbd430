package leave

import "errors"

var (
	ErrValidation          = errors.New("validation failed")
	ErrInsufficientBalance = errors.New("insufficient leave balance")
	ErrInvalidState        = errors.New("invalid state transition")
	ErrNotFound            = errors.New("not found")
)
