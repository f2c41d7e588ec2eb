package apperrors

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNoActiveEntry    = errors.New("no active time entry")
	ErrNoSnapshot       = errors.New("no session snapshot")
	ErrPrecondition     = errors.New("transition not allowed in current state")
)
