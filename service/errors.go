package services

import "errors"

// Error kinds surfaced to callers. Services wrap these with fmt.Errorf and
// %w so controllers can map them to HTTP statuses with errors.Is while the
// message keeps the specifics.
var (
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
)
