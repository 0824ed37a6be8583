package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrMissingCoordinates = errors.New("missing latitude or longitude")
	ErrInvalidCoordinates = errors.New("invalid latitude or longitude")
	ErrInvalidDates       = errors.New("invalid dates")
	ErrValidation         = errors.New("validation failed")
	ErrNoOffer            = errors.New("no offer available")
	ErrUnauthorized       = errors.New("unauthorized")
)
