package domain

import "errors"

var (
	ErrInvalidMode = errors.New("invalid_mode")
	// ErrIneligible means the selection produced an empty population.
	ErrIneligible = errors.New("no_eligible_donations")
)
