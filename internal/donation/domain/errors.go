package domain

import "errors"

var (
	ErrNotFound      = errors.New("donation_not_found")
	ErrInvalidAmount = errors.New("invalid_amount")
	ErrInvalidStatus = errors.New("invalid_status")
)
