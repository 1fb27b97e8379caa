package domain

import "errors"

var (
	ErrBadPayload       = errors.New("bad_payload")
	ErrInvalidSignature = errors.New("invalid_signature")
)
