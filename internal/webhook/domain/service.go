package domain

import (
	"context"
	"net/http"
)

// Service reconciles processor webhook deliveries against the donation
// ledger. Handle is safe under redelivery, reordering and concurrent calls.
type Service interface {
	Handle(ctx context.Context, payload []byte, headers http.Header) (Result, error)
}
