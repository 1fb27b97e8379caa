package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MowahidLatif/helping-hands-backend/internal/authorization"
	campaigndomain "github.com/MowahidLatif/helping-hands-backend/internal/campaign/domain"
	donationdomain "github.com/MowahidLatif/helping-hands-backend/internal/donation/domain"
	giveawaydomain "github.com/MowahidLatif/helping-hands-backend/internal/giveaway/domain"
	webhookdomain "github.com/MowahidLatif/helping-hands-backend/internal/webhook/domain"
)

// HTTPError is the canonical error envelope for every API response.
type HTTPError struct {
	Status  int          `json:"-"`
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *HTTPError) Error() string { return e.Message }

var (
	ErrNotFound           = &HTTPError{Status: http.StatusNotFound, Code: "not_found", Message: "resource not found"}
	ErrUnauthorized       = &HTTPError{Status: http.StatusUnauthorized, Code: "unauthorized", Message: "authentication required"}
	ErrForbidden          = &HTTPError{Status: http.StatusForbidden, Code: "forbidden", Message: "insufficient permissions"}
	ErrServiceUnavailable = &HTTPError{Status: http.StatusServiceUnavailable, Code: "service_unavailable", Message: "service unavailable"}
)

func invalidRequestError() *HTTPError {
	return &HTTPError{
		Status:  http.StatusBadRequest,
		Code:    "invalid_request",
		Message: "invalid request body",
	}
}

func newValidationError(field, code, message string) *HTTPError {
	return &HTTPError{
		Status:  http.StatusBadRequest,
		Code:    "validation_failed",
		Message: message,
		Fields:  []FieldError{{Field: field, Code: code, Message: message}},
	}
}

// AbortWithError maps domain sentinels onto HTTP responses and writes the
// error envelope. Unknown errors become an opaque 500.
func AbortWithError(c *gin.Context, err error) {
	httpErr := toHTTPError(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(httpErr.Status, gin.H{"error": httpErr})
}

func toHTTPError(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	switch {
	case errors.Is(err, campaigndomain.ErrNotFound),
		errors.Is(err, donationdomain.ErrNotFound):
		return &HTTPError{Status: http.StatusNotFound, Code: err.Error(), Message: "resource not found"}
	case errors.Is(err, authorization.ErrForbidden):
		return &HTTPError{Status: http.StatusForbidden, Code: "forbidden", Message: "insufficient permissions"}
	case errors.Is(err, authorization.ErrInvalidActor):
		return &HTTPError{Status: http.StatusUnauthorized, Code: "invalid_actor", Message: "unrecognized actor"}
	case errors.Is(err, giveawaydomain.ErrIneligible):
		return &HTTPError{Status: http.StatusBadRequest, Code: "no_eligible_donations", Message: "no eligible donations for this campaign"}
	case errors.Is(err, giveawaydomain.ErrInvalidMode):
		return &HTTPError{Status: http.StatusBadRequest, Code: "invalid_mode", Message: "mode must be per_donation or per_donor"}
	case errors.Is(err, webhookdomain.ErrInvalidSignature):
		return &HTTPError{Status: http.StatusBadRequest, Code: "invalid_signature", Message: "webhook signature verification failed"}
	case errors.Is(err, webhookdomain.ErrBadPayload):
		return &HTTPError{Status: http.StatusBadRequest, Code: "bad_payload", Message: "malformed webhook payload"}
	}

	return &HTTPError{Status: http.StatusInternalServerError, Code: "internal_error", Message: "internal server error"}
}
