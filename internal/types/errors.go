package types

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Error code constants. Handlers and services use these instead of
// hardcoded strings so the HTTP mapping stays in one place.
const (
	// Validation (400)
	ErrCodeValidationInvalidModality  ErrorCode = "validation_invalid_billing_modality"
	ErrCodeValidationInvalidSchedule  ErrorCode = "validation_invalid_billing_schedule"
	ErrCodeValidationInvalidLicenses  ErrorCode = "validation_invalid_licenses"
	ErrCodeValidationInvalidBool      ErrorCode = "validation_invalid_boolean"
	ErrCodeValidationMissingField     ErrorCode = "validation_missing_required_field"
	ErrCodeValidationInvalidOrgType   ErrorCode = "validation_invalid_organization_type"
	ErrCodeValidationFormInvalid      ErrorCode = "validation_form_invalid"

	// Auth (401)
	ErrCodeAuthTokenMissing  ErrorCode = "auth_token_missing"
	ErrCodeAuthTokenInvalid  ErrorCode = "auth_token_invalid"
	ErrCodeAuthTokenExpired  ErrorCode = "auth_token_expired"
	ErrCodeAuthInvalidCreds  ErrorCode = "auth_invalid_credentials"

	// Permission (403)
	ErrCodePermissionGuest       ErrorCode = "permission_guest_forbidden"
	ErrCodePermissionOrgMismatch ErrorCode = "permission_organization_mismatch"

	// Not Found (404)
	ErrCodeNotFoundOrg      ErrorCode = "not_found_organization"
	ErrCodeNotFoundUser     ErrorCode = "not_found_user"
	ErrCodeNotFoundCustomer ErrorCode = "not_found_customer"
	ErrCodeNotFoundPage     ErrorCode = "not_found_page"

	// Billing. Expected business-rule rejections surface as billing_error;
	// billing_contact_support is the generic wrapper for uncaught failures
	// and deliberately maps to 500 so operators can tell the two apart.
	ErrCodeBillingError          ErrorCode = "billing_error"
	ErrCodeBillingContactSupport ErrorCode = "billing_contact_support"

	// Internal/Upstream (500/502)
	ErrCodeInternalDB         ErrorCode = "internal_database_error"
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
	ErrCodeUpstreamStripe     ErrorCode = "upstream_stripe_unavailable"
	ErrCodeUpstreamEmail      ErrorCode = "upstream_email_provider_unavailable"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Returns 500 for unrecognized error codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest // 400
	case strings.HasPrefix(s, "auth_"):
		return http.StatusUnauthorized // 401
	case strings.HasPrefix(s, "permission_"):
		return http.StatusForbidden // 403
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound // 404
	case s == string(ErrCodeBillingError):
		return http.StatusBadRequest // 400
	case s == string(ErrCodeBillingContactSupport):
		return http.StatusInternalServerError // 500
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway // 502
	case strings.HasPrefix(s, "internal_"):
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// AppError is the standard application error type. All domain and handler
// errors are expressed as AppError to enable consistent error formatting,
// HTTP status mapping, and error chain support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// NewAppError creates a new AppError with the given code, message, and
// optional underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError carrying structured details
// that are safe to return to the client.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}
