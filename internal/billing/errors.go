// Package billing implements the upgrade and sponsorship core: parameter
// validation, seat-count verification, the upgrade orchestration handed to
// the payment back-end, and the atomic sponsorship workflow.
package billing

import "fmt"

// Error is an expected billing failure: a business-rule rejection whose
// Message is safe to show to the user. Description is the internal label
// used for logging and never reaches the client.
type Error struct {
	// Description is a short internal identifier, e.g. "not enough licenses".
	Description string
	// Message is the user-facing text rendered by the transport layer.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("billing error: %s", e.Description)
}

// NewError creates an expected billing error.
func NewError(description, message string) *Error {
	return &Error{Description: description, Message: message}
}

// contactSupportTemplate is the user-facing message attached to failures
// that are not expected billing errors. The original cause is logged, never
// shown.
const contactSupportTemplate = "Something went wrong. Please contact %s."

// ContactSupportError wraps an unclassified failure into the generic
// expected shape, pointing the user at the support address.
func ContactSupportError(supportEmail string) *Error {
	return &Error{
		Description: "uncaught exception during upgrade",
		Message:     fmt.Sprintf(contactSupportTemplate, supportEmail),
	}
}

// FormValidationError aggregates per-field form complaints into one
// expected billing error with a fixed category label.
func FormValidationError(message string) *Error {
	return &Error{
		Description: "Form validation error",
		Message:     message,
	}
}
