package core

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"corporate/internal/types"
)

// Validator wraps go-playground/validator and converts its per-field errors
// into the application error shape. Unlike the fail-fast parameter parsing
// on the upgrade path, struct validation collects every failing field so
// forms can report all problems in one combined message.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a new Validator.
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// ValidateStruct validates s against its `validate` tags. On failure it
// returns a *types.AppError whose message concatenates every field
// complaint and whose details carry the per-field breakdown.
func (v *Validator) ValidateStruct(s interface{}) *types.AppError {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		// Non-validation failure (e.g. a non-struct argument) is a
		// programming error, not bad input.
		v.logger.Error("struct validation failed unexpectedly", "error", err)
		return types.NewAppError(types.ErrCodeInternalUnexpected, "validation could not be performed", err)
	}

	messages := make([]string, 0, len(verrs))
	fields := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		msg := fieldMessage(fe)
		messages = append(messages, msg)
		fields[fieldName(fe)] = msg
	}

	return types.NewAppErrorWithDetails(
		types.ErrCodeValidationFormInvalid,
		strings.Join(messages, " "),
		err,
		map[string]any{"fields": fields},
	)
}

// fieldName returns the snake_case form field name for a validation error.
func fieldName(fe validator.FieldError) string {
	return toSnake(fe.Field())
}

// fieldMessage renders one human-readable complaint for a field error.
func fieldMessage(fe validator.FieldError) string {
	name := fieldName(fe)
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s: This field is required.", name)
	case "url":
		return fmt.Sprintf("%s: Enter a valid URL.", name)
	case "max":
		return fmt.Sprintf("%s: Ensure this value has at most %s characters.", name, fe.Param())
	case "min":
		return fmt.Sprintf("%s: Ensure this value has at least %s characters.", name, fe.Param())
	case "email":
		return fmt.Sprintf("%s: Enter a valid email address.", name)
	default:
		return fmt.Sprintf("%s: This value is invalid.", name)
	}
}

// toSnake converts a Go field name (PaidUsersCount) to its wire form
// (paid_users_count).
func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
