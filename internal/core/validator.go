package core

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"fletoads/internal/types"
)

// Validator wraps go-playground/validator and registers domain-specific
// rules (slug format, plan tier values).
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// ValidationError describes a single failed field validation.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult aggregates validation errors and non-blocking warnings.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []string
}

// IsValid reports whether the result contains no errors. Warnings do not
// make a result invalid.
func (r ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// slugPattern accepts lowercase URL-safe identifiers: letters, digits, and
// single hyphens, never leading or trailing.
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// NewValidator creates a new Validator and registers custom validation tags.
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// "slug": lowercase hyphenated identifier used in vitrine URLs.
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return true // pair with required when the field is mandatory
		}
		return len(s) <= 64 && slugPattern.MatchString(s)
	})

	// "plan_tier": one of the known plan catalog slugs.
	_ = v.RegisterValidation("plan_tier", func(fl validator.FieldLevel) bool {
		switch types.PlanTier(fl.Field().String()) {
		case types.PlanGratis, types.PlanBasico, types.PlanCompleto,
			types.PlanPremium, types.PlanEmpresarial:
			return true
		default:
			return false
		}
	})

	return &Validator{
		validate: v,
		logger:   logger,
	}
}

// ValidateStruct validates the struct's `validate` tags and returns a
// *types.AppError (400) whose Details carry the per-field failures under
// the "validation_errors" key. Returns nil when the struct is valid.
func (v *Validator) ValidateStruct(s interface{}) error {
	result := v.ValidateStructWithWarnings(s)
	if result.IsValid() {
		return nil
	}

	// The top-level code mirrors the first field failure.
	code := types.ErrorCode(result.Errors[0].Code)
	return types.NewAppErrorWithDetails(
		code,
		"request validation failed",
		nil,
		map[string]any{"validation_errors": result.Errors},
	)
}

// ValidateStructWithWarnings validates the struct and returns the full
// result instead of collapsing it into a single error.
func (v *Validator) ValidateStructWithWarnings(s interface{}) ValidationResult {
	var result ValidationResult

	err := v.validate.Struct(s)
	if err == nil {
		return result
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		// InvalidValidationError means the caller passed a non-struct.
		v.logger.Error("validator received invalid input", "error", err)
		result.Errors = append(result.Errors, ValidationError{
			Field:   "",
			Code:    string(types.ErrCodeValidationInvalidBody),
			Message: "invalid request payload",
		})
		return result
	}

	for _, fe := range validationErrs {
		result.Errors = append(result.Errors, ValidationError{
			Field:   fieldName(fe),
			Code:    string(codeForTag(fe.Tag())),
			Message: messageForTag(fe),
		})
	}
	return result
}

// fieldName renders the struct namespace below the root type in lower-snake
// form, matching the JSON casing used by request DTOs.
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return strings.ToLower(ns)
}

// codeForTag maps a validation tag to the platform error code.
func codeForTag(tag string) types.ErrorCode {
	switch tag {
	case "required":
		return types.ErrCodeValidationMissingField
	case "email":
		return types.ErrCodeValidationInvalidEmail
	case "slug":
		return types.ErrCodeValidationInvalidSlug
	case "gte", "gt", "lte", "lt":
		return types.ErrCodeValidationPrice
	default:
		return types.ErrCodeValidationInvalidBody
	}
}

// messageForTag renders a human-readable message for a field failure.
func messageForTag(fe validator.FieldError) string {
	field := fieldName(fe)
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "slug":
		return field + " must be a lowercase hyphenated identifier"
	case "plan_tier":
		return field + " must be a known plan slug"
	case "min":
		return field + " is too short (minimum " + fe.Param() + ")"
	case "max":
		return field + " is too long (maximum " + fe.Param() + ")"
	case "gte", "gt":
		return field + " is below the allowed minimum"
	case "lte", "lt":
		return field + " is above the allowed maximum"
	case "oneof":
		return field + " must be one of: " + fe.Param()
	default:
		return field + " failed validation rule " + fe.Tag()
	}
}
