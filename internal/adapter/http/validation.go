package http

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// Reusable error payload
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
type ErrorResponse struct {
	Error   string       `json:"error"`
	Details []FieldError `json:"details,omitempty"`
}

// Identity-provider subject ids are opaque but bounded: url-safe
// characters, 6..128 long.
var reSubjectID = regexp.MustCompile(`^[A-Za-z0-9_-]{6,128}$`)

type CustomValidator struct{ v *validator.Validate }

func NewValidator() *CustomValidator {
	v := validator.New()

	_ = v.RegisterValidation("subjectid", func(fl validator.FieldLevel) bool {
		return reSubjectID.MatchString(fl.Field().String())
	})
	// minimum credential length for signup completion
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) >= 8
	})

	return &CustomValidator{v: v}
}

func (cv *CustomValidator) Validate(i any) error { return cv.v.Struct(i) }

// Map validator.ValidationErrors → []FieldError with readable messages.
func ToFieldErrors(err error) []FieldError {
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return []FieldError{{Field: "_", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(ve))
	for _, e := range ve {
		field := e.Field()
		switch e.Tag() {
		case "required":
			out = append(out, FieldError{Field: field, Message: "is required"})
		case "subjectid":
			out = append(out, FieldError{Field: field, Message: "must be a 6-128 char url-safe identifier"})
		case "password":
			out = append(out, FieldError{Field: field, Message: "must be at least 8 characters"})
		case "email":
			out = append(out, FieldError{Field: field, Message: "must be a valid email address"})
		case "max":
			out = append(out, FieldError{Field: field, Message: "must be at most " + e.Param() + " characters"})
		default:
			out = append(out, FieldError{Field: field, Message: e.Tag() + " validation failed"})
		}
	}
	return out
}
