package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hollandv/quill/internal/domain"
)

// maxRequestBodySize caps JSON request bodies. Chat messages are the
// largest legitimate payload and stay well under this.
const maxRequestBodySize = 1 << 20 // 1MB

// validate is the shared request validator. Struct tags on the request DTOs
// drive the rules.
var validate = validator.New(validator.WithRequiredStructEnabled())

// respondJSON writes v as a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// decodeJSON reads and validates a JSON request body into dst.
// dst must be a pointer to a struct carrying validate tags.
// Returns a domain error suitable for ErrorResponse/ValidationErrorResponse.
func decodeJSON(r *http.Request, dst interface{}) error {
	const op = "handler.decodeJSON"

	body := io.LimitReader(r.Body, maxRequestBodySize+1)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &typeErr):
			return domain.NewValidationError(op, typeErr.Field, "has the wrong type")
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return domain.Invalid(op, "Request body is not valid JSON")
		case errors.Is(err, io.EOF):
			return domain.Invalid(op, "Request body is empty")
		default:
			return domain.Invalid(op, "Could not parse request body")
		}
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return validationErrorsToDomain(op, verrs)
		}
		return domain.Invalid(op, "Request validation failed")
	}

	return nil
}

// validationErrorsToDomain converts validator field errors into a domain
// validation error with one message per field.
func validationErrorsToDomain(op string, verrs validator.ValidationErrors) error {
	var ve *domain.ValidationError
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		msg := fieldErrorMessage(fe)
		if ve == nil {
			ve = domain.NewValidationError(op, field, msg)
		} else {
			ve = domain.AddFieldError(ve, field, msg)
		}
	}
	if ve == nil {
		return domain.Invalid(op, "Request validation failed")
	}
	return ve
}

// fieldErrorMessage renders a single validator failure as a user-facing message.
func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return "is invalid"
	}
}
