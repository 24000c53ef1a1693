package errors

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// FromValidator converts a validator failure into a validation error carrying
// one FieldError per failed field. Non-validator errors keep the plain
// message.
func FromValidator(err error, message string) *Error {
	e := Clone(ErrValidation, message)
	e.Err = err

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		e.Fields = make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			e.Fields = append(e.Fields, FieldError{Field: fe.Field(), Message: ruleMessage(fe)})
		}
	}
	return e
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid uuid"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gte":
		return "must be " + fe.Param() + " or more"
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "dive":
		return "contains an invalid entry"
	default:
		return "failed the " + fe.Tag() + " rule"
	}
}
