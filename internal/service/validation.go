package service

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "focusrooms/backend/internal/errors"
)

var validate = validator.New()

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

func validateInput(input interface{}) *apperrors.APIError {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return apperrors.BadRequest("invalid_input", err.Error())
	}
	details := make([]fieldError, 0, len(validationErrs))
	for _, fe := range validationErrs {
		details = append(details, fieldError{
			Field: lowerFirst(fe.Field()),
			Rule:  fe.Tag(),
			Param: fe.Param(),
		})
	}
	return apperrors.Validation(details)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
