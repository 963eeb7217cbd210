package application

import (
	"github.com/go-playground/validator/v10"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/apperr"
)

// validate checks request DTOs outside HTTP binding with the same `binding` tags gin uses.
var validate = func() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	return v
}()

// ValidateRequest validates a request DTO and returns a validation AppError on failure.
func ValidateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		return apperr.WrapValidation(err)
	}
	return nil
}
