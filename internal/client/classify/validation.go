package classify

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/carpool/internal/apperr"
	"github.com/go-playground/validator/v10"
)

// FromValidation converts a go-playground validation failure into a
// ValidationError naming the first offending field.
func FromValidation(err error) apperr.AppError {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperr.NewValidationError(fieldMessage(fe), fe.Field())
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return apperr.New(apperr.CodeUnknown, "invalid value passed to validator", err)
	}
	return apperr.NewValidationError(err.Error(), "")
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}
