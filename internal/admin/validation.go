package admin

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"

	"sitewomen/app/internal/slug"
)

// NewValidator returns a validator that reports fields by their `form` tag and
// understands the "slug" rule.
func NewValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})

	// Registering a fixed, non-empty tag cannot fail.
	_ = validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slug.Valid(fl.Field().String())
	})

	return validate
}

// Validate runs validate over input and converts failures to form errors.
func Validate(validate *validator.Validate, input any) (FieldErrors, error) {
	errs := FieldErrors{}

	err := validate.Struct(input)
	if err == nil {
		return errs, nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil, eris.Wrap(err, "validating form")
	}

	for _, fieldErr := range validationErrors {
		errs.Add(fieldErr.Field(), validationMessage(fieldErr))
	}
	return errs, nil
}

func validationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "This field is required."
	case "max":
		if err.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this value has at most %s characters (it has %d).", err.Param(), len([]rune(fmt.Sprint(err.Value()))))
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", err.Param())
	case "lte":
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", err.Param())
	case "min", "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", err.Param())
	case "slug":
		return "Enter a valid “slug” consisting of letters, numbers, underscores or hyphens."
	default:
		return fmt.Sprintf("Enter a valid value (%s).", err.Tag())
	}
}
