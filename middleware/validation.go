package middleware

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names so messages match the request body
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateStruct runs `validate` tags on s and returns one message per
// failing json field. A nil map means s is valid.
func ValidateStruct(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"body": "Invalid request body!"}
	}

	errors := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if field == "" {
			field = "body"
		}
		switch fe.Tag() {
		case "required":
			errors[field] = fmt.Sprintf("%s is required!", field)
		case "email":
			errors[field] = "Invalid email!"
		case "min":
			errors[field] = fmt.Sprintf("%s must be at least %s!", field, fe.Param())
		case "max":
			errors[field] = fmt.Sprintf("%s must be at most %s!", field, fe.Param())
		case "gt":
			errors[field] = fmt.Sprintf("%s must be greater than %s!", field, fe.Param())
		case "gte":
			errors[field] = fmt.Sprintf("%s must be at least %s!", field, fe.Param())
		case "lte":
			errors[field] = fmt.Sprintf("%s must not exceed %s!", field, fe.Param())
		default:
			errors[field] = fmt.Sprintf("%s is invalid!", field)
		}
	}
	return errors
}
