// Package validator wraps go-playground/validator so request structs report
// violations under their wire parameter names, in the phrasing expected in
// an OAuth error_description.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()

	// Violations must name the wire parameter (the json tag), not the Go
	// field, so callers can match them to what they actually sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return strings.ToLower(fld.Name)
		}
		return name
	})

	return &Validator{validate: v}
}

// Validate checks a request struct and returns a single error whose message
// lists every missing or malformed parameter, suitable for use as an OAuth
// error_description verbatim.
func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var violations validator.ValidationErrors
	if !errors.As(err, &violations) {
		return err
	}

	messages := make([]string, 0, len(violations))
	for _, violation := range violations {
		messages = append(messages, describe(violation))
	}
	return errors.New(strings.Join(messages, "; "))
}

func describe(v validator.FieldError) string {
	param := strings.ToLower(v.Field())

	switch v.Tag() {
	case "required":
		return fmt.Sprintf("missing required parameter %q", param)
	case "uuid":
		return fmt.Sprintf("parameter %q must be a UUID", param)
	case "min":
		return fmt.Sprintf("parameter %q must be at least %s characters", param, v.Param())
	case "max":
		return fmt.Sprintf("parameter %q must be at most %s characters", param, v.Param())
	default:
		return fmt.Sprintf("parameter %q is malformed", param)
	}
}
