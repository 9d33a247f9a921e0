package v1

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator adapts go-playground/validator to echo.Validator. Field errors
// report JSON names.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// Validate validates struct tags on i.
func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}
