package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/unclebandit/reengage-backend/internal/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON field names so messages match the request body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateInput converts validator failures into a ValidationError.
func validateInput(in interface{}, requiredMsg string) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return &appErrors.ValidationError{Message: requiredMsg}
		}
	}
	fe := verrs[0]
	return appErrors.NewValidation("invalid value for %s", fe.Field())
}
