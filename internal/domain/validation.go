package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError wraps validator.FieldError so the validator package does not
// leak to callers.
type FieldError struct {
	validator.FieldError
}

func (f FieldError) Error() string {
	return fmt.Sprintf("Field '%s' failed validation on the '%s' tag", f.Field(), f.Tag())
}

type FieldErrors []FieldError

// Fields maps each failing JSON field name to the tag it failed on.
func (fe FieldErrors) Fields() map[string]string {
	out := make(map[string]string, len(fe))
	for _, f := range fe {
		out[f.Field()] = f.Tag()
	}
	return out
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate runs the struct tags of i and returns nil when everything passes.
func Validate(i any) FieldErrors {
	err := validate.Struct(i)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{}
	}

	out := make(FieldErrors, 0, len(verrs))
	for _, e := range verrs {
		out = append(out, FieldError{e})
	}
	return out
}
