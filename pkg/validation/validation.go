package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/go-playground/validator/v10"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return IsPhone(fl.Field().String())
	})
	return v
}

// IsPhone accepts 10 to 15 digits with an optional leading plus. Spaces and dashes are ignored.
func IsPhone(value string) bool {
	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(value))
	return phonePattern.MatchString(cleaned)
}

// Fields validates v and returns a field to message map, or nil when v is valid.
func Fields(v any) (map[string]string, error) {
	err := validate.Struct(v)
	if err == nil {
		return nil, nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return nil, err
	}
	out := make(map[string]string, len(errs))
	for _, fieldErr := range errs {
		out[fieldErr.Field()] = Message(fieldErr)
	}
	return out, nil
}

// Struct validates v and reports failures as a typed error carrying the field map.
func Struct(v any, code pkgerrors.Code, message string) error {
	fields, err := Fields(v)
	if err != nil {
		return pkgerrors.Wrap(code, err, message)
	}
	if len(fields) == 0 {
		return nil
	}
	return Failed(code, message, fields)
}

// Failed builds the error returned for a non-empty field map.
func Failed(code pkgerrors.Code, message string, fields map[string]string) *pkgerrors.Error {
	return pkgerrors.New(code, message).WithDetails(map[string]any{"fields": fields})
}

func Message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email"
	case "phone":
		return "must be a valid phone number"
	case "iso3166_1_alpha2":
		return "must be a two-letter country code"
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	case "uuid4", "uuid":
		return "must be a valid uuid"
	}
	return "is invalid"
}
