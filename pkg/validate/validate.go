package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid wraps every field validation failure.
var ErrInvalid = errors.New("validation failed")

var (
	once     sync.Once
	instance *validator.Validate
)

func get() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
		instance.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return instance
}

// Struct validates s against its `validate` tags. Field errors are reported
// by json name, e.g. "max_uses lte; property_id required".
func Struct(s any) error {
	if s == nil {
		return fmt.Errorf("%w: is nil", ErrInvalid)
	}
	if !isStruct(s) {
		return fmt.Errorf("%w: not a struct", ErrInvalid)
	}

	err := get().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	var invalidValidationError *validator.InvalidValidationError
	switch {
	case errors.As(err, &validationErrors):
		parts := make([]string, 0, len(validationErrors))
		for _, fieldErr := range validationErrors {
			parts = append(parts, fieldErr.Field()+" "+fieldErr.Tag())
		}
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(parts, "; "))
	case errors.As(err, &invalidValidationError):
		return fmt.Errorf("invalid validation error: %w", err)
	default:
		return fmt.Errorf("unknown validation error: %w", err)
	}
}

func isStruct(s any) bool {
	r := reflect.TypeOf(s)
	if r.Kind() == reflect.Ptr {
		r = r.Elem()
	}
	return r.Kind() == reflect.Struct
}
