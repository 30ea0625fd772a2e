package validate

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// Error maps the json name of each invalid field to the rule it failed.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	names := make([]string, 0, len(e.Fields))

	for name := range e.Fields {
		names = append(names, name)
	}

	sort.Strings(names)

	parts := make([]string, 0, len(names))

	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%v: %v", name, e.Fields[name]))
	}

	return "invalid input: " + strings.Join(parts, ", ")
}

// Struct checks the validate tags of v and reports failures as *Error.
func Struct(v any) error {
	err := validate.Struct(v)

	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors

	if !errors.As(err, &errs) {
		return fmt.Errorf("failed to validate input: %w", err)
	}

	fields := make(map[string]string, len(errs))

	for _, fe := range errs {
		fields[fe.Field()] = fe.Tag()
	}

	return &Error{Fields: fields}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")

		if name == "-" {
			return ""
		}

		return name
	})

	return v
}
