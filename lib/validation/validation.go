// Package validation checks `validate` struct tags and reports failures
// under their json names.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})
	})
	return validate
}

// Error lists every field that failed validation.
type Error struct {
	Problems []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid fields: %s", strings.Join(e.Problems, ", "))
}

func Struct(v any) error {
	err := instance().Struct(v)
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		problems := make([]string, len(validationErrs))
		for i, fe := range validationErrs {
			// drop the struct name, "config.store.kind" reads as "store.kind"
			_, field, found := strings.Cut(fe.Namespace(), ".")
			if !found {
				field = fe.Field()
			}
			if fe.Param() != "" {
				problems[i] = fmt.Sprintf("%s: %s=%s", field, fe.Tag(), fe.Param())
				continue
			}
			problems[i] = fmt.Sprintf("%s: %s", field, fe.Tag())
		}
		return &Error{Problems: problems}
	}
	return err
}
