package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-storefront-bot/internal/domain"
)

// v is the package-level singleton validator. It caches struct metadata, so
// one instance is shared by config, catalog and order validation.
var v = validator.New()

// FieldError is one failed constraint.
type FieldError struct {
	Field string
	Tag   string
}

// Error lists every failed constraint of a validated struct. It matches
// domain.ErrBadRequest under errors.Is.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", f.Field, f.Tag))
	}
	return strings.Join(msgs, "; ")
}

func (e *Error) Is(target error) bool {
	return target == domain.ErrBadRequest
}

// Struct validates the given struct using its validate tags.
// Returns *Error or nil; non-validation failures (e.g. a nil pointer) pass through.
func Struct(s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	out := &Error{Fields: make([]FieldError, 0, len(ve))}
	for _, fe := range ve {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Tag: fe.Tag()})
	}
	return out
}
