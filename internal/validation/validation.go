// Package validation wraps go-playground/validator with the field messages
// shown to Rift users.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is one failed rule.
type FieldError struct {
	Field   string
	Tag     string
	Message string
}

// Error lists every failed rule of a struct.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// First returns the message of the first failed rule.
func (e *Error) First() string {
	if len(e.Fields) == 0 {
		return ""
	}
	return e.Fields[0].Message
}

// Get returns the shared validator.
func Get() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Struct validates s and converts failures into *Error.
func Struct(s any) error {
	return convert(Get().Struct(s))
}

// Var validates a single value against tag, naming it field in messages.
func Var(field string, value any, tag string) error {
	err := convert(Get().Var(value, tag))
	var verr *Error
	if errors.As(err, &verr) {
		for i := range verr.Fields {
			verr.Fields[i].Field = field
			verr.Fields[i].Message = strings.Replace(verr.Fields[i].Message, "value", field, 1)
		}
	}
	return err
}

func convert(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate: %w", err)
	}
	out := &Error{Fields: make([]FieldError, len(fieldErrs))}
	for i, fe := range fieldErrs {
		name := strings.ToLower(fe.Field())
		if name == "" {
			name = "value"
		}
		out.Fields[i] = FieldError{Field: name, Tag: fe.Tag(), Message: translate(fe, name)}
	}
	return out
}

func translate(fe validator.FieldError, field string) string {
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "alphanum":
		return field + " may only contain letters and numbers"
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
