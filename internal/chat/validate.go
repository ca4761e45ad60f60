package chat

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Default input limits, matching the limits of the browser client.
const (
	DefaultMaxNameLength    = 20
	DefaultMaxContentLength = 500
)

// Limits bounds user supplied text, in characters.
type Limits struct {
	MaxNameLength    int
	MaxContentLength int
}

// Validator trims and checks display names and message bodies.
type Validator struct {
	validate   *validator.Validate
	nameTag    string
	contentTag string
}

// NewValidator builds a Validator for the given limits. Non-positive limits
// fall back to the defaults.
func NewValidator(l Limits) *Validator {
	if l.MaxNameLength <= 0 {
		l.MaxNameLength = DefaultMaxNameLength
	}
	if l.MaxContentLength <= 0 {
		l.MaxContentLength = DefaultMaxContentLength
	}
	return &Validator{
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		nameTag:    fmt.Sprintf("required,max=%d", l.MaxNameLength),
		contentTag: fmt.Sprintf("required,max=%d", l.MaxContentLength),
	}
}

// DisplayName returns raw trimmed, or ErrValidation when the result is empty
// or too long.
func (v *Validator) DisplayName(raw string) (string, error) {
	return v.check("display name", raw, v.nameTag)
}

// Content returns raw trimmed, or ErrValidation when the result is empty or
// too long.
func (v *Validator) Content(raw string) (string, error) {
	return v.check("content", raw, v.contentTag)
}

func (v *Validator) check(field, raw, tag string) (string, error) {
	s := strings.TrimSpace(raw)
	if err := v.validate.Var(s, tag); err != nil {
		return "", fmt.Errorf("%s: %w: %v", field, ErrValidation, err)
	}
	return s, nil
}
