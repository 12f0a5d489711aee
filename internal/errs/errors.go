package errs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicate      = errors.New("already exists")
	ErrIntegrity      = errors.New("referenced by existing records")
	ErrStateConflict  = errors.New("state conflict")
	ErrStockExhausted = errors.New("stock exhausted")
)

// ValidationError accumulates field-keyed messages; every engine precondition
// failure lands here so callers can re-prompt per field.
type ValidationError struct {
	Fields map[string][]string `json:"errors"`
}

func NewValidation() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

func Validationf(field, format string, args ...any) *ValidationError {
	v := NewValidation()
	v.Addf(field, format, args...)
	return v
}

func (v *ValidationError) Add(field, msg string) {
	v.Fields[field] = append(v.Fields[field], msg)
}

func (v *ValidationError) Addf(field, format string, args ...any) {
	v.Add(field, fmt.Sprintf(format, args...))
}

func (v *ValidationError) Any() bool {
	return len(v.Fields) > 0
}

func (v *ValidationError) Error() string {
	if len(v.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString("validation failed:")
	for _, k := range keys {
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(strings.Join(v.Fields[k], "; "))
	}
	return b.String()
}

type ValidationErrorResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}
