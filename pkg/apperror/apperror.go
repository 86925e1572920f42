// Package apperror provides the structured error type shared by the query
// parser and the resource layer. Every error that crosses a package boundary
// carries a machine-readable kind, an optional offending field, and a
// suggested HTTP status so the transport layer never inspects error strings.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies a class of failure.
type Kind string

const (
	// Query-string parsing failures (400)
	KindUnknownFilterField    Kind = "UNKNOWN_FILTER_FIELD"
	KindInvalidOperatorSyntax Kind = "INVALID_OPERATOR_SYNTAX"
	KindTypeMismatch          Kind = "TYPE_MISMATCH"
	KindNotImplemented        Kind = "NOT_IMPLEMENTED_COMBINATION"
	KindInvalidOrderSpec      Kind = "INVALID_ORDER_SPEC"

	// Body/row validation failures (422)
	KindSchemaValidation Kind = "SCHEMA_VALIDATION_FAILED"

	// Keyed lookups (404)
	KindNotFound Kind = "NOT_FOUND"

	// Resource registration failures, fatal at construction time
	KindMissingPrimaryKey Kind = "MISSING_PRIMARY_KEY_CONFIGURATION"

	// Opaque data-access failure (502)
	KindBackend Kind = "BACKEND_ERROR"
)

// Error is the standard error type for the module.
type Error struct {
	Kind    Kind           `json:"kind"`
	Field   string         `json:"field,omitempty"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *Error) Error() string {
	switch {
	case e.Field != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %s (caused by: %v)", e.Kind, e.Field, e.Message, e.Err)
	case e.Field != "":
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors by kind so sentinel comparisons work across wrapping.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// WithField attributes the error to a field and returns it.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// WithDetail adds a key-value pair to error details.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// HTTPStatus maps the error kind to a response status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindUnknownFilterField, KindInvalidOperatorSyntax, KindTypeMismatch,
		KindNotImplemented, KindInvalidOrderSpec:
		return http.StatusBadRequest
	case KindSchemaValidation:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindBackend:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// New creates an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf reports the kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// FieldOf reports the field attribution of err, or "" if absent.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}

// AttachField attributes err to field when err is an *Error without one.
// Errors raised by field-agnostic helpers pass through here on the way up.
func AttachField(err error, field string) error {
	var e *Error
	if errors.As(err, &e) && e.Field == "" {
		e.Field = field
	}
	return err
}

// UnknownFilterField rejects a filter key outside the allow-list.
func UnknownFilterField(field string) *Error {
	return New(KindUnknownFilterField, "field is not filterable").WithField(field)
}

// InvalidOperator rejects a value that violates the sigil grammar.
func InvalidOperator(format string, args ...any) *Error {
	return New(KindInvalidOperatorSyntax, format, args...)
}

// TypeMismatch rejects a heterogeneous array where a homogeneous one is required.
func TypeMismatch(format string, args ...any) *Error {
	return New(KindTypeMismatch, format, args...)
}

// NotImplemented rejects a combination the decoder refuses to guess about.
func NotImplemented(format string, args ...any) *Error {
	return New(KindNotImplemented, format, args...)
}

// InvalidOrderSpec rejects a malformed or out-of-allow-list sort token.
func InvalidOrderSpec(format string, args ...any) *Error {
	return New(KindInvalidOrderSpec, format, args...)
}

// SchemaValidation reports body or row coercion failure. Per-field messages
// go into Details under the offending field names.
func SchemaValidation(schemaName string, violations map[string]any) *Error {
	e := New(KindSchemaValidation, "validation failed for schema %q", schemaName)
	for k, v := range violations {
		e.WithDetail(k, v)
	}
	return e
}

// NotFound reports a keyed lookup that matched zero rows.
func NotFound(resource string, key any) *Error {
	return New(KindNotFound, "%s not found", resource).WithDetail("key", key)
}

// MissingPrimaryKey reports an unresolvable key policy at registration time.
func MissingPrimaryKey(table, operation string) *Error {
	return New(KindMissingPrimaryKey,
		"no primary key resolvable for operation %q on table %q", operation, table)
}

// Backend wraps an opaque data-access failure.
func Backend(err error) *Error {
	return New(KindBackend, "data access failed").WithCause(err)
}
