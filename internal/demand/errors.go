package demand

import (
	"errors"
	"strings"
)

var (
	// ErrModelNotLoaded is returned while no model artifacts are loaded.
	ErrModelNotLoaded = errors.New("model not loaded, please train the model first")

	// ErrBadJSON is returned when a request body is not a JSON object.
	ErrBadJSON = errors.New("request body must be JSON")
)

// FieldError describes a problem with one request field.
type FieldError struct {
	Field   string
	Message string
	Code    string
}

// Field error codes.
const (
	CodeRequired   = "required"
	CodeOutOfRange = "out_of_range"
	CodeInvalid    = "invalid"
)

// ValidationError is returned when a request is well-formed JSON but its
// fields are missing or out of their allowed domain.
type ValidationError struct {
	Message string
	Fields  []FieldError
}

func (e *ValidationError) Error() string {
	return e.Message
}

// MissingFields returns the names of fields reported as absent.
func (e *ValidationError) MissingFields() []string {
	var names []string
	for _, f := range e.Fields {
		if f.Code == CodeRequired {
			names = append(names, f.Field)
		}
	}
	return names
}

func missingFieldsError(names []string) *ValidationError {
	fields := make([]FieldError, len(names))
	for i, n := range names {
		fields[i] = FieldError{Field: n, Message: "field is required", Code: CodeRequired}
	}
	return &ValidationError{
		Message: "missing fields: " + strings.Join(names, ", "),
		Fields:  fields,
	}
}

func fieldError(field, code, message string) *ValidationError {
	return &ValidationError{
		Message: message,
		Fields:  []FieldError{{Field: field, Message: message, Code: code}},
	}
}

// InternalError wraps an unexpected failure inside the prediction pipeline.
// Its message is safe to return to callers; the cause is kept for logging.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	return e.Op + " failed: " + e.Err.Error()
}

func (e *InternalError) Unwrap() error {
	return e.Err
}
