package serrors

import "fmt"

// BaseError is a structured error carrying a stable machine-readable code.
// API controllers match on Code when mapping service failures to envelopes.
type BaseError struct {
	Code    string
	Message string
	Meta    map[string]string
}

func NewError(code, message string) *BaseError {
	return &BaseError{Code: code, Message: message}
}

// NewFieldRequiredError reports a missing required input field.
func NewFieldRequiredError(field string) *BaseError {
	return &BaseError{
		Code:    "FIELD_REQUIRED",
		Message: fmt.Sprintf("%s is required", field),
		Meta:    map[string]string{"field": field},
	}
}

func (e *BaseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithMeta attaches template data for the API envelope and returns the error
// for chaining.
func (e *BaseError) WithMeta(meta map[string]string) *BaseError {
	e.Meta = meta
	return e
}
