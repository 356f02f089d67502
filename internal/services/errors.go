package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks input rejected before any request was issued.
	ErrValidation = errors.New("validation error")
	// ErrTransport marks failures to reach the backend at all.
	ErrTransport = errors.New("transport error")
	// ErrApplication marks errors reported by the backend itself.
	ErrApplication   = errors.New("application error")
	ErrConfiguration = errors.New("configuration error")
	// ErrStorage marks local disk failures while saving or recording results.
	ErrStorage      = errors.New("storage error")
	ErrExternalTool = errors.New("external tool error")
	ErrNotFound     = errors.New("not found")
	ErrTimeout      = errors.New("timeout")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind is the coarse error class the shell reacts to.
type Kind string

const (
	KindNone        Kind = ""
	KindValidation  Kind = "validation"
	KindTransport   Kind = "transport"
	KindApplication Kind = "application"
	KindInternal    Kind = "internal"
)

// Classify maps an error onto its Kind using the sentinel markers.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrTransport), errors.Is(err, ErrTimeout):
		return KindTransport
	case errors.Is(err, ErrApplication):
		return KindApplication
	default:
		return KindInternal
	}
}

// ApplicationError carries the message reported by the backend verbatim.
type ApplicationError struct {
	StatusCode int
	Message    string
}

func (e *ApplicationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Is lets errors.Is(err, ErrApplication) match without extra wrapping.
func (e *ApplicationError) Is(target error) bool {
	return target == ErrApplication
}

// ValidationError is input rejected before any request was issued.
type ValidationError struct {
	Component string
	Operation string
	Message   string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return ErrValidation.Error() + ": " + buildDetail(e.Component, e.Operation, e.Message)
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid returns a ValidationError for component and operation.
func Invalid(component, operation, message string) error {
	return &ValidationError{Component: component, Operation: operation, Message: message}
}

// UserMessage returns the text shown to the user for err. Application errors
// surface the backend's message unchanged and validation errors show only
// their message; everything else gets the short
// description of its class followed by the underlying detail.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *ApplicationError
	if errors.As(err, &appErr) && strings.TrimSpace(appErr.Message) != "" {
		return appErr.Message
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) && strings.TrimSpace(valErr.Message) != "" {
		return valErr.Message
	}
	return err.Error()
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
