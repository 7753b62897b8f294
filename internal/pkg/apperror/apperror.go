package apperror

import "net/http"

// Kind classifies an AppError so callers can tell rejections apart
// without comparing messages.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindCapacityExhausted Kind = "capacity_exhausted"
	KindIllegalTransition Kind = "illegal_transition"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindInternal          Kind = "internal"
)

// AppError is a custom error type that includes an HTTP status code and a kind.
type AppError struct {
	Code    int            // HTTP Status Code (e.g., 400, 404)
	Kind    Kind           // Machine readable classification
	Message string         // User-facing error message
	Details map[string]any // Optional structured context, exposed to the user
	Err     error          // The underlying error, if any (not exposed to user)
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports sentinel equality by kind and message so that an error returned
// through WithDetails still matches the sentinel it was derived from.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// WithDetails returns a copy of the error carrying the given details.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// New creates a new AppError with a status code and message.
// The kind is derived from the status code.
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kindFor(code),
		Message: message,
	}
}

// NewKind creates an AppError with an explicit kind.
func NewKind(code int, kind Kind, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
	}
}

// Wrap creates a new AppError wrapping an existing error.
func Wrap(err error, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kindFor(code),
		Message: message,
		Err:     err,
	}
}

func kindFor(code int) Kind {
	switch code {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	default:
		return KindInternal
	}
}
