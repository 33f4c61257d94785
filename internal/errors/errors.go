package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a ptnote error code.
type ErrorCode string

const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"     // 400
	ErrAccessDenied       ErrorCode = "ACCESS_DENIED"       // 403
	ErrNotFound           ErrorCode = "NOT_FOUND"           // 404
	ErrConflict           ErrorCode = "CONFLICT"            // 409
	ErrNoteIncomplete     ErrorCode = "NOTE_INCOMPLETE"     // 422
	ErrMalformedDraft     ErrorCode = "MALFORMED_DRAFT"     // 422
	ErrCancelled          ErrorCode = "CANCELLED"           // 499
	ErrInternal           ErrorCode = "INTERNAL"            // 500
	ErrPersistenceFailure ErrorCode = "PERSISTENCE_FAILURE" // 502
)

// NoteError represents a structured error with code, status, and details.
type NoteError struct {
	Code    ErrorCode
	Status  int
	Title   string
	Message string
	Details map[string]any
	cause   error
}

// Error implements the error interface.
func (e *NoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *NoteError) Unwrap() error {
	return e.cause
}

// ErrorResult is the structured failure value handed back to callers instead
// of a raised error: {"error": true, "title": ..., "message": ...}.
type ErrorResult struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Result converts the error into its structured result form.
func (e *NoteError) Result() ErrorResult {
	return ErrorResult{
		Error:   true,
		Code:    string(e.Code),
		Title:   e.Title,
		Message: e.Message,
	}
}

// ToResult converts any error into an ErrorResult. Non-NoteErrors become a
// generic internal failure so that driver or SQL details are not exposed.
func ToResult(err error) ErrorResult {
	var nErr *NoteError
	if stderrors.As(err, &nErr) {
		return nErr.Result()
	}
	return ErrorResult{Error: true, Code: string(ErrInternal), Title: "Something went wrong", Message: "an internal error occurred"}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *NoteError {
	return &NoteError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Title:   "Invalid request",
		Message: msg,
	}
}

// NewAccessDenied creates a 403 error for operations attempted in the wrong mode.
func NewAccessDenied(operation, requiredMode string) *NoteError {
	return &NoteError{
		Code:    ErrAccessDenied,
		Status:  403,
		Title:   "Access denied",
		Message: fmt.Sprintf("%s requires %s mode", operation, requiredMode),
		Details: map[string]any{"operation": operation, "required_mode": requiredMode},
	}
}

// NewNotFound creates a 404 error for a case or draft that cannot be resolved.
func NewNotFound(kind, identifier string) *NoteError {
	return &NoteError{
		Code:    ErrNotFound,
		Status:  404,
		Title:   fmt.Sprintf("%s not found", kind),
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewConflict creates a 409 error for general conflicts.
func NewConflict(msg string) *NoteError {
	return &NoteError{
		Code:    ErrConflict,
		Status:  409,
		Title:   "Conflict",
		Message: msg,
	}
}

// NewNoteIncomplete creates a 422 error when a note is missing required sections.
func NewNoteIncomplete(missing []string) *NoteError {
	return &NoteError{
		Code:    ErrNoteIncomplete,
		Status:  422,
		Title:   "Note incomplete",
		Message: fmt.Sprintf("note missing required sections: %v", missing),
		Details: map[string]any{"missing_sections": missing},
	}
}

// NewMalformedDraft creates a 422 error for draft JSON that cannot be decoded.
func NewMalformedDraft(key string, err error) *NoteError {
	msg := "draft is not valid JSON"
	if err != nil {
		msg = fmt.Sprintf("draft could not be decoded: %v", err)
	}
	return &NoteError{
		Code:    ErrMalformedDraft,
		Status:  422,
		Title:   "Malformed draft",
		Message: msg,
		Details: map[string]any{"key": key},
		cause:   err,
	}
}

// NewPersistenceFailure creates a 502 error for a failed case store write.
func NewPersistenceFailure(op string, err error) *NoteError {
	return &NoteError{
		Code:    ErrPersistenceFailure,
		Status:  502,
		Title:   "Could not save case",
		Message: fmt.Sprintf("%s failed: %v", op, err),
		Details: map[string]any{"operation": op},
		cause:   err,
	}
}

// NewCancelled creates a 499 error when a context is cancelled mid-operation.
func NewCancelled(op string) *NoteError {
	return &NoteError{
		Code:    ErrCancelled,
		Status:  499,
		Title:   "Cancelled",
		Message: fmt.Sprintf("%s cancelled", op),
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message is generic; the original error is kept in Details for logging.
func NewInternal(err error) *NoteError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &NoteError{
		Code:    ErrInternal,
		Status:  500,
		Title:   "Something went wrong",
		Message: "an internal error occurred",
		Details: details,
		cause:   err,
	}
}

// Is checks if an error is a NoteError with the given code.
func Is(err error, code ErrorCode) bool {
	var nErr *NoteError
	if stderrors.As(err, &nErr) {
		return nErr.Code == code
	}
	return false
}
