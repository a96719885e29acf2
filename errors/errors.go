package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the workflow runner: terminal failures abort
// the invocation, retryable ones are handed back to the scheduler.
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindNotReady           Kind = "not_ready"
	KindTrackNotReady      Kind = "track_not_ready"
	KindFetchError         Kind = "fetch_error"
	KindEmptyTranscript    Kind = "empty_transcript"
	KindGenerationFailed   Kind = "generation_failed"
	KindStorageError       Kind = "storage_error"
	KindBadRequest         Kind = "bad_request"
	KindDuplicate          Kind = "duplicate"
	KindVerificationFailed Kind = "verification_failed"
	KindInternal           Kind = "internal"
)

type AppError struct {
	Code    int    `json:"-"`
	Kind    Kind   `json:"-"`
	Message string `json:"error"`
	Op      string `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func InvalidInput(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Kind:    KindBadRequest,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

func NotFound(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Kind:    KindNotFound,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

func Internal(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusInternalServerError,
		Kind:    KindInternal,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// NotReady reports a video record missing the host identifiers required
// before enrichment can start.
func NotReady(op string, message string) *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Kind:    KindNotReady,
		Message: message,
		Op:      op,
	}
}

// TrackNotReady reports a subtitle track that the host has not finished
// preparing. The observed status is kept in the message for diagnostics.
func TrackNotReady(op string, status string) *AppError {
	if status == "" {
		status = "unknown"
	}
	return &AppError{
		Code:    http.StatusConflict,
		Kind:    KindTrackNotReady,
		Message: fmt.Sprintf("Video track is not ready yet. Current status: %s", status),
		Op:      op,
	}
}

// FetchError reports a non-success response from the transcript host.
func FetchError(op string, status int, body string) *AppError {
	return &AppError{
		Code:    http.StatusBadGateway,
		Kind:    KindFetchError,
		Message: fmt.Sprintf("Failed to fetch transcript: %d %s", status, body),
		Op:      op,
	}
}

func EmptyTranscript(op string, message string) *AppError {
	return &AppError{
		Code:    http.StatusBadGateway,
		Kind:    KindEmptyTranscript,
		Message: message,
		Op:      op,
	}
}

func GenerationFailed(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusBadGateway,
		Kind:    KindGenerationFailed,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

func Storage(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusInternalServerError,
		Kind:    KindStorageError,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// Duplicate reports a uniqueness-constraint violation. Read-through-create
// callers treat it as "already created, re-read".
func Duplicate(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusConflict,
		Kind:    KindDuplicate,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

func IsDuplicate(err error) bool {
	return Is(err, KindDuplicate)
}

func VerificationFailed(op string, err error) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Kind:    KindVerificationFailed,
		Message: "Error: Verification error",
		Op:      op,
		Err:     err,
	}
}

// E builds an AppError with an explicit HTTP status code.
func E(op string, err error, message string, code int) *AppError {
	kind := KindInternal
	switch {
	case code == http.StatusNotFound:
		kind = KindNotFound
	case code >= 400 && code < 500:
		kind = KindBadRequest
	}
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// KindOf extracts the Kind from err, unwrapping as needed.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func IsNotFound(err error) bool {
	return Is(err, KindNotFound)
}

// IsTerminal reports whether a workflow step failure cannot succeed by
// re-running it without external state change.
func IsTerminal(err error) bool {
	switch KindOf(err) {
	case KindNotFound, KindNotReady, KindTrackNotReady, KindBadRequest, KindDuplicate, KindVerificationFailed:
		return true
	}
	return false
}

// IsRetryable reports whether the scheduler may re-attempt the failed step.
func IsRetryable(err error) bool {
	return !IsTerminal(err)
}
