// Package apperror defines the typed failures the upload pipeline can
// surface and their mapping onto HTTP responses.
package apperror

import (
	"fmt"
	"net/http"
)

type Kind int

const (
	KindMissingField Kind = iota
	KindInvalidMultipart
	KindFileTooLarge
	KindInvalidFileType
	KindConfiguration
	KindDatabase
	KindObjectStorageUpload
	KindPathParse
	KindJSONParsing
	KindExternalService
	KindServerInit
)

func (k Kind) String() string {
	switch k {
	case KindMissingField:
		return "MissingField"
	case KindInvalidMultipart:
		return "InvalidMultipart"
	case KindFileTooLarge:
		return "FileTooLarge"
	case KindInvalidFileType:
		return "InvalidFileType"
	case KindConfiguration:
		return "Configuration"
	case KindDatabase:
		return "Database"
	case KindObjectStorageUpload:
		return "ObjectStorageUpload"
	case KindPathParse:
		return "PathParse"
	case KindJSONParsing:
		return "JsonParsing"
	case KindExternalService:
		return "ExternalServiceCall"
	case KindServerInit:
		return "ServerInit"
	default:
		return "Unknown"
	}
}

// Error carries a failure kind, a human-readable message and an optional
// wrapped cause. Callers branch on Kind, never on message text.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// HTTPStatus maps caller-input problems to 400 and everything downstream
// to 500.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindMissingField, KindInvalidMultipart, KindFileTooLarge, KindInvalidFileType:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// MissingField reports an absent required multipart field or filename.
func MissingField(name string) *Error {
	return New(KindMissingField, "missing required field or filename: %s", name)
}

// FileTooLarge reports an uploaded part exceeding the configured cap.
func FileTooLarge(size, maxSize int64) *Error {
	return New(KindFileTooLarge, "file too large: %d bytes (max: %d bytes)", size, maxSize)
}
