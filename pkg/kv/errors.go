package kv

import (
	"errors"
	"fmt"

	"github.com/cfkv/workers-kv-go/internal/cfapi"
)

// Code discriminates the service errors the client recognises.
type Code string

const (
	CodeKeyNotFound            Code = "KEY_NOT_FOUND"
	CodeNamespaceNotFound      Code = "NAMESPACE_NOT_FOUND"
	CodeNamespaceAlreadyExists Code = "NAMESPACE_ALREADY_EXISTS"
)

// Error is a recognised service failure. Two Errors match under errors.Is
// when their Codes are equal, so callers compare against the sentinels.
type Error struct {
	Code    Code
	APICode int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Message
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	// ErrKeyNotFound matches failures for keys absent from a namespace.
	ErrKeyNotFound = &Error{Code: CodeKeyNotFound, APICode: cfapi.CodeKeyNotFound}
	// ErrNamespaceNotFound matches failures for unknown namespace ids.
	ErrNamespaceNotFound = &Error{Code: CodeNamespaceNotFound, APICode: cfapi.CodeNamespaceNotFound}
	// ErrNamespaceAlreadyExists matches namespace title collisions.
	ErrNamespaceAlreadyExists = &Error{Code: CodeNamespaceAlreadyExists, APICode: cfapi.CodeNamespaceAlreadyExists}

	// ErrNoNamespace is returned by key operations on a handle that is not
	// bound to a namespace.
	ErrNoNamespace = errors.New("kv: client is not bound to a namespace")
)

// APIError is a service failure with a code the client does not map.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// UnknownResponseError is returned when the service reports failure
// without any error entries. Body holds the envelope as received.
type UnknownResponseError struct {
	Body []byte
}

func (e *UnknownResponseError) Error() string {
	return "Unknown response: " + string(e.Body)
}

func errorFromEntry(entry cfapi.ErrorEntry) error {
	switch entry.Code {
	case cfapi.CodeKeyNotFound:
		return &Error{Code: CodeKeyNotFound, APICode: entry.Code, Message: entry.Message}
	case cfapi.CodeNamespaceNotFound:
		return &Error{Code: CodeNamespaceNotFound, APICode: entry.Code, Message: entry.Message}
	case cfapi.CodeNamespaceAlreadyExists:
		return &Error{Code: CodeNamespaceAlreadyExists, APICode: entry.Code, Message: entry.Message}
	default:
		return &APIError{Code: entry.Code, Message: entry.Message}
	}
}
