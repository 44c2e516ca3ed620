package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/datalake-go/adlfs/pkg/protocol"
)

// TransportError is any non-success HTTP outcome that is not a NotFound or
// a flush-position violation. Status 0 means the request failed before a
// response was received.
type TransportError struct {
	Method string
	Path   string
	Status int
	Body   string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NotFoundError means the service reported that the path does not exist.
type NotFoundError struct {
	Path string
	Code string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("path not found: %s", e.Path)
}

// ProtocolError is a flush rejected for a non-contiguous or mismatched
// position, a provider-side contract violation. It is never retried.
type ProtocolError struct {
	Path    string
	Code    string
	Message string
	Status  int
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol violation on %s: %s: %s", e.Path, e.Code, e.Message)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// classify converts a non-success response into a typed error. The error
// code comes from the response envelope when there is a body, and from the
// x-ms-error-code header otherwise (HEAD responses have no body).
func classify(method, path string, status int, header http.Header, body []byte) error {
	code := header.Get(protocol.HeaderErrorCode)
	message := ""
	if len(body) > 0 {
		var envelope protocol.ErrorResponse
		if json.Unmarshal(body, &envelope) == nil && envelope.Error.Code != "" {
			code = envelope.Error.Code
			message = envelope.Error.Message
		}
	}

	switch code {
	case protocol.CodePathNotFound, protocol.CodeFilesystemNotFound, protocol.CodeBlobNotFound:
		return &NotFoundError{Path: path, Code: code}
	case protocol.CodeInvalidFlushPosition:
		return &ProtocolError{Path: path, Code: code, Message: message, Status: status}
	}
	if status == http.StatusNotFound {
		return &NotFoundError{Path: path, Code: code}
	}
	return &TransportError{Method: method, Path: path, Status: status, Body: string(body)}
}
