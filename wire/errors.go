// File: wire/errors.go
package wire

import (
	stdjson "encoding/json"
	"fmt"
)

// StackFrame is one entry of a server-side stack trace attached to a failed
// command. Most drivers send an empty list.
type StackFrame struct {
	FileName   string `json:"fileName"`
	ClassName  string `json:"className"`
	MethodName string `json:"methodName"`
	LineNumber int    `json:"lineNumber"`
}

// StatusError is a command the remote end executed and rejected: the envelope
// parsed cleanly but carried a non-zero status. The Value field preserves the
// raw envelope value for callers that want driver-specific detail.
type StatusError struct {
	Code       Status
	Message    string
	Screen     string
	Class      string
	StackTrace []StackFrame
	Value      stdjson.RawMessage
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ProtocolError is a response the client could not make sense of: a body that
// is not JSON, or JSON with no status field. Detail carries the conventional
// meaning of the HTTP status code when one applies.
type ProtocolError struct {
	HTTPStatus int
	Detail     string
	Err        error
}

func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("malformed response (HTTP %d", e.HTTPStatus)
	if e.Detail != "" {
		msg += ", " + e.Detail
	}
	msg += ")"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// httpStatusHint maps the HTTP status codes the protocol assigns meaning to
// onto short explanations, for responses whose body gives nothing better.
func httpStatusHint(code int) string {
	switch code {
	case 400:
		return "missing command parameters"
	case 404:
		return "unknown command or resource not found"
	case 405:
		return "invalid command method"
	case 500:
		return "failed command"
	case 501:
		return "unimplemented command"
	}
	return ""
}
