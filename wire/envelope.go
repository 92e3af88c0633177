// File: wire/envelope.go
package wire

import (
	"bytes"
	stdjson "encoding/json"
	"errors"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	errEmptyBody = errors.New("empty response body")
	errNoStatus  = errors.New("response has no status field")
)

// Envelope is the parsed form of a successful protocol response. Value holds
// the command result still encoded, since only the caller knows its shape.
type Envelope struct {
	SessionID string             `json:"sessionId,omitempty"`
	Status    Status             `json:"status"`
	Value     stdjson.RawMessage `json:"value,omitempty"`
}

// Unmarshal decodes the envelope value into v. A missing or null value is
// left alone, matching commands that return nothing.
func (e *Envelope) Unmarshal(v any) error {
	if len(e.Value) == 0 {
		return nil
	}
	return json.Unmarshal(e.Value, v)
}

// Decode parses a response body into an Envelope. Bodies that are not JSON or
// lack a status field come back as *ProtocolError; envelopes with a non-zero
// status come back as *StatusError. The envelope is only returned on success.
func Decode(httpStatus int, body []byte) (*Envelope, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &ProtocolError{HTTPStatus: httpStatus, Detail: httpStatusHint(httpStatus), Err: errEmptyBody}
	}

	var probe struct {
		SessionID string             `json:"sessionId"`
		Status    *Status            `json:"status"`
		Value     stdjson.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, &ProtocolError{HTTPStatus: httpStatus, Detail: httpStatusHint(httpStatus), Err: err}
	}
	if probe.Status == nil {
		return nil, &ProtocolError{HTTPStatus: httpStatus, Detail: httpStatusHint(httpStatus), Err: errNoStatus}
	}

	env := &Envelope{SessionID: probe.SessionID, Status: *probe.Status, Value: probe.Value}
	if env.Status != StatusSuccess {
		return nil, newStatusError(env)
	}
	return env, nil
}

// EncodeParams marshals command parameters for a POST body. The protocol
// requires a JSON object even for commands without parameters, so nil encodes
// as an empty object.
func EncodeParams(v any) ([]byte, error) {
	if v == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(v)
}

func newStatusError(env *Envelope) *StatusError {
	se := &StatusError{Code: env.Status, Value: env.Value}

	var detail struct {
		Message    string       `json:"message"`
		Screen     string       `json:"screen"`
		Class      string       `json:"class"`
		StackTrace []StackFrame `json:"stackTrace"`
	}
	if err := json.Unmarshal(env.Value, &detail); err == nil {
		se.Message = detail.Message
		se.Screen = detail.Screen
		se.Class = detail.Class
		se.StackTrace = detail.StackTrace
		return se
	}

	// Some drivers put a bare string where the error object belongs.
	var s string
	if json.Unmarshal(env.Value, &s) == nil {
		se.Message = s
	}
	return se
}
