package jsonrpc

import (
	"errors"
	"fmt"
)

// Error is a JSON-RPC 2.0 error with a code, a human readable message and
// optional diagnostic data. It is used both for errors received from the
// peer and for errors produced locally.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error returns a formatted string containing the RPC error code and message.
func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// Is reports whether target is an *Error with the same code and message.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code && e.Message == other.Message
}

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeTimeout        = -32000
	codeAborted        = -32001

	reservedCodeMin = -32768
	reservedCodeMax = -32000
)

// Protocol-level errors, all within the reserved code range.
func ParseError() *Error     { return &Error{Code: codeParseError, Message: "Parse error"} }
func InvalidRequest() *Error { return &Error{Code: codeInvalidRequest, Message: "Invalid Request"} }
func MethodNotFound() *Error { return &Error{Code: codeMethodNotFound, Message: "Method not found"} }
func InvalidParams() *Error  { return &Error{Code: codeInvalidParams, Message: "Invalid params"} }
func Timeout() *Error        { return &Error{Code: codeTimeout, Message: "Method timed out"} }
func Aborted() *Error        { return &Error{Code: codeAborted, Message: "Method aborted"} }

// NewApplicationError creates an application-defined error. Codes within the
// reserved range [-32768, -32000] belong to the protocol; asking for one is a
// programming error and panics.
func NewApplicationError(code int, message string, data any) *Error {
	if code >= reservedCodeMin && code <= reservedCodeMax {
		panic(fmt.Sprintf("jsonrpc: application error code %d is in the reserved range", code))
	}
	return &Error{Code: code, Message: message, Data: data}
}

// UnknownError is the catch-all application error for unexpected failures.
func UnknownError(data any) *Error {
	return NewApplicationError(0, "Unknown error", data)
}

// ErrNotImplemented marks a business method that the integration does not
// provide. The connection translates it to a method-not-found reply, which is
// how "recognized capability, not implemented here" is expressed on the wire.
var ErrNotImplemented = errors.New("not implemented")
