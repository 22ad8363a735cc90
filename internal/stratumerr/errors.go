// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package stratumerr defines the error taxonomy shared by the v1 and v2
// stratum packages, in the shape of the errors package eacrpool's pool
// package imports but does not vendor in this source tree.
package stratumerr

import (
	"errors"
	"fmt"
)

// ErrorCode identifies the kind of a protocol-level error.
type ErrorCode int

const (
	// ErrParse indicates wire data that does not conform to the JSON-RPC
	// or v2 frame layout.
	ErrParse ErrorCode = iota

	// ErrUnknownMethod indicates a method name the registry does not
	// recognize.
	ErrUnknownMethod

	// ErrBadParams indicates a method's parameters are missing, of the
	// wrong arity, or of the wrong type.
	ErrBadParams

	// ErrInvalidJSONRPCMessageKind indicates a party received a message
	// shape it can never legally receive (e.g. a v1 server receiving a
	// Response).
	ErrInvalidJSONRPCMessageKind

	// ErrInvalidReceiver indicates a message that is valid on the wire
	// but is not legal for the receiving endpoint (e.g. a client
	// receiving an unrecognized server-initiated request).
	ErrInvalidReceiver

	// ErrUnknownID indicates a response id with no matching outstanding
	// request.
	ErrUnknownID

	// ErrInvalidSubmission indicates a mining.submit failed validation.
	ErrInvalidSubmission

	// ErrStateViolation indicates an outbound builder was invoked in a
	// session state that forbids it.
	ErrStateViolation

	// ErrOther is a catch-all for errors outside the taxonomy above.
	ErrOther
)

// String returns a human-readable name for the error code.
func (c ErrorCode) String() string {
	switch c {
	case ErrParse:
		return "parse"
	case ErrUnknownMethod:
		return "unknown-method"
	case ErrBadParams:
		return "bad-params"
	case ErrInvalidJSONRPCMessageKind:
		return "invalid-json-rpc-message-kind"
	case ErrInvalidReceiver:
		return "invalid-receiver"
	case ErrUnknownID:
		return "unknown-id"
	case ErrInvalidSubmission:
		return "invalid-submission"
	case ErrStateViolation:
		return "state-violation"
	default:
		return "other"
	}
}

// Error represents a stratum core error.
type Error struct {
	ErrorCode   ErrorCode
	Description string
	Err         error
}

// Error satisfies the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.ErrorCode, e.Description, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.ErrorCode, e.Description)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// MakeError creates an Error instance with the given code, description and
// wrapped cause.
func MakeError(code ErrorCode, desc string, err error) *Error {
	return &Error{
		ErrorCode:   code,
		Description: desc,
		Err:         err,
	}
}

// IsError returns true if the provided error wraps a stratum Error with
// the given code.
func IsError(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.ErrorCode == code
	}
	return false
}
