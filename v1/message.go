// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package v1 implements the line-delimited JSON-RPC stratum protocol
// generation: the message model, the method registry, and the server-side
// and client-side session state machines built on top of them.
package v1

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Kodylow/stratum/internal/stratumerr"
)

// MessageKind classifies a parsed json-rpc message.
type MessageKind int

const (
	// KindRequest is a message with a method and a non-null id.
	KindRequest MessageKind = iota
	// KindNotification is a message with a method and a null id.
	KindNotification
	// KindResponse is a message with no method field.
	KindResponse
)

// ID is a scalar JSON-RPC message identifier: an integer, a string, or the
// null sentinel used by notifications. The zero value is the null id.
type ID struct {
	v any
}

// NewIntID wraps an integer as an ID.
func NewIntID(n int64) ID { return ID{v: n} }

// NewStringID wraps a string as an ID.
func NewStringID(s string) ID { return ID{v: s} }

// NullID returns the null id sentinel used by notifications.
func NullID() ID { return ID{v: nil} }

// IsNull reports whether id is the null sentinel.
func (id ID) IsNull() bool { return id.v == nil }

// Value returns the underlying int64, string, or nil.
func (id ID) Value() any { return id.v }

// String renders the id for logging and map-key display.
func (id ID) String() string {
	switch t := id.v.(type) {
	case nil:
		return "null"
	case int64:
		return strconv.FormatInt(t, 10)
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

// MarshalJSON implements json.Marshaler.
func (id ID) MarshalJSON() ([]byte, error) {
	switch t := id.v.(type) {
	case nil:
		return []byte("null"), nil
	case int64:
		return []byte(strconv.FormatInt(t, 10)), nil
	default:
		return json.Marshal(t)
	}
}

// UnmarshalJSON implements json.Unmarshaler. Numeric ids are normalized to
// int64 so that request ids assigned as integers compare equal to the ids
// echoed back on the wire.
func (id *ID) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		id.v = nil
		return nil
	}
	if len(s) > 0 && s[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		id.v = str
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	id.v = int64(f)
	return nil
}

// StratumError is the (code, message[, data]) tuple carried on a Response's
// error field.
type StratumError struct {
	Code    int
	Message string
	Data    any
}

// MarshalJSON renders the error as the wire tuple shape.
func (e *StratumError) MarshalJSON() ([]byte, error) {
	if e.Data != nil {
		return json.Marshal([]any{e.Code, e.Message, e.Data})
	}
	return json.Marshal([]any{e.Code, e.Message})
}

// UnmarshalJSON parses the wire tuple shape. It is never invoked for a null
// error field; encoding/json leaves the destination pointer nil instead.
func (e *StratumError) UnmarshalJSON(b []byte) error {
	var arr []json.RawMessage
	if err := json.Unmarshal(b, &arr); err != nil {
		return err
	}
	if len(arr) < 2 {
		return fmt.Errorf("stratum error: expected at least 2 elements, got %d", len(arr))
	}
	if err := json.Unmarshal(arr[0], &e.Code); err != nil {
		return err
	}
	if err := json.Unmarshal(arr[1], &e.Message); err != nil {
		return err
	}
	if len(arr) > 2 {
		var data any
		if err := json.Unmarshal(arr[2], &data); err != nil {
			return err
		}
		e.Data = data
	}
	return nil
}

// Request is a json-rpc request or notification (a Notification is a
// Request whose ID is the null sentinel).
type Request struct {
	ID     ID     `json:"id"`
	Method string `json:"method"`
	Params []any  `json:"params"`
}

// Response is a json-rpc response. Exactly one of Result or Error is
// populated.
type Response struct {
	ID     ID            `json:"id"`
	Result any           `json:"result"`
	Error  *StratumError `json:"error"`
}

// envelope is used only to classify a raw message before committing to a
// concrete Request or Response decode.
type envelope struct {
	Method *string `json:"method"`
}

// ParseMessage classifies and decodes a raw json-rpc line. It returns
// either a *Request (for KindRequest/KindNotification) or a *Response (for
// KindResponse).
func ParseMessage(raw []byte) (any, MessageKind, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, 0, stratumerr.MakeError(stratumerr.ErrParse, "malformed json-rpc message", err)
	}

	if env.Method != nil {
		var req Request
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, 0, stratumerr.MakeError(stratumerr.ErrParse, "malformed request", err)
		}
		if req.ID.IsNull() {
			return &req, KindNotification, nil
		}
		return &req, KindRequest, nil
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, 0, stratumerr.MakeError(stratumerr.ErrParse, "malformed response", err)
	}
	if resp.ID.IsNull() {
		return nil, 0, stratumerr.MakeError(stratumerr.ErrParse, "response missing id", nil)
	}
	return &resp, KindResponse, nil
}

// IsResponse reports whether kind identifies a Response message.
func IsResponse(kind MessageKind) bool {
	return kind == KindResponse
}
