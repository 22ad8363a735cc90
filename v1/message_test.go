// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package v1

import (
	"encoding/json"
	"testing"

	"github.com/Kodylow/stratum/internal/stratumerr"
)

func TestParseMessageClassifiesRequest(t *testing.T) {
	_, kind, err := ParseMessage([]byte(`{"id":1,"method":"mining.authorize","params":["alice","pw"]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != KindRequest {
		t.Fatalf("got kind %v, want KindRequest", kind)
	}
}

func TestParseMessageClassifiesNotification(t *testing.T) {
	_, kind, err := ParseMessage([]byte(`{"id":null,"method":"mining.notify","params":[]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != KindNotification {
		t.Fatalf("got kind %v, want KindNotification", kind)
	}
}

func TestParseMessageClassifiesResponse(t *testing.T) {
	_, kind, err := ParseMessage([]byte(`{"id":1,"result":true,"error":null}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != KindResponse {
		t.Fatalf("got kind %v, want KindResponse", kind)
	}
	if !IsResponse(kind) {
		t.Fatalf("IsResponse(KindResponse) = false")
	}
}

func TestParseMessageResponseMissingIDIsError(t *testing.T) {
	_, _, err := ParseMessage([]byte(`{"id":null,"result":true,"error":null}`))
	if !stratumerr.IsError(err, stratumerr.ErrParse) {
		t.Fatalf("got %v, want ErrParse", err)
	}
}

func TestIDRoundTrip(t *testing.T) {
	cases := []ID{NewIntID(7), NewStringID("seven"), NullID()}
	for _, id := range cases {
		b, err := json.Marshal(id)
		if err != nil {
			t.Fatalf("marshal %v: %v", id, err)
		}
		var got ID
		if err := json.Unmarshal(b, &got); err != nil {
			t.Fatalf("unmarshal %s: %v", b, err)
		}
		if got.Value() != id.Value() {
			t.Fatalf("round trip %v -> %s -> %v", id.Value(), b, got.Value())
		}
	}
}

func TestStratumErrorRoundTrip(t *testing.T) {
	e := &StratumError{Code: 21, Message: "job not found", Data: nil}
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got StratumError
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal %s: %v", b, err)
	}
	if got.Code != e.Code || got.Message != e.Message {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, e)
	}
}

func TestResponseExactlyOneOfResultError(t *testing.T) {
	resp := &Response{ID: NewIntID(1), Result: true, Error: nil}
	b, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(decoded["error"]) != "null" {
		t.Fatalf("error field = %s, want null", decoded["error"])
	}
	if string(decoded["result"]) != "true" {
		t.Fatalf("result field = %s, want true", decoded["result"])
	}
}
