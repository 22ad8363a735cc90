// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stratumerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsErrorMatchesCode(t *testing.T) {
	err := MakeError(ErrInvalidSubmission, "extranonce2 length mismatch", nil)
	if !IsError(err, ErrInvalidSubmission) {
		t.Fatalf("IsError should match the wrapped code")
	}
	if IsError(err, ErrUnknownID) {
		t.Fatalf("IsError should not match a different code")
	}
}

func TestIsErrorThroughWrap(t *testing.T) {
	inner := MakeError(ErrParse, "malformed json-rpc message", nil)
	wrapped := fmt.Errorf("reading frame: %w", inner)
	if !IsError(wrapped, ErrParse) {
		t.Fatalf("IsError should see through fmt.Errorf wrapping")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := MakeError(ErrOther, "allocator failed", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is should find the wrapped cause")
	}
}

func TestErrorCodeString(t *testing.T) {
	if ErrBadParams.String() != "bad-params" {
		t.Fatalf("got %q", ErrBadParams.String())
	}
}
