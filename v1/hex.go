// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package v1

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Kodylow/stratum/internal/stratumerr"
)

// HexBytes is an opaque byte string that serializes to lowercase hex ASCII
// without a leading 0x, as used for extranonce1, extranonce2, coinbase
// fragments and merkle branch hashes on the wire.
type HexBytes []byte

// ParseHexBytes decodes a lowercase hex string into a HexBytes value.
func ParseHexBytes(s string) (HexBytes, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, stratumerr.MakeError(stratumerr.ErrParse,
			fmt.Sprintf("invalid hex bytes %q", s), err)
	}
	return HexBytes(b), nil
}

// String returns the lowercase hex encoding of h.
func (h HexBytes) String() string {
	return hex.EncodeToString(h)
}

// MarshalJSON implements json.Marshaler.
func (h HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (h *HexBytes) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseHexBytes(s)
	if err != nil {
		return err
	}
	*h = v
	return nil
}

// HexU32Be is a 32-bit unsigned integer that serializes as an 8-character
// lowercase hex string, used for version, nBits, nTime, and version-rolling
// mask fields.
type HexU32Be uint32

// ParseHexU32Be decodes a hex string into a HexU32Be value.
func ParseHexU32Be(s string) (HexU32Be, error) {
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, stratumerr.MakeError(stratumerr.ErrParse,
			fmt.Sprintf("invalid hex u32 %q", s), err)
	}
	return HexU32Be(v), nil
}

// String returns the 8-character lowercase hex encoding of h.
func (h HexU32Be) String() string {
	return fmt.Sprintf("%08x", uint32(h))
}

// MarshalJSON implements json.Marshaler.
func (h HexU32Be) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (h *HexU32Be) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseHexU32Be(s)
	if err != nil {
		return err
	}
	*h = v
	return nil
}

// CheckMask reports whether submitted only flips bits that h (the
// server-announced version-rolling mask) permits. It encodes BIP 310
// semantics: submitted & ^h must be zero.
func (h HexU32Be) CheckMask(submitted HexU32Be) bool {
	return uint32(submitted)&^uint32(h) == 0
}
